package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type task struct{ assignedTo string }

func (t task) Assignee() string { return t.assignedTo }

func TestCanEditGlobal(t *testing.T) {
	cases := []struct {
		name     string
		identity *Identity
		allow    bool
	}{
		{name: "admin", identity: &Identity{ID: "a", Role: RoleAdmin}, allow: true},
		{name: "lawyer", identity: &Identity{ID: "l", Role: RoleLawyer}, allow: false},
		{name: "intern", identity: &Identity{ID: "i", Role: RoleIntern}, allow: false},
		{name: "unknown role", identity: &Identity{ID: "x", Role: "PARALEGAL"}, allow: false},
		{name: "nil identity", identity: nil, allow: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.allow, CanEditGlobal(tc.identity))
			assert.Equal(t, tc.allow, CanEditCase(tc.identity))
		})
	}
}

func TestIsTaskVisible(t *testing.T) {
	own := task{assignedTo: "intern-1"}
	other := task{assignedTo: "intern-2"}

	cases := []struct {
		name     string
		identity *Identity
		task     task
		visible  bool
	}{
		{name: "admin sees other", identity: &Identity{ID: "admin-1", Role: RoleAdmin}, task: other, visible: true},
		{name: "lawyer sees other", identity: &Identity{ID: "lawyer-1", Role: RoleLawyer}, task: other, visible: true},
		{name: "intern sees own", identity: &Identity{ID: "intern-1", Role: RoleIntern}, task: own, visible: true},
		{name: "intern blind to other", identity: &Identity{ID: "intern-1", Role: RoleIntern}, task: other, visible: false},
		{name: "unknown role", identity: &Identity{ID: "intern-1", Role: "GUEST"}, task: own, visible: false},
		{name: "nil identity", identity: nil, task: own, visible: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.visible, IsTaskVisible(tc.identity, tc.task))
		})
	}
}

func TestCanDragTask(t *testing.T) {
	own := task{assignedTo: "me"}
	other := task{assignedTo: "someone"}

	assert.True(t, CanDragTask(&Identity{ID: "me", Role: RoleAdmin}, other))
	assert.True(t, CanDragTask(&Identity{ID: "me", Role: RoleIntern}, own))
	assert.False(t, CanDragTask(&Identity{ID: "me", Role: RoleIntern}, other))
	assert.False(t, CanDragTask(&Identity{ID: "me", Role: ""}, own))
	assert.False(t, CanDragTask(nil, own))
}

func TestLawyerNeverDrags(t *testing.T) {
	lawyer := &Identity{ID: "lawyer-1", Role: RoleLawyer}
	for _, assignee := range []string{"lawyer-1", "intern-1", "admin-1", ""} {
		assert.False(t, CanDragTask(lawyer, task{assignedTo: assignee}), "assignee %q", assignee)
	}
}

func TestVisibleTasksKeepsOrderAndNeverNil(t *testing.T) {
	tasks := []task{{assignedTo: "a"}, {assignedTo: "b"}, {assignedTo: "a"}}

	got := VisibleTasks(&Identity{ID: "a", Role: RoleIntern}, tasks)
	assert.Equal(t, []task{{assignedTo: "a"}, {assignedTo: "a"}}, got)

	none := VisibleTasks(&Identity{ID: "c", Role: RoleIntern}, tasks)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	assert.Len(t, VisibleTasks(&Identity{ID: "z", Role: RoleLawyer}, tasks), 3)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, RoleAdmin, Normalize("ADMIN"))
	assert.Equal(t, RoleIntern, Normalize("INTERN"))
	assert.Equal(t, Role(""), Normalize("admin"))
	assert.Equal(t, Role(""), Normalize("viewer"))
	assert.False(t, Role("").Valid())
	assert.True(t, RoleLawyer.Valid())
}
