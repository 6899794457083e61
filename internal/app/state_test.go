package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/auth"
	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/authpw"
	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/rbac"
	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/store"
)

func TestStateFollowsAuthEvents(t *testing.T) {
	svc, ms := newTestService(june)
	ms.addTask(store.Task{ID: "mine", AssignedTo: internID.ID, DueDate: june})
	ms.addTask(store.Task{ID: "theirs", AssignedTo: intern2.ID, DueDate: june})

	notifier := auth.NewNotifier()
	state := NewState(svc)
	state.Init(notifier)
	defer state.Teardown()

	notifier.Publish(auth.Event{Kind: auth.EventSignedIn, Identity: internID})

	require.NotNil(t, state.CurrentUser())
	assert.Equal(t, internID.ID, state.CurrentUser().ID)
	assert.False(t, state.Loading())
	assert.False(t, state.CanEdit())
	visible := state.VisibleTasks()
	require.Len(t, visible, 1)
	assert.Equal(t, "mine", visible[0].ID)
	assert.Len(t, state.Snapshot().Users, 4)

	notifier.Publish(auth.Event{Kind: auth.EventSignedOut})

	assert.Nil(t, state.CurrentUser())
	snap := state.Snapshot()
	assert.Nil(t, snap.CurrentUser)
	assert.Empty(t, snap.Users)
	assert.Empty(t, snap.Tasks)
}

func TestStateTeardownStopsUpdates(t *testing.T) {
	svc, _ := newTestService(june)
	notifier := auth.NewNotifier()
	state := NewState(svc)
	state.Init(notifier)
	state.Teardown()
	state.Teardown()

	notifier.Publish(auth.Event{Kind: auth.EventSignedIn, Identity: adminID})
	assert.Nil(t, state.CurrentUser())
}

func TestStateReloadUsesStoredRole(t *testing.T) {
	svc, _ := newTestService(june)
	state := NewState(svc)

	claimed := &rbac.Identity{ID: internID.ID, Name: internID.Name, Role: rbac.RoleAdmin}
	require.NoError(t, state.Reload(context.Background(), claimed))
	assert.Equal(t, rbac.RoleIntern, state.CurrentUser().Role)
	assert.False(t, state.CanEdit())

	err := state.Reload(context.Background(), &rbac.Identity{ID: "ghost"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, state.Loading())
}

func TestSignInDrivesStateThroughService(t *testing.T) {
	ctx := context.Background()
	svc, ms := newTestService(june)
	svc.passwords = authpw.NewService(ms, false)
	svc.notifier = auth.NewNotifier()

	state := NewState(svc)
	state.Init(svc.notifier)
	defer state.Teardown()

	result, err := svc.Register(ctx, RegisterInput{Name: "Ana Souza", Email: "Ana@Firm.test", Password: "secret1"})
	require.NoError(t, err)
	require.NotNil(t, result.Session)
	assert.False(t, result.LoginRequired)

	require.NotNil(t, state.CurrentUser())
	assert.Equal(t, "Ana Souza", state.CurrentUser().Name)
	assert.Equal(t, rbac.RoleIntern, state.CurrentUser().Role)

	require.NoError(t, svc.Logout(ctx, *result.Session, result.Session.RefreshToken))
	assert.Nil(t, state.CurrentUser())
}

func TestStateMutationsRefetch(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(june)
	state := NewState(svc)
	require.NoError(t, state.Reload(ctx, adminID))
	assert.True(t, state.CanEdit())

	c, err := state.AddCase(ctx, store.Case{Number: "0001/2024", Title: "Contract Dispute", ClientName: "Acme"})
	require.NoError(t, err)
	require.Len(t, state.Snapshot().Cases, 1)

	task, err := state.AddTask(ctx, store.Task{Title: "File motion", AssignedTo: internID.ID, CaseID: c.ID, DueDate: time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.Len(t, state.VisibleTasks(), 1)

	_, err = state.MoveTask(ctx, task.ID, time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 12, state.VisibleTasks()[0].DueDate.Day())

	_, err = state.AppendComment(ctx, task.ID, "Filed.")
	require.NoError(t, err)
	require.Len(t, state.VisibleTasks()[0].Comments, 1)

	done := store.TaskCompleted
	_, err = state.UpdateTask(ctx, task.ID, store.TaskPatch{Status: &done})
	require.NoError(t, err)
	assert.Equal(t, store.TaskCompleted, state.VisibleTasks()[0].Status)

	suspended := store.CaseSuspended
	_, err = state.UpdateCase(ctx, c.ID, store.CasePatch{Status: &suspended})
	require.NoError(t, err)
	assert.Equal(t, store.CaseSuspended, state.Snapshot().Cases[0].Status)

	_, err = state.AddContact(ctx, store.Contact{Name: "Beta Corp", Type: store.ContactOpposing})
	require.NoError(t, err)
	assert.Len(t, state.Snapshot().Contacts, 1)

	svc.blob = &fakeBlob{}
	_, err = state.AttachDocument(ctx, c.ID, []byte("hello"), "notes.txt", "")
	require.NoError(t, err)
}

func TestStateFailedWriteLeavesCollections(t *testing.T) {
	ctx := context.Background()
	svc, ms := newTestService(june)
	due := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	ms.addTask(store.Task{ID: "t1", AssignedTo: internID.ID, DueDate: due})

	state := NewState(svc)
	require.NoError(t, state.Reload(ctx, lawyerID))

	_, err := state.MoveTask(ctx, "t1", time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrPolicyDenied)
	assert.True(t, state.VisibleTasks()[0].DueDate.Equal(due))

	_, err = state.AddCase(ctx, store.Case{Number: "1", Title: "t", ClientName: "c"})
	assert.ErrorIs(t, err, ErrPolicyDenied)
	assert.Empty(t, state.Snapshot().Cases)
}

func TestStateStats(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC)
	svc, ms := newTestService(now)
	ms.cases["k1"] = store.Case{ID: "k1", Number: "1", Status: store.CaseOpen}
	ms.cases["k2"] = store.Case{ID: "k2", Number: "2", Status: store.CaseArchived}
	ms.addTask(store.Task{ID: "a", AssignedTo: internID.ID, DueDate: time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)})
	ms.addTask(store.Task{ID: "b", AssignedTo: internID.ID, DueDate: time.Date(2024, 6, 11, 9, 0, 0, 0, time.UTC), Status: store.TaskCompleted})
	ms.addTask(store.Task{ID: "c", AssignedTo: intern2.ID, DueDate: time.Date(2024, 6, 10, 11, 0, 0, 0, time.UTC)})

	state := NewState(svc)
	require.NoError(t, state.Reload(ctx, internID))
	assert.Equal(t, DashboardStats{OpenCases: 1, TasksToday: 1, PendingTasks: 1}, state.Stats(now))

	require.NoError(t, state.Reload(ctx, adminID))
	assert.Equal(t, DashboardStats{OpenCases: 1, TasksToday: 2, PendingTasks: 2}, state.Stats(now))
}
