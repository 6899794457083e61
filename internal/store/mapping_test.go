package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUpdateOnlyTouchesPresentFields(t *testing.T) {
	title := "Revised title"
	status := CaseArchived
	query, args := buildUpdate("cases", caseAssignments(CasePatch{Title: &title, Status: &status}), "case-1")

	assert.Equal(t, "UPDATE cases SET title=$1, status=$2 WHERE id=$3", query)
	assert.Equal(t, []any{"Revised title", "ARCHIVED", "case-1"}, args)
}

func TestTaskAssignmentsClearCaseAndNormaliseDueDate(t *testing.T) {
	empty := ""
	brt := time.FixedZone("BRT", -3*60*60)
	due := time.Date(2024, time.June, 12, 9, 0, 0, 0, brt)

	a := taskAssignments(TaskPatch{CaseID: &empty, DueDate: &due})

	require.Equal(t, []string{"case_id", "due_date"}, a.columns)
	assert.Nil(t, a.values[0])
	assert.Equal(t, time.UTC, a.values[1].(time.Time).Location())
	assert.True(t, a.values[1].(time.Time).Equal(due))
}

func TestEmptyPatchHasNoAssignments(t *testing.T) {
	assert.True(t, (&assignments{}).empty())
	a := contactAssignments(ContactPatch{})
	assert.True(t, a.empty())
	a = caseAssignments(CasePatch{})
	assert.True(t, a.empty())
}

func TestSortCommentsByTimestampThenInsertion(t *testing.T) {
	base := time.Date(2024, time.June, 10, 9, 0, 0, 0, time.UTC)
	comments := []Comment{
		{ID: "c", Timestamp: base.Add(time.Minute), Seq: 1},
		{ID: "b", Timestamp: base, Seq: 3},
		{ID: "a", Timestamp: base, Seq: 2},
	}

	SortComments(comments)

	ids := []string{comments[0].ID, comments[1].ID, comments[2].ID}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestGroupTaskRowsKeepsTaskOrderAndDefaultsAuthor(t *testing.T) {
	base := time.Date(2024, time.June, 10, 9, 0, 0, 0, time.UTC)
	rows := []taskRow{
		{task: Task{ID: "t1"}},
		{
			task:      Task{ID: "t2"},
			commentID: sql.NullString{String: "c2", Valid: true},
			userID:    sql.NullString{String: "u1", Valid: true},
			content:   sql.NullString{String: "second", Valid: true},
			timestamp: sql.NullTime{Time: base.Add(time.Hour), Valid: true},
			seq:       sql.NullInt64{Int64: 2, Valid: true},
		},
		{
			task:      Task{ID: "t2"},
			commentID: sql.NullString{String: "c1", Valid: true},
			userID:    sql.NullString{String: "u2", Valid: true},
			userName:  sql.NullString{String: "Ana", Valid: true},
			content:   sql.NullString{String: "first", Valid: true},
			timestamp: sql.NullTime{Time: base, Valid: true},
			seq:       sql.NullInt64{Int64: 1, Valid: true},
		},
	}

	tasks := groupTaskRows(rows)

	require.Len(t, tasks, 2)
	assert.Equal(t, "t1", tasks[0].ID)
	assert.NotNil(t, tasks[0].Comments)
	assert.Empty(t, tasks[0].Comments)

	require.Len(t, tasks[1].Comments, 2)
	assert.Equal(t, "first", tasks[1].Comments[0].Content)
	assert.Equal(t, "Ana", tasks[1].Comments[0].UserName)
	assert.Equal(t, DefaultAuthorName, tasks[1].Comments[1].UserName)
	assert.Equal(t, "t2", tasks[1].Comments[1].TaskID)
}

func TestProfileIdentityNormalisesRole(t *testing.T) {
	identity := Profile{ID: "u1", Name: "Ana", Role: "LAWYER"}.Identity()
	assert.Equal(t, "u1", identity.ID)
	assert.EqualValues(t, "LAWYER", identity.Role)

	assert.EqualValues(t, "", Profile{ID: "u2", Role: "superuser"}.Identity().Role)
}
