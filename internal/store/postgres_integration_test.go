package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openIntegrationStore(t *testing.T) (*PostgresStore, context.Context) {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	t.Cleanup(cancel)

	db, err := Open(ctx, dsn, DefaultPoolConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, resetPublicSchema(ctx, db))
	_, err = ApplyMigrations(ctx, db, filepath.Join("..", "..", "db", "migrations"))
	require.NoError(t, err)
	return NewPostgresStore(db), ctx
}

func TestPostgresStoreTaskThread(t *testing.T) {
	s, ctx := openIntegrationStore(t)

	author, err := s.InsertProfile(ctx, Profile{ID: "u1", Name: "Ana", Email: "ana@example.com", Role: "LAWYER", PasswordHash: "x", EmailConfirmed: true})
	require.NoError(t, err)

	due := time.Date(2024, time.June, 12, 14, 30, 0, 0, time.UTC)
	task, err := s.InsertTask(ctx, Task{ID: "t1", Title: "Draft appeal", AssignedTo: author.ID, DueDate: due, Status: TaskPending, Priority: PriorityHigh})
	require.NoError(t, err)
	assert.Empty(t, task.CaseID)
	assert.NotNil(t, task.Comments)

	stamp := time.Date(2024, time.June, 10, 9, 0, 0, 0, time.UTC)
	for _, id := range []string{"c1", "c2"} {
		_, err := s.InsertComment(ctx, Comment{ID: id, TaskID: task.ID, UserID: author.ID, Content: "note " + id, Timestamp: stamp})
		require.NoError(t, err)
	}

	comments, err := s.ListComments(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "c1", comments[0].ID)
	assert.Equal(t, "c2", comments[1].ID)
	assert.Equal(t, "Ana", comments[0].UserName)

	_, err = s.DB().ExecContext(ctx, `UPDATE comments SET content='edited' WHERE id='c1'`)
	require.Error(t, err)

	newDue := due.AddDate(0, 0, 1)
	moved, err := s.UpdateTask(ctx, task.ID, TaskPatch{DueDate: &newDue})
	require.NoError(t, err)
	assert.True(t, moved.DueDate.Equal(newDue))
	assert.Len(t, moved.Comments, 2)

	_, err = s.UpdateTask(ctx, "missing", TaskPatch{DueDate: &newDue})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPostgresStoreCaseLifecycle(t *testing.T) {
	s, ctx := openIntegrationStore(t)

	lawyer, err := s.InsertProfile(ctx, Profile{ID: "u1", Name: "Ana", Email: "ana@example.com", Role: "ADMIN", PasswordHash: "x"})
	require.NoError(t, err)

	_, err = s.InsertProfile(ctx, Profile{ID: "u2", Name: "Ana 2", Email: "ANA@example.com", Role: "INTERN", PasswordHash: "x"})
	assert.True(t, errors.Is(err, ErrConflict))

	opened := time.Date(2024, time.June, 10, 9, 0, 0, 0, time.UTC)
	created, err := s.InsertCase(ctx, Case{ID: "k1", Number: "0001-22", Title: "Silva v. Souza", ClientName: "Silva", Status: CaseOpen, ResponsibleLawyerID: lawyer.ID, CreatedAt: opened})
	require.NoError(t, err)
	assert.True(t, created.CreatedAt.Equal(opened), created.CreatedAt)

	unstamped, err := s.InsertCase(ctx, Case{ID: "k3", Number: "0002-22", Title: "Lima v. Costa", ClientName: "Lima", Status: CaseOpen, ResponsibleLawyerID: lawyer.ID})
	require.NoError(t, err)
	assert.False(t, unstamped.CreatedAt.IsZero())

	_, err = s.InsertCase(ctx, Case{ID: "k2", Number: "0001-22", Title: "Dup", ClientName: "X", Status: CaseOpen, ResponsibleLawyerID: lawyer.ID})
	assert.True(t, errors.Is(err, ErrConflict))

	archived := CaseArchived
	updated, err := s.UpdateCase(ctx, created.ID, CasePatch{Status: &archived})
	require.NoError(t, err)
	assert.Equal(t, CaseArchived, updated.Status)
	assert.Equal(t, created.Title, updated.Title)

	_, err = s.UpdateCase(ctx, "missing", CasePatch{Status: &archived})
	assert.True(t, errors.Is(err, ErrNotFound))

	doc, err := s.InsertCaseDocument(ctx, CaseDocument{ID: "d1", CaseID: created.ID, Name: "petition.pdf", URL: "http://blob/cases/k1/d1-petition.pdf", FileType: "application/pdf", CreatedAt: opened})
	require.NoError(t, err)
	assert.True(t, doc.CreatedAt.Equal(opened), doc.CreatedAt)
	docs, err := s.ListCaseDocuments(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, doc.URL, docs[0].URL)

	_, err = s.GetCase(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = s.GetProfileByEmail(ctx, "nobody@example.com")
	assert.True(t, errors.Is(err, sql.ErrNoRows) || errors.Is(err, ErrNotFound))
}
