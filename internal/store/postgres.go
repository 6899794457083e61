package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Profiles

func (s *PostgresStore) ListProfiles(ctx context.Context) ([]Profile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	items := make([]Profile, 0)
	for rows.Next() {
		item, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetProfile(ctx context.Context, id string) (Profile, error) {
	item, err := scanProfile(s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id=$1`, id))
	if err != nil {
		return Profile{}, notFound(err, "get profile")
	}
	return item, nil
}

func (s *PostgresStore) GetProfileByEmail(ctx context.Context, email string) (Profile, error) {
	item, err := scanProfile(s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE LOWER(email)=LOWER($1)`, email))
	if err != nil {
		return Profile{}, notFound(err, "get profile by email")
	}
	return item, nil
}

func (s *PostgresStore) InsertProfile(ctx context.Context, p Profile) (Profile, error) {
	item, err := scanProfile(s.db.QueryRowContext(ctx, `
		INSERT INTO profiles (id, name, email, role, avatar, password_hash, email_confirmed, confirmation_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+profileColumns,
		p.ID, p.Name, p.Email, string(p.Role), p.Avatar, p.PasswordHash, p.EmailConfirmed, p.ConfirmationToken,
	))
	if err != nil {
		return Profile{}, conflict(err, "insert profile")
	}
	return item, nil
}

func (s *PostgresStore) ConfirmProfile(ctx context.Context, token string) (Profile, error) {
	item, err := scanProfile(s.db.QueryRowContext(ctx, `
		UPDATE profiles SET email_confirmed=TRUE, confirmation_token=''
		WHERE confirmation_token=$1 AND confirmation_token <> ''
		RETURNING `+profileColumns, token))
	if err != nil {
		return Profile{}, notFound(err, "confirm profile")
	}
	return item, nil
}

// Sessions

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, profileID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, profile_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET profile_id=EXCLUDED.profile_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, profileID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

// ConsumeRefreshSession revokes a live session and returns its profile id in
// one statement; a concurrent second caller matches no row.
func (s *PostgresStore) ConsumeRefreshSession(ctx context.Context, tokenHash string) (string, error) {
	var profileID string
	err := s.db.QueryRowContext(ctx, `
		UPDATE refresh_sessions SET revoked_at=NOW()
		WHERE token_hash=$1 AND revoked_at IS NULL AND expires_at > NOW()
		RETURNING profile_id
	`, tokenHash).Scan(&profileID)
	if err != nil {
		return "", notFound(err, "consume refresh session")
	}
	return profileID, nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

// Cases

func (s *PostgresStore) ListCases(ctx context.Context) ([]Case, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+caseColumns+` FROM cases ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	items := make([]Case, 0)
	for rows.Next() {
		item, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cases: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetCase(ctx context.Context, id string) (Case, error) {
	item, err := scanCase(s.db.QueryRowContext(ctx, `SELECT `+caseColumns+` FROM cases WHERE id=$1`, id))
	if err != nil {
		return Case{}, notFound(err, "get case")
	}
	return item, nil
}

func (s *PostgresStore) InsertCase(ctx context.Context, c Case) (Case, error) {
	item, err := scanCase(s.db.QueryRowContext(ctx, `
		INSERT INTO cases (id, number, title, client_name, opposing_party, status, responsible_lawyer_id, observations, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+caseColumns,
		c.ID, c.Number, c.Title, c.ClientName, c.OpposingParty, string(c.Status), c.ResponsibleLawyerID, c.Observations, createdAt(c.CreatedAt),
	))
	if err != nil {
		return Case{}, conflict(err, "insert case")
	}
	return item, nil
}

func (s *PostgresStore) UpdateCase(ctx context.Context, id string, patch CasePatch) (Case, error) {
	a := caseAssignments(patch)
	if a.empty() {
		return s.GetCase(ctx, id)
	}
	query, args := buildUpdate("cases", a, id)
	item, err := scanCase(s.db.QueryRowContext(ctx, query+` RETURNING `+caseColumns, args...))
	if err != nil {
		return Case{}, conflict(notFound(err, "update case"), "update case")
	}
	return item, nil
}

// Tasks

const taskWithCommentsQuery = `
	SELECT t.id, t.title, t.description, COALESCE(t.case_id, ''), t.assigned_to, t.due_date, t.status, t.priority,
		c.id, c.user_id, p.name, c.content, c.created_at, c.seq
	FROM tasks t
	LEFT JOIN comments c ON c.task_id = t.id
	LEFT JOIN profiles p ON p.id = c.user_id
`

// ListTasks returns every task ordered by due date with its comment thread,
// author names included, in one round trip.
func (s *PostgresStore) ListTasks(ctx context.Context) ([]Task, error) {
	return s.queryTasks(ctx, taskWithCommentsQuery+` ORDER BY t.due_date ASC, t.id ASC, c.created_at ASC, c.seq ASC`)
}

func (s *PostgresStore) GetTask(ctx context.Context, id string) (Task, error) {
	tasks, err := s.queryTasks(ctx, taskWithCommentsQuery+` WHERE t.id=$1 ORDER BY c.created_at ASC, c.seq ASC`, id)
	if err != nil {
		return Task{}, err
	}
	if len(tasks) == 0 {
		return Task{}, ErrNotFound
	}
	return tasks[0], nil
}

func (s *PostgresStore) queryTasks(ctx context.Context, query string, args ...any) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var rowsOut []taskRow
	for rows.Next() {
		var row taskRow
		var status, priority string
		if err := rows.Scan(
			&row.task.ID, &row.task.Title, &row.task.Description, &row.task.CaseID, &row.task.AssignedTo,
			&row.task.DueDate, &status, &priority,
			&row.commentID, &row.userID, &row.userName, &row.content, &row.timestamp, &row.seq,
		); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		row.task.Status = TaskStatus(status)
		row.task.Priority = Priority(priority)
		rowsOut = append(rowsOut, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return groupTaskRows(rowsOut), nil
}

// taskRow is one line of the tasks LEFT JOIN comments result.
type taskRow struct {
	task      Task
	commentID sql.NullString
	userID    sql.NullString
	userName  sql.NullString
	content   sql.NullString
	timestamp sql.NullTime
	seq       sql.NullInt64
}

// DefaultAuthorName is shown when a comment's author profile is gone.
const DefaultAuthorName = "User"

func groupTaskRows(rows []taskRow) []Task {
	tasks := make([]Task, 0)
	index := map[string]int{}
	for _, row := range rows {
		i, ok := index[row.task.ID]
		if !ok {
			task := row.task
			task.Comments = make([]Comment, 0)
			tasks = append(tasks, task)
			i = len(tasks) - 1
			index[task.ID] = i
		}
		if !row.commentID.Valid {
			continue
		}
		name := DefaultAuthorName
		if row.userName.Valid && strings.TrimSpace(row.userName.String) != "" {
			name = row.userName.String
		}
		tasks[i].Comments = append(tasks[i].Comments, Comment{
			ID:        row.commentID.String,
			TaskID:    row.task.ID,
			UserID:    row.userID.String,
			UserName:  name,
			Content:   row.content.String,
			Timestamp: row.timestamp.Time,
			Seq:       row.seq.Int64,
		})
	}
	for i := range tasks {
		SortComments(tasks[i].Comments)
	}
	return tasks
}

func (s *PostgresStore) InsertTask(ctx context.Context, t Task) (Task, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, title, description, case_id, assigned_to, due_date, status, priority)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, t.ID, t.Title, t.Description, nilIfEmpty(t.CaseID), t.AssignedTo, t.DueDate.UTC(), string(t.Status), string(t.Priority))
	if err != nil {
		return Task{}, conflict(err, "insert task")
	}
	return s.GetTask(ctx, t.ID)
}

func (s *PostgresStore) UpdateTask(ctx context.Context, id string, patch TaskPatch) (Task, error) {
	a := taskAssignments(patch)
	if a.empty() {
		return s.GetTask(ctx, id)
	}
	query, args := buildUpdate("tasks", a, id)
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return Task{}, fmt.Errorf("update task: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return Task{}, ErrNotFound
	}
	return s.GetTask(ctx, id)
}

// Comments

func (s *PostgresStore) InsertComment(ctx context.Context, c Comment) (Comment, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO comments (id, task_id, user_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING seq
	`, c.ID, c.TaskID, c.UserID, c.Content, c.Timestamp.UTC()).Scan(&c.Seq)
	if err != nil {
		return Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) ListComments(ctx context.Context, taskID string) ([]Comment, error) {
	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return task.Comments, nil
}

// Contacts

func (s *PostgresStore) ListContacts(ctx context.Context) ([]Contact, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+contactColumns+` FROM contacts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	items := make([]Contact, 0)
	for rows.Next() {
		item, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertContact(ctx context.Context, c Contact) (Contact, error) {
	item, err := scanContact(s.db.QueryRowContext(ctx, `
		INSERT INTO contacts (id, name, type, email, phone, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+contactColumns,
		c.ID, c.Name, string(c.Type), c.Email, c.Phone, c.Notes,
	))
	if err != nil {
		return Contact{}, fmt.Errorf("insert contact: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) UpdateContact(ctx context.Context, id string, patch ContactPatch) (Contact, error) {
	a := contactAssignments(patch)
	if a.empty() {
		item, err := scanContact(s.db.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id=$1`, id))
		if err != nil {
			return Contact{}, notFound(err, "get contact")
		}
		return item, nil
	}
	query, args := buildUpdate("contacts", a, id)
	item, err := scanContact(s.db.QueryRowContext(ctx, query+` RETURNING `+contactColumns, args...))
	if err != nil {
		return Contact{}, notFound(err, "update contact")
	}
	return item, nil
}

// Case documents

func (s *PostgresStore) ListCaseDocuments(ctx context.Context, caseID string) ([]CaseDocument, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+documentColumns+` FROM case_documents WHERE case_id=$1 ORDER BY created_at DESC`, caseID)
	if err != nil {
		return nil, fmt.Errorf("list case documents: %w", err)
	}
	defer rows.Close()

	items := make([]CaseDocument, 0)
	for rows.Next() {
		item, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan case document: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate case documents: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertCaseDocument(ctx context.Context, d CaseDocument) (CaseDocument, error) {
	item, err := scanDocument(s.db.QueryRowContext(ctx, `
		INSERT INTO case_documents (id, case_id, name, url, file_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+documentColumns,
		d.ID, d.CaseID, d.Name, d.URL, d.FileType, createdAt(d.CreatedAt),
	))
	if err != nil {
		return CaseDocument{}, fmt.Errorf("insert case document: %w", err)
	}
	return item, nil
}

// createdAt keeps a caller supplied creation time and stamps the current time
// otherwise.
func createdAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

func notFound(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func conflict(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
