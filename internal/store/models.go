package store

import (
	"errors"
	"time"

	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/rbac"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

type CaseStatus string

const (
	CaseOpen      CaseStatus = "OPEN"
	CaseArchived  CaseStatus = "ARCHIVED"
	CaseSuspended CaseStatus = "SUSPENDED"
)

func (s CaseStatus) Valid() bool {
	switch s {
	case CaseOpen, CaseArchived, CaseSuspended:
		return true
	}
	return false
}

type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type ContactType string

const (
	ContactClient   ContactType = "CLIENT"
	ContactOpposing ContactType = "OPPOSING"
	ContactPartner  ContactType = "PARTNER"
)

func (c ContactType) Valid() bool {
	switch c {
	case ContactClient, ContactOpposing, ContactPartner:
		return true
	}
	return false
}

// Profile is an authenticated user record. The auth columns never leave the
// store through JSON.
type Profile struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Role              rbac.Role `json:"role"`
	Avatar            string    `json:"avatar"`
	PasswordHash      string    `json:"-"`
	EmailConfirmed    bool      `json:"-"`
	ConfirmationToken string    `json:"-"`
	CreatedAt         time.Time `json:"-"`
}

func (p Profile) Identity() *rbac.Identity {
	return &rbac.Identity{ID: p.ID, Name: p.Name, Role: rbac.Normalize(string(p.Role))}
}

type Case struct {
	ID                  string     `json:"id"`
	Number              string     `json:"number"`
	Title               string     `json:"title"`
	ClientName          string     `json:"clientName"`
	OpposingParty       string     `json:"opposingParty"`
	Status              CaseStatus `json:"status"`
	ResponsibleLawyerID string     `json:"responsibleLawyerId"`
	Observations        string     `json:"observations,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
}

// CasePatch carries only the fields a caller wants changed.
type CasePatch struct {
	Number              *string     `json:"number,omitempty"`
	Title               *string     `json:"title,omitempty"`
	ClientName          *string     `json:"clientName,omitempty"`
	OpposingParty       *string     `json:"opposingParty,omitempty"`
	Status              *CaseStatus `json:"status,omitempty"`
	ResponsibleLawyerID *string     `json:"responsibleLawyerId,omitempty"`
	Observations        *string     `json:"observations,omitempty"`
}

type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CaseID      string     `json:"caseId,omitempty"`
	AssignedTo  string     `json:"assignedTo"`
	DueDate     time.Time  `json:"dueDate"`
	Status      TaskStatus `json:"status"`
	Priority    Priority   `json:"priority"`
	Comments    []Comment  `json:"comments"`
}

func (t Task) Assignee() string { return t.AssignedTo }
func (t Task) Due() time.Time   { return t.DueDate }

type TaskPatch struct {
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	CaseID      *string     `json:"caseId,omitempty"`
	AssignedTo  *string     `json:"assignedTo,omitempty"`
	DueDate     *time.Time  `json:"dueDate,omitempty"`
	Status      *TaskStatus `json:"status,omitempty"`
	Priority    *Priority   `json:"priority,omitempty"`
}

// Comment is immutable once stored. Seq records insertion order and breaks
// timestamp ties.
type Comment struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"-"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Seq       int64     `json:"-"`
}

type Contact struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Type  ContactType `json:"type"`
	Email string      `json:"email"`
	Phone string      `json:"phone"`
	Notes string      `json:"notes,omitempty"`
}

type ContactPatch struct {
	Name  *string      `json:"name,omitempty"`
	Type  *ContactType `json:"type,omitempty"`
	Email *string      `json:"email,omitempty"`
	Phone *string      `json:"phone,omitempty"`
	Notes *string      `json:"notes,omitempty"`
}

type CaseDocument struct {
	ID        string    `json:"id"`
	CaseID    string    `json:"caseId"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	FileType  string    `json:"fileType"`
	CreatedAt time.Time `json:"createdAt"`
}

type RefreshSession struct {
	TokenHash string
	ProfileID string
	ExpiresAt time.Time
}
