package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/rbac"
)

// Column names for each table. Entity field names never leak past this file
// and postgres.go.
const (
	profileColumns  = `id, name, email, role, avatar, password_hash, email_confirmed, confirmation_token, created_at`
	caseColumns     = `id, number, title, client_name, opposing_party, status, responsible_lawyer_id, observations, created_at`
	contactColumns  = `id, name, type, email, phone, notes`
	documentColumns = `id, case_id, name, url, file_type, created_at`
)

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (Profile, error) {
	var p Profile
	var role string
	err := row.Scan(&p.ID, &p.Name, &p.Email, &role, &p.Avatar, &p.PasswordHash, &p.EmailConfirmed, &p.ConfirmationToken, &p.CreatedAt)
	p.Role = rbac.Role(role)
	return p, err
}

func scanCase(row scanner) (Case, error) {
	var c Case
	var status string
	err := row.Scan(&c.ID, &c.Number, &c.Title, &c.ClientName, &c.OpposingParty, &status, &c.ResponsibleLawyerID, &c.Observations, &c.CreatedAt)
	c.Status = CaseStatus(status)
	return c, err
}

func scanContact(row scanner) (Contact, error) {
	var c Contact
	var contactType string
	err := row.Scan(&c.ID, &c.Name, &contactType, &c.Email, &c.Phone, &c.Notes)
	c.Type = ContactType(contactType)
	return c, err
}

func scanDocument(row scanner) (CaseDocument, error) {
	var d CaseDocument
	err := row.Scan(&d.ID, &d.CaseID, &d.Name, &d.URL, &d.FileType, &d.CreatedAt)
	return d, err
}

// assignments is an ordered list of column = value pairs for a partial update.
type assignments struct {
	columns []string
	values  []any
}

func (a *assignments) set(column string, value any) {
	a.columns = append(a.columns, column)
	a.values = append(a.values, value)
}

func (a *assignments) empty() bool {
	return len(a.columns) == 0
}

func caseAssignments(p CasePatch) assignments {
	var a assignments
	if p.Number != nil {
		a.set("number", *p.Number)
	}
	if p.Title != nil {
		a.set("title", *p.Title)
	}
	if p.ClientName != nil {
		a.set("client_name", *p.ClientName)
	}
	if p.OpposingParty != nil {
		a.set("opposing_party", *p.OpposingParty)
	}
	if p.Status != nil {
		a.set("status", string(*p.Status))
	}
	if p.ResponsibleLawyerID != nil {
		a.set("responsible_lawyer_id", *p.ResponsibleLawyerID)
	}
	if p.Observations != nil {
		a.set("observations", *p.Observations)
	}
	return a
}

func taskAssignments(p TaskPatch) assignments {
	var a assignments
	if p.Title != nil {
		a.set("title", *p.Title)
	}
	if p.Description != nil {
		a.set("description", *p.Description)
	}
	if p.CaseID != nil {
		a.set("case_id", nilIfEmpty(*p.CaseID))
	}
	if p.AssignedTo != nil {
		a.set("assigned_to", *p.AssignedTo)
	}
	if p.DueDate != nil {
		a.set("due_date", p.DueDate.UTC())
	}
	if p.Status != nil {
		a.set("status", string(*p.Status))
	}
	if p.Priority != nil {
		a.set("priority", string(*p.Priority))
	}
	return a
}

func contactAssignments(p ContactPatch) assignments {
	var a assignments
	if p.Name != nil {
		a.set("name", *p.Name)
	}
	if p.Type != nil {
		a.set("type", string(*p.Type))
	}
	if p.Email != nil {
		a.set("email", *p.Email)
	}
	if p.Phone != nil {
		a.set("phone", *p.Phone)
	}
	if p.Notes != nil {
		a.set("notes", *p.Notes)
	}
	return a
}

// buildUpdate renders an UPDATE touching only the assigned columns. The row id
// is always the last placeholder.
func buildUpdate(table string, a assignments, id string) (string, []any) {
	clauses := make([]string, len(a.columns))
	for i, column := range a.columns {
		clauses[i] = fmt.Sprintf("%s=$%d", column, i+1)
	}
	args := append(append([]any{}, a.values...), id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id=$%d", table, strings.Join(clauses, ", "), len(args))
	return query, args
}

// SortComments orders a thread by timestamp, ascending, with insertion order
// breaking ties.
func SortComments(comments []Comment) {
	sort.SliceStable(comments, func(i, j int) bool {
		if !comments[i].Timestamp.Equal(comments[j].Timestamp) {
			return comments[i].Timestamp.Before(comments[j].Timestamp)
		}
		return comments[i].Seq < comments[j].Seq
	})
}

func nilIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
