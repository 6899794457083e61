package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/agenda"
	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/rbac"
	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/store"
)

// ListTasks returns the tasks the identity may see, ordered by due date.
func (s *Service) ListTasks(ctx context.Context, identity *rbac.Identity) ([]store.Task, error) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	return rbac.VisibleTasks(identity, tasks), nil
}

func (s *Service) CreateTask(ctx context.Context, identity *rbac.Identity, input store.Task) (store.Task, error) {
	if !rbac.CanEditGlobal(identity) {
		return store.Task{}, ErrPolicyDenied
	}

	t := store.Task{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		CaseID:      strings.TrimSpace(input.CaseID),
		AssignedTo:  strings.TrimSpace(input.AssignedTo),
		DueDate:     input.DueDate,
		Status:      input.Status,
		Priority:    input.Priority,
	}
	if t.Status == "" {
		t.Status = store.TaskPending
	}
	if t.Priority == "" {
		t.Priority = store.PriorityMedium
	}
	switch {
	case t.Title == "":
		return store.Task{}, validationError("title", "title is required")
	case t.AssignedTo == "":
		return store.Task{}, validationError("assignedTo", "assignedTo is required")
	case t.DueDate.IsZero():
		return store.Task{}, validationError("dueDate", "dueDate is required")
	case !t.Status.Valid():
		return store.Task{}, validationError("status", "status must be one of PENDING, IN_PROGRESS, COMPLETED")
	case !t.Priority.Valid():
		return store.Task{}, validationError("priority", "priority must be one of LOW, MEDIUM, HIGH")
	}
	if err := s.requireProfile(ctx, "assignedTo", t.AssignedTo); err != nil {
		return store.Task{}, err
	}
	if err := s.requireCase(ctx, t.CaseID); err != nil {
		return store.Task{}, err
	}

	created, err := s.store.InsertTask(ctx, t)
	if err != nil {
		return store.Task{}, err
	}
	log.WithFields(log.Fields{"operation": "create_task", "task_id": created.ID, "assigned_to": created.AssignedTo}).Info("task created")
	return created, nil
}

// UpdateTask applies a partial update. Whoever may reschedule a task may also
// change its status and details; reassigning it or linking it to another
// case needs global edit rights.
func (s *Service) UpdateTask(ctx context.Context, identity *rbac.Identity, id string, patch store.TaskPatch) (store.Task, error) {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return store.Task{}, err
	}
	if !rbac.CanDragTask(identity, task) {
		return store.Task{}, ErrPolicyDenied
	}
	if (patch.AssignedTo != nil || patch.CaseID != nil) && !rbac.CanEditGlobal(identity) {
		return store.Task{}, ErrPolicyDenied
	}

	trimPointers(patch.Title, patch.Description, patch.CaseID, patch.AssignedTo)
	switch {
	case patch.Title != nil && *patch.Title == "":
		return store.Task{}, validationError("title", "title is required")
	case patch.AssignedTo != nil && *patch.AssignedTo == "":
		return store.Task{}, validationError("assignedTo", "assignedTo is required")
	case patch.DueDate != nil && patch.DueDate.IsZero():
		return store.Task{}, validationError("dueDate", "dueDate is required")
	case patch.Status != nil && !patch.Status.Valid():
		return store.Task{}, validationError("status", "status must be one of PENDING, IN_PROGRESS, COMPLETED")
	case patch.Priority != nil && !patch.Priority.Valid():
		return store.Task{}, validationError("priority", "priority must be one of LOW, MEDIUM, HIGH")
	}
	if patch.AssignedTo != nil {
		if err := s.requireProfile(ctx, "assignedTo", *patch.AssignedTo); err != nil {
			return store.Task{}, err
		}
	}
	if patch.CaseID != nil {
		if err := s.requireCase(ctx, *patch.CaseID); err != nil {
			return store.Task{}, err
		}
	}

	return s.store.UpdateTask(ctx, id, patch)
}

// MoveTask reschedules a task to the calendar day of target, keeping its time
// of day. Moving onto the day it is already on changes nothing.
func (s *Service) MoveTask(ctx context.Context, identity *rbac.Identity, id string, target time.Time) (store.Task, error) {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return store.Task{}, err
	}
	if !rbac.CanDragTask(identity, task) {
		log.WithFields(log.Fields{"operation": "move_task", "task_id": id}).Debug("move denied")
		return store.Task{}, ErrPolicyDenied
	}

	day := target.In(s.location())
	if agenda.SameDay(day, task.DueDate) {
		return task, nil
	}
	due := agenda.MoveDueDate(task.DueDate, day).UTC()
	return s.store.UpdateTask(ctx, id, store.TaskPatch{DueDate: &due})
}

func (s *Service) AppendComment(ctx context.Context, identity *rbac.Identity, taskID, content string) (store.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return store.Comment{}, ErrEmptyContent
	}
	if identity == nil {
		return store.Comment{}, ErrPolicyDenied
	}

	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return store.Comment{}, err
	}
	if !rbac.IsTaskVisible(identity, task) {
		return store.Comment{}, ErrPolicyDenied
	}

	comment, err := s.store.InsertComment(ctx, store.Comment{
		ID:        uuid.NewString(),
		TaskID:    task.ID,
		UserID:    identity.ID,
		UserName:  identity.Name,
		Content:   content,
		Timestamp: s.Now().UTC(),
	})
	if err != nil {
		return store.Comment{}, err
	}
	if comment.UserName == "" {
		comment.UserName = identity.Name
	}
	return comment, nil
}

// ListComments returns one thread in display order.
func (s *Service) ListComments(ctx context.Context, identity *rbac.Identity, taskID string) ([]store.Comment, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !rbac.IsTaskVisible(identity, task) {
		return nil, ErrPolicyDenied
	}
	comments, err := s.store.ListComments(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []store.Comment{}
	}
	return comments, nil
}

// Agenda buckets the visible tasks into the work week containing weekOf. A
// zero weekOf means the current week.
func (s *Service) Agenda(ctx context.Context, identity *rbac.Identity, weekOf time.Time) (agenda.Week[store.Task], error) {
	start := agenda.Today(s.Now())
	if !weekOf.IsZero() {
		start = agenda.WeekStart(weekOf.In(s.location()))
	}
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		return agenda.Week[store.Task]{}, err
	}
	return agenda.VisibleWeek(identity, tasks, start), nil
}

func (s *Service) requireCase(ctx context.Context, caseID string) error {
	if caseID == "" {
		return nil
	}
	if _, err := s.store.GetCase(ctx, caseID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return validationError("caseId", "caseId must reference an existing case")
		}
		return err
	}
	return nil
}
