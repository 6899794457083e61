package app

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/rbac"
	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/store"
)

func (s *Service) ListCases(ctx context.Context) ([]store.Case, error) {
	return s.store.ListCases(ctx)
}

func (s *Service) CreateCase(ctx context.Context, identity *rbac.Identity, input store.Case) (store.Case, error) {
	if !rbac.CanEditGlobal(identity) {
		return store.Case{}, ErrPolicyDenied
	}

	c := store.Case{
		ID:                  uuid.NewString(),
		Number:              strings.TrimSpace(input.Number),
		Title:               strings.TrimSpace(input.Title),
		ClientName:          strings.TrimSpace(input.ClientName),
		OpposingParty:       strings.TrimSpace(input.OpposingParty),
		Status:              input.Status,
		ResponsibleLawyerID: strings.TrimSpace(input.ResponsibleLawyerID),
		Observations:        strings.TrimSpace(input.Observations),
		CreatedAt:           s.Now().UTC(),
	}
	if c.Status == "" {
		c.Status = store.CaseOpen
	}
	if c.ResponsibleLawyerID == "" {
		c.ResponsibleLawyerID = identity.ID
	}
	if err := validateCase(c); err != nil {
		return store.Case{}, err
	}
	if err := s.requireProfile(ctx, "responsibleLawyerId", c.ResponsibleLawyerID); err != nil {
		return store.Case{}, err
	}

	created, err := s.store.InsertCase(ctx, c)
	if err != nil {
		return store.Case{}, caseConflict(err)
	}
	log.WithFields(log.Fields{"operation": "create_case", "case_id": created.ID, "user_id": identity.ID}).Info("case created")
	s.indexCase(created)
	return created, nil
}

func (s *Service) UpdateCase(ctx context.Context, identity *rbac.Identity, id string, patch store.CasePatch) (store.Case, error) {
	if !rbac.CanEditCase(identity) {
		return store.Case{}, ErrPolicyDenied
	}
	trimPointers(patch.Number, patch.Title, patch.ClientName, patch.OpposingParty, patch.ResponsibleLawyerID, patch.Observations)
	required := []struct {
		field string
		value *string
	}{
		{"number", patch.Number},
		{"title", patch.Title},
		{"clientName", patch.ClientName},
		{"responsibleLawyerId", patch.ResponsibleLawyerID},
	}
	for _, r := range required {
		if r.value != nil && *r.value == "" {
			return store.Case{}, validationError(r.field, r.field+" is required")
		}
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return store.Case{}, validationError("status", "status must be one of OPEN, ARCHIVED, SUSPENDED")
	}
	if patch.ResponsibleLawyerID != nil {
		if err := s.requireProfile(ctx, "responsibleLawyerId", *patch.ResponsibleLawyerID); err != nil {
			return store.Case{}, err
		}
	}

	updated, err := s.store.UpdateCase(ctx, id, patch)
	if err != nil {
		return store.Case{}, caseConflict(err)
	}
	s.indexCase(updated)
	return updated, nil
}

func validateCase(c store.Case) error {
	switch {
	case c.Number == "":
		return validationError("number", "number is required")
	case c.Title == "":
		return validationError("title", "title is required")
	case c.ClientName == "":
		return validationError("clientName", "clientName is required")
	case !c.Status.Valid():
		return validationError("status", "status must be one of OPEN, ARCHIVED, SUSPENDED")
	}
	return nil
}

func caseConflict(err error) error {
	if errors.Is(err, store.ErrConflict) {
		return domainError(http.StatusConflict, "CASE_NUMBER_TAKEN", "A case with this number already exists.", nil)
	}
	return err
}

func (s *Service) ListContacts(ctx context.Context) ([]store.Contact, error) {
	return s.store.ListContacts(ctx)
}

func (s *Service) CreateContact(ctx context.Context, identity *rbac.Identity, input store.Contact) (store.Contact, error) {
	if !rbac.CanEditGlobal(identity) {
		return store.Contact{}, ErrPolicyDenied
	}
	c := store.Contact{
		ID:    uuid.NewString(),
		Name:  strings.TrimSpace(input.Name),
		Type:  input.Type,
		Email: strings.TrimSpace(input.Email),
		Phone: strings.TrimSpace(input.Phone),
		Notes: strings.TrimSpace(input.Notes),
	}
	if c.Name == "" {
		return store.Contact{}, validationError("name", "name is required")
	}
	if !c.Type.Valid() {
		return store.Contact{}, validationError("type", "type must be one of CLIENT, OPPOSING, PARTNER")
	}

	created, err := s.store.InsertContact(ctx, c)
	if err != nil {
		return store.Contact{}, err
	}
	s.indexContact(created)
	return created, nil
}

func (s *Service) UpdateContact(ctx context.Context, identity *rbac.Identity, id string, patch store.ContactPatch) (store.Contact, error) {
	if !rbac.CanEditGlobal(identity) {
		return store.Contact{}, ErrPolicyDenied
	}
	trimPointers(patch.Name, patch.Email, patch.Phone, patch.Notes)
	if patch.Name != nil && *patch.Name == "" {
		return store.Contact{}, validationError("name", "name is required")
	}
	if patch.Type != nil && !patch.Type.Valid() {
		return store.Contact{}, validationError("type", "type must be one of CLIENT, OPPOSING, PARTNER")
	}

	updated, err := s.store.UpdateContact(ctx, id, patch)
	if err != nil {
		return store.Contact{}, err
	}
	s.indexContact(updated)
	return updated, nil
}

// requireProfile turns a dangling user reference into a validation error.
func (s *Service) requireProfile(ctx context.Context, field, id string) error {
	if _, err := s.store.GetProfile(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return validationError(field, field+" must reference an existing user")
		}
		return err
	}
	return nil
}

func trimPointers(values ...*string) {
	for _, value := range values {
		if value != nil {
			*value = strings.TrimSpace(*value)
		}
	}
}
