package app

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/store"
)

var (
	// ErrPolicyDenied means the identity may not perform the action. Callers
	// should not have offered it.
	ErrPolicyDenied = errors.New("policy denied")
	ErrEmptyContent = errors.New("comment content is empty")
	ErrNotFound     = store.ErrNotFound
	ErrUpload       = errors.New("upload failed")
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func validationError(field, message string) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", message, map[string]any{"field": field})
}
