// Package authpw provides email/password authentication with confirmation.
package authpw

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/rbac"
	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/store"
)

const MinPasswordLength = 6

var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrEmailNotConfirmed  = errors.New("email not confirmed")
	ErrAlreadyRegistered  = errors.New("user already registered")
	ErrInvalidToken       = errors.New("invalid or expired confirmation token")
)

// ValidationError is returned for malformed sign-up or sign-in input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// UserStore is the slice of the repository the auth flow needs.
type UserStore interface {
	GetProfileByEmail(ctx context.Context, email string) (store.Profile, error)
	InsertProfile(ctx context.Context, profile store.Profile) (store.Profile, error)
	ConfirmProfile(ctx context.Context, token string) (store.Profile, error)
}

type Service struct {
	store               UserStore
	requireConfirmation bool
}

// NewService builds the password flow. When requireConfirmation is false new
// accounts are confirmed on creation.
func NewService(userStore UserStore, requireConfirmation bool) *Service {
	return &Service{store: userStore, requireConfirmation: requireConfirmation}
}

type SignUpRequest struct {
	Name     string
	Email    string
	Password string
	Role     rbac.Role
}

type SignUpResponse struct {
	Profile              store.Profile
	ConfirmationToken    string
	RequiresConfirmation bool
}

// SignUp creates a profile. The role is fixed here and never changes after.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (*SignUpResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "name is required"}
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, &ValidationError{Field: "email", Message: "a valid email is required"}
	}
	if len(req.Password) < MinPasswordLength {
		return nil, &ValidationError{Field: "password", Message: fmt.Sprintf("password must be at least %d characters", MinPasswordLength)}
	}
	role := req.Role
	if role == "" {
		role = rbac.RoleIntern
	}
	if !role.Valid() {
		return nil, &ValidationError{Field: "role", Message: "role must be ADMIN, LAWYER or INTERN"}
	}

	if _, err := s.store.GetProfileByEmail(ctx, email); err == nil {
		return nil, ErrAlreadyRegistered
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("lookup profile: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var token string
	if s.requireConfirmation {
		token, err = generateToken()
		if err != nil {
			return nil, fmt.Errorf("generate confirmation token: %w", err)
		}
	}

	profile, err := s.store.InsertProfile(ctx, store.Profile{
		ID:                uuid.NewString(),
		Name:              name,
		Email:             email,
		Role:              role,
		Avatar:            AvatarURL(name),
		PasswordHash:      string(hash),
		EmailConfirmed:    !s.requireConfirmation,
		ConfirmationToken: token,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}

	return &SignUpResponse{
		Profile:              profile,
		ConfirmationToken:    token,
		RequiresConfirmation: s.requireConfirmation,
	}, nil
}

type SignInRequest struct {
	Email    string
	Password string
}

// SignIn checks the password before the confirmation flag so an unconfirmed
// account never leaks through a wrong password.
func (s *Service) SignIn(ctx context.Context, req SignInRequest) (store.Profile, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return store.Profile{}, ErrInvalidCredentials
	}

	profile, err := s.store.GetProfileByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Profile{}, ErrInvalidCredentials
		}
		return store.Profile{}, fmt.Errorf("lookup profile: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(req.Password)); err != nil {
		return store.Profile{}, ErrInvalidCredentials
	}
	if !profile.EmailConfirmed {
		return store.Profile{}, ErrEmailNotConfirmed
	}
	return profile, nil
}

func (s *Service) Confirm(ctx context.Context, token string) (store.Profile, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return store.Profile{}, ErrInvalidToken
	}
	profile, err := s.store.ConfirmProfile(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Profile{}, ErrInvalidToken
		}
		return store.Profile{}, fmt.Errorf("confirm profile: %w", err)
	}
	return profile, nil
}

// AvatarURL derives a generated avatar from the display name.
func AvatarURL(name string) string {
	escaped := strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
	return "https://ui-avatars.com/api/?name=" + escaped + "&background=0f1f3a&color=fff"
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
