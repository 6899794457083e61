package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/auth"
	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/authpw"
	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/config"
	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/rbac"
	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/search"
	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/store"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Role         rbac.Role
	JTI          string
	ExpiresAt    time.Time
}

func (s Session) Identity() *rbac.Identity {
	return &rbac.Identity{ID: s.UserID, Name: s.UserName, Role: s.Role}
}

// dataStore is everything the service reads and writes in Postgres.
type dataStore interface {
	Ping(ctx context.Context) error

	ListProfiles(ctx context.Context) ([]store.Profile, error)
	GetProfile(ctx context.Context, id string) (store.Profile, error)

	ListCases(ctx context.Context) ([]store.Case, error)
	GetCase(ctx context.Context, id string) (store.Case, error)
	InsertCase(ctx context.Context, c store.Case) (store.Case, error)
	UpdateCase(ctx context.Context, id string, patch store.CasePatch) (store.Case, error)

	ListTasks(ctx context.Context) ([]store.Task, error)
	GetTask(ctx context.Context, id string) (store.Task, error)
	InsertTask(ctx context.Context, t store.Task) (store.Task, error)
	UpdateTask(ctx context.Context, id string, patch store.TaskPatch) (store.Task, error)

	InsertComment(ctx context.Context, c store.Comment) (store.Comment, error)
	ListComments(ctx context.Context, taskID string) ([]store.Comment, error)

	ListContacts(ctx context.Context) ([]store.Contact, error)
	InsertContact(ctx context.Context, c store.Contact) (store.Contact, error)
	UpdateContact(ctx context.Context, id string, patch store.ContactPatch) (store.Contact, error)

	ListCaseDocuments(ctx context.Context, caseID string) ([]store.CaseDocument, error)
	InsertCaseDocument(ctx context.Context, d store.CaseDocument) (store.CaseDocument, error)
}

// SessionStore keeps refresh sessions and revoked access tokens. Both the
// Postgres store and session.RedisStore satisfy it.
type SessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash, profileID string, expiresAt time.Time) error
	ConsumeRefreshSession(ctx context.Context, tokenHash string) (string, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
	RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error
	IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// BlobStore uploads file contents and returns their public URL.
type BlobStore interface {
	Upload(ctx context.Context, data []byte, objectPath, contentType string) (string, error)
}

type Mailer interface {
	IsConfigured() bool
	SendConfirmationEmail(to, userName, confirmURL string) error
}

// SearchIndex is the search facade as the service uses it.
type SearchIndex interface {
	Search(ctx context.Context, q search.Query) search.Response
	IndexCase(record search.CaseRecord)
	IndexContact(record search.ContactRecord)
}

type passwordAuth interface {
	SignUp(ctx context.Context, req authpw.SignUpRequest) (*authpw.SignUpResponse, error)
	SignIn(ctx context.Context, req authpw.SignInRequest) (store.Profile, error)
	Confirm(ctx context.Context, token string) (store.Profile, error)
}

// Deps are the optional collaborators of the service. A nil Sessions falls
// back to the Postgres store.
type Deps struct {
	Sessions SessionStore
	Blob     BlobStore
	Mailer   Mailer
	Search   SearchIndex
	Notifier *auth.Notifier
	Location *time.Location
}

type Service struct {
	cfg        config.Config
	store      dataStore
	sessions   SessionStore
	passwords  passwordAuth
	mailer     Mailer
	blob       BlobStore
	search     SearchIndex
	notifier   *auth.Notifier
	identities *identityCache
	now        func() time.Time
	loc        *time.Location
}

func New(cfg config.Config, pg *store.PostgresStore, deps Deps) *Service {
	sessions := deps.Sessions
	if sessions == nil {
		sessions = pg
	}
	requireConfirmation := deps.Mailer != nil && deps.Mailer.IsConfigured()
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		cfg:        cfg,
		store:      pg,
		sessions:   sessions,
		passwords:  authpw.NewService(pg, requireConfirmation),
		mailer:     deps.Mailer,
		blob:       deps.Blob,
		search:     deps.Search,
		notifier:   deps.Notifier,
		identities: newIdentityCache(identityCacheSize),
		now:        time.Now,
		loc:        loc,
	}
}

// Now is the service clock in the office time zone.
func (s *Service) Now() time.Time {
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	return now().In(s.location())
}

func (s *Service) location() *time.Location {
	if s.loc == nil {
		return time.UTC
	}
	return s.loc
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

type RegisterInput struct {
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Password string    `json:"password"`
	Role     rbac.Role `json:"role"`
}

// RegisterResult reports the new profile and, when the automatic sign-in
// went through, its session. Otherwise LoginRequired is set with the reason.
type RegisterResult struct {
	Profile       store.Profile
	Session       *Session
	LoginRequired bool
	Reason        error
}

// Register signs up and then tries one automatic sign-in with the same
// credentials. A failed sign-in is reported in the result, not as an error.
func (s *Service) Register(ctx context.Context, input RegisterInput) (RegisterResult, error) {
	entry := log.WithField("operation", "register")
	resp, err := s.passwords.SignUp(ctx, authpw.SignUpRequest{
		Name:     input.Name,
		Email:    input.Email,
		Password: input.Password,
		Role:     input.Role,
	})
	if err != nil {
		return RegisterResult{}, err
	}
	entry = entry.WithField("user_id", resp.Profile.ID)

	if resp.RequiresConfirmation && s.mailer != nil && s.mailer.IsConfigured() {
		confirmURL := strings.TrimRight(s.cfg.PublicURL, "/") + "/confirm?token=" + resp.ConfirmationToken
		if err := s.mailer.SendConfirmationEmail(resp.Profile.Email, resp.Profile.Name, confirmURL); err != nil {
			entry.WithError(err).Warn("confirmation email not sent")
		}
	}

	session, err := s.SignIn(ctx, input.Email, input.Password)
	if err != nil {
		entry.WithError(err).Info("automatic sign-in after registration failed")
		return RegisterResult{Profile: resp.Profile, LoginRequired: true, Reason: err}, nil
	}
	return RegisterResult{Profile: resp.Profile, Session: &session}, nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	profile, err := s.passwords.SignIn(ctx, authpw.SignInRequest{Email: email, Password: password})
	if err != nil {
		return Session{}, err
	}
	session, err := s.issueSession(ctx, profile)
	if err != nil {
		return Session{}, err
	}
	s.identities.add(profile)
	s.publish(auth.EventSignedIn, session.Identity())
	return session, nil
}

func (s *Service) Confirm(ctx context.Context, token string) (store.Profile, error) {
	return s.passwords.Confirm(ctx, token)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	profileID, err := s.sessions.ConsumeRefreshSession(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, auth.ErrInvalidToken
		}
		return Session{}, err
	}
	profile, err := s.store.GetProfile(ctx, profileID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, auth.ErrInvalidToken
		}
		return Session{}, err
	}
	session, err := s.issueSession(ctx, profile)
	if err != nil {
		return Session{}, err
	}
	s.identities.add(profile)
	s.publish(auth.EventRefreshed, session.Identity())
	return session, nil
}

// issueSession stamps tokens with the wall clock, which is what token
// validation checks them against.
func (s *Service) issueSession(ctx context.Context, profile store.Profile) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := uuid.NewString()
	role := rbac.Normalize(string(profile.Role))

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:  profile.ID,
		Name: profile.Name,
		Role: string(role),
		JTI:  jti,
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), profile.ID, now.Add(s.cfg.RefreshTTL)); err != nil {
		return Session{}, fmt.Errorf("save refresh session: %w", err)
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       profile.ID,
		UserName:     profile.Name,
		Role:         role,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

// SessionFromToken authenticates a bearer token. The role always comes from
// the stored profile, never from the token claims.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.sessions.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	profile, ok := s.identities.get(claims.Sub)
	if !ok {
		profile, err = s.store.GetProfile(ctx, claims.Sub)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return Session{}, auth.ErrInvalidToken
			}
			return Session{}, err
		}
		s.identities.add(profile)
	}

	return Session{
		Token:     token,
		UserID:    profile.ID,
		UserName:  profile.Name,
		Role:      rbac.Normalize(string(profile.Role)),
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

// Logout revokes both tokens on a best-effort basis and announces the
// signed-out state.
func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	entry := log.WithFields(log.Fields{"operation": "logout", "user_id": session.UserID})
	if session.JTI != "" {
		if err := s.sessions.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt); err != nil {
			entry.WithError(err).Warn("revoke access token")
		}
	}
	if refreshToken != "" {
		if err := s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken)); err != nil {
			entry.WithError(err).Warn("revoke refresh session")
		}
	}
	s.publish(auth.EventSignedOut, nil)
	return nil
}

func (s *Service) publish(kind auth.EventKind, identity *rbac.Identity) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(auth.Event{Kind: kind, Identity: identity})
}

func (s *Service) ListProfiles(ctx context.Context) ([]store.Profile, error) {
	return s.store.ListProfiles(ctx)
}

func (s *Service) Profile(ctx context.Context, id string) (store.Profile, error) {
	return s.store.GetProfile(ctx, id)
}

func (s *Service) Search(ctx context.Context, q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(ctx, q)
}

func (s *Service) indexCase(c store.Case) {
	if s.search == nil {
		return
	}
	s.search.IndexCase(search.CaseRecord{
		ID:            c.ID,
		Number:        c.Number,
		Title:         c.Title,
		ClientName:    c.ClientName,
		OpposingParty: c.OpposingParty,
		Status:        string(c.Status),
	})
}

func (s *Service) indexContact(c store.Contact) {
	if s.search == nil {
		return
	}
	s.search.IndexContact(search.ContactRecord{
		ID:    c.ID,
		Name:  c.Name,
		Type:  string(c.Type),
		Email: c.Email,
		Phone: c.Phone,
	})
}
