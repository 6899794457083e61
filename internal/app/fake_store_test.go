package app

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/config"
	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/rbac"
	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/store"
)

// memStore is an in-memory dataStore and SessionStore.
type memStore struct {
	mu sync.Mutex

	profiles  map[string]store.Profile
	cases     map[string]store.Case
	tasks     map[string]store.Task
	comments  []store.Comment
	contacts  map[string]store.Contact
	documents []store.CaseDocument
	refresh   map[string]string
	revoked   map[string]bool
	seq       int64

	pingErr           error
	insertDocumentErr error
	taskUpdates       int
	commentInserts    int
	profileLookups    int
}

func newMemStore() *memStore {
	return &memStore{
		profiles: map[string]store.Profile{},
		cases:    map[string]store.Case{},
		tasks:    map[string]store.Task{},
		contacts: map[string]store.Contact{},
		refresh:  map[string]string{},
		revoked:  map[string]bool{},
	}
}

func (m *memStore) addProfile(id, name string, role rbac.Role) store.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := store.Profile{ID: id, Name: name, Email: strings.ToLower(name) + "@example.com", Role: role, EmailConfirmed: true}
	m.profiles[id] = p
	return p
}

func (m *memStore) addTask(t store.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.Status == "" {
		t.Status = store.TaskPending
	}
	if t.Priority == "" {
		t.Priority = store.PriorityMedium
	}
	m.tasks[t.ID] = t
}

func (m *memStore) Ping(context.Context) error { return m.pingErr }

func (m *memStore) ListProfiles(context.Context) ([]store.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) GetProfile(_ context.Context, id string) (store.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profileLookups++
	p, ok := m.profiles[id]
	if !ok {
		return store.Profile{}, store.ErrNotFound
	}
	return p, nil
}

func (m *memStore) GetProfileByEmail(_ context.Context, email string) (store.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if strings.EqualFold(p.Email, email) {
			return p, nil
		}
	}
	return store.Profile{}, store.ErrNotFound
}

func (m *memStore) InsertProfile(_ context.Context, p store.Profile) (store.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.profiles {
		if strings.EqualFold(existing.Email, p.Email) {
			return store.Profile{}, store.ErrConflict
		}
	}
	m.profiles[p.ID] = p
	return p, nil
}

func (m *memStore) ConfirmProfile(_ context.Context, token string) (store.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.profiles {
		if p.ConfirmationToken != "" && p.ConfirmationToken == token {
			p.EmailConfirmed = true
			p.ConfirmationToken = ""
			m.profiles[id] = p
			return p, nil
		}
	}
	return store.Profile{}, store.ErrNotFound
}

func (m *memStore) SaveRefreshSession(_ context.Context, tokenHash, profileID string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refresh[tokenHash] = profileID
	return nil
}

func (m *memStore) ConsumeRefreshSession(_ context.Context, tokenHash string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.refresh[tokenHash]
	if !ok {
		return "", store.ErrNotFound
	}
	delete(m.refresh, tokenHash)
	return id, nil
}

func (m *memStore) RevokeRefreshSession(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.refresh, tokenHash)
	return nil
}

func (m *memStore) RevokeAccessToken(_ context.Context, jti string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[jti] = true
	return nil
}

func (m *memStore) IsAccessTokenRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revoked[jti], nil
}

func (m *memStore) ListCases(context.Context) ([]store.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Case, 0, len(m.cases))
	for _, c := range m.cases {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) GetCase(_ context.Context, id string) (store.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[id]
	if !ok {
		return store.Case{}, store.ErrNotFound
	}
	return c, nil
}

func (m *memStore) InsertCase(_ context.Context, c store.Case) (store.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.cases {
		if existing.Number == c.Number {
			return store.Case{}, store.ErrConflict
		}
	}
	m.cases[c.ID] = c
	return c, nil
}

func (m *memStore) UpdateCase(_ context.Context, id string, p store.CasePatch) (store.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[id]
	if !ok {
		return store.Case{}, store.ErrNotFound
	}
	setString(&c.Number, p.Number)
	setString(&c.Title, p.Title)
	setString(&c.ClientName, p.ClientName)
	setString(&c.OpposingParty, p.OpposingParty)
	setString(&c.ResponsibleLawyerID, p.ResponsibleLawyerID)
	setString(&c.Observations, p.Observations)
	if p.Status != nil {
		c.Status = *p.Status
	}
	m.cases[id] = c
	return c, nil
}

func (m *memStore) ListTasks(context.Context) ([]store.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Task, 0, len(m.tasks))
	for id := range m.tasks {
		out = append(out, m.taskLocked(id))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memStore) GetTask(_ context.Context, id string) (store.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return store.Task{}, store.ErrNotFound
	}
	return m.taskLocked(id), nil
}

func (m *memStore) taskLocked(id string) store.Task {
	t := m.tasks[id]
	t.Comments = m.commentsLocked(id)
	return t
}

func (m *memStore) commentsLocked(taskID string) []store.Comment {
	out := make([]store.Comment, 0)
	for _, c := range m.comments {
		if c.TaskID == taskID {
			out = append(out, c)
		}
	}
	store.SortComments(out)
	return out
}

func (m *memStore) InsertTask(_ context.Context, t store.Task) (store.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.Comments = nil
	m.tasks[t.ID] = t
	return m.taskLocked(t.ID), nil
}

func (m *memStore) UpdateTask(_ context.Context, id string, p store.TaskPatch) (store.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return store.Task{}, store.ErrNotFound
	}
	m.taskUpdates++
	setString(&t.Title, p.Title)
	setString(&t.Description, p.Description)
	setString(&t.CaseID, p.CaseID)
	setString(&t.AssignedTo, p.AssignedTo)
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	m.tasks[id] = t
	return m.taskLocked(id), nil
}

func (m *memStore) InsertComment(_ context.Context, c store.Comment) (store.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[c.TaskID]; !ok {
		return store.Comment{}, store.ErrNotFound
	}
	m.commentInserts++
	m.seq++
	c.Seq = m.seq
	m.comments = append(m.comments, c)
	return c, nil
}

func (m *memStore) ListComments(_ context.Context, taskID string) ([]store.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commentsLocked(taskID), nil
}

func (m *memStore) ListContacts(context.Context) ([]store.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Contact, 0, len(m.contacts))
	for _, c := range m.contacts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) InsertContact(_ context.Context, c store.Contact) (store.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contacts[c.ID] = c
	return c, nil
}

func (m *memStore) UpdateContact(_ context.Context, id string, p store.ContactPatch) (store.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contacts[id]
	if !ok {
		return store.Contact{}, store.ErrNotFound
	}
	setString(&c.Name, p.Name)
	setString(&c.Email, p.Email)
	setString(&c.Phone, p.Phone)
	setString(&c.Notes, p.Notes)
	if p.Type != nil {
		c.Type = *p.Type
	}
	m.contacts[id] = c
	return c, nil
}

func (m *memStore) ListCaseDocuments(_ context.Context, caseID string) ([]store.CaseDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.CaseDocument, 0)
	for i := len(m.documents) - 1; i >= 0; i-- {
		if m.documents[i].CaseID == caseID {
			out = append(out, m.documents[i])
		}
	}
	return out, nil
}

func (m *memStore) InsertCaseDocument(_ context.Context, d store.CaseDocument) (store.CaseDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertDocumentErr != nil {
		return store.CaseDocument{}, m.insertDocumentErr
	}
	m.documents = append(m.documents, d)
	return d, nil
}

func setString(target *string, value *string) {
	if value != nil {
		*target = *value
	}
}

type fakeBlob struct {
	err     error
	uploads []string
	types   []string
}

func (f *fakeBlob) Upload(_ context.Context, data []byte, objectPath, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.uploads = append(f.uploads, objectPath)
	f.types = append(f.types, contentType)
	return "http://blob.test/case-documents/" + objectPath, nil
}

var (
	adminID  = &rbac.Identity{ID: "admin-1", Name: "Dra. Padinha", Role: rbac.RoleAdmin}
	lawyerID = &rbac.Identity{ID: "lawyer-1", Name: "Dr. Araujo", Role: rbac.RoleLawyer}
	internID = &rbac.Identity{ID: "intern-1", Name: "Bia", Role: rbac.RoleIntern}
	intern2  = &rbac.Identity{ID: "intern-2", Name: "Caio", Role: rbac.RoleIntern}
)

// newTestService returns a service over a store seeded with one profile per
// identity above, with the clock fixed at now.
func newTestService(now time.Time) (*Service, *memStore) {
	ms := newMemStore()
	for _, id := range []*rbac.Identity{adminID, lawyerID, internID, intern2} {
		ms.addProfile(id.ID, id.Name, id.Role)
	}
	svc := &Service{
		cfg: config.Config{
			JWTSecret:  "test-secret",
			AccessTTL:  time.Hour,
			RefreshTTL: 24 * time.Hour,
			PublicURL:  "http://app.test",
		},
		store:      ms,
		sessions:   ms,
		identities: newIdentityCache(identityCacheSize),
		now:        func() time.Time { return now },
		loc:        time.UTC,
	}
	return svc, ms
}
