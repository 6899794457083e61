package app

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/agenda"
	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/auth"
	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/rbac"
	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/store"
)

// State holds the signed-in identity and the collections shown to it.
// Collections are only ever replaced by a fetch, never patched by the write
// that triggered it.
type State struct {
	service *Service

	mu          sync.RWMutex
	currentUser *rbac.Identity
	loading     bool
	users       []store.Profile
	cases       []store.Case
	tasks       []store.Task
	contacts    []store.Contact

	unsubscribe func()
}

// Snapshot is a consistent copy of the state.
type Snapshot struct {
	CurrentUser *store.Profile  `json:"currentUser"`
	Loading     bool            `json:"loading"`
	Users       []store.Profile `json:"users"`
	Cases       []store.Case    `json:"cases"`
	Tasks       []store.Task    `json:"tasks"`
	Contacts    []store.Contact `json:"contacts"`
}

type DashboardStats struct {
	OpenCases    int `json:"openCases"`
	TasksToday   int `json:"tasksToday"`
	PendingTasks int `json:"pendingTasks"`
}

func NewState(service *Service) *State {
	return &State{service: service}
}

// Init follows the session event stream until Teardown. Reloads run on the
// publishing goroutine.
func (st *State) Init(notifier *auth.Notifier) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.unsubscribe != nil || notifier == nil {
		return
	}
	st.unsubscribe = notifier.Subscribe(func(event auth.Event) {
		if err := st.Reload(context.Background(), event.Identity); err != nil {
			log.WithField("event", event.Kind).WithError(err).Warn("state reload failed")
		}
	})
}

func (st *State) Teardown() {
	st.mu.Lock()
	unsubscribe := st.unsubscribe
	st.unsubscribe = nil
	st.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// Reload refreshes the profile of identity and then every collection. A nil
// identity clears the state.
func (st *State) Reload(ctx context.Context, identity *rbac.Identity) error {
	if identity == nil {
		st.mu.Lock()
		st.currentUser = nil
		st.users, st.cases, st.tasks, st.contacts = nil, nil, nil, nil
		st.loading = false
		st.mu.Unlock()
		return nil
	}

	st.setLoading(true)
	defer st.setLoading(false)

	profile, err := st.service.Profile(ctx, identity.ID)
	if err != nil {
		return err
	}
	current := profile.Identity()

	var (
		users    []store.Profile
		cases    []store.Case
		tasks    []store.Task
		contacts []store.Contact
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		users, err = st.service.ListProfiles(gctx)
		return err
	})
	g.Go(func() (err error) {
		cases, err = st.service.ListCases(gctx)
		return err
	})
	g.Go(func() (err error) {
		tasks, err = st.service.ListTasks(gctx, current)
		return err
	})
	g.Go(func() (err error) {
		contacts, err = st.service.ListContacts(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	st.mu.Lock()
	st.currentUser = current
	st.users, st.cases, st.tasks, st.contacts = users, cases, tasks, contacts
	st.mu.Unlock()
	return nil
}

func (st *State) setLoading(loading bool) {
	st.mu.Lock()
	st.loading = loading
	st.mu.Unlock()
}

func (st *State) CurrentUser() *rbac.Identity {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.currentUser
}

func (st *State) Loading() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.loading
}

// VisibleTasks is the task list filtered for the current user.
func (st *State) VisibleTasks() []store.Task {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return rbac.VisibleTasks(st.currentUser, st.tasks)
}

// CanEdit reports whether the current user may create cases and contacts.
func (st *State) CanEdit() bool {
	return rbac.CanEditGlobal(st.CurrentUser())
}

func (st *State) Snapshot() Snapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()

	snap := Snapshot{
		Loading:  st.loading,
		Users:    orEmpty(st.users),
		Cases:    orEmpty(st.cases),
		Tasks:    rbac.VisibleTasks(st.currentUser, st.tasks),
		Contacts: orEmpty(st.contacts),
	}
	if st.currentUser != nil {
		for _, user := range st.users {
			if user.ID == st.currentUser.ID {
				u := user
				snap.CurrentUser = &u
				break
			}
		}
		if snap.CurrentUser == nil {
			snap.CurrentUser = &store.Profile{ID: st.currentUser.ID, Name: st.currentUser.Name, Role: st.currentUser.Role}
		}
	}
	return snap
}

// Stats counts open cases, visible tasks due on the day of now, and visible
// tasks not yet completed.
func (st *State) Stats(now time.Time) DashboardStats {
	tasks := st.VisibleTasks()

	st.mu.RLock()
	var stats DashboardStats
	for _, c := range st.cases {
		if c.Status == store.CaseOpen {
			stats.OpenCases++
		}
	}
	st.mu.RUnlock()

	for _, t := range tasks {
		if agenda.SameDay(now, t.DueDate) {
			stats.TasksToday++
		}
		if t.Status != store.TaskCompleted {
			stats.PendingTasks++
		}
	}
	return stats
}

func (st *State) AddCase(ctx context.Context, c store.Case) (store.Case, error) {
	created, err := st.service.CreateCase(ctx, st.CurrentUser(), c)
	if err != nil {
		return store.Case{}, err
	}
	return created, st.refetchCases(ctx)
}

func (st *State) UpdateCase(ctx context.Context, id string, patch store.CasePatch) (store.Case, error) {
	updated, err := st.service.UpdateCase(ctx, st.CurrentUser(), id, patch)
	if err != nil {
		return store.Case{}, err
	}
	return updated, st.refetchCases(ctx)
}

func (st *State) AddTask(ctx context.Context, t store.Task) (store.Task, error) {
	created, err := st.service.CreateTask(ctx, st.CurrentUser(), t)
	if err != nil {
		return store.Task{}, err
	}
	return created, st.refetchTasks(ctx)
}

func (st *State) UpdateTask(ctx context.Context, id string, patch store.TaskPatch) (store.Task, error) {
	updated, err := st.service.UpdateTask(ctx, st.CurrentUser(), id, patch)
	if err != nil {
		return store.Task{}, err
	}
	return updated, st.refetchTasks(ctx)
}

func (st *State) MoveTask(ctx context.Context, id string, target time.Time) (store.Task, error) {
	moved, err := st.service.MoveTask(ctx, st.CurrentUser(), id, target)
	if err != nil {
		return store.Task{}, err
	}
	return moved, st.refetchTasks(ctx)
}

func (st *State) AppendComment(ctx context.Context, taskID, content string) (store.Comment, error) {
	comment, err := st.service.AppendComment(ctx, st.CurrentUser(), taskID, content)
	if err != nil {
		return store.Comment{}, err
	}
	return comment, st.refetchTasks(ctx)
}

func (st *State) AddContact(ctx context.Context, c store.Contact) (store.Contact, error) {
	created, err := st.service.CreateContact(ctx, st.CurrentUser(), c)
	if err != nil {
		return store.Contact{}, err
	}
	return created, st.refetchContacts(ctx)
}

// AttachDocument has no collection to refresh: documents are listed per case.
func (st *State) AttachDocument(ctx context.Context, caseID string, data []byte, fileName, mimeType string) (store.CaseDocument, error) {
	return st.service.AttachDocument(ctx, st.CurrentUser(), caseID, data, fileName, mimeType)
}

func (st *State) refetchCases(ctx context.Context) error {
	cases, err := st.service.ListCases(ctx)
	if err != nil {
		return err
	}
	st.mu.Lock()
	st.cases = cases
	st.mu.Unlock()
	return nil
}

func (st *State) refetchTasks(ctx context.Context) error {
	tasks, err := st.service.ListTasks(ctx, st.CurrentUser())
	if err != nil {
		return err
	}
	st.mu.Lock()
	st.tasks = tasks
	st.mu.Unlock()
	return nil
}

func (st *State) refetchContacts(ctx context.Context) error {
	contacts, err := st.service.ListContacts(ctx)
	if err != nil {
		return err
	}
	st.mu.Lock()
	st.contacts = contacts
	st.mu.Unlock()
	return nil
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
