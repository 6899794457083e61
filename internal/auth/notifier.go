package auth

import (
	"sync"

	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/rbac"
)

type EventKind string

const (
	EventSignedIn  EventKind = "SIGNED_IN"
	EventRefreshed EventKind = "TOKEN_REFRESHED"
	EventSignedOut EventKind = "SIGNED_OUT"
)

// Event reports a session change. Identity is nil once the session is gone.
type Event struct {
	Kind     EventKind
	Identity *rbac.Identity
}

// Notifier fans session changes out to subscribers. Listeners run
// synchronously on the publishing goroutine, in subscription order.
type Notifier struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[int]func(Event)
	order     []int
}

func NewNotifier() *Notifier {
	return &Notifier{listeners: map[int]func(Event){}}
}

// Subscribe registers fn and returns the function that removes it.
func (n *Notifier) Subscribe(fn func(Event)) func() {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.listeners[id] = fn
	n.order = append(n.order, id)
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.listeners, id)
			for i, existing := range n.order {
				if existing == id {
					n.order = append(n.order[:i], n.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (n *Notifier) Publish(event Event) {
	n.mu.RLock()
	fns := make([]func(Event), 0, len(n.order))
	for _, id := range n.order {
		fns = append(fns, n.listeners[id])
	}
	n.mu.RUnlock()

	for _, fn := range fns {
		fn(event)
	}
}
