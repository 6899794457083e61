package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/matheuspadinhagoncalvesmpg-sketch/Padinha-Araujo-Manager/internal/rbac"
)

func TestNotifierDeliversInOrderUntilUnsubscribed(t *testing.T) {
	n := NewNotifier()
	var got []string

	stopFirst := n.Subscribe(func(e Event) { got = append(got, "first:"+string(e.Kind)) })
	n.Subscribe(func(e Event) { got = append(got, "second:"+string(e.Kind)) })

	n.Publish(Event{Kind: EventSignedIn, Identity: &rbac.Identity{ID: "u1"}})
	stopFirst()
	stopFirst()
	n.Publish(Event{Kind: EventSignedOut})

	assert.Equal(t, []string{"first:SIGNED_IN", "second:SIGNED_IN", "second:SIGNED_OUT"}, got)
}

func TestNotifierListenerMayUnsubscribeWhileHandling(t *testing.T) {
	n := NewNotifier()
	calls := 0
	var stop func()
	stop = n.Subscribe(func(Event) {
		calls++
		stop()
	})

	n.Publish(Event{Kind: EventRefreshed})
	n.Publish(Event{Kind: EventRefreshed})

	assert.Equal(t, 1, calls)
}
