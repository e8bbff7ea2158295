package stream

import (
	"context"
	"strings"
	"time"

	"github.com/shulehub/shule/core/identity"
)

// Event types
const (
	EventContentStatusChanged = "content.status_changed"
	EventContentRemoved       = "content.removed"
	EventCartChanged          = "cart.changed"
)

// AdminTopic receives every content event; admins only.
const AdminTopic = "content:admin"

// CartTopic is the per-user cart feed; only that user may subscribe.
func CartTopic(userID string) string { return "cart:" + userID }

// ContentTopic is the per-owner content feed.
func ContentTopic(ownerID string) string { return "content:" + ownerID }

// Event is the payload fanned out to subscribers. It carries just enough for
// a client to update its view; authoritative state must be re-fetched from
// the engines.
type Event struct {
	Type        string    `json:"type"`
	EntityID    string    `json:"entity_id"`
	NewStatus   string    `json:"new_status,omitempty"`
	NewQuantity *int      `json:"new_quantity,omitempty"`
	At          time.Time `json:"at"`
}

type (
	// Publisher is the engines' side of the notifier. Publishing is
	// best-effort: implementations must not block the mutation that
	// triggered it.
	Publisher interface {
		Publish(ctx context.Context, topic string, evt Event) error
	}

	// Broker adds the subscriber side. Delivery is at-most-once, unordered
	// across topics and not persisted. The returned cancel func tears the
	// subscription down; it is also torn down when ctx is done.
	Broker interface {
		Publisher
		Subscribe(ctx context.Context, topic string) (<-chan Event, func(), error)
	}
)

// CanSubscribe reports whether the actor may subscribe to the topic:
// cart:{id} only by that user, content:{id} by that owner or an admin,
// content:admin by admins only.
func CanSubscribe(a identity.Actor, topic string) bool {
	if topic == AdminTopic {
		return a.IsAdmin()
	}
	if id, ok := strings.CutPrefix(topic, "cart:"); ok {
		return !a.IsAnonymous() && a.ID == id
	}
	if id, ok := strings.CutPrefix(topic, "content:"); ok {
		return (!a.IsAnonymous() && a.ID == id) || a.IsAdmin()
	}
	return false
}

// NopPublisher discards all events; used when wiring without a broker.
type NopPublisher struct{}

var _ Publisher = (*NopPublisher)(nil)

func (NopPublisher) Publish(context.Context, string, Event) error { return nil }
