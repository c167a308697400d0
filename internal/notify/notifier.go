// Package notify turns committed change events into per-subscription
// deltas and fans them out to the owning sessions.
package notify

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/floorlink/backend/internal/domain"
	"github.com/floorlink/backend/internal/metrics"
	"github.com/floorlink/backend/internal/session"
	"github.com/floorlink/backend/internal/store"
	"github.com/floorlink/backend/internal/subscription"
)

// Notification is the outbound delta for one subscription. Create and
// Update both surface as UPDATE; the client's view converges either way.
type Notification struct {
	SubscriptionID string         `json:"subscriptionId"`
	Op             string         `json:"op"` // UPDATE or DELETE
	Properties     map[string]any `json:"properties"`
}

const (
	OpUpdate = "UPDATE"
	OpDelete = "DELETE"
)

// Notifier is registered as the store's commit hook. OnCommit runs on the
// committing goroutine, serialized by the store, which is what gives
// per-object deliveries their commit order; everything it does per
// subscription is enqueue-only or a store read.
type Notifier struct {
	sessions *session.Registry
	index    *subscription.Index
	provider store.Provider
	metrics  *metrics.Metrics
}

func New(sessions *session.Registry, index *subscription.Index, provider store.Provider, m *metrics.Metrics) *Notifier {
	return &Notifier{
		sessions: sessions,
		index:    index,
		provider: provider,
		metrics:  m,
	}
}

// OnCommit fans one commit's events out to every matching subscription.
// Failures are isolated per subscription: one bad match, projection, or
// send never aborts delivery to the rest.
func (n *Notifier) OnCommit(events []domain.ChangeEvent) {
	for _, ev := range events {
		// Copy the matching list out of the shared index; evaluation and
		// delivery run without any index lock held.
		for _, sub := range n.index.ForClass(ev.Ref.Class) {
			n.deliver(sub, ev)
		}
	}
}

func (n *Notifier) deliver(sub subscription.Subscription, ev domain.ChangeEvent) {
	defer func() {
		if r := recover(); r != nil {
			n.failure(sub, ev, fmt.Errorf("panic: %v", r))
		}
	}()

	// The session may have disconnected between the index snapshot and now;
	// a closed session is never notifiable, so both misses are no-ops.
	sess, ok := n.sessions.Get(sub.SessionID())
	if !ok {
		return
	}
	// Ids are only unique within a tenant. An event from another tenant must
	// be invisible here, before matching: a delete reaching a ByID match on
	// id alone would confirm the existence of an out-of-scope object.
	if sess.Tenant() != ev.Tenant {
		return
	}

	matched, err := sub.Matches(ev.Ref, ev.Kind)
	if err != nil {
		n.failure(sub, ev, err)
		return
	}
	if !matched {
		return
	}

	msg, err := n.buildNotification(sub, sess, ev)
	if err != nil {
		n.failure(sub, ev, err)
		return
	}
	if msg == nil {
		return
	}

	if err := sess.Send(msg); err != nil {
		if !errors.Is(err, session.ErrClosed) {
			n.failure(sub, ev, err)
		}
		return
	}
	if n.metrics != nil {
		n.metrics.Notifications.Inc()
	}
}

func (n *Notifier) buildNotification(sub subscription.Subscription, sess *session.Session, ev domain.ChangeEvent) (*Notification, error) {
	if ev.Kind == domain.Delete {
		return &Notification{
			SubscriptionID: sub.ID(),
			Op:             OpDelete,
			Properties:     map[string]any{"id": ev.Ref.ID},
		}, nil
	}

	repo, err := n.provider.Resolve(ev.Ref.Class, sess.Tenant())
	if err != nil {
		return nil, err
	}
	obj, err := repo.FindByID(ev.Ref.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Deleted (or moved out of scope) since the commit; the delete
			// event will carry the news.
			return nil, nil
		}
		return nil, err
	}

	props := sub.Project(obj)
	props["id"] = ev.Ref.ID
	return &Notification{
		SubscriptionID: sub.ID(),
		Op:             OpUpdate,
		Properties:     props,
	}, nil
}

func (n *Notifier) failure(sub subscription.Subscription, ev domain.ChangeEvent, err error) {
	if n.metrics != nil {
		n.metrics.FanoutFailures.Inc()
	}
	log.Warn().
		Err(err).
		Str("subscription", sub.ID()).
		Str("session", sub.SessionID()).
		Str("ref", ev.Ref.String()).
		Str("kind", ev.Kind.String()).
		Msg("fan-out failure isolated")
}
