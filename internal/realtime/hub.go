package realtime

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Size of a subscriber's event buffer. A subscriber that lags behind by more
// than this many events starts losing them; delivery is best-effort and the
// client catches up with its next sync.
const subscriberBuffer = 32

type (
	// A Hub fans mutation events out to the sessions subscribed to each
	// list's topic. It is process-scoped, constructed once and passed by
	// reference to whatever publishes. All methods are safe for concurrent
	// use.
	Hub struct {
		mu     sync.RWMutex
		topics map[string]map[*Subscriber]struct{}
	}

	// A Subscriber is one connected session's mailbox.
	Subscriber struct {
		events chan Event
	}
)

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{
		topics: map[string]map[*Subscriber]struct{}{},
	}
}

// NewSubscriber returns a Subscriber ready to be registered on the hub.
func NewSubscriber() *Subscriber {
	return &Subscriber{
		events: make(chan Event, subscriberBuffer),
	}
}

// Events returns the channel on which the subscriber receives its events.
func (s *Subscriber) Events() <-chan Event {
	return s.events
}

// Subscribe joins the subscriber to the topics of the given list ids.
// Access control happens before this call; the hub joins whatever it is given.
func (h *Hub) Subscribe(sub *Subscriber, listIDs ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, id := range listIDs {
		sessions, ok := h.topics[id]
		if !ok {
			sessions = map[*Subscriber]struct{}{}
			h.topics[id] = sessions
		}
		sessions[sub] = struct{}{}
	}
}

// Unsubscribe removes the subscriber from every topic it joined.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, sessions := range h.topics {
		delete(sessions, sub)
		if len(sessions) == 0 {
			delete(h.topics, id)
		}
	}
}

// Publish delivers the event to every subscriber of the list's topic.
// It never fails: no subscribers is a no-op and a full subscriber buffer
// drops the event for that subscriber only (at-most-once delivery).
func (h *Hub) Publish(listID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.topics[listID] {
		select {
		case sub.events <- event:
		default:
			logrus.WithField("list", listID).Debug("dropped event for slow subscriber")
		}
	}
}
