package realtime

import (
	"time"

	"github.com/mdouchement/sharelist/internal/model"
)

// A Kind qualifies the mutation carried by an event.
type Kind string

// Kinds rendered on the wire.
const (
	KindAdded    Kind = "added"
	KindModified Kind = "modified"
	KindDeleted  Kind = "deleted"
)

// An Event notifies subscribers of a single mutated entity.
// Payload is the item for item events and the list id for list events.
type Event struct {
	Kind      Kind      `json:"kind"`
	UpdatedAt time.Time `json:"updated_at"`
	Payload   any       `json:"payload"`
}

// ItemAdded returns the event for an inserted item.
func ItemAdded(item *model.Item) Event {
	return itemEvent(KindAdded, item)
}

// ItemModified returns the event for an updated item.
func ItemModified(item *model.Item) Event {
	return itemEvent(KindModified, item)
}

// ItemDeleted returns the event for a deleted item.
func ItemDeleted(item *model.Item) Event {
	return itemEvent(KindDeleted, item)
}

// ListModified returns the event for an updated list.
func ListModified(list *model.List) Event {
	return Event{Kind: KindModified, UpdatedAt: deref(list.UpdatedAt), Payload: list.ID}
}

// ListDeleted returns the event for a deleted list.
func ListDeleted(listID string, at time.Time) Event {
	return Event{Kind: KindDeleted, UpdatedAt: at, Payload: listID}
}

func itemEvent(kind Kind, item *model.Item) Event {
	return Event{Kind: kind, UpdatedAt: deref(item.UpdatedAt), Payload: item}
}

func deref(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
