package service

import (
	"time"

	"github.com/mdouchement/sharelist/internal/access"
	"github.com/mdouchement/sharelist/internal/database"
	"github.com/mdouchement/sharelist/internal/model"
	"github.com/mdouchement/sharelist/internal/realtime"
	"github.com/mdouchement/sharelist/internal/slerror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Number of times a reconciliation is replayed when another writer advanced
// the list's clock between its read and its write.
const clockRetries = 3

type (
	// A SyncParams is used when a client wants to reconcile its local items.
	SyncParams struct {
		Params
		ListID      string        `json:"list_uuid"`
		ListKnownAt time.Time     `json:"list_updated_at"`
		Items       []*model.Item `json:"items"`
	}

	// A SyncService reconciles one client item snapshot against the server
	// state of a list. It decides per item whether the client's view is
	// stale, newer or conflicting, applies exactly the needed inserts,
	// deletes and updates, advances the list's clock once and notifies the
	// hub once per mutated entity.
	SyncService struct {
		db    database.Client
		gate  access.Gate
		hub   *realtime.Hub
		locks *Locks
		user  *model.User

		params SyncParams

		// Populated during `Execute()`
		Items    []*model.Item `json:"items"`
		SyncedAt time.Time     `json:"list_updated_at"`
	}

	// The operation sets computed for one reconciliation pass.
	// Inserts and updates hold client records, deletes hold server records.
	plan struct {
		inserts []*model.Item
		deletes []*model.Item
		updates []*model.Item
	}
)

// NewSync instantiates a new Sync service.
func NewSync(db database.Client, gate access.Gate, hub *realtime.Hub, locks *Locks, user *model.User, params SyncParams) *SyncService {
	return &SyncService{
		db:     db,
		gate:   gate,
		hub:    hub,
		locks:  locks,
		user:   user,
		params: params,
	}
}

// Execute performs the reconciliation.
func (s *SyncService) Execute() error {
	list, err := s.db.FindList(s.params.ListID)
	if err != nil {
		if s.db.IsNotFound(err) {
			// Fail closed, a missing list and a forbidden one look the same.
			return slerror.NewAccessDenied()
		}
		return errors.Wrap(err, "could not get list")
	}

	level, err := s.gate.Level(s.user, list)
	if err != nil {
		return err
	}
	if level != access.Member {
		return slerror.NewAccessDenied()
	}

	if err := s.validate(); err != nil {
		return err
	}

	unlock := s.locks.Lock(list.ID)
	defer unlock()

	// The per-list lock serializes reconciliations, but list handlers bump
	// the clock without it. The compare-and-swap in TouchList catches those
	// writers; the whole pass is replayed against the fresh state.
	for attempt := 0; attempt < clockRetries; attempt++ {
		err = s.reconcile()
		if errors.Cause(err) != database.ErrClockConflict {
			return err
		}
		logrus.WithFields(logrus.Fields{"list": list.ID, "attempt": attempt + 1}).
			Warn("list clock moved during reconciliation, replaying")
	}

	return slerror.NewConcurrentModification()
}

// validate rejects the whole batch on the first malformed record.
// No partial apply ever happens for an invalid batch.
func (s *SyncService) validate() error {
	for _, item := range s.params.Items {
		switch {
		case item.ID == "":
			return slerror.NewValidation("Item id is missing.")
		case item.Name == "":
			return slerror.NewValidation("Item name is missing.")
		case item.Count < 1:
			return slerror.NewValidation("Item count must be a positive integer.")
		case item.UpdatedAt == nil || item.UpdatedAt.IsZero():
			return slerror.NewValidation("Item updated_at is missing.")
		}
	}
	return nil
}

func (s *SyncService) reconcile() error {
	list, err := s.db.FindList(s.params.ListID)
	if err != nil {
		return errors.Wrap(err, "could not get list")
	}
	clock := *list.UpdatedAt

	serverItems, err := s.db.FindItemsByListID(list.ID)
	if err != nil {
		return err
	}

	p := s.decide(clock, serverItems)
	if p.empty() {
		// Nothing effective to apply, the clock must not move.
		s.Items = serverItems
		s.SyncedAt = clock
		return nil
	}

	// The clock is advanced exactly once per effective batch, before the
	// item writes so that a concurrent clock bump aborts the pass while no
	// mutation happened yet.
	now := time.Now().UTC()
	if err := s.db.TouchList(list.ID, clock, now); err != nil {
		return err
	}

	if err := s.apply(list.ID, p); err != nil {
		return err
	}

	items, err := s.db.FindItemsByListID(list.ID)
	if err != nil {
		return err
	}

	s.Items = items
	s.SyncedAt = now
	return nil
}

// decide runs the per-item decision table against the server snapshot.
// Ties go to the server so that replaying the same batch applies nothing.
func (s *SyncService) decide(clock time.Time, serverItems []*model.Item) (p plan) {
	server := make(map[string]*model.Item, len(serverItems))
	for _, item := range serverItems {
		server[item.ID] = item
	}

	for _, item := range s.params.Items {
		current, known := server[item.ID]

		switch {
		case !known && item.Deleted:
			// Already gone or never existed, deletes are not tombstoned.
		case !known && item.UpdatedAt.After(clock):
			// Created since the list last changed. The queued insert joins
			// the working set so a later record for the same id (a create
			// then delete that never synced) is decided against it.
			p.inserts = append(p.inserts, item)
			server[item.ID] = item
		case !known:
			// Stale create: something else deleted it since the client's
			// baseline, the server's silence is the truth.
		case item.Deleted:
			p.deletes = append(p.deletes, current)
		case item.UpdatedAt.After(*current.UpdatedAt):
			// Client strictly newer, last write wins.
			p.updates = append(p.updates, item)
		default:
			// Server copy is as new or newer.
		}
	}

	return p
}

// apply runs inserts first, then deletes, then updates, so that an id both
// created and deleted within one batch resolves deterministically.
// Every applied mutation is published individually.
func (s *SyncService) apply(listID string, p plan) error {
	for _, item := range p.inserts {
		item.ListID = listID
		item.Deleted = false
		if err := s.db.SaveItem(item); err != nil {
			return err
		}
		s.hub.Publish(listID, realtime.ItemAdded(item))
	}

	for _, item := range p.deletes {
		if err := s.db.DeleteItem(item.ID, listID); err != nil {
			return err
		}
		s.hub.Publish(listID, realtime.ItemDeleted(item))
	}

	for _, item := range p.updates {
		item.ListID = listID
		if err := s.db.SaveItem(item); err != nil {
			return err
		}
		s.hub.Publish(listID, realtime.ItemModified(item))
	}

	return nil
}

func (p plan) empty() bool {
	return len(p.inserts)+len(p.deletes)+len(p.updates) == 0
}
