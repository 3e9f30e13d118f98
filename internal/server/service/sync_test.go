package service_test

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/mdouchement/sharelist/internal/access"
	"github.com/mdouchement/sharelist/internal/database"
	"github.com/mdouchement/sharelist/internal/model"
	"github.com/mdouchement/sharelist/internal/realtime"
	"github.com/mdouchement/sharelist/internal/server/service"
	"github.com/mdouchement/sharelist/internal/slerror"
	"github.com/stretchr/testify/assert"
)

type world struct {
	db    database.Client
	gate  access.Gate
	hub   *realtime.Hub
	locks *service.Locks
	user  *model.User
	list  *model.List
}

func setup() (w *world, cleanup func()) {
	tmpfile, err := os.CreateTemp("", "sharelist.*.db")
	if err != nil {
		panic(err)
	}
	filename := tmpfile.Name()
	tmpfile.Close()

	db, err := database.StormOpen(filename)
	if err != nil {
		panic(err)
	}

	w = &world{
		db:    db,
		gate:  access.NewGate(db),
		hub:   realtime.NewHub(),
		locks: service.NewLocks(),
	}

	w.user = &model.User{Email: "george.abitbol@nowhere.lan"}
	if err := db.Save(w.user); err != nil {
		panic(err)
	}

	w.list = &model.List{OwnerID: w.user.ID, Name: "Groceries", ShareCode: service.ShareCode(service.ShareCodeLength)}
	if err := db.Save(w.list); err != nil {
		panic(err)
	}

	return w, func() {
		db.Close()
		os.RemoveAll(filename)
	}
}

func (w *world) sync(user *model.User, items ...*model.Item) *service.SyncService {
	return service.NewSync(w.db, w.gate, w.hub, w.locks, user, service.SyncParams{
		ListID:      w.list.ID,
		ListKnownAt: *w.list.UpdatedAt,
		Items:       items,
	})
}

func (w *world) clock() time.Time {
	list, err := w.db.FindList(w.list.ID)
	if err != nil {
		panic(err)
	}
	return *list.UpdatedAt
}

func (w *world) seedItem(name string, count int, at time.Time) *model.Item {
	item := &model.Item{
		ListID: w.list.ID,
		Name:   name,
		Count:  count,
	}
	item.ID = uuid.Must(uuid.NewV4()).String()
	item.SetUpdatedAt(at)
	if err := w.db.SaveItem(item); err != nil {
		panic(err)
	}
	return item
}

func clientItem(id, name string, count int, at time.Time, deleted bool) *model.Item {
	item := &model.Item{
		Name:    name,
		Count:   count,
		Deleted: deleted,
	}
	item.ID = id
	item.SetUpdatedAt(at)
	return item
}

func drain(sub *realtime.Subscriber) []realtime.Event {
	events := []realtime.Event{}
	for {
		select {
		case event := <-sub.Events():
			events = append(events, event)
		default:
			return events
		}
	}
}

func TestSyncInsertAndUpdate(t *testing.T) {
	w, cleanup := setup()
	defer cleanup()

	clock := w.clock()
	a := w.seedItem("Milk", 2, clock.Add(-time.Minute))

	sub := realtime.NewSubscriber()
	w.hub.Subscribe(sub, w.list.ID)

	bID := uuid.Must(uuid.NewV4()).String()
	sync := w.sync(w.user,
		clientItem(a.ID, "Milk", 5, clock.Add(time.Second), false),
		clientItem(bID, "Bread", 1, clock.Add(2*time.Second), false),
	)
	assert.NoError(t, sync.Execute())

	assert.Len(t, sync.Items, 2)
	byID := map[string]*model.Item{}
	for _, item := range sync.Items {
		byID[item.ID] = item
	}
	assert.Equal(t, 5, byID[a.ID].Count)
	assert.Equal(t, "Bread", byID[bID].Name)

	// The list clock advanced exactly once, to "now".
	assert.True(t, sync.SyncedAt.After(clock))
	assert.True(t, w.clock().Equal(sync.SyncedAt))

	events := drain(sub)
	assert.Len(t, events, 2)
	kinds := map[realtime.Kind]int{}
	for _, event := range events {
		kinds[event.Kind]++
	}
	assert.Equal(t, 1, kinds[realtime.KindAdded])
	assert.Equal(t, 1, kinds[realtime.KindModified])
}

func TestSyncIdempotence(t *testing.T) {
	w, cleanup := setup()
	defer cleanup()

	clock := w.clock()
	items := []*model.Item{
		clientItem(uuid.Must(uuid.NewV4()).String(), "Eggs", 12, clock.Add(time.Second), false),
	}

	sync := w.sync(w.user, items...)
	assert.NoError(t, sync.Execute())
	baseline := sync.SyncedAt

	sub := realtime.NewSubscriber()
	w.hub.Subscribe(sub, w.list.ID)

	// Replaying the identical snapshot against the returned baseline
	// must not apply anything.
	replay := service.NewSync(w.db, w.gate, w.hub, w.locks, w.user, service.SyncParams{
		ListID:      w.list.ID,
		ListKnownAt: baseline,
		Items:       items,
	})
	assert.NoError(t, replay.Execute())

	assert.True(t, replay.SyncedAt.Equal(baseline), "clock must not move on an empty effective set")
	assert.Len(t, replay.Items, 1)
	assert.Empty(t, drain(sub))
}

func TestSyncDeleteAbsentItem(t *testing.T) {
	w, cleanup := setup()
	defer cleanup()

	clock := w.clock()

	sub := realtime.NewSubscriber()
	w.hub.Subscribe(sub, w.list.ID)

	sync := w.sync(w.user,
		clientItem(uuid.Must(uuid.NewV4()).String(), "Ghost", 1, clock.Add(time.Second), true),
	)
	assert.NoError(t, sync.Execute())

	assert.Empty(t, sync.Items)
	assert.True(t, sync.SyncedAt.Equal(clock), "clock must not move")
	assert.Empty(t, drain(sub))
}

func TestSyncDelete(t *testing.T) {
	w, cleanup := setup()
	defer cleanup()

	clock := w.clock()
	a := w.seedItem("Milk", 2, clock.Add(-time.Minute))

	sub := realtime.NewSubscriber()
	w.hub.Subscribe(sub, w.list.ID)

	sync := w.sync(w.user, clientItem(a.ID, "Milk", 2, clock.Add(time.Second), true))
	assert.NoError(t, sync.Execute())

	assert.Empty(t, sync.Items)
	assert.True(t, sync.SyncedAt.After(clock))

	events := drain(sub)
	assert.Len(t, events, 1)
	assert.Equal(t, realtime.KindDeleted, events[0].Kind)
}

func TestSyncStaleCreate(t *testing.T) {
	w, cleanup := setup()
	defer cleanup()

	clock := w.clock()

	// Created before the list last changed: something else deleted it
	// since the client's baseline.
	sync := w.sync(w.user,
		clientItem(uuid.Must(uuid.NewV4()).String(), "Old", 1, clock.Add(-time.Second), false),
	)
	assert.NoError(t, sync.Execute())
	assert.Empty(t, sync.Items)
	assert.True(t, sync.SyncedAt.Equal(clock))

	// The equal-timestamp create resolves in favor of the server too.
	sync = w.sync(w.user,
		clientItem(uuid.Must(uuid.NewV4()).String(), "Tie", 1, clock, false),
	)
	assert.NoError(t, sync.Execute())
	assert.Empty(t, sync.Items)
	assert.True(t, sync.SyncedAt.Equal(clock))
}

func TestSyncEqualTimestampsNeverMutate(t *testing.T) {
	w, cleanup := setup()
	defer cleanup()

	clock := w.clock()
	at := clock.Add(-time.Minute)
	a := w.seedItem("Milk", 2, at)

	sub := realtime.NewSubscriber()
	w.hub.Subscribe(sub, w.list.ID)

	sync := w.sync(w.user, clientItem(a.ID, "Milk", 9, at, false))
	assert.NoError(t, sync.Execute())

	assert.Len(t, sync.Items, 1)
	assert.Equal(t, 2, sync.Items[0].Count, "server copy wins the tie")
	assert.True(t, sync.SyncedAt.Equal(clock))
	assert.Empty(t, drain(sub))
}

func TestSyncStaleUpdate(t *testing.T) {
	w, cleanup := setup()
	defer cleanup()

	clock := w.clock()
	a := w.seedItem("Milk", 2, clock.Add(-time.Minute))

	sync := w.sync(w.user, clientItem(a.ID, "Milk", 9, clock.Add(-2*time.Minute), false))
	assert.NoError(t, sync.Execute())

	assert.Equal(t, 2, sync.Items[0].Count)
	assert.True(t, sync.SyncedAt.Equal(clock))
}

func TestSyncCreateThenDeleteInOneBatch(t *testing.T) {
	w, cleanup := setup()
	defer cleanup()

	clock := w.clock()
	id := uuid.Must(uuid.NewV4()).String()

	// The create clears the clock threshold but a later record deletes it:
	// the batch must resolve to an absent item, not a resurrected one.
	sync := w.sync(w.user,
		clientItem(id, "Flash", 1, clock.Add(time.Second), false),
		clientItem(id, "Flash", 1, clock.Add(2*time.Second), true),
	)
	assert.NoError(t, sync.Execute())

	assert.Empty(t, sync.Items)
}

func TestSyncValidationRejectsWholeBatch(t *testing.T) {
	w, cleanup := setup()
	defer cleanup()

	clock := w.clock()
	good := clientItem(uuid.Must(uuid.NewV4()).String(), "Good", 1, clock.Add(time.Second), false)
	bad := clientItem(uuid.Must(uuid.NewV4()).String(), "Bad", 0, clock.Add(time.Second), false)

	sync := w.sync(w.user, good, bad)
	err := sync.Execute()
	assert.True(t, slerror.IsValidation(err))

	// No partial apply.
	items, err2 := w.db.FindItemsByListID(w.list.ID)
	assert.NoError(t, err2)
	assert.Empty(t, items)
	assert.True(t, w.clock().Equal(clock))
}

func TestSyncAccessDenied(t *testing.T) {
	w, cleanup := setup()
	defer cleanup()

	stranger := &model.User{Email: "stranger@nowhere.lan"}
	if err := w.db.Save(stranger); err != nil {
		panic(err)
	}

	clock := w.clock()
	sync := w.sync(stranger, clientItem(uuid.Must(uuid.NewV4()).String(), "Nope", 1, clock.Add(time.Second), false))
	err := sync.Execute()
	assert.True(t, slerror.IsAccessDenied(err))

	// An unknown list is reported exactly the same way.
	missing := service.NewSync(w.db, w.gate, w.hub, w.locks, w.user, service.SyncParams{
		ListID: uuid.Must(uuid.NewV4()).String(),
		Items:  []*model.Item{clientItem("x", "X", 1, clock, false)},
	})
	err = missing.Execute()
	assert.True(t, slerror.IsAccessDenied(err))
}

func TestSyncGranteeCanSync(t *testing.T) {
	w, cleanup := setup()
	defer cleanup()

	grantee := &model.User{Email: "friend@nowhere.lan"}
	if err := w.db.Save(grantee); err != nil {
		panic(err)
	}
	if err := w.db.Save(&model.Grant{ListID: w.list.ID, UserID: grantee.ID}); err != nil {
		panic(err)
	}

	clock := w.clock()
	sync := w.sync(grantee, clientItem(uuid.Must(uuid.NewV4()).String(), "Juice", 1, clock.Add(time.Second), false))
	assert.NoError(t, sync.Execute())
	assert.Len(t, sync.Items, 1)
}

func TestSyncConcurrentSameList(t *testing.T) {
	w, cleanup := setup()
	defer cleanup()

	clock := w.clock()
	a := w.seedItem("Milk", 1, clock.Add(-time.Minute))

	early := clientItem(a.ID, "Milk", 3, clock.Add(time.Second), false)
	late := clientItem(a.ID, "Milk", 7, clock.Add(2*time.Second), false)

	var wg sync.WaitGroup
	for _, item := range []*model.Item{early, late} {
		wg.Add(1)
		go func(item *model.Item) {
			defer wg.Done()
			assert.NoError(t, w.sync(w.user, item).Execute())
		}(item)
	}
	wg.Wait()

	// Reconciliations are serialized per list: whatever the interleaving,
	// the item with the latest timestamp wins and no update is lost.
	item, err := w.db.FindItem(a.ID)
	assert.NoError(t, err)
	assert.Equal(t, 7, item.Count)
	assert.True(t, item.UpdatedAt.Equal(*late.UpdatedAt))
}
