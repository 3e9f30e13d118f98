package database

import (
	"time"

	"github.com/mdouchement/sharelist/internal/model"
	"github.com/pkg/errors"
)

// ErrClockConflict is returned by TouchList when the list's modification clock
// no longer matches the value the caller read. The caller is expected to retry
// its whole read-compute-apply cycle.
var ErrClockConflict = errors.New("list clock was advanced by another writer")

type (
	// A Client can interacts with the database.
	Client interface {
		// Save inserts or updates the entry in database with the given model.
		// It stamps UpdatedAt with the current time.
		Save(m model.Model) error
		// Delete deletes the entry in database with the given model.
		Delete(m model.Model) error
		// Close the database.
		Close() error
		// IsNotFound returns true if err is a not found error.
		IsNotFound(err error) bool

		UserInteraction
		ListInteraction
		ItemInteraction
		GrantInteraction
	}

	// An UserInteraction defines all the methods used to interact with a user record.
	UserInteraction interface {
		// FindUser returns the user for the given id (UUID).
		FindUser(id string) (*model.User, error)
		// FindUserByEmail returns the user for the given email.
		FindUserByEmail(email string) (*model.User, error)
	}

	// A ListInteraction defines all the methods used to interact with a list record.
	ListInteraction interface {
		// FindList returns the list for the given id (UUID).
		FindList(id string) (*model.List, error)
		// FindListByShareCode returns the list for the given share code.
		FindListByShareCode(code string) (*model.List, error)
		// FindListsByOwnerID returns all the lists owned by the given user id.
		FindListsByOwnerID(ownerID string) ([]*model.List, error)
		// TouchList advances the list's modification clock to now.
		// It fails with ErrClockConflict if the stored clock differs from expected.
		TouchList(id string, expected, now time.Time) error
		// DeleteList deletes the list and all its items and grants.
		DeleteList(id string) error
	}

	// An ItemInteraction defines all the methods used to interact with item record(s).
	ItemInteraction interface {
		// FindItem returns the item for the given id (UUID).
		FindItem(id string) (*model.Item, error)
		// FindItemsByListID returns all the items of the given list.
		FindItemsByListID(listID string) ([]*model.Item, error)
		// SaveItem inserts or updates the item, keeping its id and
		// timestamps verbatim. Reconciliation relies on storing the
		// client's own clock values.
		SaveItem(item *model.Item) error
		// DeleteItem deletes the item matching the given parameters.
		DeleteItem(id, listID string) error
	}

	// A GrantInteraction defines all the methods used to interact with a grant record.
	GrantInteraction interface {
		// FindGrant returns the grant for the given list and user ids.
		FindGrant(listID, userID string) (*model.Grant, error)
		// FindGrantsByUserID returns all the grants held by the given user id.
		FindGrantsByUserID(userID string) ([]*model.Grant, error)
		// DeleteGrant deletes the grant matching the given parameters.
		DeleteGrant(listID, userID string) error
	}
)
