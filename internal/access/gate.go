package access

import (
	"github.com/mdouchement/sharelist/internal/database"
	"github.com/mdouchement/sharelist/internal/model"
	"github.com/pkg/errors"
)

// A Level is the access a user holds on a list.
type Level int

const (
	// None means the user may not see the list at all.
	None Level = iota
	// Member means the user may read and write the list and its items.
	Member
)

// A Gate answers access questions for lists.
// It is the single source of truth for membership: a user is a member
// if it owns the list or holds a grant for it.
type Gate struct {
	db database.Client
}

// NewGate returns a Gate backed by the given database client.
func NewGate(db database.Client) Gate {
	return Gate{db: db}
}

// Owns returns true if the user is the owner of the list.
func (g Gate) Owns(user *model.User, list *model.List) bool {
	return list.OwnerID == user.ID
}

// Level returns the access level of the user for the list.
func (g Gate) Level(user *model.User, list *model.List) (Level, error) {
	if g.Owns(user, list) {
		return Member, nil
	}

	_, err := g.db.FindGrant(list.ID, user.ID)
	if err != nil {
		if g.db.IsNotFound(err) {
			return None, nil
		}
		return None, errors.Wrap(err, "could not check grant")
	}
	return Member, nil
}
