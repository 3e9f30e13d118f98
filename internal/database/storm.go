package database

import (
	"time"

	"github.com/asdine/storm/v3"
	"github.com/asdine/storm/v3/codec/msgpack"
	"github.com/asdine/storm/v3/q"
	"github.com/gofrs/uuid"
	"github.com/mdouchement/sharelist/internal/model"
	"github.com/pkg/errors"
)

type strm struct {
	db *storm.DB
}

// StormCodec is the format used to store data in the database.
var StormCodec = storm.Codec(msgpack.Codec)

// StormInit initializes Storm database.
func StormInit(database string) error {
	db, err := storm.Open(database, StormCodec)
	if err != nil {
		return errors.Wrap(err, "could not get database connection")
	}
	defer db.Close()

	for _, m := range []model.Model{&model.User{}, &model.List{}, &model.Item{}, &model.Grant{}} {
		if err := db.Init(m); err != nil {
			return errors.Wrap(err, "could not init index")
		}
	}
	return nil
}

// StormReIndex reindex Storm database.
func StormReIndex(database string) error {
	db, err := storm.Open(database, StormCodec)
	if err != nil {
		return errors.Wrap(err, "could not get database connection")
	}
	defer db.Close()

	for _, m := range []model.Model{&model.User{}, &model.List{}, &model.Item{}, &model.Grant{}} {
		if err := db.ReIndex(m); err != nil {
			return errors.Wrap(err, "could not reindex")
		}
	}
	return nil
}

// StormOpen returns a new Storm database connection.
func StormOpen(database string) (Client, error) {
	db, err := storm.Open(database, StormCodec)
	if err != nil {
		return nil, errors.Wrap(err, "could not get database connection")
	}

	return &strm{
		db: db,
	}, nil
}

// Save inserts or updates the entry in database with the given model.
func (c *strm) Save(m model.Model) error {
	t := time.Now().UTC()
	m.SetUpdatedAt(t)

	if m.GetID() == "" {
		m.SetID(uuid.Must(uuid.NewV4()).String())
		m.SetCreatedAt(t)
	}

	return errors.Wrap(c.db.Save(m), "could not save the model")
}

// Delete deletes the entry in database with the given model.
func (c *strm) Delete(m model.Model) error {
	return errors.Wrap(c.db.DeleteStruct(m), "could not delete the model")
}

// Close the database.
func (c *strm) Close() error {
	return c.db.Close()
}

// IsNotFound returns true if err is a not found error.
func (c *strm) IsNotFound(err error) bool {
	return errors.Cause(err) == storm.ErrNotFound
}

// FindUser returns the user for the given id (UUID).
func (c *strm) FindUser(id string) (*model.User, error) {
	var user model.User
	if err := c.db.One("ID", id, &user); err != nil {
		return nil, errors.Wrap(err, "find user by id")
	}
	return &user, nil
}

// FindUserByEmail returns the user for the given email.
func (c *strm) FindUserByEmail(email string) (*model.User, error) {
	var user model.User
	if err := c.db.One("Email", email, &user); err != nil {
		return nil, errors.Wrap(err, "find user by email")
	}
	return &user, nil
}

// FindList returns the list for the given id (UUID).
func (c *strm) FindList(id string) (*model.List, error) {
	var list model.List
	if err := c.db.One("ID", id, &list); err != nil {
		return nil, errors.Wrap(err, "find list by id")
	}
	return &list, nil
}

// FindListByShareCode returns the list for the given share code.
func (c *strm) FindListByShareCode(code string) (*model.List, error) {
	var list model.List
	if err := c.db.One("ShareCode", code, &list); err != nil {
		return nil, errors.Wrap(err, "find list by share code")
	}
	return &list, nil
}

// FindListsByOwnerID returns all the lists owned by the given user id.
func (c *strm) FindListsByOwnerID(ownerID string) ([]*model.List, error) {
	lists := make([]*model.List, 0)
	err := c.db.Select(q.Eq("OwnerID", ownerID)).OrderBy("CreatedAt").Find(&lists)
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not find lists by owner id")
	}
	return lists, nil
}

// TouchList advances the list's modification clock to now.
// The compare-and-swap runs in a single transaction so a concurrent writer
// that advanced the clock since the caller read it fails with ErrClockConflict.
func (c *strm) TouchList(id string, expected, now time.Time) error {
	tx, err := c.db.Begin(true)
	if err != nil {
		return errors.Wrap(err, "could not begin transaction")
	}
	defer tx.Rollback()

	var list model.List
	if err := tx.One("ID", id, &list); err != nil {
		return errors.Wrap(err, "find list by id")
	}

	if list.UpdatedAt == nil || !list.UpdatedAt.Equal(expected) {
		return ErrClockConflict
	}

	list.SetUpdatedAt(now.UTC())
	if err := tx.Save(&list); err != nil {
		return errors.Wrap(err, "could not save the list")
	}

	return errors.Wrap(tx.Commit(), "could not commit transaction")
}

// DeleteList deletes the list and cascades its items and grants.
func (c *strm) DeleteList(id string) error {
	tx, err := c.db.Begin(true)
	if err != nil {
		return errors.Wrap(err, "could not begin transaction")
	}
	defer tx.Rollback()

	err = tx.Select(q.Eq("ListID", id)).Delete(&model.Item{})
	if err != nil && err != storm.ErrNotFound {
		return errors.Wrap(err, "could not delete items")
	}

	err = tx.Select(q.Eq("ListID", id)).Delete(&model.Grant{})
	if err != nil && err != storm.ErrNotFound {
		return errors.Wrap(err, "could not delete grants")
	}

	err = tx.Select(q.Eq("ID", id)).Delete(&model.List{})
	if err != nil {
		return errors.Wrap(err, "could not delete list")
	}

	return errors.Wrap(tx.Commit(), "could not commit transaction")
}

// FindItem returns the item for the given id (UUID).
func (c *strm) FindItem(id string) (*model.Item, error) {
	var item model.Item
	if err := c.db.One("ID", id, &item); err != nil {
		return nil, errors.Wrap(err, "could not find item")
	}
	return &item, nil
}

// FindItemsByListID returns all the items of the given list.
func (c *strm) FindItemsByListID(listID string) ([]*model.Item, error) {
	items := make([]*model.Item, 0)
	err := c.db.Select(q.Eq("ListID", listID)).OrderBy("UpdatedAt").Find(&items)
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not find items")
	}
	return items, nil
}

// SaveItem inserts or updates the item, keeping its id and timestamps verbatim.
func (c *strm) SaveItem(item *model.Item) error {
	if item.CreatedAt == nil {
		item.CreatedAt = item.UpdatedAt
	}
	return errors.Wrap(c.db.Save(item), "could not save the item")
}

// DeleteItem deletes the item matching the given parameters.
func (c *strm) DeleteItem(id, listID string) error {
	err := c.db.Select(q.Eq("ID", id), q.Eq("ListID", listID)).Delete(&model.Item{})
	return errors.Wrap(err, "could not delete item")
}

// FindGrant returns the grant for the given list and user ids.
func (c *strm) FindGrant(listID, userID string) (*model.Grant, error) {
	var grant model.Grant
	err := c.db.Select(q.Eq("ListID", listID), q.Eq("UserID", userID)).First(&grant)
	if err != nil {
		return nil, errors.Wrap(err, "find grant by list and user id")
	}
	return &grant, nil
}

// FindGrantsByUserID returns all the grants held by the given user id.
func (c *strm) FindGrantsByUserID(userID string) ([]*model.Grant, error) {
	grants := make([]*model.Grant, 0)
	err := c.db.Select(q.Eq("UserID", userID)).OrderBy("CreatedAt").Find(&grants)
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not find grants by user id")
	}
	return grants, nil
}

// DeleteGrant deletes the grant matching the given parameters.
func (c *strm) DeleteGrant(listID, userID string) error {
	err := c.db.Select(q.Eq("ListID", listID), q.Eq("UserID", userID)).Delete(&model.Grant{})
	return errors.Wrap(err, "could not delete grant")
}
