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

// Number of attempts to generate a share code before giving up.
const shareCodeAttempts = 10

type (
	// CreateListParams are used to create a list.
	CreateListParams struct {
		Params
		Name       string `json:"name"`
		CoverImage string `json:"cover_image"`
	}

	// RenameListParams are used to rename a list.
	RenameListParams struct {
		Params
		Name string `json:"name"`
	}

	// JoinListParams are used to redeem a share code.
	JoinListParams struct {
		Params
		ShareCode string `json:"share_code"`
	}

	// A ListService handles the lifecycle of lists and their access grants.
	ListService struct {
		db    database.Client
		gate  access.Gate
		hub   *realtime.Hub
		locks *Locks
	}
)

// NewList returns a new ListService.
func NewList(db database.Client, gate access.Gate, hub *realtime.Hub, locks *Locks) *ListService {
	return &ListService{
		db:    db,
		gate:  gate,
		hub:   hub,
		locks: locks,
	}
}

// Create creates a list owned by the given user.
// The share code is regenerated until it is unique.
func (s *ListService) Create(user *model.User, params CreateListParams) (*model.List, error) {
	list := &model.List{
		OwnerID:    user.ID,
		Name:       params.Name,
		CoverImage: params.CoverImage,
	}

	for i := 0; ; i++ {
		list.ShareCode = ShareCode(ShareCodeLength)

		_, err := s.db.FindListByShareCode(list.ShareCode)
		if s.db.IsNotFound(err) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "could not check share code uniqueness")
		}
		if i >= shareCodeAttempts {
			return nil, errors.New("could not generate a unique share code")
		}
	}

	if err := s.db.Save(list); err != nil {
		return nil, errors.Wrap(err, "could not persist list")
	}

	logrus.WithFields(logrus.Fields{"list": list.ID, "owner": user.ID}).Info("list created")
	return list, nil
}

// All returns every list the user is a member of, owned first.
func (s *ListService) All(user *model.User) ([]*model.List, error) {
	lists, err := s.db.FindListsByOwnerID(user.ID)
	if err != nil {
		return nil, err
	}

	grants, err := s.db.FindGrantsByUserID(user.ID)
	if err != nil {
		return nil, err
	}

	for _, grant := range grants {
		list, err := s.db.FindList(grant.ListID)
		if err != nil {
			if s.db.IsNotFound(err) {
				// Dangling grant, the list is gone.
				continue
			}
			return nil, err
		}
		lists = append(lists, list)
	}

	return lists, nil
}

// Find returns the list if the user is a member of it.
// A list the user may not see is reported exactly like a missing one.
func (s *ListService) Find(user *model.User, id string) (*model.List, error) {
	list, err := s.db.FindList(id)
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil, slerror.NewNotFound("List not found.")
		}
		return nil, errors.Wrap(err, "could not get list")
	}

	level, err := s.gate.Level(user, list)
	if err != nil {
		return nil, err
	}
	if level != access.Member {
		return nil, slerror.NewAccessDenied()
	}

	return list, nil
}

// Rename renames the list, advances its clock and notifies subscribers.
// Only the owner administrates the list itself.
func (s *ListService) Rename(user *model.User, id string, params RenameListParams) (*model.List, error) {
	list, err := s.Find(user, id)
	if err != nil {
		return nil, err
	}
	if !s.gate.Owns(user, list) {
		return nil, slerror.NewAccessDenied()
	}

	list.Name = params.Name
	if err := s.db.Save(list); err != nil {
		return nil, errors.Wrap(err, "could not persist list")
	}

	s.hub.Publish(list.ID, realtime.ListModified(list))
	return list, nil
}

// Delete removes the list for everyone: items and grants are cascaded.
// Only the owner can delete a list.
func (s *ListService) Delete(user *model.User, id string) error {
	list, err := s.Find(user, id)
	if err != nil {
		return err
	}
	if !s.gate.Owns(user, list) {
		return slerror.NewAccessDenied()
	}

	unlock := s.locks.Lock(list.ID)
	defer unlock()

	if err := s.db.DeleteList(list.ID); err != nil {
		return errors.Wrap(err, "could not delete list")
	}

	s.hub.Publish(list.ID, realtime.ListDeleted(list.ID, time.Now().UTC()))
	logrus.WithFields(logrus.Fields{"list": list.ID, "owner": user.ID}).Info("list deleted")
	return nil
}

// Join redeems a share code and grants the user access to the list.
// Redeeming a code twice is a no-op.
func (s *ListService) Join(user *model.User, params JoinListParams) (*model.List, error) {
	list, err := s.db.FindListByShareCode(params.ShareCode)
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil, slerror.NewNotFound("List not found.")
		}
		return nil, errors.Wrap(err, "could not get list")
	}

	if s.gate.Owns(user, list) {
		return list, nil
	}

	_, err = s.db.FindGrant(list.ID, user.ID)
	if err == nil {
		return list, nil
	}
	if !s.db.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not check grant")
	}

	grant := &model.Grant{ListID: list.ID, UserID: user.ID}
	if err := s.db.Save(grant); err != nil {
		return nil, errors.Wrap(err, "could not persist grant")
	}

	logrus.WithFields(logrus.Fields{"list": list.ID, "user": user.ID}).Info("share code redeemed")
	return list, nil
}

// Leave drops the user's grant on the list. The list itself is never deleted
// this way; an owner cannot leave its own list.
func (s *ListService) Leave(user *model.User, id string) error {
	list, err := s.Find(user, id)
	if err != nil {
		return err
	}
	if s.gate.Owns(user, list) {
		return slerror.NewValidation("The owner cannot leave its own list.")
	}

	err = s.db.DeleteGrant(list.ID, user.ID)
	if err != nil && !s.db.IsNotFound(err) {
		return errors.Wrap(err, "could not delete grant")
	}
	return nil
}
