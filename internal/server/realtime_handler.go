package server

import (
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/mdouchement/sharelist/internal/access"
	"github.com/mdouchement/sharelist/internal/database"
	"github.com/mdouchement/sharelist/internal/realtime"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// rt contains the live-update handler.
type rt struct {
	db   database.Client
	gate access.Gate
	hub  *realtime.Hub
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

///// Subscribe
////
//

// Subscribe upgrades the connection and joins the session to the topics of
// the lists it asks for. Ids the user is not a member of are dropped without
// acknowledgement so list existence does not leak; such a session simply
// receives nothing for them.
func (h *rt) Subscribe(c echo.Context) error {
	user := currentUser(c)

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return errors.Wrap(err, "could not upgrade connection")
	}
	defer conn.Close()

	// The first message declares the lists the session wants updates for.
	var req struct {
		ListIDs []string `json:"list_uuids"`
	}
	if err := conn.ReadJSON(&req); err != nil {
		return nil
	}

	var accepted []string
	for _, id := range req.ListIDs {
		list, err := h.db.FindList(id)
		if err != nil {
			continue
		}

		level, err := h.gate.Level(user, list)
		if err != nil {
			logrus.WithError(err).Error("could not check access")
			continue
		}
		if level == access.Member {
			accepted = append(accepted, id)
		}
	}

	sub := realtime.NewSubscriber()
	h.hub.Subscribe(sub, accepted...)
	defer h.hub.Unsubscribe(sub)

	// Drain incoming frames to detect the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event := <-sub.Events():
			if err := conn.WriteJSON(event); err != nil {
				return nil
			}
		case <-done:
			return nil
		}
	}
}
