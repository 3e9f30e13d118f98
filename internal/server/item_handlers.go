package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mdouchement/sharelist/internal/access"
	"github.com/mdouchement/sharelist/internal/database"
	"github.com/mdouchement/sharelist/internal/realtime"
	"github.com/mdouchement/sharelist/internal/server/service"
	"github.com/mdouchement/sharelist/internal/slerror"
)

// item contains all item handlers.
type item struct {
	db    database.Client
	gate  access.Gate
	hub   *realtime.Hub
	locks *service.Locks
}

///// Sync
////
//

// Sync reconciles the client's local changes against the server state of a
// list and returns the authoritative item set as the client's next baseline.
func (h *item) Sync(c echo.Context) error {
	// Filter params
	var params service.SyncParams
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, slerror.New("Could not get syncing params."))
	}
	params.UserAgent = c.Request().UserAgent()

	if params.ListID == "" {
		return c.JSON(http.StatusBadRequest, slerror.New("No list provided."))
	}
	if len(params.Items) == 0 {
		return c.JSON(http.StatusBadRequest, slerror.New("No items provided."))
	}

	sync := service.NewSync(h.db, h.gate, h.hub, h.locks, currentUser(c), params)
	if err := sync.Execute(); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, sync)
}
