package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mdouchement/sharelist/internal/server/service"
	"github.com/mdouchement/sharelist/internal/slerror"
)

// list contains all list handlers.
type list struct {
	lists *service.ListService
}

///// Index
////
//

// Index returns every list the current user is a member of.
func (h *list) Index(c echo.Context) error {
	lists, err := h.lists.All(currentUser(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"lists": lists,
	})
}

///// Create
////
//

// Create creates a list owned by the current user.
func (h *list) Create(c echo.Context) error {
	// Filter params
	var params service.CreateListParams
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, slerror.New("Could not get list's params."))
	}
	params.UserAgent = c.Request().UserAgent()

	if params.Name == "" {
		return c.JSON(http.StatusBadRequest, slerror.New("No list name provided."))
	}

	list, err := h.lists.Create(currentUser(c), params)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, list)
}

///// Show
////
//

// Show returns the requested list.
func (h *list) Show(c echo.Context) error {
	list, err := h.lists.Find(currentUser(c), c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, list)
}

///// Update
////
//

// Update renames the requested list.
func (h *list) Update(c echo.Context) error {
	// Filter params
	var params service.RenameListParams
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, slerror.New("Could not get list's params."))
	}
	params.UserAgent = c.Request().UserAgent()

	if params.Name == "" {
		return c.JSON(http.StatusBadRequest, slerror.New("No list name provided."))
	}

	list, err := h.lists.Rename(currentUser(c), c.Param("id"), params)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, list)
}

///// Delete
////
//

// Delete removes the list for everyone. Owner only.
func (h *list) Delete(c echo.Context) error {
	if err := h.lists.Delete(currentUser(c), c.Param("id")); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

///// Join
////
//

// Join redeems a share code for the current user.
func (h *list) Join(c echo.Context) error {
	// Filter params
	var params service.JoinListParams
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, slerror.New("Could not get share code."))
	}
	params.UserAgent = c.Request().UserAgent()

	if params.ShareCode == "" {
		return c.JSON(http.StatusBadRequest, slerror.New("No share code provided."))
	}

	list, err := h.lists.Join(currentUser(c), params)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, list)
}

///// Leave
////
//

// Leave drops the current user's grant on the list, never the list itself.
func (h *list) Leave(c echo.Context) error {
	if err := h.lists.Leave(currentUser(c), c.Param("id")); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
