package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mdouchement/sharelist/internal/server/service"
	"github.com/mdouchement/sharelist/internal/slerror"
)

// auth contains all authentication handlers.
type auth struct {
	users *service.UserService
}

///// Register
////
//

// Register handler is used to register the user.
func (h *auth) Register(c echo.Context) error {
	// Filter params
	var params service.RegisterParams
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, slerror.New("Could not get user's params."))
	}
	params.UserAgent = c.Request().UserAgent()

	if params.Email == "" {
		return c.JSON(http.StatusBadRequest, slerror.New("No email provided."))
	}
	if params.Password == "" {
		return c.JSON(http.StatusBadRequest, slerror.New("No password provided."))
	}

	register, err := h.users.Register(params)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, register)
}

///// Login
////
//

// Login used for authenticates a user and returns a JWT.
func (h *auth) Login(c echo.Context) error {
	// Filter params
	var params service.LoginParams
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, slerror.New("Could not get credentials."))
	}
	params.UserAgent = c.Request().UserAgent()

	if params.Email == "" || params.Password == "" {
		return c.JSON(http.StatusBadRequest, slerror.New("No email or password provided."))
	}

	login, err := h.users.Login(params)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, login)
}
