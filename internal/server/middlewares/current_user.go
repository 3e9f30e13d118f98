package middlewares

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/mdouchement/sharelist/internal/database"
	"github.com/pkg/errors"
)

// CurrentUserContextKey is the key to retrieve the current_user from echo.Context.
const CurrentUserContextKey = "current_user"

// CurrentUser checks the request's JWT and stores current_user into echo.Context.
func CurrentUser(db database.Client, signingKey []byte) echo.MiddlewareFunc {
	check := echojwt.JWT(signingKey)

	fake := func(echo.Context) error {
		return nil
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			err = check(fake)(c) // Check JWT validity according its claims.
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": echo.Map{
						"tag":     "invalid-auth",
						"message": "Invalid login credentials.",
					},
				})
			}

			token, ok := c.Get("user").(*jwt.Token)
			if !ok {
				panic("token implementation has changed")
			}
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				panic("token implementation has wrong type of claims")
			}
			id, _ := claims["user_uuid"].(string)

			user, err := db.FindUser(id)
			if err != nil {
				if db.IsNotFound(err) {
					return c.JSON(http.StatusUnauthorized, echo.Map{
						"error": echo.Map{
							"tag":     "invalid-auth",
							"message": "No such user for given token.",
						},
					})
				}
				return errors.Wrap(err, "could not get access to database")
			}

			// Store current_user for handlers.
			c.Set(CurrentUserContextKey, user)
			return next(c)
		}
	}
}
