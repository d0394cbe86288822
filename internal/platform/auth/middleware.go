package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const identityKey = "auth.identity"

// Middleware verifies the bearer token on REST requests and stores the
// resulting identity in the echo context.
func Middleware(v Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token := strings.TrimPrefix(header, "Bearer ")
			if token == "" || token == header {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			id, err := v.Verify(token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			c.Set(identityKey, id)
			return next(c)
		}
	}
}

// IdentityFrom returns the verified identity stored by Middleware, or nil on
// unauthenticated routes.
func IdentityFrom(c echo.Context) *Identity {
	id, _ := c.Get(identityKey).(*Identity)
	return id
}
