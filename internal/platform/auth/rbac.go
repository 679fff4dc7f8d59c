package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const forbiddenRoleMessage = "User are not authorized to access this endpoint."

// RequireRole rejects actors whose role is not one of roles.
func RequireRole(roles ...Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := ActorFromContext(c.Request().Context())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}
			for _, r := range roles {
				if actor.Role == r {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, forbiddenRoleMessage)
		}
	}
}

// MustActor returns the request actor. Handlers behind the auth middleware
// always have one; a missing actor is reported as 401.
func MustActor(c echo.Context) (Actor, error) {
	actor, ok := ActorFromContext(c.Request().Context())
	if !ok {
		return Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
	}
	return actor, nil
}
