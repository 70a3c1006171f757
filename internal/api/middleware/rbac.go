package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/librario/lending-api/internal/core/domain"
)

// RBAC admits only callers whose role is one of roles. With no roles it
// admits any authenticated caller. Must run after Auth.
func RBAC(roles ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(KeyRole).(domain.Role)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
			}
			if !domain.Allowed(role, roles) {
				return echo.NewHTTPError(http.StatusForbidden, domain.ErrForbidden.Error())
			}
			return next(c)
		}
	}
}
