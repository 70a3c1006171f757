package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/librario/lending-api/internal/api/middleware"
	"github.com/librario/lending-api/internal/core/ports"
)

// caller returns the identity injected by the Auth middleware. Its absence
// means the route was mounted without Auth, which is reported as 401.
func caller(c echo.Context) (*ports.Identity, error) {
	id, _ := c.Get(middleware.KeyIdentity).(*ports.Identity)
	if id == nil || id.UserID == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return id, nil
}
