package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/librario/lending-api/internal/core/domain"
	"github.com/librario/lending-api/internal/core/ports"
)

// Context keys set by Auth.
const (
	KeyIdentity = "identity"
	KeyUserID   = "user_id"
	KeyRole     = "role"
)

// Authorizer resolves a bearer token to the caller's identity.
type Authorizer interface {
	Authorize(ctx context.Context, token string) (*ports.Identity, error)
}

// Auth validates the bearer token and injects the caller's identity into the
// context. The token must be the user's current session.
func Auth(authorizer Authorizer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			id, err := authorizer.Authorize(c.Request().Context(), strings.TrimSpace(parts[1]))
			if err != nil {
				if errors.Is(err, domain.ErrUnauthenticated) {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid token").SetInternal(err)
				}
				return err
			}

			c.Set(KeyIdentity, id)
			c.Set(KeyUserID, id.UserID)
			c.Set(KeyRole, id.Role)

			return next(c)
		}
	}
}
