package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/librario/lending-api/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that maps domain errors
// to status codes and renders {"error": "<message>"}. Unexpected errors are
// logged and answered with a generic 500.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

// domainStatus lists known domain errors with their status. The client sees
// the sentinel's message, never the wrapped chain.
var domainStatus = []struct {
	err  error
	code int
}{
	{domain.ErrUserNotFound, http.StatusNotFound},
	{domain.ErrBookNotFound, http.StatusNotFound},
	{domain.ErrForbidden, http.StatusForbidden},
	{domain.ErrBorrowLimitExceeded, http.StatusForbidden},
	{domain.ErrActivePenalty, http.StatusForbidden},
	{domain.ErrAlreadyBorrowed, http.StatusForbidden},
	{domain.ErrNotBorrowedByUser, http.StatusForbidden},
	{domain.ErrUnauthenticated, http.StatusUnauthorized},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized},
	{domain.ErrDuplicateEmail, http.StatusConflict},
	{domain.ErrInvalidRole, http.StatusBadRequest},
	{domain.ErrSessionNotIssued, http.StatusServiceUnavailable},
	{domain.ErrStoreUnavailable, http.StatusServiceUnavailable},
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, middleware rejections).
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	for _, m := range domainStatus {
		if errors.Is(err, m.err) {
			if m.code == http.StatusServiceUnavailable {
				log.Warn().Err(err).Str("path", c.Path()).Msg("store unavailable")
			}
			return m.code, m.err.Error()
		}
	}

	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
