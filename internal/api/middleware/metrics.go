package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/librario/lending-api/internal/pkg/metrics"
)

// Metrics records the duration of every request by route template. Errors
// are rendered here so the recorded status matches the response, then
// returned so outer middleware can log them.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			metrics.HTTPRequestDuration.
				WithLabelValues(c.Request().Method, route, strconv.Itoa(c.Response().Status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}
