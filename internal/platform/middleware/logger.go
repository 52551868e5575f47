package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/mediconsult/mediconsult/internal/platform/auth"
)

// Logger emits one structured line per request. When the session middleware
// has resolved a principal the line names the account, so reads of clinical
// data stay attributable.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			rid, _ := c.Get("request_id").(string)

			evt := logger.Info()
			if err != nil {
				evt = logger.Error().Err(err)
			}
			evt = evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Int64("bytes_out", c.Response().Size).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP())

			// The session middleware swaps the request context, so the
			// principal is visible here once next has run.
			if p := auth.PrincipalFromContext(req.Context()); p != nil {
				evt = evt.Str("user_id", p.ID.String()).Str("role", p.Role)
			}
			evt.Msg("http request")

			return err
		}
	}
}
