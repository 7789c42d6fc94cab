package http

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/parkit/internal/pkg/logging"
)

// quietPaths are polled by orchestrators and scrapers; successful hits log at debug.
var quietPaths = map[string]bool{
	"/v1/health": true,
	"/v1/ready":  true,
	"/metrics":   true,
}

func accessLogLevel(path string, status int, err error) slog.Level {
	switch {
	case err != nil || status >= fiber.StatusInternalServerError:
		return slog.LevelError
	case status >= fiber.StatusBadRequest:
		return slog.LevelWarn
	case quietPaths[path]:
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// AccessLogMiddleware logs one line per request. The message is the matched
// route pattern so /v1/bookings/:id aggregates across ids; the raw path and
// the verified rider subject ride along as attributes.
func AccessLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		path := c.Path()
		method := c.Method()

		err := c.Next()

		route := c.Route().Path
		if route == "" || route == "/" {
			route = path
		}
		status := c.Response().StatusCode()
		attrs := []slog.Attr{
			slog.String("method", method),
			slog.String("route", route),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes_out", len(c.Response().Body())),
		}
		if sub := subject(c); sub != "" {
			attrs = append(attrs, slog.String("subject", sub))
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}

		ctx := c.UserContext()
		logging.FromContext(ctx).LogAttrs(ctx, accessLogLevel(path, status, err), method+" "+route, attrs...)
		return err
	}
}
