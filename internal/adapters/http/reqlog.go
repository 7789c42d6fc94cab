package http

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/parkit/internal/pkg/logging"
)

// RequestIDLogMiddleware injects a per-request *slog.Logger carrying the
// Fiber request ID into the user context, so usecases and adapters can
// retrieve it with logging.FromContext.
func RequestIDLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ridStr, ok := c.Locals("requestid").(string)
		if !ok || ridStr == "" {
			return c.Next()
		}

		reqLogger := slog.Default().With("request_id", ridStr)
		c.SetUserContext(logging.Into(c.UserContext(), reqLogger))

		return c.Next()
	}
}
