package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on endpoint,
// unless the handler already set one.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}
		if existing := c.GetRespHeader(fiber.HeaderCacheControl); existing != "" {
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10"

		case path == "/metrics":
			ttl = "no-cache"

		case strings.HasPrefix(path, "/v1/me/"):
			ttl = "private, no-store"

		// Slot boards go stale the moment someone books.
		case strings.HasSuffix(path, "/slots") || strings.HasPrefix(path, "/map/availability/"):
			ttl = "no-store"

		case strings.HasPrefix(path, "/v1/places/") || path == "/map/nearby":
			ttl = "public, max-age=30"

		case strings.HasPrefix(path, "/docs"):
			ttl = "public, max-age=3600"

		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=60"
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}

		return err
	}
}
