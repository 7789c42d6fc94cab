package http

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// DeprecatedRoute marks an endpoint as deprecated with sunset date.
type DeprecatedRoute struct {
	Path        string    // Route pattern, ":name" segments match anything
	SunsetDate  time.Time // Date when endpoint will be removed
	Alternative string    // Recommended alternative endpoint (optional)
}

// DeprecationMiddleware adds Deprecation, Sunset, and Link headers to deprecated endpoints.
func DeprecationMiddleware(deprecated []DeprecatedRoute) fiber.Handler {
	return func(c *fiber.Ctx) error {
		for _, d := range deprecated {
			params, ok := matchPattern(c.Path(), d.Path)
			if !ok {
				continue
			}

			// RFC 8594
			c.Set("Deprecation", "true")
			c.Set("Sunset", d.SunsetDate.UTC().Format(time.RFC1123))

			if d.Alternative != "" {
				c.Set(fiber.HeaderLink, fmt.Sprintf(`<%s>; rel="successor-version"`, expandPattern(d.Alternative, params)))
			}

			days := time.Until(d.SunsetDate).Hours() / 24
			c.Set("Warning", fmt.Sprintf(`299 - "Deprecated API, will sunset in %.0f days"`, days))
			break
		}

		return c.Next()
	}
}

// matchPattern matches a path against a route pattern such as
// "/map/availability/slots/:id" and returns the captured params.
func matchPattern(path, pattern string) (map[string]string, bool) {
	if path == pattern {
		return nil, true
	}

	ps := strings.Split(strings.Trim(path, "/"), "/")
	pp := strings.Split(strings.Trim(pattern, "/"), "/")
	if len(ps) != len(pp) {
		return nil, false
	}

	params := make(map[string]string)
	for i, seg := range pp {
		if strings.HasPrefix(seg, ":") {
			if ps[i] == "" {
				return nil, false
			}
			params[seg[1:]] = ps[i]
			continue
		}
		if seg != ps[i] {
			return nil, false
		}
	}
	return params, true
}

func expandPattern(pattern string, params map[string]string) string {
	for k, v := range params {
		pattern = strings.ReplaceAll(pattern, ":"+k, v)
	}
	return pattern
}
