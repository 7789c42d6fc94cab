package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/parkit/internal/pkg/auth"
)

const (
	localsToken   = "bearer_token"
	localsSubject = "subject"
)

// TokenMiddleware forwards the caller's bearer token to backend calls.
func TokenMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if tok := auth.FromHeader(c.Get(fiber.HeaderAuthorization)); tok != "" {
			c.Locals(localsToken, tok)
			c.SetUserContext(auth.WithToken(c.UserContext(), tok))
		}
		return c.Next()
	}
}

// RequireToken rejects requests without a bearer token that v accepts, and
// records the verified user id for the handlers behind it.
func RequireToken(v *auth.Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tok := auth.Token(c.UserContext())
		if tok == "" {
			return errUnauthorized(c, "missing bearer token")
		}
		if v == nil {
			return errUnauthorized(c, "token verification is not configured")
		}
		sub, err := v.Subject(tok)
		if err != nil {
			return errUnauthorized(c, "invalid bearer token")
		}
		c.Locals(localsSubject, sub)
		return c.Next()
	}
}

// subject returns the verified user id, or "" outside RequireToken.
func subject(c *fiber.Ctx) string {
	sub, _ := c.Locals(localsSubject).(string)
	return sub
}
