package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/parkit/internal/core/domain"
	"github.com/samirrijal/parkit/internal/pkg/logging"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, internal_error, etc.
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errUnauthorized returns a 401 error.
func errUnauthorized(c *fiber.Ctx, msg string) error {
	return newError(c, 401, "unauthorized", msg)
}

// errConflict returns a 409 error.
func errConflict(c *fiber.Ctx, msg string) error {
	return newError(c, 409, "conflict", msg)
}

// errUnprocessable returns a 422 error for requests rejected by local validation.
func errUnprocessable(c *fiber.Ctx, msg string) error {
	return newError(c, 422, "validation_failed", msg)
}

// errBadGateway returns a 502 error.
func errBadGateway(c *fiber.Ctx, msg string) error {
	return newError(c, 502, "bad_gateway", msg)
}

// writeError maps service errors to responses.
func writeError(c *fiber.Ctx, err error) error {
	var re *domain.RemoteError
	switch {
	case domain.IsValidation(err):
		return errUnprocessable(c, domain.UserMessage(err))
	case errors.Is(err, domain.ErrSubmitting), errors.Is(err, domain.ErrAlreadyConfirmed):
		return errConflict(c, err.Error())
	case errors.Is(err, domain.ErrInvalidRegion),
		errors.Is(err, domain.ErrInvalidPricing),
		errors.Is(err, domain.ErrInvalidListingKind),
		errors.Is(err, domain.ErrInvalidListing):
		return errBadRequest(c, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return errNotFound(c, err.Error())
	case errors.As(err, &re):
		if re.Status == 401 {
			return errUnauthorized(c, domain.UserMessage(err))
		}
		if re.Status >= 400 && re.Status < 500 {
			return newError(c, re.Status, "rejected", domain.UserMessage(err))
		}
		return errBadGateway(c, domain.UserMessage(err))
	case errors.Is(err, domain.ErrInvalidSlotBoard):
		return errBadGateway(c, "backend returned invalid availability")
	case errors.Is(err, context.DeadlineExceeded):
		return newError(c, 504, "timeout", "upstream request timed out")
	}
	logging.FromContext(c.UserContext()).Error("request failed", "path", c.Path(), "error", err)
	return errInternal(c, "internal error")
}
