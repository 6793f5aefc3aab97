package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aldatz/topagune/internal/core/domain"
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

// errUnprocessable returns a 422 error.
func errUnprocessable(c *fiber.Ctx, msg string) error {
	return newError(c, 422, "unprocessable", msg)
}

// errUpstream returns a 502 error.
func errUpstream(c *fiber.Ctx, msg string) error {
	return newError(c, 502, "upstream_unavailable", msg)
}

// errDomain maps a domain error to the matching HTTP status.
func errDomain(c *fiber.Ctx, err error) error {
	switch domain.KindOf(err) {
	case domain.KindInvalid:
		return errBadRequest(c, err.Error())
	case domain.KindNotFound:
		return errNotFound(c, err.Error())
	case domain.KindUnreachable:
		return errUnprocessable(c, err.Error())
	case domain.KindUpstream:
		return errUpstream(c, err.Error())
	default:
		return errInternal(c, err.Error())
	}
}
