package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/para-cebu/para/internal/core/domain"
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

// errBadGateway returns a 502 error for upstream geometry failures.
func errBadGateway(c *fiber.Ctx, msg string) error {
	return newError(c, 502, "bad_gateway", msg)
}

// errUnavailable returns a 503 error.
func errUnavailable(c *fiber.Ctx, code, msg string) error {
	return newError(c, 503, code, msg)
}

// errFromDomain maps service errors onto API errors. Unexpected errors are
// reported and hidden behind a generic message.
func errFromDomain(c *fiber.Ctx, deps *Dependencies, err error) error {
	var catalogErr *domain.CatalogFetchError
	var geometryErr *domain.GeometryFetchError

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return errNotFound(c, err.Error())
	case errors.Is(err, domain.ErrInvalidRoute), errors.Is(err, domain.ErrInvalidCoordinate):
		return errBadRequest(c, err.Error())
	case errors.Is(err, domain.ErrAlreadySaved):
		return errConflict(c, err.Error())
	case errors.As(err, &catalogErr):
		return errUnavailable(c, "catalog_unavailable", "route catalog is unavailable")
	case errors.As(err, &geometryErr):
		return errBadGateway(c, "route geometry is unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		return newError(c, 504, "timeout", "request timed out")
	}

	LoggerFromCtx(c.UserContext()).Error("unhandled error", "path", c.Path(), "error", err)
	if deps.Reporter != nil {
		reqID, _ := c.Locals("requestid").(string)
		deps.Reporter.CaptureError(c.UserContext(), err, map[string]string{
			"component":  "http",
			"route":      c.Route().Path,
			"request_id": reqID,
		})
	}
	return errInternal(c, "internal error")
}
