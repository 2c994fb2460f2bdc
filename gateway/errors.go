package gateway

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/chatrelay/pkg/llm"
	"github.com/papercomputeco/chatrelay/pkg/stream"
)

// statusFor classifies errors raised before any output was written.
func statusFor(err error) int {
	var (
		unsupported *llm.UnsupportedModelError
		transport   *llm.BackendTransportError
	)
	switch {
	case errors.Is(err, errInvalidRequest), errors.As(err, &unsupported):
		return fiber.StatusBadRequest
	case errors.As(err, &transport):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func writeError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	body := stream.ErrorBody(err)
	if status == fiber.StatusBadRequest && body.Type == "server_error" {
		body.Type = "invalid_request_error"
	}
	return c.Status(status).JSON(llm.ErrorResponse{Error: *body})
}

// errorHandler renders fiber routing errors (404, 405) and recovered
// panics in the same error layout as handler errors.
func errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}

	errType := "server_error"
	if status < fiber.StatusInternalServerError {
		errType = "invalid_request_error"
	}
	return c.Status(status).JSON(llm.ErrorResponse{Error: llm.ErrorBody{
		Message: err.Error(),
		Type:    errType,
	}})
}
