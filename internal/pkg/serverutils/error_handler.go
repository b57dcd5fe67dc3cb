package serverutils

import (
	"context"
	"errors"

	"nous-core/pkg/gateway"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps a handler error onto an HTTP status.
func StatusFor(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return fiber.StatusBadRequest
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fiber.StatusGatewayTimeout
	}

	var ge *gateway.Error
	if !errors.As(err, &ge) && !errors.Is(err, gateway.ErrNotFound) && !errors.Is(err, gateway.ErrUnauthorized) {
		return fiber.StatusInternalServerError
	}
	switch gateway.KindOf(err) {
	case gateway.NotFound:
		return fiber.StatusNotFound
	case gateway.Unauthorized:
		return fiber.StatusUnauthorized
	case gateway.Malformed:
		return fiber.StatusBadRequest
	case gateway.Permanent:
		return fiber.StatusTooManyRequests
	case gateway.Transient:
		return fiber.StatusServiceUnavailable
	case gateway.Persistence:
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

// ErrorHandlerMiddleware turns errors returned by handlers into the uniform
// JSON error body.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		code := StatusFor(err)
		return ctx.Status(code).JSON(ErrorResponse(code, err.Error()))
	}
}
