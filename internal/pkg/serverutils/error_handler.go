package serverutils

import (
	"errors"

	"venturelink-be/internal/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware translates typed domain errors into HTTP statuses.
// Anything unrecognized becomes a 500 with a generic message.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			status := fiber.StatusInternalServerError
			switch appErr.Kind {
			case apperror.KindAuth:
				status = fiber.StatusUnauthorized
			case apperror.KindPermission:
				status = fiber.StatusForbidden
			case apperror.KindValidation:
				status = fiber.StatusBadRequest
			case apperror.KindNotFound:
				status = fiber.StatusNotFound
			case apperror.KindTransient:
				status = fiber.StatusServiceUnavailable
			}
			return ctx.Status(status).JSON(fiber.Map{
				"success": false,
				"message": appErr.Message,
			})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(fiber.Map{
				"success": false,
				"message": fiberErr.Message,
			})
		}

		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "internal server error",
		})
	}
}
