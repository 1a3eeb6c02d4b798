package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/appstore-api/internal/application/dto"
	"github.com/jhoicas/appstore-api/internal/domain"
)

// errorStatus categoría de dominio -> (status HTTP, code).
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrPrecondition):
		return fiber.StatusConflict, "PRECONDITION"
	case errors.Is(err, domain.ErrLicenseDenied):
		return fiber.StatusForbidden, "LICENSE_DENIED"
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrDependencyUnmet):
		return fiber.StatusUnprocessableEntity, "DEPENDENCY_UNMET"
	case errors.Is(err, domain.ErrInfrastructure):
		return fiber.StatusBadGateway, "UPSTREAM"
	default:
		return fiber.StatusInternalServerError, "INTERNAL"
	}
}

// writeError responde {success:false, message, code}; el mensaje es siempre apto para la UI.
func writeError(c *fiber.Ctx, err error) error {
	status, code := errorStatus(err)
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: domain.UserMessage(err)})
}

func badRequest(c *fiber.Ctx, code, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: code, Message: msg})
}
