package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/appstore-api/internal/application/dto"
)

// moduleChecker lo implementa *license.Service.
type moduleChecker interface {
	CanUse(ctx context.Context, key string) (bool, error)
}

// RequireModule protege las rutas del host que pertenecen a un módulo: debe estar instalado,
// habilitado y permitido por la licencia (o en free fallback).
//
//   - 403 Forbidden → módulo deshabilitado o sin licencia.
//   - 503 Service Unavailable → no se pudo consultar el estado.
func RequireModule(key string, checker moduleChecker, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ok, err := checker.CanUse(c.UserContext(), key)
		if err != nil {
			log.Error().Err(err).Str("module", key).Msg("http: verificación de módulo fallida")
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Code:    "MODULE_CHECK_FAILED",
				Message: "no se pudo verificar el módulo, intente más tarde",
			})
		}
		if !ok {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Code:    "MODULE_DISABLED",
				Message: "el módulo '" + key + "' no está activo",
			})
		}
		return c.Next()
	}
}
