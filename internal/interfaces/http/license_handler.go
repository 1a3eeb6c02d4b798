package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/appstore-api/internal/application/dto"
)

// LicenseStatus lo implementa *license.Service.
type LicenseStatus interface {
	Status(ctx context.Context, force bool) (*dto.LicenseStatusResponse, error)
	AcceptPolicies(ctx context.Context) (*dto.LicenseStatusResponse, error)
}

type LicenseHandler struct {
	svc LicenseStatus
}

func NewLicenseHandler(svc LicenseStatus) *LicenseHandler {
	return &LicenseHandler{svc: svc}
}

// Status godoc
// @Summary      Estado de la licencia (caché)
// @Tags         license
// @Produce      json
// @Success      200  {object}  dto.LicenseStatusResponse
// @Router       /api/appstore/license [get]
func (h *LicenseHandler) Status(c *fiber.Ctx) error {
	out, err := h.svc.Status(c.UserContext(), false)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Validate godoc
// @Summary      Forzar validación remota de la licencia
// @Tags         license
// @Produce      json
// @Success      200  {object}  dto.LicenseStatusResponse
// @Router       /api/appstore/license/validate [post]
func (h *LicenseHandler) Validate(c *fiber.Ctx) error {
	out, err := h.svc.Status(c.UserContext(), true)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// AcceptPolicies godoc
// @Summary      Aceptar las políticas de la plataforma de distribución
// @Tags         license
// @Produce      json
// @Success      200  {object}  dto.LicenseStatusResponse
// @Router       /api/appstore/license/policies [post]
func (h *LicenseHandler) AcceptPolicies(c *fiber.Ctx) error {
	out, err := h.svc.AcceptPolicies(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
