package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/appstore-api/internal/application/dto"
)

// ContactSubmitter lo implementa *contact.UseCase.
type ContactSubmitter interface {
	Submit(ctx context.Context, in dto.ContactRequest) (*dto.ActionResponse, error)
}

type ContactHandler struct {
	uc ContactSubmitter
}

func NewContactHandler(uc ContactSubmitter) *ContactHandler {
	return &ContactHandler{uc: uc}
}

// Submit godoc
// @Summary      Enviar el formulario de contacto comercial
// @Tags         contact
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ContactRequest  true  "Mensaje"
// @Success      200   {object}  dto.ActionResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      502   {object}  dto.ErrorResponse
// @Router       /api/appstore/contact [post]
func (h *ContactHandler) Submit(c *fiber.Ctx) error {
	var in dto.ContactRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	out, err := h.uc.Submit(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
