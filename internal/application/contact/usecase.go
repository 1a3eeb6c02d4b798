// Package contact envía el formulario de contacto comercial a la plataforma de distribución.
package contact

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/appstore-api/internal/application/dto"
	"github.com/jhoicas/appstore-api/internal/application/ports"
	"github.com/jhoicas/appstore-api/internal/domain"
	"github.com/jhoicas/appstore-api/internal/domain/entity"
	"github.com/jhoicas/appstore-api/pkg/validate"
)

// Sender destino remoto del formulario.
type Sender interface {
	SubmitContact(ctx context.Context, msg ports.ContactMessage) error
}

const submitTimeout = 15 * time.Second

type UseCase struct {
	sender Sender
	markup ports.Markup
	log    zerolog.Logger
}

func NewUseCase(sender Sender, markup ports.Markup, log zerolog.Logger) *UseCase {
	return &UseCase{sender: sender, markup: markup, log: log}
}

// Submit valida, limpia el HTML de los campos libres y envía.
func (uc *UseCase) Submit(ctx context.Context, in dto.ContactRequest) (*dto.ActionResponse, error) {
	if err := validate.Struct(in); err != nil {
		return nil, domain.NewError(domain.ErrInvalidInput, "%s", err.Error())
	}

	msg := ports.ContactMessage{
		Name:      uc.clean(in.Name),
		Email:     strings.TrimSpace(in.Email),
		Company:   uc.clean(in.Company),
		Subject:   uc.clean(in.Subject),
		Message:   uc.clean(in.Message),
		ModuleKey: entity.NormalizeModuleKey(in.ModuleKey),
	}
	if msg.Message == "" || msg.Subject == "" {
		return nil, domain.NewError(domain.ErrInvalidInput, "el asunto y el mensaje no pueden quedar vacíos")
	}

	ctx, cancel := context.WithTimeout(ctx, submitTimeout)
	defer cancel()
	if err := uc.sender.SubmitContact(ctx, msg); err != nil {
		uc.log.Warn().Err(err).Str("module", msg.ModuleKey).Msg("contact: envío fallido")
		return nil, domain.WrapError(domain.ErrInfrastructure, err, "no se pudo enviar el mensaje; intente más tarde")
	}
	uc.log.Info().Str("module", msg.ModuleKey).Msg("contact: mensaje enviado")
	return &dto.ActionResponse{Success: true, Message: "mensaje enviado; el equipo comercial le contactará"}, nil
}

func (uc *UseCase) clean(s string) string {
	return strings.TrimSpace(uc.markup.StripTags(s))
}
