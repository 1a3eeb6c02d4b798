package contact_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/appstore-api/internal/application/contact"
	"github.com/jhoicas/appstore-api/internal/application/dto"
	"github.com/jhoicas/appstore-api/internal/application/ports"
	"github.com/jhoicas/appstore-api/internal/domain"
)

type mockSender struct{ mock.Mock }

func (m *mockSender) SubmitContact(ctx context.Context, msg ports.ContactMessage) error {
	return m.Called(ctx, msg).Error(0)
}

var tags = regexp.MustCompile(`<[^>]*>`)

type stripMarkup struct{}

func (stripMarkup) RenderMarkdown(s string) (string, error) { return s, nil }
func (stripMarkup) StripTags(s string) string               { return tags.ReplaceAllString(s, "") }

func validRequest() dto.ContactRequest {
	return dto.ContactRequest{
		Name:      "Ana <b>Pérez</b>",
		Email:     "ana@example.com",
		Subject:   "Cotización",
		Message:   "<script>x</script>Quiero el módulo de SLA",
		ModuleKey: "SLAReports",
	}
}

func TestSubmit_LimpiaYEnvia(t *testing.T) {
	sender := new(mockSender)
	sender.On("SubmitContact", mock.Anything, ports.ContactMessage{
		Name:      "Ana Pérez",
		Email:     "ana@example.com",
		Subject:   "Cotización",
		Message:   "xQuiero el módulo de SLA",
		ModuleKey: "slareports",
	}).Return(nil).Once()

	uc := contact.NewUseCase(sender, stripMarkup{}, zerolog.Nop())
	res, err := uc.Submit(context.Background(), validRequest())

	require.NoError(t, err)
	assert.True(t, res.Success)
	sender.AssertExpectations(t)
}

func TestSubmit_ValidacionFallida(t *testing.T) {
	sender := new(mockSender)
	uc := contact.NewUseCase(sender, stripMarkup{}, zerolog.Nop())

	in := validRequest()
	in.Email = "no-es-email"
	in.Message = "corto"
	_, err := uc.Submit(context.Background(), in)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, domain.UserMessage(err), "email")
	assert.Contains(t, domain.UserMessage(err), "message")
	sender.AssertNotCalled(t, "SubmitContact", mock.Anything, mock.Anything)
}

func TestSubmit_SoloHTMLQuedaVacio(t *testing.T) {
	uc := contact.NewUseCase(new(mockSender), stripMarkup{}, zerolog.Nop())
	in := validRequest()
	in.Message = "<img src=x><br><br><br>"

	_, err := uc.Submit(context.Background(), in)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSubmit_FalloRemoto(t *testing.T) {
	sender := new(mockSender)
	sender.On("SubmitContact", mock.Anything, mock.Anything).Return(errors.New("502"))
	uc := contact.NewUseCase(sender, stripMarkup{}, zerolog.Nop())
	in := validRequest()

	_, err := uc.Submit(context.Background(), in)

	assert.ErrorIs(t, err, domain.ErrInfrastructure)
}
