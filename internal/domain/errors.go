package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas). Las capas superiores los envuelven con %w
// y la capa HTTP los traduce a códigos de estado.
var (
	ErrNotFound        = errors.New("recurso no encontrado")
	ErrInvalidInput    = errors.New("entrada inválida")
	ErrUnauthorized    = errors.New("no autorizado")
	ErrForbidden       = errors.New("acceso denegado")
	ErrPrecondition    = errors.New("el estado actual no permite la operación")
	ErrLicenseDenied   = errors.New("licencia no válida para el módulo")
	ErrDependencyUnmet = errors.New("dependencia no satisfecha")
	ErrInfrastructure  = errors.New("fallo de infraestructura")
)

// Error error categorizado: Kind es uno de los sentinelas de arriba y Message el texto
// que se muestra al usuario. Err conserva la causa técnica para logs.
type Error struct {
	Kind    error
	Message string
	Err     error
}

// NewError crea un error de la categoría kind con mensaje formateado.
func NewError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError como NewError pero conservando la causa.
func WrapError(kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap permite errors.Is tanto contra la categoría como contra la causa.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// UserMessage texto apto para la UI: el Message de un *Error o el texto de la categoría.
func UserMessage(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	for _, kind := range []error{ErrNotFound, ErrInvalidInput, ErrPrecondition, ErrLicenseDenied, ErrDependencyUnmet, ErrForbidden, ErrUnauthorized} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return ErrInfrastructure.Error()
}
