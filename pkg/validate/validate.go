// Package validate envuelve go-playground/validator con nombres de campo tomados del tag json.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var v *validator.Validate

func init() {
	v = validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Struct valida s y devuelve un error legible ("email: debe ser un email válido; ...").
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s: es requerido", field)
	case "email":
		return fmt.Sprintf("%s: debe ser un email válido", field)
	case "min":
		return fmt.Sprintf("%s: longitud mínima %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s: longitud máxima %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s: debe ser uno de [%s]", field, fe.Param())
	default:
		return fmt.Sprintf("%s: inválido (%s)", field, fe.Tag())
	}
}
