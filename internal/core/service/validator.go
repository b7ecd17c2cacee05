package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/audio-transcribe/client/internal/core/domain"
)

// inputValidator wraps go-playground/validator and reports the first failing
// field as a domain.ValidationError.
type inputValidator struct {
	v *validator.Validate
}

func newInputValidator() *inputValidator {
	return &inputValidator{v: validator.New()}
}

func (iv *inputValidator) Validate(i any) error {
	if err := iv.v.Struct(i); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return domain.NewValidationError(fieldError(ve[0]))
		}
		return err
	}
	return nil
}

// fieldError converts a single FieldError into the message shown to the user.
func fieldError(fe validator.FieldError) string {
	field := humanField(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required."
	case "eqfield":
		return "Passwords must match."
	case "gt":
		return fmt.Sprintf("%s must be greater than %s.", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s.", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s).", field, fe.Tag())
	}
}

// humanField turns "ConfirmPassword" into "Confirm password".
func humanField(name string) string {
	var b strings.Builder
	for i, r := range name {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
