package model

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(fmt.Sprintf("register notblank validation: %v", err))
	}
	return v
}

// validateDraft runs the struct tags on d and maps the first failure onto
// the package's sentinel errors.
func validateDraft(d Draft) error {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	fe := ve[0]
	switch fe.StructField() {
	case "Name":
		if fe.Tag() == "max" {
			return ErrNameTooLong
		}
		return ErrEmptyName
	case "Price":
		return ErrNegativePrice
	default:
		return fmt.Errorf("%w: %s failed on %s", ErrInvalidArgument, fe.Field(), fe.Tag())
	}
}
