package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// MaxIdentifierLength bounds site, circuit and endpoint identifiers.
	MaxIdentifierLength = 128
)

func init() {
	validate = validator.New()
}

// Struct validates v against its `validate` struct tags and returns the
// first failure in a readable form.
func Struct(v any) error {
	if v == nil {
		return errors.New("value cannot be nil")
	}
	if err := validate.Struct(v); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateIdentifier checks a source identifier: non-empty after trimming,
// bounded length, no control characters.
func ValidateIdentifier(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("identifier cannot be empty")
	}
	if len(id) > MaxIdentifierLength {
		return fmt.Errorf("identifier %q exceeds maximum length of %d characters", id, MaxIdentifierLength)
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return fmt.Errorf("identifier %q contains control characters", id)
		}
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	for _, e := range validationErrs {
		field := e.Namespace()
		param := e.Param()

		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min", "gte":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max", "lte":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "gt":
			return fmt.Errorf("%s: must be greater than %s", field, param)
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s]", field, param)
		case "required_with":
			return fmt.Errorf("%s: required when %s is set", field, param)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}

	return err
}
