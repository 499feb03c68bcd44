// Package validation wraps struct-tag validation for request payloads.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"threadhub/internal/services"

	"github.com/go-playground/validator/v10"
)

// RequestValidator validates request structs against their validate tags.
type RequestValidator struct {
	validate *validator.Validate
}

// New creates a request validator.
func New() *RequestValidator {
	return &RequestValidator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ValidateStruct checks a request struct and converts tag violations into
// a validation error with per-field details.
func (v *RequestValidator) ValidateStruct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return services.NewInternalError("validation misconfigured")
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return services.NewValidationError("invalid request", err)
	}

	details := make(map[string]interface{}, len(validationErrs))
	for _, fe := range validationErrs {
		details[strings.ToLower(fe.Field())] = describeViolation(fe)
	}

	serviceErr := services.NewValidationError("request validation failed", err)
	serviceErr.Details = details
	return serviceErr
}

func describeViolation(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email address"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
