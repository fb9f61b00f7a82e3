package validator

import (
	ierr "github.com/campusledger/campusledger/internal/errors"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

// NewValidator initializes the process-wide validator instance
func NewValidator() *validator.Validate {
	validate = validator.New()
	return validate
}

// ValidateRequest runs struct-tag validation on a request DTO and converts
// field failures into an ErrValidation with per-field details
func ValidateRequest(req any) error {
	if validate == nil {
		NewValidator()
	}

	if err := validate.Struct(req); err != nil {
		details := make(map[string]any)
		var validateErrs validator.ValidationErrors
		if ierr.As(err, &validateErrs) {
			for _, fieldErr := range validateErrs {
				details[fieldErr.Field()] = fieldErr.Error()
			}
		}
		return ierr.WithError(err).
			WithHint("Request validation failed").
			WithReportableDetails(details).
			Mark(ierr.ErrValidation)
	}
	return nil
}
