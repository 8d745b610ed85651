package common

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// FormatValidationErrors flattens validator errors into field -> failed tag.
func FormatValidationErrors(err error) map[string]any {
	fields := map[string]any{}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields["_"] = err.Error()
		return fields
	}
	for _, e := range verrs {
		fields[e.Field()] = "failed " + e.Tag()
	}
	return fields
}
