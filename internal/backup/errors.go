package backup

import (
	"fmt"

	"github.com/jonathan/career-atoms/internal/schemas"
)

// ValidationError lists every problem found in a backup document.
type ValidationError = schemas.ValidationError

// FieldError is one problem at a dotted field path such as "jobs.0.id".
type FieldError = schemas.FieldError

// NormalizeError is returned when import data is not a JSON object at all.
type NormalizeError struct {
	Message string
	Cause   error
}

func (e *NormalizeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("normalize error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("normalize error: %s", e.Message)
}

func (e *NormalizeError) Unwrap() error {
	return e.Cause
}
