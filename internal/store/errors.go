package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a job or highlight does not exist.
var ErrNotFound = errors.New("not found")

// ErrAuthRequired is returned by any operation gated behind a principal when none is
// present. It never degrades to anonymous behavior.
var ErrAuthRequired = errors.New("authentication required")

// InputError reports an invalid create or update request.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Message)
	}
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Message)
}
