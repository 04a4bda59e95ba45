package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/career-atoms/internal/backup"
	"github.com/jonathan/career-atoms/internal/migration"
	"github.com/jonathan/career-atoms/internal/provisioning"
	"github.com/jonathan/career-atoms/internal/session"
	"github.com/jonathan/career-atoms/internal/store"
)

// ErrBadRequest indicates a malformed request parameter.
type ErrBadRequest struct {
	Field   string
	Message string
}

func (e *ErrBadRequest) Error() string {
	return "invalid " + e.Field + ": " + e.Message
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		badRequest *ErrBadRequest
		inputErr   *store.InputError
		validation *backup.ValidationError
		normalize  *backup.NormalizeError
		provision  *provisioning.ProvisionError
	)
	switch {
	case errors.Is(err, store.ErrAuthRequired):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &badRequest), errors.As(err, &inputErr),
		errors.As(err, &validation), errors.As(err, &normalize):
		return http.StatusBadRequest
	case errors.Is(err, migration.ErrAlreadyStarted):
		return http.StatusConflict
	case errors.As(err, &provision), errors.Is(err, session.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
