package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/career-atoms/internal/backup"
	"github.com/jonathan/career-atoms/internal/migration"
	"github.com/jonathan/career-atoms/internal/provisioning"
	"github.com/jonathan/career-atoms/internal/store"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "auth required", err: store.ErrAuthRequired, want: http.StatusUnauthorized},
		{name: "wrapped not found", err: fmt.Errorf("failed to get job: %w", store.ErrNotFound), want: http.StatusNotFound},
		{name: "bad request", err: &ErrBadRequest{Field: "job_id", Message: "not a UUID"}, want: http.StatusBadRequest},
		{name: "input", err: &store.InputError{Field: "company", Message: "required"}, want: http.StatusBadRequest},
		{name: "validation", err: &backup.ValidationError{}, want: http.StatusBadRequest},
		{name: "normalize", err: &backup.NormalizeError{Message: "not an object"}, want: http.StatusBadRequest},
		{name: "already started", err: migration.ErrAlreadyStarted, want: http.StatusConflict},
		{name: "provisioning", err: &provisioning.ProvisionError{Principal: "p", Step: provisioning.StepApplySchema, Cause: errors.New("boom")}, want: http.StatusServiceUnavailable},
		{name: "unknown", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestErrBadRequest(t *testing.T) {
	err := &ErrBadRequest{Field: "hidden", Message: "must be a boolean"}
	assert.Equal(t, "invalid hidden: must be a boolean", err.Error())
}
