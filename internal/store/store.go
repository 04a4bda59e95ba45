// Package store defines the capability interface shared by the local on-device store
// and the per-principal remote store. Callers depend on these interfaces only.
package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jonathan/career-atoms/internal/types"
)

// HighlightFilters narrows GetHighlights. Zero values mean "any".
type HighlightFilters struct {
	JobID    *uuid.UUID
	Type     types.HighlightType
	IsHidden *bool
}

// Reader is the read side of a store.
type Reader interface {
	// GetProfile returns nil, nil when no profile row exists.
	GetProfile(ctx context.Context) (*types.Profile, error)
	// GetJobs returns jobs ordered by start date, company and role.
	GetJobs(ctx context.Context) ([]types.JobWithCount, error)
	GetJob(ctx context.Context, id uuid.UUID) (*types.Job, error)
	// GetHighlights returns highlights ordered by start date and title.
	GetHighlights(ctx context.Context, filters HighlightFilters) ([]types.Highlight, error)
	GetHighlight(ctx context.Context, id uuid.UUID) (*types.Highlight, error)
	// ExportAllRawData dumps the whole store keyed by store identifiers, in the same
	// order as GetJobs and GetHighlights.
	ExportAllRawData(ctx context.Context) (*types.RawData, error)
	// HasData reports whether the store holds any job, highlight or named profile.
	HasData(ctx context.Context) (bool, error)
}

// Writer is the write side of a store.
type Writer interface {
	UpdateProfile(ctx context.Context, input types.ProfileInput) (*types.Profile, error)
	CreateJob(ctx context.Context, input types.JobInput) (*types.Job, error)
	UpdateJob(ctx context.Context, id uuid.UUID, input types.JobInput) (*types.Job, error)
	// DeleteJob removes a job and unlinks its highlights.
	DeleteJob(ctx context.Context, id uuid.UUID) error
	CreateHighlight(ctx context.Context, input types.HighlightInput) (*types.Highlight, error)
	UpdateHighlight(ctx context.Context, id uuid.UUID, input types.HighlightInput) (*types.Highlight, error)
	DeleteHighlight(ctx context.Context, id uuid.UUID) error

	// UpsertJob inserts the job, or overwrites its editable fields and UpdatedAt when a
	// row with the same ID exists. CreatedAt of an existing row is never touched.
	UpsertJob(ctx context.Context, job types.Job) (created bool, err error)
	// UpsertHighlight follows the same rules as UpsertJob.
	UpsertHighlight(ctx context.Context, highlight types.Highlight) (created bool, err error)
	// UpsertProfile writes the profile singleton.
	UpsertProfile(ctx context.Context, profile types.Profile) error

	ClearDatabase(ctx context.Context) (types.ClearResult, error)
}

// Store is a complete backend.
type Store interface {
	Reader
	Writer
	Close() error
}
