// Package importer reconciles a backup document into a store. Every entity is upserted
// under an identifier derived from its slug, so importing the same document again
// updates rows in place instead of duplicating them.
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/career-atoms/internal/backup"
	"github.com/jonathan/career-atoms/internal/identity"
	"github.com/jonathan/career-atoms/internal/store"
	"github.com/jonathan/career-atoms/internal/types"
)

// Importer writes backup documents into stores.
type Importer struct {
	concurrency int
	now         func() time.Time
	logger      *zap.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithConcurrency bounds how many upserts run at once. Values below 1 mean 1.
func WithConcurrency(n int) Option {
	return func(im *Importer) {
		if n > 0 {
			im.concurrency = n
		}
	}
}

// WithClock sets the time source used by ImportRaw when normalizing relaxed input.
func WithClock(now func() time.Time) Option {
	return func(im *Importer) {
		if now != nil {
			im.now = now
		}
	}
}

// New creates an Importer.
func New(logger *zap.Logger, opts ...Option) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	im := &Importer{concurrency: 1, now: time.Now, logger: logger}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// jobOutcome and highlightOutcome are written by exactly one goroutine each, at the
// row's index, so the result keeps document order whatever the concurrency.
type jobOutcome struct {
	id      uuid.UUID
	ok      bool
	created bool
	err     error
}

type highlightOutcome struct {
	ok         bool
	created    bool
	missingJob string
	err        error
}

// Import upserts jobs, then highlights, then the profile. A failing row is recorded in
// the result and never stops the batch. A highlight whose jobId does not resolve to a
// job imported by this batch is recorded as an error and imported unlinked.
func (im *Importer) Import(ctx context.Context, doc *types.BackupDocument, w store.Writer) *types.ImportResult {
	result := &types.ImportResult{Errors: []types.ImportError{}}
	if doc == nil {
		result.Success = true
		return result
	}

	jobs := make([]jobOutcome, len(doc.Jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.concurrency)
	for i, bj := range doc.Jobs {
		g.Go(func() error {
			job := toJob(bj)
			created, err := w.UpsertJob(gctx, job)
			jobs[i] = jobOutcome{id: job.ID, ok: err == nil, created: created, err: err}
			return nil
		})
	}
	_ = g.Wait()

	// Slug to id for the jobs this batch actually wrote.
	jobIDs := make(map[string]uuid.UUID, len(doc.Jobs))
	for i, outcome := range jobs {
		slug := doc.Jobs[i].ID
		if !outcome.ok {
			result.Errors = append(result.Errors, types.ImportError{
				Kind:    types.ImportErrorJob,
				Slug:    slug,
				Message: fmt.Sprintf("failed to import job: %v", outcome.err),
			})
			continue
		}
		jobIDs[slug] = outcome.id
		result.JobsImported++
		if outcome.created {
			result.JobsCreated++
		}
	}

	highlights := make([]highlightOutcome, len(doc.Highlights))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(im.concurrency)
	for i, bh := range doc.Highlights {
		g.Go(func() error {
			h := toHighlight(bh)
			var outcome highlightOutcome
			if bh.JobID != nil && *bh.JobID != "" {
				if id, ok := jobIDs[*bh.JobID]; ok {
					h.JobID = &id
				} else {
					outcome.missingJob = *bh.JobID
				}
			}
			outcome.created, outcome.err = w.UpsertHighlight(gctx, h)
			outcome.ok = outcome.err == nil
			highlights[i] = outcome
			return nil
		})
	}
	_ = g.Wait()

	for i, outcome := range highlights {
		slug := doc.Highlights[i].ID
		if outcome.missingJob != "" {
			result.Errors = append(result.Errors, types.ImportError{
				Kind:    types.ImportErrorHighlight,
				Slug:    slug,
				Message: fmt.Sprintf("missing job %q, imported without a job link", outcome.missingJob),
			})
		}
		if !outcome.ok {
			result.Errors = append(result.Errors, types.ImportError{
				Kind:    types.ImportErrorHighlight,
				Slug:    slug,
				Message: fmt.Sprintf("failed to import highlight: %v", outcome.err),
			})
			continue
		}
		result.HighlightsImported++
		if outcome.created {
			result.HighlightsCreated++
		}
	}

	if doc.Profile != nil {
		if err := w.UpsertProfile(ctx, toProfile(doc.Profile)); err != nil {
			result.Errors = append(result.Errors, types.ImportError{
				Kind:    types.ImportErrorProfile,
				Message: fmt.Sprintf("failed to import profile: %v", err),
			})
		} else {
			result.ProfileImported = true
		}
	}

	result.Success = len(result.Errors) == 0
	im.logger.Info("import finished",
		zap.Int("jobs", result.JobsImported),
		zap.Int("jobs_created", result.JobsCreated),
		zap.Int("highlights", result.HighlightsImported),
		zap.Int("highlights_created", result.HighlightsCreated),
		zap.Bool("profile", result.ProfileImported),
		zap.Int("errors", len(result.Errors)))
	return result
}

// ImportRaw normalizes relaxed input, validates it and imports it. Normalization or
// validation problems abort before any write and come back as validation entries in
// the result. A highlight whose jobId names no job is not a validation problem: it is
// imported unlinked and reported by Import. The returned error is reserved for
// failures unrelated to the input.
func (im *Importer) ImportRaw(ctx context.Context, raw []byte, w store.Writer) (*types.ImportResult, error) {
	doc, err := backup.Normalize(raw, backup.WithClock(im.now))
	if err != nil {
		var normErr *backup.NormalizeError
		if errors.As(err, &normErr) {
			return validationResult([]backup.FieldError{{Field: "(root)", Message: normErr.Error()}}), nil
		}
		return nil, err
	}

	if err := backup.Validate(doc, backup.AllowDanglingJobIDs()); err != nil {
		var validationErr *backup.ValidationError
		if errors.As(err, &validationErr) {
			im.logger.Warn("rejected invalid backup document", zap.Int("problems", len(validationErr.Errors)))
			return validationResult(validationErr.Errors), nil
		}
		return nil, err
	}

	return im.Import(ctx, doc, w), nil
}

func validationResult(fields []backup.FieldError) *types.ImportResult {
	result := &types.ImportResult{Errors: make([]types.ImportError, 0, len(fields))}
	for _, fe := range fields {
		result.Errors = append(result.Errors, types.ImportError{
			Kind:    types.ImportErrorValidation,
			Field:   fe.Field,
			Message: fe.Message,
		})
	}
	return result
}

func toJob(bj types.BackupJob) types.Job {
	return types.Job{
		ID:        identity.JobID(bj.ID),
		Company:   bj.Company,
		Role:      bj.Role,
		StartDate: bj.StartDate,
		EndDate:   bj.EndDate,
		LogoURL:   bj.LogoURL,
		Website:   bj.Website,
		CreatedAt: parseTimestamp(bj.CreatedAt),
		UpdatedAt: parseTimestamp(bj.UpdatedAt),
	}
}

func toHighlight(bh types.BackupHighlight) types.Highlight {
	metrics := bh.Metrics
	if metrics == nil {
		metrics = []types.Metric{}
	}
	return types.Highlight{
		ID:        identity.HighlightID(bh.ID),
		Type:      bh.Type,
		Title:     bh.Title,
		Content:   bh.Content,
		StartDate: bh.StartDate,
		EndDate:   bh.EndDate,
		Domains:   types.NonNil(bh.Domains),
		Skills:    types.NonNil(bh.Skills),
		Keywords:  types.NonNil(bh.Keywords),
		Metrics:   metrics,
		IsHidden:  bh.IsHidden,
		CreatedAt: parseTimestamp(bh.CreatedAt),
		UpdatedAt: parseTimestamp(bh.UpdatedAt),
	}
}

func toProfile(bp *types.BackupProfile) types.Profile {
	return types.Profile{
		FullName: bp.FullName,
		Email:    bp.Email,
		Phone:    bp.Phone,
		Location: bp.Location,
		LinkedIn: bp.LinkedIn,
		GitHub:   bp.GitHub,
		Website:  bp.Website,
		Telegram: bp.Telegram,
	}
}

// parseTimestamp returns the zero time for unparsable input; stores substitute now.
func parseTimestamp(s string) time.Time {
	t, err := types.ParseTimestamp(s)
	if err != nil {
		return time.Time{}
	}
	return t
}
