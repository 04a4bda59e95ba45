// Package backup converts between a store's contents and the portable, slug-keyed
// backup document: Export, the lenient Normalize stage and the strict Validate stage.
package backup

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/career-atoms/internal/identity"
	"github.com/jonathan/career-atoms/internal/store"
	"github.com/jonathan/career-atoms/internal/types"
)

type options struct {
	now func() time.Time
}

// Option configures Export and Normalize.
type Option func(*options)

// WithClock sets the time source for exportedAt and for defaults filled by Normalize.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Export reads the whole store and returns it as a backup document. Jobs are ordered
// by (startDate, company, role) and highlights by (startDate, title), so two exports of
// unchanged data encode to the same bytes apart from exportedAt.
func Export(ctx context.Context, r store.Reader, opts ...Option) (*types.BackupDocument, error) {
	o := buildOptions(opts)

	data, err := r.ExportAllRawData(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read store: %w", err)
	}
	return FromRawData(data, o.now()), nil
}

// FromRawData projects an id-keyed dump onto a backup document exported at exportedAt.
func FromRawData(data *types.RawData, exportedAt time.Time) *types.BackupDocument {
	doc := &types.BackupDocument{
		Version:    types.BackupVersion,
		ExportedAt: types.FormatTimestamp(exportedAt),
		Jobs:       []types.BackupJob{},
		Highlights: []types.BackupHighlight{},
	}
	if data == nil {
		return doc
	}

	jobs := slices.Clone(data.Jobs)
	slices.SortStableFunc(jobs, compareJobs)
	highlights := slices.Clone(data.Highlights)
	slices.SortStableFunc(highlights, compareHighlights)

	usedJobSlugs := map[string]int{}
	jobSlugs := make(map[uuid.UUID]string, len(jobs))
	for _, j := range jobs {
		slug := identity.Disambiguate(identity.BuildJobSlug(j.Company, j.Role, j.StartDate), usedJobSlugs)
		jobSlugs[j.ID] = slug
		doc.Jobs = append(doc.Jobs, types.BackupJob{
			ID:        slug,
			Company:   j.Company,
			Role:      j.Role,
			StartDate: j.StartDate,
			EndDate:   j.EndDate,
			LogoURL:   j.LogoURL,
			Website:   j.Website,
			CreatedAt: types.FormatTimestamp(j.CreatedAt),
			UpdatedAt: types.FormatTimestamp(j.UpdatedAt),
		})
	}

	usedHighlightSlugs := map[string]int{}
	for _, h := range highlights {
		var jobSlug *string
		parent := ""
		if h.JobID != nil {
			if slug, ok := jobSlugs[*h.JobID]; ok {
				jobSlug = &slug
				parent = slug
			}
		}
		slug := identity.Disambiguate(identity.BuildHighlightSlug(h.Title, h.StartDate, parent), usedHighlightSlugs)
		doc.Highlights = append(doc.Highlights, types.BackupHighlight{
			ID:        slug,
			JobID:     jobSlug,
			Type:      h.Type,
			Title:     h.Title,
			Content:   h.Content,
			StartDate: h.StartDate,
			EndDate:   h.EndDate,
			Domains:   types.NonNil(h.Domains),
			Skills:    types.NonNil(h.Skills),
			Keywords:  types.NonNil(h.Keywords),
			Metrics:   nonNilMetrics(h.Metrics),
			IsHidden:  h.IsHidden,
			CreatedAt: types.FormatTimestamp(h.CreatedAt),
			UpdatedAt: types.FormatTimestamp(h.UpdatedAt),
		})
	}

	if data.Profile != nil {
		p := data.Profile
		doc.Profile = &types.BackupProfile{
			FullName: p.FullName,
			Email:    p.Email,
			Phone:    p.Phone,
			Location: p.Location,
			LinkedIn: p.LinkedIn,
			GitHub:   p.GitHub,
			Website:  p.Website,
			Telegram: p.Telegram,
		}
	}
	return doc
}

// compareJobs orders by start date, company and role. Creation time and id break
// ties so disambiguation suffixes stay stable between exports.
func compareJobs(a, b types.Job) int {
	return cmp.Or(
		cmp.Compare(a.StartDate, b.StartDate),
		cmp.Compare(a.Company, b.Company),
		cmp.Compare(a.Role, b.Role),
		a.CreatedAt.Compare(b.CreatedAt),
		cmp.Compare(a.ID.String(), b.ID.String()),
	)
}

func compareHighlights(a, b types.Highlight) int {
	return cmp.Or(
		cmp.Compare(a.StartDate, b.StartDate),
		cmp.Compare(a.Title, b.Title),
		a.CreatedAt.Compare(b.CreatedAt),
		cmp.Compare(a.ID.String(), b.ID.String()),
	)
}

func nonNilMetrics(m []types.Metric) []types.Metric {
	if m == nil {
		return []types.Metric{}
	}
	return m
}
