package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/jonathan/career-atoms/internal/store"
	"github.com/jonathan/career-atoms/internal/types"
)

const userHighlightColumns = `id, job_id, type, title, content, start_date, end_date,
	domains, skills, keywords, metrics, is_hidden, created_at, updated_at`

func scanUserHighlight(row pgx.Row) (types.Highlight, error) {
	var (
		h     types.Highlight
		jobID pgtype.UUID
		kind  string
	)
	if err := row.Scan(&h.ID, &jobID, &kind, &h.Title, &h.Content, &h.StartDate, &h.EndDate,
		&h.Domains, &h.Skills, &h.Keywords, &h.Metrics, &h.IsHidden, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return h, err
	}
	h.Type = types.HighlightType(kind)
	if jobID.Valid {
		id := uuid.UUID(jobID.Bytes)
		h.JobID = &id
	}
	h.Domains = types.NonNil(h.Domains)
	h.Skills = types.NonNil(h.Skills)
	h.Keywords = types.NonNil(h.Keywords)
	if h.Metrics == nil {
		h.Metrics = []types.Metric{}
	}
	return h, nil
}

func jobIDParam(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}

func metricsParam(metrics []types.Metric) []types.Metric {
	if metrics == nil {
		return []types.Metric{}
	}
	return metrics
}

// GetHighlights lists highlights matching filters.
func (s *UserStore) GetHighlights(ctx context.Context, filters store.HighlightFilters) ([]types.Highlight, error) {
	query := `SELECT ` + userHighlightColumns + ` FROM highlights`
	var where []string
	var args []any

	if filters.JobID != nil {
		args = append(args, *filters.JobID)
		where = append(where, fmt.Sprintf("job_id = $%d", len(args)))
	}
	if filters.Type != "" {
		args = append(args, string(filters.Type))
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	if filters.IsHidden != nil {
		args = append(args, *filters.IsHidden)
		where = append(where, fmt.Sprintf("is_hidden = $%d", len(args)))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY start_date, title"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list highlights: %w", err)
	}
	defer rows.Close()

	highlights := []types.Highlight{}
	for rows.Next() {
		h, err := scanUserHighlight(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan highlight: %w", err)
		}
		highlights = append(highlights, h)
	}
	return highlights, rows.Err()
}

// GetHighlight returns a highlight by id or store.ErrNotFound.
func (s *UserStore) GetHighlight(ctx context.Context, id uuid.UUID) (*types.Highlight, error) {
	h, err := scanUserHighlight(s.pool.QueryRow(ctx,
		`SELECT `+userHighlightColumns+` FROM highlights WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get highlight: %w", err)
	}
	return &h, nil
}

// CreateHighlight inserts a highlight with a fresh random id.
func (s *UserStore) CreateHighlight(ctx context.Context, input types.HighlightInput) (*types.Highlight, error) {
	if err := store.ValidateHighlightInput(&input); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	h, err := scanUserHighlight(s.pool.QueryRow(ctx,
		`INSERT INTO highlights (`+userHighlightColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
		 RETURNING `+userHighlightColumns,
		uuid.New(), jobIDParam(input.JobID), string(input.Type), input.Title, input.Content,
		input.StartDate, input.EndDate, input.Domains, input.Skills, input.Keywords,
		metricsParam(input.Metrics), input.IsHidden, now,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create highlight: %w", err)
	}
	return &h, nil
}

// UpdateHighlight overwrites the editable fields of a highlight.
func (s *UserStore) UpdateHighlight(ctx context.Context, id uuid.UUID, input types.HighlightInput) (*types.Highlight, error) {
	if err := store.ValidateHighlightInput(&input); err != nil {
		return nil, err
	}

	h, err := scanUserHighlight(s.pool.QueryRow(ctx,
		`UPDATE highlights SET job_id = $1, type = $2, title = $3, content = $4, start_date = $5,
		     end_date = $6, domains = $7, skills = $8, keywords = $9, metrics = $10, is_hidden = $11,
		     updated_at = $12
		 WHERE id = $13
		 RETURNING `+userHighlightColumns,
		jobIDParam(input.JobID), string(input.Type), input.Title, input.Content, input.StartDate,
		input.EndDate, input.Domains, input.Skills, input.Keywords, metricsParam(input.Metrics),
		input.IsHidden, s.now().UTC(), id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update highlight: %w", err)
	}
	return &h, nil
}

// DeleteHighlight deletes a highlight.
func (s *UserStore) DeleteHighlight(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM highlights WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete highlight: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// UpsertHighlight inserts or overwrites a highlight keyed by its id.
func (s *UserStore) UpsertHighlight(ctx context.Context, h types.Highlight) (bool, error) {
	now := s.now().UTC()

	var created bool
	err := s.pool.QueryRow(ctx,
		`INSERT INTO highlights (`+userHighlightColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (id) DO UPDATE SET
		     job_id = EXCLUDED.job_id,
		     type = EXCLUDED.type,
		     title = EXCLUDED.title,
		     content = EXCLUDED.content,
		     start_date = EXCLUDED.start_date,
		     end_date = EXCLUDED.end_date,
		     domains = EXCLUDED.domains,
		     skills = EXCLUDED.skills,
		     keywords = EXCLUDED.keywords,
		     metrics = EXCLUDED.metrics,
		     is_hidden = EXCLUDED.is_hidden,
		     updated_at = $15
		 RETURNING (xmax = 0)`,
		h.ID, jobIDParam(h.JobID), string(h.Type), h.Title, h.Content, h.StartDate, h.EndDate,
		types.NonNil(h.Domains), types.NonNil(h.Skills), types.NonNil(h.Keywords), metricsParam(h.Metrics),
		h.IsHidden, orNow(h.CreatedAt, now), orNow(h.UpdatedAt, now), now,
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("failed to upsert highlight: %w", err)
	}
	return created, nil
}
