package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/career-atoms/internal/store"
	"github.com/jonathan/career-atoms/internal/types"
)

const highlightColumns = `id, job_id, type, title, content, start_date, end_date,
	domains, skills, keywords, metrics, is_hidden, created_at, updated_at`

func scanHighlight(row rowScanner) (types.Highlight, error) {
	var (
		h                                  types.Highlight
		id                                 string
		jobID, endDate                     sql.NullString
		domains, skills, keywords, metrics string
		createdAt, updatedAt               string
	)
	if err := row.Scan(&id, &jobID, &h.Type, &h.Title, &h.Content, &h.StartDate, &endDate,
		&domains, &skills, &keywords, &metrics, &h.IsHidden, &createdAt, &updatedAt); err != nil {
		return h, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return h, fmt.Errorf("invalid highlight id %q: %w", id, err)
	}
	h.ID = parsed
	if jobID.Valid {
		jid, err := uuid.Parse(jobID.String)
		if err != nil {
			return h, fmt.Errorf("invalid job id %q on highlight %s: %w", jobID.String, id, err)
		}
		h.JobID = &jid
	}
	h.EndDate = stringPtr(endDate)
	h.CreatedAt = parseTime(createdAt)
	h.UpdatedAt = parseTime(updatedAt)

	if err := decodeList(domains, &h.Domains); err != nil {
		return h, err
	}
	if err := decodeList(skills, &h.Skills); err != nil {
		return h, err
	}
	if err := decodeList(keywords, &h.Keywords); err != nil {
		return h, err
	}
	if err := json.Unmarshal([]byte(metrics), &h.Metrics); err != nil {
		return h, fmt.Errorf("failed to decode metrics: %w", err)
	}
	if h.Metrics == nil {
		h.Metrics = []types.Metric{}
	}
	return h, nil
}

func decodeList(raw string, dest *[]string) error {
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return fmt.Errorf("failed to decode list column: %w", err)
	}
	*dest = types.NonNil(*dest)
	return nil
}

// encodedLists holds the JSON text of a highlight's list columns.
type encodedLists struct {
	domains, skills, keywords, metrics string
}

func encodeLists(domains, skills, keywords []string, metrics []types.Metric) (encodedLists, error) {
	var out encodedLists
	var err error
	if out.domains, err = encodeJSON(types.NonNil(domains)); err != nil {
		return out, err
	}
	if out.skills, err = encodeJSON(types.NonNil(skills)); err != nil {
		return out, err
	}
	if out.keywords, err = encodeJSON(types.NonNil(keywords)); err != nil {
		return out, err
	}
	if metrics == nil {
		metrics = []types.Metric{}
	}
	if out.metrics, err = encodeJSON(metrics); err != nil {
		return out, err
	}
	return out, nil
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode list column: %w", err)
	}
	return string(b), nil
}

func nullUUID(id *uuid.UUID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}

// GetHighlights lists highlights matching filters.
func (s *Store) GetHighlights(ctx context.Context, filters store.HighlightFilters) ([]types.Highlight, error) {
	query := `SELECT ` + highlightColumns + ` FROM highlights`
	var where []string
	var args []any

	if filters.JobID != nil {
		where = append(where, "job_id = ?")
		args = append(args, filters.JobID.String())
	}
	if filters.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(filters.Type))
	}
	if filters.IsHidden != nil {
		where = append(where, "is_hidden = ?")
		args = append(args, *filters.IsHidden)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY start_date, title"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list highlights: %w", err)
	}
	defer rows.Close()

	highlights := []types.Highlight{}
	for rows.Next() {
		h, err := scanHighlight(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan highlight: %w", err)
		}
		highlights = append(highlights, h)
	}
	return highlights, rows.Err()
}

// GetHighlight returns a highlight by id or store.ErrNotFound.
func (s *Store) GetHighlight(ctx context.Context, id uuid.UUID) (*types.Highlight, error) {
	h, err := scanHighlight(s.db.QueryRowContext(ctx,
		`SELECT `+highlightColumns+` FROM highlights WHERE id = ?`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get highlight: %w", err)
	}
	return &h, nil
}

// CreateHighlight inserts a highlight with a fresh random id.
func (s *Store) CreateHighlight(ctx context.Context, input types.HighlightInput) (*types.Highlight, error) {
	if err := store.ValidateHighlightInput(&input); err != nil {
		return nil, err
	}
	lists, err := encodeLists(input.Domains, input.Skills, input.Keywords, input.Metrics)
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	id := uuid.New()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO highlights (`+highlightColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(), nullUUID(input.JobID), string(input.Type), input.Title, input.Content,
		input.StartDate, nullString(input.EndDate),
		lists.domains, lists.skills, lists.keywords, lists.metrics, input.IsHidden, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create highlight: %w", err)
	}
	return s.GetHighlight(ctx, id)
}

// UpdateHighlight overwrites the editable fields of a highlight.
func (s *Store) UpdateHighlight(ctx context.Context, id uuid.UUID, input types.HighlightInput) (*types.Highlight, error) {
	if err := store.ValidateHighlightInput(&input); err != nil {
		return nil, err
	}
	lists, err := encodeLists(input.Domains, input.Skills, input.Keywords, input.Metrics)
	if err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE highlights SET job_id = ?, type = ?, title = ?, content = ?, start_date = ?, end_date = ?,
		     domains = ?, skills = ?, keywords = ?, metrics = ?, is_hidden = ?, updated_at = ?
		 WHERE id = ?`,
		nullUUID(input.JobID), string(input.Type), input.Title, input.Content, input.StartDate,
		nullString(input.EndDate), lists.domains, lists.skills, lists.keywords, lists.metrics,
		input.IsHidden, s.timestamp(), id.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update highlight: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetHighlight(ctx, id)
}

// DeleteHighlight deletes a highlight.
func (s *Store) DeleteHighlight(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM highlights WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete highlight: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// UpsertHighlight inserts or overwrites a highlight keyed by its id.
func (s *Store) UpsertHighlight(ctx context.Context, h types.Highlight) (bool, error) {
	lists, err := encodeLists(h.Domains, h.Skills, h.Keywords, h.Metrics)
	if err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM highlights WHERE id = ?`, h.ID.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check highlight: %w", err)
	}

	now := s.timestamp()
	createdAt, updatedAt := now, now
	if !h.CreatedAt.IsZero() {
		createdAt = formatTime(h.CreatedAt)
	}
	if !h.UpdatedAt.IsZero() {
		updatedAt = formatTime(h.UpdatedAt)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO highlights (`+highlightColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		     job_id = excluded.job_id,
		     type = excluded.type,
		     title = excluded.title,
		     content = excluded.content,
		     start_date = excluded.start_date,
		     end_date = excluded.end_date,
		     domains = excluded.domains,
		     skills = excluded.skills,
		     keywords = excluded.keywords,
		     metrics = excluded.metrics,
		     is_hidden = excluded.is_hidden,
		     updated_at = ?`,
		h.ID.String(), nullUUID(h.JobID), string(h.Type), h.Title, h.Content, h.StartDate,
		nullString(h.EndDate), lists.domains, lists.skills, lists.keywords, lists.metrics,
		h.IsHidden, createdAt, updatedAt, now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert highlight: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit highlight upsert: %w", err)
	}
	return exists == 0, nil
}
