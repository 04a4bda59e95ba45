package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/career-atoms/internal/store"
	"github.com/jonathan/career-atoms/internal/types"
)

const jobColumns = `j.id, j.company, j.role, j.start_date, j.end_date, j.logo_url, j.website, j.created_at, j.updated_at`

func scanJob(row rowScanner, extra ...any) (types.Job, error) {
	var (
		job                    types.Job
		id                     string
		endDate, logoURL, site sql.NullString
		createdAt, updatedAt   string
	)
	dest := append([]any{&id, &job.Company, &job.Role, &job.StartDate, &endDate, &logoURL, &site, &createdAt, &updatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return job, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return job, fmt.Errorf("invalid job id %q: %w", id, err)
	}
	job.ID = parsed
	job.EndDate = stringPtr(endDate)
	job.LogoURL = stringPtr(logoURL)
	job.Website = stringPtr(site)
	job.CreatedAt = parseTime(createdAt)
	job.UpdatedAt = parseTime(updatedAt)
	return job, nil
}

// GetJobs returns all jobs with their highlight counts.
func (s *Store) GetJobs(ctx context.Context) ([]types.JobWithCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+`, (SELECT COUNT(*) FROM highlights h WHERE h.job_id = j.id)
		 FROM jobs j
		 ORDER BY j.start_date, j.company, j.role`)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []types.JobWithCount{}
	for rows.Next() {
		var count int
		job, err := scanJob(rows, &count)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, types.JobWithCount{Job: job, HighlightCount: count})
	}
	return jobs, rows.Err()
}

// GetJob returns a job by id or store.ErrNotFound.
func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (*types.Job, error) {
	job, err := scanJob(s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs j WHERE j.id = ?`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// CreateJob inserts a job with a fresh random id.
func (s *Store) CreateJob(ctx context.Context, input types.JobInput) (*types.Job, error) {
	if err := store.ValidateJobInput(&input); err != nil {
		return nil, err
	}

	now := s.timestamp()
	id := uuid.New()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, company, role, start_date, end_date, logo_url, website, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(), input.Company, input.Role, input.StartDate,
		nullString(input.EndDate), nullString(input.LogoURL), nullString(input.Website), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return s.GetJob(ctx, id)
}

// UpdateJob overwrites the editable fields of a job.
func (s *Store) UpdateJob(ctx context.Context, id uuid.UUID, input types.JobInput) (*types.Job, error) {
	if err := store.ValidateJobInput(&input); err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET company = ?, role = ?, start_date = ?, end_date = ?, logo_url = ?, website = ?, updated_at = ?
		 WHERE id = ?`,
		input.Company, input.Role, input.StartDate,
		nullString(input.EndDate), nullString(input.LogoURL), nullString(input.Website),
		s.timestamp(), id.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update job: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetJob(ctx, id)
}

// DeleteJob deletes a job. Its highlights are unlinked, not deleted.
func (s *Store) DeleteJob(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	if _, err := tx.ExecContext(ctx,
		`UPDATE highlights SET job_id = NULL, updated_at = ? WHERE job_id = ?`,
		s.timestamp(), id.String(),
	); err != nil {
		return fmt.Errorf("failed to unlink highlights: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return tx.Commit()
}

// UpsertJob inserts or overwrites a job keyed by its id.
func (s *Store) UpsertJob(ctx context.Context, job types.Job) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs WHERE id = ?`, job.ID.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check job: %w", err)
	}

	createdAt := job.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO jobs (id, company, role, start_date, end_date, logo_url, website, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		     company = excluded.company,
		     role = excluded.role,
		     start_date = excluded.start_date,
		     end_date = excluded.end_date,
		     logo_url = excluded.logo_url,
		     website = excluded.website,
		     updated_at = ?`,
		job.ID.String(), job.Company, job.Role, job.StartDate,
		nullString(job.EndDate), nullString(job.LogoURL), nullString(job.Website),
		formatTime(createdAt), s.upsertUpdatedAt(job), s.timestamp(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert job: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit job upsert: %w", err)
	}
	return exists == 0, nil
}

// upsertUpdatedAt is the updated_at written for a fresh insert: the value carried by
// the imported row, or now.
func (s *Store) upsertUpdatedAt(job types.Job) string {
	if job.UpdatedAt.IsZero() {
		return s.timestamp()
	}
	return formatTime(job.UpdatedAt)
}
