package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/jonathan/career-atoms/internal/store"
	"github.com/jonathan/career-atoms/internal/types"
)

// UserStore is the PostgreSQL implementation of store.Store. Its pool's search_path
// points at one principal's schema, so every query is unqualified.
type UserStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	now    func() time.Time
}

var _ store.Store = (*UserStore)(nil)

func newUserStore(pool *pgxpool.Pool, logger *zap.Logger) *UserStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserStore{pool: pool, logger: logger, now: time.Now}
}

// Close closes the store's pool.
func (s *UserStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

const userJobColumns = `j.id, j.company, j.role, j.start_date, j.end_date, j.logo_url, j.website, j.created_at, j.updated_at`

func scanUserJob(row pgx.Row, extra ...any) (types.Job, error) {
	var job types.Job
	dest := append([]any{
		&job.ID, &job.Company, &job.Role, &job.StartDate, &job.EndDate,
		&job.LogoURL, &job.Website, &job.CreatedAt, &job.UpdatedAt,
	}, extra...)
	err := row.Scan(dest...)
	return job, err
}

// GetJobs returns all jobs with their highlight counts.
func (s *UserStore) GetJobs(ctx context.Context) ([]types.JobWithCount, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+userJobColumns+`, (SELECT COUNT(*) FROM highlights h WHERE h.job_id = j.id)
		 FROM jobs j
		 ORDER BY j.start_date, j.company, j.role`)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []types.JobWithCount{}
	for rows.Next() {
		var count int
		job, err := scanUserJob(rows, &count)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, types.JobWithCount{Job: job, HighlightCount: count})
	}
	return jobs, rows.Err()
}

// GetJob returns a job by id or store.ErrNotFound.
func (s *UserStore) GetJob(ctx context.Context, id uuid.UUID) (*types.Job, error) {
	job, err := scanUserJob(s.pool.QueryRow(ctx,
		`SELECT `+userJobColumns+` FROM jobs j WHERE j.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// CreateJob inserts a job with a fresh random id.
func (s *UserStore) CreateJob(ctx context.Context, input types.JobInput) (*types.Job, error) {
	if err := store.ValidateJobInput(&input); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	job, err := scanUserJob(s.pool.QueryRow(ctx,
		`INSERT INTO jobs AS j (id, company, role, start_date, end_date, logo_url, website, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		 RETURNING `+userJobColumns,
		uuid.New(), input.Company, input.Role, input.StartDate, input.EndDate, input.LogoURL, input.Website, now,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return &job, nil
}

// UpdateJob overwrites the editable fields of a job.
func (s *UserStore) UpdateJob(ctx context.Context, id uuid.UUID, input types.JobInput) (*types.Job, error) {
	if err := store.ValidateJobInput(&input); err != nil {
		return nil, err
	}

	job, err := scanUserJob(s.pool.QueryRow(ctx,
		`UPDATE jobs AS j SET company = $1, role = $2, start_date = $3, end_date = $4, logo_url = $5,
		     website = $6, updated_at = $7
		 WHERE j.id = $8
		 RETURNING `+userJobColumns,
		input.Company, input.Role, input.StartDate, input.EndDate, input.LogoURL, input.Website,
		s.now().UTC(), id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update job: %w", err)
	}
	return &job, nil
}

// DeleteJob deletes a job. Its highlights are unlinked, not deleted.
func (s *UserStore) DeleteJob(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`UPDATE highlights SET job_id = NULL, updated_at = $1 WHERE job_id = $2`,
		s.now().UTC(), id,
	); err != nil {
		return fmt.Errorf("failed to unlink highlights: %w", err)
	}

	result, err := tx.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return tx.Commit(ctx)
}

// UpsertJob inserts or overwrites a job keyed by its id. xmax is zero only on rows
// the statement inserted.
func (s *UserStore) UpsertJob(ctx context.Context, job types.Job) (bool, error) {
	now := s.now().UTC()
	createdAt, updatedAt := orNow(job.CreatedAt, now), orNow(job.UpdatedAt, now)

	var created bool
	err := s.pool.QueryRow(ctx,
		`INSERT INTO jobs (id, company, role, start_date, end_date, logo_url, website, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET
		     company = EXCLUDED.company,
		     role = EXCLUDED.role,
		     start_date = EXCLUDED.start_date,
		     end_date = EXCLUDED.end_date,
		     logo_url = EXCLUDED.logo_url,
		     website = EXCLUDED.website,
		     updated_at = $10
		 RETURNING (xmax = 0)`,
		job.ID, job.Company, job.Role, job.StartDate, job.EndDate, job.LogoURL, job.Website,
		createdAt, updatedAt, now,
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("failed to upsert job: %w", err)
	}
	return created, nil
}

func orNow(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t.UTC()
}

// GetProfile returns the profile singleton, or nil when it was never written.
func (s *UserStore) GetProfile(ctx context.Context) (*types.Profile, error) {
	var p types.Profile
	err := s.pool.QueryRow(ctx,
		`SELECT full_name, email, phone, location, linkedin, github, website, telegram, updated_at
		 FROM profile WHERE id = $1`, types.ProfileID,
	).Scan(&p.FullName, &p.Email, &p.Phone, &p.Location, &p.LinkedIn, &p.GitHub, &p.Website, &p.Telegram, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

// UpdateProfile merges input over the stored profile, creating it if needed.
func (s *UserStore) UpdateProfile(ctx context.Context, input types.ProfileInput) (*types.Profile, error) {
	current, err := s.GetProfile(ctx)
	if err != nil {
		return nil, err
	}
	if current == nil {
		current = &types.Profile{}
	}
	if err := s.UpsertProfile(ctx, input.Apply(*current)); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx)
}

// UpsertProfile writes the profile singleton.
func (s *UserStore) UpsertProfile(ctx context.Context, p types.Profile) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO profile (id, full_name, email, phone, location, linkedin, github, website, telegram, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
		     full_name = EXCLUDED.full_name,
		     email = EXCLUDED.email,
		     phone = EXCLUDED.phone,
		     location = EXCLUDED.location,
		     linkedin = EXCLUDED.linkedin,
		     github = EXCLUDED.github,
		     website = EXCLUDED.website,
		     telegram = EXCLUDED.telegram,
		     updated_at = EXCLUDED.updated_at`,
		types.ProfileID, p.FullName, p.Email, p.Phone, p.Location, p.LinkedIn, p.GitHub, p.Website, p.Telegram,
		s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// ExportAllRawData dumps every job, highlight and the profile keyed by store id.
func (s *UserStore) ExportAllRawData(ctx context.Context) (*types.RawData, error) {
	jobs, err := s.GetJobs(ctx)
	if err != nil {
		return nil, err
	}
	highlights, err := s.GetHighlights(ctx, store.HighlightFilters{})
	if err != nil {
		return nil, err
	}
	profile, err := s.GetProfile(ctx)
	if err != nil {
		return nil, err
	}

	data := &types.RawData{Jobs: make([]types.Job, 0, len(jobs)), Highlights: highlights, Profile: profile}
	for _, j := range jobs {
		data.Jobs = append(data.Jobs, j.Job)
	}
	return data, nil
}

// HasData reports whether any job, highlight or named profile exists.
func (s *UserStore) HasData(ctx context.Context) (bool, error) {
	var has bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM jobs)
		     OR EXISTS (SELECT 1 FROM highlights)
		     OR EXISTS (SELECT 1 FROM profile WHERE full_name <> '')`,
	).Scan(&has)
	if err != nil {
		return false, fmt.Errorf("failed to check for data: %w", err)
	}
	return has, nil
}

// ClearDatabase deletes every highlight, job and the profile in one transaction.
func (s *UserStore) ClearDatabase(ctx context.Context) (types.ClearResult, error) {
	var result types.ClearResult

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `DELETE FROM highlights`)
	if err != nil {
		return result, fmt.Errorf("failed to clear highlights: %w", err)
	}
	result.HighlightsDeleted = int(tag.RowsAffected())

	tag, err = tx.Exec(ctx, `DELETE FROM jobs`)
	if err != nil {
		return result, fmt.Errorf("failed to clear jobs: %w", err)
	}
	result.JobsDeleted = int(tag.RowsAffected())

	if _, err := tx.Exec(ctx, `DELETE FROM profile`); err != nil {
		return result, fmt.Errorf("failed to clear profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return types.ClearResult{}, fmt.Errorf("failed to commit clear: %w", err)
	}
	s.logger.Info("cleared store",
		zap.Int("jobs", result.JobsDeleted),
		zap.Int("highlights", result.HighlightsDeleted))
	return result, nil
}
