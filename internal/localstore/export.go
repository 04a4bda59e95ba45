package localstore

import (
	"context"
	"fmt"

	"github.com/jonathan/career-atoms/internal/store"
	"github.com/jonathan/career-atoms/internal/types"
)

// ExportAllRawData dumps every job, highlight and the profile keyed by store id.
func (s *Store) ExportAllRawData(ctx context.Context) (*types.RawData, error) {
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

	data := &types.RawData{
		Jobs:       make([]types.Job, 0, len(jobs)),
		Highlights: highlights,
		Profile:    profile,
	}
	for _, j := range jobs {
		data.Jobs = append(data.Jobs, j.Job)
	}
	return data, nil
}

// HasData reports whether any job, highlight or named profile exists.
func (s *Store) HasData(ctx context.Context) (bool, error) {
	var has bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM jobs)
		     OR EXISTS (SELECT 1 FROM highlights)
		     OR EXISTS (SELECT 1 FROM profile WHERE full_name <> '')`,
	).Scan(&has)
	if err != nil {
		return false, fmt.Errorf("failed to check for data: %w", err)
	}
	return has, nil
}

// ClearDatabase deletes every highlight, job and the profile.
func (s *Store) ClearDatabase(ctx context.Context) (types.ClearResult, error) {
	var result types.ClearResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	res, err := tx.ExecContext(ctx, `DELETE FROM highlights`)
	if err != nil {
		return result, fmt.Errorf("failed to clear highlights: %w", err)
	}
	n, _ := res.RowsAffected()
	result.HighlightsDeleted = int(n)

	res, err = tx.ExecContext(ctx, `DELETE FROM jobs`)
	if err != nil {
		return result, fmt.Errorf("failed to clear jobs: %w", err)
	}
	n, _ = res.RowsAffected()
	result.JobsDeleted = int(n)

	if _, err := tx.ExecContext(ctx, `DELETE FROM profile`); err != nil {
		return result, fmt.Errorf("failed to clear profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return types.ClearResult{}, fmt.Errorf("failed to commit clear: %w", err)
	}
	return result, nil
}
