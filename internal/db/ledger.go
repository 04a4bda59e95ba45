package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/career-atoms/internal/provisioning"
)

// Ledger is the provisioning ledger stored in the control-plane user_stores table.
type Ledger struct {
	db *DB
}

var _ provisioning.Ledger = (*Ledger)(nil)

// Ledger returns the provisioning ledger backed by this database.
func (db *DB) Ledger() *Ledger {
	return &Ledger{db: db}
}

// Get returns the principal's ledger entry, or nil when there is none
func (l *Ledger) Get(ctx context.Context, principal string) (*provisioning.Record, error) {
	var rec provisioning.Record
	var status string
	err := l.db.pool.QueryRow(ctx,
		`SELECT principal_id, store_ref, status, message, created_at, updated_at
		 FROM user_stores WHERE principal_id = $1`,
		principal,
	).Scan(&rec.PrincipalID, &rec.StoreRef, &status, &rec.Message, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}
	rec.Status = provisioning.Status(status)
	return &rec, nil
}

// Begin inserts a provisioning entry unless the principal already has one and
// returns the stored row. Concurrent callers all observe the same row.
func (l *Ledger) Begin(ctx context.Context, principal, storeRef string) (*provisioning.Record, error) {
	_, err := l.db.pool.Exec(ctx,
		`INSERT INTO user_stores (principal_id, store_ref, status)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (principal_id) DO NOTHING`,
		principal, storeRef, string(provisioning.StatusProvisioning),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return l.Get(ctx, principal)
}

// SetStatus records a status transition
func (l *Ledger) SetStatus(ctx context.Context, principal string, status provisioning.Status, message string) error {
	result, err := l.db.pool.Exec(ctx,
		`UPDATE user_stores SET status = $1, message = $2, updated_at = NOW() WHERE principal_id = $3`,
		string(status), message, principal,
	)
	if err != nil {
		return fmt.Errorf("failed to update ledger entry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("no ledger entry for %s", principal)
	}
	return nil
}
