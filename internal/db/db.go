// Package db provides PostgreSQL access for the remote side: the provisioning ledger,
// one schema per principal holding that principal's career atoms, and the Store that
// reads and writes it.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps the control-plane PostgreSQL connection pool
type DB struct {
	pool        *pgxpool.Pool
	databaseURL string
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool, databaseURL: databaseURL}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// EnsureControlPlane creates the provisioning ledger table if it does not exist
func (db *DB) EnsureControlPlane(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, controlPlaneSQL); err != nil {
		return fmt.Errorf("failed to create control plane tables: %w", err)
	}
	return nil
}
