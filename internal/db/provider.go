package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/jonathan/career-atoms/internal/identity"
	"github.com/jonathan/career-atoms/internal/provisioning"
	"github.com/jonathan/career-atoms/internal/store"
)

// Provider provisions one PostgreSQL schema per principal.
type Provider struct {
	db     *DB
	logger *zap.Logger
}

var _ provisioning.Provider = (*Provider)(nil)

// Provider returns a schema-per-principal provider on this database.
func (db *DB) Provider(logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{db: db, logger: logger}
}

// StoreRef is the schema name for principal.
func (p *Provider) StoreRef(principal string) string {
	return identity.StoreRef(principal)
}

// CreateStore creates the principal's schema. A schema that already exists, including
// one created by a concurrent attempt, counts as success.
func (p *Provider) CreateStore(ctx context.Context, ref string) error {
	_, err := p.db.pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{ref}.Sanitize())
	if err != nil {
		switch pgCode(err) {
		case codeDuplicateSchema, codeUniqueViolation:
			p.logger.Debug("schema already exists", zap.String("store_ref", ref))
			return nil
		}
		return fmt.Errorf("failed to create schema %s: %w", ref, err)
	}
	return nil
}

// ApplySchema creates the entity tables inside the principal's schema and adds the
// profile contact columns, treating "column already exists" as success.
func (p *Provider) ApplySchema(ctx context.Context, ref string) error {
	conn, err := p.db.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// SET LOCAL scopes the search_path to this transaction.
	if _, err := tx.Exec(ctx, "SET LOCAL search_path TO "+pgx.Identifier{ref}.Sanitize()); err != nil {
		return fmt.Errorf("failed to select schema %s: %w", ref, err)
	}
	for _, stmt := range entitySchema {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema to %s: %w", ref, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit schema for %s: %w", ref, err)
	}

	// Each ALTER runs on its own so one "already exists" does not abort the rest.
	for _, column := range contactColumns {
		if _, err := conn.Exec(ctx, addContactColumnSQL(ref, column)); err != nil {
			if pgCode(err) == codeDuplicateColumn {
				continue
			}
			return fmt.Errorf("failed to add profile column %s: %w", column, err)
		}
		p.logger.Debug("added profile column", zap.String("store_ref", ref), zap.String("column", column))
	}
	return nil
}

// Open connects a pool whose search_path is the principal's schema.
func (p *Provider) Open(ctx context.Context, ref string) (store.Store, error) {
	s, err := OpenUserStore(ctx, p.db.databaseURL, ref, p.logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// OpenUserStore opens the store held in schema ref of the database at databaseURL.
func OpenUserStore(ctx context.Context, databaseURL, ref string, logger *zap.Logger) (*UserStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = ref

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to store %s: %w", ref, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping store %s: %w", ref, err)
	}
	return newUserStore(pool, logger), nil
}
