package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/career-atoms/internal/identity"
	"github.com/jonathan/career-atoms/internal/provisioning"
	"github.com/jonathan/career-atoms/internal/store"
)

// Provider provisions per-principal stores as SQLite files under a directory.
// It stands in for the remote backend when no database server is configured.
type Provider struct {
	dir    string
	logger *zap.Logger
}

var _ provisioning.Provider = (*Provider)(nil)

// NewProvider returns a provider rooted at dir.
func NewProvider(dir string, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{dir: dir, logger: logger}
}

// StoreRef returns the deterministic store name for principal.
func (p *Provider) StoreRef(principal string) string {
	return identity.StoreRef(principal)
}

func (p *Provider) path(ref string) string {
	return filepath.Join(p.dir, ref+".db")
}

// CreateStore creates the database file. An existing file is left untouched.
func (p *Provider) CreateStore(ctx context.Context, ref string) error {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	db, err := sql.Open("sqlite3", p.path(ref))
	if err != nil {
		return fmt.Errorf("failed to create store %s: %w", ref, err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to create store %s: %w", ref, err)
	}
	return nil
}

// ApplySchema applies the entity schema to the store file.
func (p *Provider) ApplySchema(ctx context.Context, ref string) error {
	db, err := sql.Open("sqlite3", p.path(ref))
	if err != nil {
		return fmt.Errorf("failed to open store %s: %w", ref, err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)
	return ApplySchema(ctx, db, p.logger.With(zap.String("store_ref", ref)))
}

// Open opens a provisioned store.
func (p *Provider) Open(_ context.Context, ref string) (store.Store, error) {
	if _, err := os.Stat(p.path(ref)); err != nil {
		return nil, fmt.Errorf("store %s is not provisioned: %w", ref, err)
	}
	s, err := Open(p.path(ref), WithLogger(p.logger))
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Ledger is the provisioning ledger kept in a SQLite file.
type Ledger struct {
	db *sql.DB
}

var _ provisioning.Ledger = (*Ledger)(nil)

// OpenLedger opens or creates the ledger database at path.
func OpenLedger(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS provisioning_ledger (
		principal_id TEXT PRIMARY KEY NOT NULL,
		store_ref    TEXT NOT NULL,
		status       TEXT NOT NULL,
		message      TEXT NOT NULL DEFAULT '',
		created_at   TEXT NOT NULL,
		updated_at   TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create ledger table: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close closes the ledger database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Get returns the principal's ledger entry or nil.
func (l *Ledger) Get(ctx context.Context, principal string) (*provisioning.Record, error) {
	var rec provisioning.Record
	var status, createdAt, updatedAt string
	err := l.db.QueryRowContext(ctx,
		`SELECT principal_id, store_ref, status, message, created_at, updated_at
		 FROM provisioning_ledger WHERE principal_id = ?`, principal,
	).Scan(&rec.PrincipalID, &rec.StoreRef, &status, &rec.Message, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}
	rec.Status = provisioning.Status(status)
	rec.CreatedAt = parseTime(createdAt)
	rec.UpdatedAt = parseTime(updatedAt)
	return &rec, nil
}

// Begin inserts a provisioning entry unless one exists.
func (l *Ledger) Begin(ctx context.Context, principal, storeRef string) (*provisioning.Record, error) {
	now := formatTime(time.Now())
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO provisioning_ledger (principal_id, store_ref, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (principal_id) DO NOTHING`,
		principal, storeRef, string(provisioning.StatusProvisioning), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return l.Get(ctx, principal)
}

// SetStatus updates the principal's status and message.
func (l *Ledger) SetStatus(ctx context.Context, principal string, status provisioning.Status, message string) error {
	result, err := l.db.ExecContext(ctx,
		`UPDATE provisioning_ledger SET status = ?, message = ?, updated_at = ? WHERE principal_id = ?`,
		string(status), message, formatTime(time.Now()), principal,
	)
	if err != nil {
		return fmt.Errorf("failed to update ledger entry: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("no ledger entry for %s", principal)
	}
	return nil
}
