package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes the provisioner treats as "already done".
const (
	codeDuplicateColumn = "42701"
	codeDuplicateSchema = "42P06"
	codeUniqueViolation = "23505"
)

const controlPlaneSQL = `
CREATE TABLE IF NOT EXISTS user_stores (
    principal_id TEXT PRIMARY KEY,
    store_ref    TEXT NOT NULL UNIQUE,
    status       TEXT NOT NULL CHECK (status IN ('provisioning', 'ready', 'error')),
    message      TEXT NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// entitySchema is applied inside a principal's schema (search_path set to it).
var entitySchema = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id          UUID PRIMARY KEY,
		company     TEXT NOT NULL,
		role        TEXT NOT NULL,
		start_date  TEXT NOT NULL,
		end_date    TEXT,
		logo_url    TEXT,
		website     TEXT,
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS highlights (
		id          UUID PRIMARY KEY,
		job_id      UUID REFERENCES jobs(id) ON DELETE SET NULL,
		type        TEXT NOT NULL,
		title       TEXT NOT NULL,
		content     TEXT NOT NULL,
		start_date  TEXT NOT NULL,
		end_date    TEXT,
		domains     TEXT[] NOT NULL DEFAULT '{}',
		skills      TEXT[] NOT NULL DEFAULT '{}',
		keywords    TEXT[] NOT NULL DEFAULT '{}',
		metrics     JSONB NOT NULL DEFAULT '[]',
		is_hidden   BOOLEAN NOT NULL DEFAULT FALSE,
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_highlights_job_id ON highlights(job_id)`,
	`CREATE TABLE IF NOT EXISTS profile (
		id          TEXT PRIMARY KEY DEFAULT 'default',
		full_name   TEXT NOT NULL DEFAULT '',
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
}

// contactColumns were added to profile after the first release.
var contactColumns = []string{"email", "phone", "location", "linkedin", "github", "website", "telegram"}

func addContactColumnSQL(schema, column string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s TEXT",
		pgx.Identifier{schema, "profile"}.Sanitize(), pgx.Identifier{column}.Sanitize())
}

// pgCode returns the SQLSTATE of a PostgreSQL error, or "".
func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
