// Package provisioning ensures that every principal has exactly one dedicated remote
// store, created and schema-initialized at most once, and tracks it in a ledger.
package provisioning

import (
	"context"
	"time"

	"github.com/jonathan/career-atoms/internal/store"
)

// Status is the provisioning state of a principal.
type Status string

// Provisioning states. StatusNone is reported for principals without a ledger entry.
const (
	StatusNone         Status = "none"
	StatusProvisioning Status = "provisioning"
	StatusReady        Status = "ready"
	StatusError        Status = "error"
)

// Record is one ledger row: a principal and the remote store provisioned for it.
type Record struct {
	PrincipalID string    `json:"principal_id"`
	StoreRef    string    `json:"store_ref"`
	Status      Status    `json:"status"`
	Message     string    `json:"message,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Ledger is the control-plane table mapping principal to store and status.
type Ledger interface {
	// Get returns nil, nil when the principal has no entry.
	Get(ctx context.Context, principal string) (*Record, error)
	// Begin inserts a provisioning entry unless one exists and returns the stored row.
	Begin(ctx context.Context, principal, storeRef string) (*Record, error)
	SetStatus(ctx context.Context, principal string, status Status, message string) error
}

// Provider creates, initializes and opens remote stores.
type Provider interface {
	// StoreRef is the deterministic store name for a principal.
	StoreRef(principal string) string
	// CreateStore creates the store. A store that already exists is success.
	CreateStore(ctx context.Context, ref string) error
	// ApplySchema creates the entity tables. It must tolerate being re-run.
	ApplySchema(ctx context.Context, ref string) error
	// Open returns a handle on a provisioned store.
	Open(ctx context.Context, ref string) (store.Store, error)
}
