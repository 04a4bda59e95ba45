// Package session holds the per-session wiring between the caller's principal and the
// store every component reads and writes. A session picks its active backend once, at
// creation: the local store for anonymous sessions, the principal's remote store
// otherwise. Consumers receive the store.Store and never branch on which one it is.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/jonathan/career-atoms/internal/migration"
	"github.com/jonathan/career-atoms/internal/provisioning"
	"github.com/jonathan/career-atoms/internal/store"
)

// ErrClosed is returned by a session after Close.
var ErrClosed = errors.New("session closed")

// Session is created at session start and torn down with Close at session end.
type Session struct {
	principal   string
	local       store.Store
	provisioner migration.Provisioner
	logger      *zap.Logger
	migrator    *migration.Migrator

	mu     sync.Mutex
	remote store.Store
	closed bool
}

// New starts a session. principal is empty for anonymous sessions. local is owned by
// the caller and is not closed by the session; the remote store, once opened, is.
// opts are passed through to the session's migrator.
func New(principal string, local store.Store, provisioner migration.Provisioner, logger *zap.Logger, opts ...migration.Option) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		principal:   principal,
		local:       local,
		provisioner: provisioner,
		logger:      logger,
	}
	if principal != "" {
		s.migrator = migration.New(principal, local, sharedProvisioner{s}, logger, opts...)
	}
	return s
}

// Principal returns the session principal, empty when anonymous.
func (s *Session) Principal() string {
	return s.principal
}

// Authenticated reports whether the session has a principal.
func (s *Session) Authenticated() bool {
	return s.principal != ""
}

// Local returns the on-device store. It may be nil for server sessions.
func (s *Session) Local() store.Store {
	return s.local
}

// Store returns the active backend: the remote store when authenticated, the local
// store otherwise.
func (s *Session) Store(ctx context.Context) (store.Store, error) {
	if s.Authenticated() {
		return s.Remote(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if s.local == nil {
		return nil, store.ErrAuthRequired
	}
	return s.local, nil
}

// Remote returns the principal's remote store, provisioning and opening it on first
// use. Anonymous sessions get store.ErrAuthRequired.
func (s *Session) Remote(ctx context.Context) (store.Store, error) {
	if !s.Authenticated() {
		return nil, store.ErrAuthRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if s.remote != nil {
		return s.remote, nil
	}

	remote, err := s.provisioner.OpenStore(ctx, s.principal)
	if err != nil {
		return nil, err
	}
	s.remote = remote
	s.logger.Debug("opened remote store", zap.String("principal", s.principal))
	return remote, nil
}

// Migrate runs the session's one-shot migration of local data into the remote store.
func (s *Session) Migrate(ctx context.Context) (migration.Outcome, error) {
	if s.migrator == nil {
		return "", store.ErrAuthRequired
	}
	if s.local == nil {
		return migration.OutcomeNothingToMigrate, nil
	}
	return s.migrator.Run(ctx)
}

// Migration returns the migration state, idle for anonymous sessions.
func (s *Session) Migration() migration.Snapshot {
	if s.migrator == nil {
		return migration.Snapshot{State: migration.StateIdle}
	}
	return s.migrator.Snapshot()
}

// DismissMigration acknowledges a failed migration so that Migrate may run again.
func (s *Session) DismissMigration() bool {
	if s.migrator == nil {
		return false
	}
	return s.migrator.Dismiss()
}

// Close ends the session and closes the remote store if it was opened.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.remote == nil {
		return nil
	}
	if err := s.remote.Close(); err != nil {
		return fmt.Errorf("failed to close remote store: %w", err)
	}
	return nil
}

// sharedProvisioner hands the migrator the session's own remote handle.
type sharedProvisioner struct {
	s *Session
}

func (p sharedProvisioner) Status(ctx context.Context, principal string) (provisioning.Status, error) {
	return p.s.provisioner.Status(ctx, principal)
}

func (p sharedProvisioner) Ensure(ctx context.Context, principal string) (*provisioning.Record, error) {
	return p.s.provisioner.Ensure(ctx, principal)
}

func (p sharedProvisioner) OpenStore(ctx context.Context, _ string) (store.Store, error) {
	remote, err := p.s.Remote(ctx)
	if err != nil {
		return nil, err
	}
	return borrowed{remote}, nil
}

// borrowed is a store whose Close is left to its owner.
type borrowed struct {
	store.Store
}

func (borrowed) Close() error { return nil }
