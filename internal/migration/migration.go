// Package migration moves an anonymous local dataset into the principal's remote store
// once per session. It only ever fills an empty remote store and clears the local store
// only after the remote import fully succeeded.
package migration

import (
	"context"
	"errors"
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/jonathan/career-atoms/internal/backup"
	"github.com/jonathan/career-atoms/internal/identity"
	"github.com/jonathan/career-atoms/internal/importer"
	"github.com/jonathan/career-atoms/internal/provisioning"
	"github.com/jonathan/career-atoms/internal/store"
	"github.com/jonathan/career-atoms/internal/types"
)

// State is the migration state shown to the user.
type State string

// Migration states
const (
	StateIdle         State = "idle"
	StateChecking     State = "checking"
	StateProvisioning State = "provisioning"
	StateMigrating    State = "migrating"
	StateDone         State = "done"
	StateError        State = "error"
)

// Outcome says how a completed run ended.
type Outcome string

// Run outcomes
const (
	OutcomeNothingToMigrate Outcome = "nothing-to-migrate"
	OutcomeRemoteNotEmpty   Outcome = "remote-not-empty"
	OutcomeMigrated         Outcome = "migrated"
)

// Provisioner is the part of the provisioning orchestrator the migrator needs.
type Provisioner interface {
	Status(ctx context.Context, principal string) (provisioning.Status, error)
	Ensure(ctx context.Context, principal string) (*provisioning.Record, error)
	OpenStore(ctx context.Context, principal string) (store.Store, error)
}

// Snapshot is a point-in-time view of a migrator.
type Snapshot struct {
	State   State               `json:"state"`
	Outcome Outcome             `json:"outcome,omitempty"`
	Message string              `json:"message,omitempty"`
	Result  *types.ImportResult `json:"result,omitempty"`
}

// Migrator runs the migration for one session.
type Migrator struct {
	principal   string
	local       store.Store
	provisioner Provisioner
	importer    *importer.Importer
	logger      *zap.Logger
	observer    func(Snapshot)

	mu       sync.Mutex
	started  bool
	snapshot Snapshot
}

// Option configures a Migrator.
type Option func(*Migrator)

// WithImporter replaces the default sequential importer.
func WithImporter(im *importer.Importer) Option {
	return func(m *Migrator) {
		if im != nil {
			m.importer = im
		}
	}
}

// WithObserver registers a callback invoked after every state change.
func WithObserver(fn func(Snapshot)) Option {
	return func(m *Migrator) {
		m.observer = fn
	}
}

// New creates a migrator for principal's session.
func New(principal string, local store.Store, provisioner Provisioner, logger *zap.Logger, opts ...Option) *Migrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Migrator{
		principal:   principal,
		local:       local,
		provisioner: provisioner,
		logger:      logger.With(zap.String("principal", principal)),
		snapshot:    Snapshot{State: StateIdle},
	}
	m.importer = importer.New(m.logger)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot returns the current state.
func (m *Migrator) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

// Dismiss acknowledges a failed run: the migrator returns to idle and may run again.
// It reports false, and does nothing, unless the current state is error.
func (m *Migrator) Dismiss() bool {
	m.mu.Lock()
	if m.snapshot.State != StateError {
		m.mu.Unlock()
		return false
	}
	m.started = false
	m.snapshot = Snapshot{State: StateIdle}
	snap := m.snapshot
	m.mu.Unlock()

	m.notify(snap)
	return true
}

// Run performs the migration: check provisioning (provisioning if needed), export the
// local store, stop if it is empty or the remote already holds data, otherwise import
// into the remote and clear the local store on full success.
//
// A remote store that holds exactly the local data, every entity under its stable
// identifier with the same content and the same profile, is the trace of a run
// interrupted between import and clear. That run is resumed: the import repeats as an
// update and the local store is cleared. Any difference, such as a remote edit made
// since, counts as pre-existing remote data.
//
// Each step runs to completion even if ctx is cancelled meanwhile; cancellation is
// observed between steps. Only the first call per session runs, later and concurrent
// calls get ErrAlreadyStarted.
func (m *Migrator) Run(ctx context.Context) (Outcome, error) {
	if m.principal == "" {
		return "", store.ErrAuthRequired
	}

	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return "", ErrAlreadyStarted
	}
	m.started = true
	m.mu.Unlock()

	step := context.WithoutCancel(ctx)

	m.setState(StateChecking)
	status, err := m.provisioner.Status(step, m.principal)
	if err != nil {
		return "", m.fail(StateChecking, err)
	}
	if status != provisioning.StatusReady {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		m.setState(StateProvisioning)
		if _, err := m.provisioner.Ensure(step, m.principal); err != nil {
			return "", m.fail(StateProvisioning, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	doc, err := backup.Export(step, m.local)
	if err != nil {
		return "", m.fail(StateChecking, err)
	}
	if doc.IsEmpty() {
		return m.finish(OutcomeNothingToMigrate, nil), nil
	}

	remote, err := m.provisioner.OpenStore(step, m.principal)
	if err != nil {
		return "", m.fail(StateChecking, err)
	}
	defer func() {
		if err := remote.Close(); err != nil {
			m.logger.Warn("failed to close remote store", zap.Error(err))
		}
	}()

	hasData, err := remote.HasData(step)
	if err != nil {
		return "", m.fail(StateChecking, err)
	}
	if hasData {
		resumed, err := holdsExactly(step, remote, doc)
		if err != nil {
			return "", m.fail(StateChecking, err)
		}
		if !resumed {
			m.logger.Info("remote store already has data, keeping local data")
			return m.finish(OutcomeRemoteNotEmpty, nil), nil
		}
		m.logger.Info("remote store already holds the local data, resuming interrupted migration")
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.setState(StateMigrating)
	result := m.importer.Import(step, doc, remote)
	if !result.Success {
		m.setResult(result)
		return "", m.fail(StateMigrating, &ImportFailedError{Result: result})
	}

	// A crash here is safe: the next session imports again (a no-op update) and clears.
	cleared, err := m.local.ClearDatabase(step)
	if err != nil {
		m.setResult(result)
		return "", m.fail(StateMigrating, err)
	}
	m.logger.Info("migrated local data",
		zap.Int("jobs", result.JobsImported),
		zap.Int("highlights", result.HighlightsImported),
		zap.Int("local_jobs_cleared", cleared.JobsDeleted),
		zap.Int("local_highlights_cleared", cleared.HighlightsDeleted))
	return m.finish(OutcomeMigrated, result), nil
}

func (m *Migrator) setState(state State) {
	m.mu.Lock()
	m.snapshot.State = state
	snap := m.snapshot
	m.mu.Unlock()

	m.logger.Debug("migration state", zap.String("state", string(state)))
	m.notify(snap)
}

func (m *Migrator) setResult(result *types.ImportResult) {
	m.mu.Lock()
	m.snapshot.Result = result
	m.mu.Unlock()
}

func (m *Migrator) finish(outcome Outcome, result *types.ImportResult) Outcome {
	m.mu.Lock()
	m.snapshot = Snapshot{State: StateDone, Outcome: outcome, Result: result}
	snap := m.snapshot
	m.mu.Unlock()

	m.logger.Info("migration finished", zap.String("outcome", string(outcome)))
	m.notify(snap)
	return outcome
}

func (m *Migrator) fail(state State, cause error) error {
	err := &StepError{State: state, Cause: cause}

	m.mu.Lock()
	m.snapshot.State = StateError
	m.snapshot.Message = err.Error()
	snap := m.snapshot
	m.mu.Unlock()

	var importErr *ImportFailedError
	if errors.As(cause, &importErr) {
		m.logger.Warn("migration import incomplete", zap.Int("errors", len(importErr.Result.Errors)))
	} else {
		m.logger.Error("migration failed", zap.String("state", string(state)), zap.Error(cause))
	}
	m.notify(snap)
	return err
}

func (m *Migrator) notify(snap Snapshot) {
	if m.observer != nil {
		m.observer(snap)
	}
}

// containsAll reports whether every job and highlight of doc already exists in r under
// the identifier an import would give it.
func containsAll(ctx context.Context, r store.Reader, doc *types.BackupDocument) (bool, error) {
	if len(doc.Jobs) == 0 && len(doc.Highlights) == 0 {
		return false, nil
	}
	for _, j := range doc.Jobs {
		if _, err := r.GetJob(ctx, identity.JobID(j.ID)); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return false, nil
			}
			return false, err
		}
	}
	for _, h := range doc.Highlights {
		if _, err := r.GetHighlight(ctx, identity.HighlightID(h.ID)); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return false, nil
			}
			return false, err
		}
	}
	return true, nil
}

// holdsExactly reports whether r holds the data of doc and nothing else. Timestamps
// are ignored; every other field of every job, highlight and the profile must match.
func holdsExactly(ctx context.Context, r store.Reader, doc *types.BackupDocument) (bool, error) {
	ok, err := containsAll(ctx, r, doc)
	if err != nil || !ok {
		return false, err
	}
	held, err := backup.Export(ctx, r)
	if err != nil {
		return false, err
	}
	return reflect.DeepEqual(contentOf(held), contentOf(doc)), nil
}

// contentOf returns a copy of doc without export and row timestamps and with empty
// lists in place of nil ones, so documents read from different backends compare equal.
func contentOf(doc *types.BackupDocument) types.BackupDocument {
	out := types.BackupDocument{
		Version:    doc.Version,
		Jobs:       make([]types.BackupJob, 0, len(doc.Jobs)),
		Highlights: make([]types.BackupHighlight, 0, len(doc.Highlights)),
	}
	for _, j := range doc.Jobs {
		j.CreatedAt, j.UpdatedAt = "", ""
		out.Jobs = append(out.Jobs, j)
	}
	for _, h := range doc.Highlights {
		h.CreatedAt, h.UpdatedAt = "", ""
		h.Domains = types.NonNil(h.Domains)
		h.Skills = types.NonNil(h.Skills)
		h.Keywords = types.NonNil(h.Keywords)
		if h.Metrics == nil {
			h.Metrics = []types.Metric{}
		}
		out.Highlights = append(out.Highlights, h)
	}
	if doc.Profile != nil {
		p := *doc.Profile
		out.Profile = &p
	}
	return out
}
