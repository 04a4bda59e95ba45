package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/jonathan/career-atoms/internal/config"
	"github.com/jonathan/career-atoms/internal/db"
	"github.com/jonathan/career-atoms/internal/importer"
	"github.com/jonathan/career-atoms/internal/localstore"
	"github.com/jonathan/career-atoms/internal/migration"
	"github.com/jonathan/career-atoms/internal/provisioning"
	"github.com/jonathan/career-atoms/internal/session"
)

// backend is the remote side: a provisioning ledger and the orchestrator over it.
type backend struct {
	ledger       provisioning.Ledger
	orchestrator *provisioning.Orchestrator
	close        func()
}

// openBackend connects to PostgreSQL when a database URL is configured, otherwise it
// keeps per-principal SQLite stores under the remote directory.
func openBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (*backend, error) {
	if cfg.UsesPostgres() {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.EnsureControlPlane(ctx); err != nil {
			database.Close()
			return nil, err
		}
		ledger := database.Ledger()
		return &backend{
			ledger:       ledger,
			orchestrator: provisioning.NewOrchestrator(ledger, database.Provider(logger), logger),
			close:        database.Close,
		}, nil
	}

	if err := os.MkdirAll(cfg.RemoteDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create remote directory: %w", err)
	}
	ledger, err := localstore.OpenLedger(cfg.LedgerPath())
	if err != nil {
		return nil, err
	}
	logger.Debug("using offline remote", zap.String("dir", cfg.RemoteDir))
	return &backend{
		ledger:       ledger,
		orchestrator: provisioning.NewOrchestrator(ledger, localstore.NewProvider(cfg.RemoteDir, logger), logger),
		close:        func() { _ = ledger.Close() },
	}, nil
}

// cliSession bundles the local store, the backend and the session over them.
type cliSession struct {
	*session.Session
	local   *localstore.Store
	backend *backend
}

// openSession opens the local store and the backend and starts a session for the
// configured principal.
func openSession(ctx context.Context, opts ...migration.Option) (*cliSession, error) {
	local, err := localstore.Open(app.cfg.LocalDBPath, localstore.WithLogger(app.logger))
	if err != nil {
		return nil, err
	}
	b, err := openBackend(ctx, app.cfg, app.logger)
	if err != nil {
		_ = local.Close()
		return nil, err
	}

	opts = append([]migration.Option{migration.WithImporter(newImporter())}, opts...)
	return &cliSession{
		Session: session.New(app.cfg.Principal, local, b.orchestrator, app.logger, opts...),
		local:   local,
		backend: b,
	}, nil
}

func (s *cliSession) Close() {
	if err := s.Session.Close(); err != nil {
		app.logger.Warn("failed to close session", zap.Error(err))
	}
	s.backend.close()
	if err := s.local.Close(); err != nil {
		app.logger.Warn("failed to close local store", zap.Error(err))
	}
}

func newImporter() *importer.Importer {
	return importer.New(app.logger, importer.WithConcurrency(app.cfg.ImportConcurrency))
}

func requirePrincipal() (string, error) {
	if app.cfg.Principal == "" {
		return "", fmt.Errorf("this command needs a principal (--principal or %s)", config.EnvPrincipal)
	}
	return app.cfg.Principal, nil
}
