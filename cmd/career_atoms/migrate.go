package main

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/career-atoms/internal/migration"
	"github.com/jonathan/career-atoms/internal/observability"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Move local data into the principal's remote store",
	Long: `Provisions the principal's remote store if needed and, when the local store has data
and the remote store is empty, imports the local data there and clears the local store.
A remote store that already has data is never overwritten; local data is then kept.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	if _, err := requirePrincipal(); err != nil {
		return err
	}

	ctx := cmd.Context()
	sess, err := openSession(ctx, migration.WithObserver(func(s migration.Snapshot) {
		app.logger.Debug("migration", zap.String("state", string(s.State)))
	}))
	if err != nil {
		return err
	}
	defer sess.Close()

	printer := observability.NewPrinter(cmd.OutOrStdout())
	_, err = sess.Migrate(ctx)
	printer.PrintMigration(sess.Migration())

	var importErr *migration.ImportFailedError
	if errors.As(err, &importErr) {
		printer.PrintImportResult(importErr.Result)
	}
	return err
}
