package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/career-atoms/internal/observability"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a backup document into the active store",
	Long: `Reads a backup document, or relaxed hand-written import data, normalizes and validates
it, and upserts every row into the active store. Re-importing the same document is a no-op
update. Rows that fail are listed; the others are still imported.`,
	RunE: runImport,
}

var importInFile string

func init() {
	importCmd.Flags().StringVarP(&importInFile, "in", "i", "", "Path to the backup JSON file (required)")
	if err := importCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, _ []string) error {
	raw, err := os.ReadFile(importInFile)
	if err != nil {
		return fmt.Errorf("failed to read import file: %w", err)
	}

	ctx := cmd.Context()
	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	st, err := sess.Store(ctx)
	if err != nil {
		return err
	}
	result, err := newImporter().ImportRaw(ctx, raw, st)
	if err != nil {
		return err
	}

	observability.NewPrinter(cmd.OutOrStdout()).PrintImportResult(result)
	if !result.Success {
		return fmt.Errorf("import finished with %d errors", len(result.Errors))
	}
	return nil
}
