package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jonathan/career-atoms/internal/backup"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the active store as a backup document",
	Long: `Writes every job, highlight and the profile of the active store as a backup document.
Without a principal the active store is the local store; with one it is the principal's
remote store.`,
	RunE: runExport,
}

var exportOutFile string

func init() {
	exportCmd.Flags().StringVarP(&exportOutFile, "out", "o", "", "Output file (default: stdout)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
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
	doc, err := backup.Export(ctx, st)
	if err != nil {
		return err
	}

	if exportOutFile == "" {
		return backup.Encode(cmd.OutOrStdout(), doc)
	}

	if err := os.MkdirAll(filepath.Dir(exportOutFile), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(exportOutFile)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := backup.Encode(f, doc); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d jobs and %d highlights to %s\n",
		len(doc.Jobs), len(doc.Highlights), exportOutFile)
	return nil
}
