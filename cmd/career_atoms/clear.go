package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/career-atoms/internal/observability"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every job, highlight and the profile from the active store",
	RunE:  runClear,
}

var clearConfirmed bool

func init() {
	clearCmd.Flags().BoolVar(&clearConfirmed, "yes", false, "Confirm deletion")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, _ []string) error {
	if !clearConfirmed {
		return fmt.Errorf("refusing to clear the store without --yes")
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
	result, err := st.ClearDatabase(ctx)
	if err != nil {
		return err
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintClearResult(result)
	return nil
}
