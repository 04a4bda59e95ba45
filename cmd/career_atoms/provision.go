package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/career-atoms/internal/observability"
)

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Provision the principal's remote store",
	Long:  "Creates and schema-initializes the principal's remote store unless it is already ready. Safe to re-run.",
	RunE:  runProvision,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the principal's provisioning status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(provisionCmd)
	rootCmd.AddCommand(statusCmd)
}

func runProvision(cmd *cobra.Command, _ []string) error {
	p, err := requirePrincipal()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	b, err := openBackend(ctx, app.cfg, app.logger)
	if err != nil {
		return err
	}
	defer b.close()

	rec, err := b.orchestrator.Ensure(ctx, p)
	if err != nil {
		return err
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintProvisioning(p, rec)
	return nil
}

func runStatus(cmd *cobra.Command, _ []string) error {
	p, err := requirePrincipal()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	b, err := openBackend(ctx, app.cfg, app.logger)
	if err != nil {
		return err
	}
	defer b.close()

	rec, err := b.ledger.Get(ctx, p)
	if err != nil {
		return err
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintProvisioning(p, rec)
	return nil
}
