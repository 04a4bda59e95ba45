package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/career-atoms/internal/config"
	"github.com/jonathan/career-atoms/internal/server"
	"github.com/jonathan/career-atoms/internal/server/ratelimit"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes a principal's remote store: provisioning, backup export and import, and read endpoints. Requests authenticate with a bearer token.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default from config, 8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return fmt.Errorf("failed to create JWT config: %w", err)
	}

	ctx := cmd.Context()
	b, err := openBackend(ctx, app.cfg, app.logger)
	if err != nil {
		return err
	}
	defer b.close()

	port := app.cfg.Port
	if servePort != 0 {
		port = servePort
	}
	srv, err := server.New(server.Config{
		Port:              port,
		Provisioner:       b.orchestrator,
		JWT:               jwtConfig,
		RateLimit:         ratelimit.LoadConfig(),
		ImportConcurrency: app.cfg.ImportConcurrency,
		Logger:            app.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start(ctx)
}
