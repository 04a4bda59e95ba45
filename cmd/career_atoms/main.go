// Package main provides the career_atoms CLI: backup export and import, migration of
// local data into a principal's remote store, provisioning, and the HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/career-atoms/internal/config"
	"github.com/jonathan/career-atoms/internal/observability"
)

var (
	configPath string
	verbose    bool
	principal  string
)

// app is the configuration and logger resolved before every command runs.
var app struct {
	cfg    config.Config
	logger *zap.Logger
}

var rootCmd = &cobra.Command{
	Use:   "career_atoms",
	Short: "Career atoms store, backup and migration tool",
	Long: `career_atoms manages jobs, highlights and a profile in a local on-device store or in
a principal's remote store, exports and imports backup documents, and migrates local data
into the remote store after sign-in.

Configuration can be loaded from a JSON file using --config. Environment variables
override the file and command-line flags override both.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadApp,
	PersistentPostRun: func(*cobra.Command, []string) {
		if app.logger != nil {
			_ = app.logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.json file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print detailed debug information")
	rootCmd.PersistentFlags().StringVar(&principal, "principal", "", "Authenticated principal id (empty for an anonymous session)")
}

func loadApp(_ *cobra.Command, _ []string) error {
	var cfg config.Config
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = *loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	if principal != "" {
		cfg.Principal = principal
	}
	if verbose {
		cfg.Verbose = true
	}
	cfg = cfg.MergeWithDefaults(config.Defaults())
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.Verbose)
	if err != nil {
		return err
	}
	app.cfg = cfg
	app.logger = logger
	return nil
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
