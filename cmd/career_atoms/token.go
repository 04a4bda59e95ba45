package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/career-atoms/internal/config"
	"github.com/jonathan/career-atoms/internal/server"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the principal",
	Long:  "Signs a token for --principal with JWT_SECRET, for calling the HTTP API during development.",
	RunE:  runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	p, err := requirePrincipal()
	if err != nil {
		return err
	}
	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return fmt.Errorf("failed to create JWT config: %w", err)
	}

	token, err := server.NewJWTService(jwtConfig).GenerateToken(p)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
