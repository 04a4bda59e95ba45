// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Environment variables that override file configuration.
const (
	EnvDatabaseURL       = "DATABASE_URL"
	EnvLocalDBPath       = "CAREER_ATOMS_LOCAL_DB"
	EnvRemoteDir         = "CAREER_ATOMS_REMOTE_DIR"
	EnvPrincipal         = "CAREER_ATOMS_PRINCIPAL"
	EnvImportConcurrency = "CAREER_ATOMS_IMPORT_CONCURRENCY"
)

// Config represents the configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Storage
	LocalDBPath string `json:"local_db_path,omitempty"` // SQLite file holding the on-device store
	RemoteDir   string `json:"remote_dir,omitempty"`    // Directory of per-principal SQLite stores (offline remote)
	DatabaseURL string `json:"database_url,omitempty"`  // PostgreSQL connection URL; takes precedence over remote_dir

	// Session
	Principal string `json:"principal,omitempty"` // Authenticated principal id for CLI sessions

	// Behavior
	ImportConcurrency int  `json:"import_concurrency,omitempty"` // Parallel row upserts during import
	Port              int  `json:"port,omitempty"`               // HTTP server port
	Verbose           bool `json:"verbose,omitempty"`            // Print detailed debug information
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		LocalDBPath:       "career_atoms.db",
		RemoteDir:         "remote",
		ImportConcurrency: 4,
		Port:              8080,
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// ApplyEnv overwrites fields with any environment variables that are set.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv(EnvLocalDBPath); v != "" {
		c.LocalDBPath = v
	}
	if v := os.Getenv(EnvRemoteDir); v != "" {
		c.RemoteDir = v
	}
	if v := os.Getenv(EnvPrincipal); v != "" {
		c.Principal = v
	}
	if v := os.Getenv(EnvImportConcurrency); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %v", EnvImportConcurrency, err)
		}
		c.ImportConcurrency = n
	}
	return nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if c.ImportConcurrency < 0 {
		return fmt.Errorf("config error: 'import_concurrency' must be non-negative")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}
	if c.LocalDBPath != "" && c.LocalDBPath != ":memory:" {
		dir := filepath.Dir(c.LocalDBPath)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return fmt.Errorf("config error: directory for local_db_path not found: %s", dir)
		}
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.LocalDBPath == "" {
		result.LocalDBPath = defaults.LocalDBPath
	}
	if result.RemoteDir == "" {
		result.RemoteDir = defaults.RemoteDir
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.Principal == "" {
		result.Principal = defaults.Principal
	}

	// Int fields: use default if zero
	if result.ImportConcurrency == 0 {
		result.ImportConcurrency = defaults.ImportConcurrency
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// UsesPostgres reports whether the remote side is a PostgreSQL server rather than
// SQLite files under RemoteDir.
func (c *Config) UsesPostgres() bool {
	return c.DatabaseURL != ""
}

// LedgerPath is the SQLite provisioning ledger used with the offline remote.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.RemoteDir, "ledger.db")
}
