// SPDX-License-Identifier: Apache-2.0

package config

import (
	"time"
)

// Config is the top-level configuration container for the chatvault client.
// It aggregates all sub-configurations and is populated by merging values
// from environment variables, command-line flags, and an optional JSON file.
//
// Struct tags:
//   - envPrefix — prefix applied to all nested env tag lookups (caarlos0/env).
//   - env       — direct environment variable name for scalar fields.
type Config struct {
	// Vault holds key-vault behaviour settings such as the auto-lock
	// timeout and the KDF iteration count for new profiles.
	Vault Vault `envPrefix:"VAULT_"`

	// Storage holds configuration for the durable local persistence engine.
	Storage Storage `envPrefix:"STORAGE_"`

	// Sync holds configuration for the upstream sync collaborator, which
	// only ever exchanges ciphertext with this client.
	Sync Sync `envPrefix:"SYNC_"`

	// Log holds logging output settings.
	Log Log `envPrefix:"LOG_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// When non-empty, the file is parsed and merged on top of the values
	// already loaded from environment variables and flags.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// Vault holds key-vault behaviour settings.
type Vault struct {
	// AutoLockTimeout is the idle interval after which the vault discards
	// the resident master key (e.g. "15m"). Every vault touch reschedules
	// the timer. Shorter values reduce leak exposure on an unattended
	// device at the cost of convenience.
	// Env: VAULT_AUTO_LOCK_TIMEOUT
	AutoLockTimeout time.Duration `env:"AUTO_LOCK_TIMEOUT"`

	// KDFIterations is the PBKDF2 iteration count used when setting up a
	// new profile. Existing profiles keep the count recorded in their
	// stored parameters.
	// Env: VAULT_KDF_ITERATIONS
	KDFIterations int `env:"KDF_ITERATIONS"`
}

// Storage holds connection settings for the local persistence engine.
type Storage struct {
	// DSN is the SQLite database file path (e.g. "~/.chatvault/chat.db").
	// An empty value or ":memory:" selects the in-memory repositories.
	// Env: STORAGE_DSN
	DSN string `env:"DSN"`
}

// Sync holds settings for the upstream ciphertext sync collaborator.
type Sync struct {
	// BaseURL is the sync server base URL (e.g. "https://sync.example.com").
	// An empty value disables background sync entirely.
	// Env: SYNC_BASE_URL
	BaseURL string `env:"BASE_URL"`

	// RequestTimeout is the per-request timeout for sync calls.
	// Env: SYNC_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`

	// Interval is how often the background job pushes pending records.
	// Env: SYNC_INTERVAL
	Interval time.Duration `env:"INTERVAL"`
}

// Log holds logging output settings.
type Log struct {
	// Path is the log file path. Empty means a file next to the
	// executable; the TUI owns stdout so logs never go there by default.
	// Env: LOG_PATH
	Path string `env:"PATH"`
}

// GetConfig loads, merges, and validates the client configuration from all
// available sources in the following priority order (last source wins for
// non-zero fields):
//  1. Environment variables
//  2. Command-line flags
//  3. JSON file (path resolved from sources 1 and 2)
//
// Returns a fully populated *Config or an error if any source fails to load
// or the final config fails validation.
func GetConfig() (*Config, error) {
	cfg, err := newConfigBuilder().
		withEnv().
		withFlags().
		withJSON().
		build()
	if err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Vault.AutoLockTimeout <= 0 {
		cfg.Vault.AutoLockTimeout = 15 * time.Minute
	}
	if cfg.Vault.KDFIterations <= 0 {
		cfg.Vault.KDFIterations = 100_000
	}
	if cfg.Sync.RequestTimeout <= 0 {
		cfg.Sync.RequestTimeout = 15 * time.Second
	}
	if cfg.Sync.Interval <= 0 {
		cfg.Sync.Interval = 5 * time.Minute
	}
}
