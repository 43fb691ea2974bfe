package config

import "errors"

// Validation errors returned by [Config.validate] when required
// configuration groups are incomplete or invalid.
var (
	// ErrInvalidVaultConfigs indicates invalid vault settings (for example,
	// a negative auto-lock timeout or KDF iteration count).
	ErrInvalidVaultConfigs = errors.New("invalid vault configuration")
	// ErrInvalidSyncConfigs indicates invalid sync collaborator settings
	// (for example, a malformed base URL).
	ErrInvalidSyncConfigs = errors.New("invalid sync configuration")
)
