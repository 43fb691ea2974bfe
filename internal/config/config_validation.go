// SPDX-License-Identifier: Apache-2.0

package config

import "strings"

// validate checks that the final merged [Config] satisfies all application
// invariants before it is used at startup.
//
// Returns nil if the configuration is valid, or a descriptive error
// otherwise. Defaults for zero values are applied separately after
// validation, so a zero value is never invalid here, only an actively wrong
// one.
func (cfg *Config) validate() error {
	if cfg.Vault.AutoLockTimeout < 0 || cfg.Vault.KDFIterations < 0 {
		return ErrInvalidVaultConfigs
	}

	if cfg.Sync.BaseURL != "" && !strings.Contains(cfg.Sync.BaseURL, "://") {
		return ErrInvalidSyncConfigs
	}

	return nil
}
