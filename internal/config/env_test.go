// SPDX-License-Identifier: Apache-2.0

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithEnv_AllFields(t *testing.T) {
	// Arrange
	envVars := map[string]string{
		"CONFIG": "/path/to/config.json",

		"VAULT_AUTO_LOCK_TIMEOUT": "10m",
		"VAULT_KDF_ITERATIONS":    "150000",

		"STORAGE_DSN": "/var/lib/chatvault/chat.db",

		"SYNC_BASE_URL":        "https://sync.example.com",
		"SYNC_INTERVAL":        "2m",
		"SYNC_REQUEST_TIMEOUT": "30s",

		"LOG_PATH": "/var/log/chatvault.log",
	}
	setEnvVars(t, envVars)

	// Act
	cfg, err := newConfigBuilder().withEnv().build()

	// Assert
	require.NoError(t, err)

	assert.Equal(t, "/path/to/config.json", cfg.JSONFilePath)

	assert.Equal(t, 10*time.Minute, cfg.Vault.AutoLockTimeout)
	assert.Equal(t, 150000, cfg.Vault.KDFIterations)

	assert.Equal(t, "/var/lib/chatvault/chat.db", cfg.Storage.DSN)

	assert.Equal(t, "https://sync.example.com", cfg.Sync.BaseURL)
	assert.Equal(t, 2*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, 30*time.Second, cfg.Sync.RequestTimeout)

	assert.Equal(t, "/var/log/chatvault.log", cfg.Log.Path)
}

func TestWithEnv_PartialFields(t *testing.T) {
	// Arrange
	setEnvVars(t, map[string]string{
		"STORAGE_DSN": "chat.db",
	})

	// Act
	cfg, err := newConfigBuilder().withEnv().build()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "chat.db", cfg.Storage.DSN)
	assert.Zero(t, cfg.Vault.AutoLockTimeout)
	assert.Empty(t, cfg.Sync.BaseURL)
}

func TestWithEnv_InvalidDuration(t *testing.T) {
	// Arrange
	setEnvVars(t, map[string]string{
		"VAULT_AUTO_LOCK_TIMEOUT": "not-a-duration",
	})

	// Act
	_, err := newConfigBuilder().withEnv().build()

	// Assert
	require.Error(t, err)
}

func setEnvVars(t *testing.T, vars map[string]string) {
	t.Helper()
	for k, v := range vars {
		t.Setenv(k, v)
	}
}
