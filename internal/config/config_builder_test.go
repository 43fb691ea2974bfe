package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigBuilder_MergesEnvOverZero(t *testing.T) {
	// Arrange
	setEnvVars(t, map[string]string{
		"STORAGE_DSN":             "env.db",
		"VAULT_AUTO_LOCK_TIMEOUT": "20m",
	})

	// Act
	cfg, err := newConfigBuilder().withEnv().build()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "env.db", cfg.Storage.DSN)
	assert.Equal(t, 20*time.Minute, cfg.Vault.AutoLockTimeout)
}

func TestConfigBuilder_FirstNonZeroWins(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs,
		&Config{Storage: Storage{DSN: "first.db"}},
		&Config{Storage: Storage{DSN: "second.db"}, Vault: Vault{KDFIterations: 200000}},
	)

	cfg, err := b.build()
	require.NoError(t, err)

	// mergo keeps the already-set value and fills in gaps
	assert.Equal(t, "first.db", cfg.Storage.DSN)
	assert.Equal(t, 200000, cfg.Vault.KDFIterations)
}

func TestConfigBuilder_ValidationRejectsBadSyncURL(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs, &Config{Sync: Sync{BaseURL: "not a url"}})

	_, err := b.build()
	require.ErrorIs(t, err, ErrInvalidSyncConfigs)
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	assert.Equal(t, 15*time.Minute, cfg.Vault.AutoLockTimeout)
	assert.Equal(t, 100_000, cfg.Vault.KDFIterations)
	assert.Equal(t, 15*time.Second, cfg.Sync.RequestTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Sync.Interval)
}
