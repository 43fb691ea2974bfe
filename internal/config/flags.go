package config

import (
	"flag"
	"time"
)

// ParseFlags parses all configuration flags.
//
// Flags:
//
//	-d database file path
//	-c/-config json file path with configs
//	-auto-lock auto-lock timeout (e.g., "15m", "30s")
//	-kdf-iterations PBKDF2 iteration count for new profiles
//	-sync-url sync server base URL
//	-sync-interval background sync interval (e.g., "5m")
//	-request-timeout sync request timeout (e.g., "30s", "1m")
//	-log-path log file path
func ParseFlags() *Config {
	var databaseDSN string
	var jsonConfigPath string
	var autoLockTimeout time.Duration
	var kdfIterations int
	var syncBaseURL string
	var syncInterval time.Duration
	var requestTimeout time.Duration
	var logPath string

	flag.StringVar(&databaseDSN, "d", "", "Database file path")
	flag.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	flag.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	flag.DurationVar(&autoLockTimeout, "auto-lock", 0, "Auto-lock timeout (e.g., 15m)")
	flag.IntVar(&kdfIterations, "kdf-iterations", 0, "PBKDF2 iteration count for new profiles")
	flag.StringVar(&syncBaseURL, "sync-url", "", "Sync server base URL")
	flag.DurationVar(&syncInterval, "sync-interval", 0, "Background sync interval (e.g., 5m)")
	flag.DurationVar(&requestTimeout, "request-timeout", 0, "Sync request timeout (e.g., 30s)")
	flag.StringVar(&logPath, "log-path", "", "Log file path")

	flag.Parse()

	return &Config{
		Vault: Vault{
			AutoLockTimeout: autoLockTimeout,
			KDFIterations:   kdfIterations,
		},
		Storage: Storage{
			DSN: databaseDSN,
		},
		Sync: Sync{
			BaseURL:        syncBaseURL,
			Interval:       syncInterval,
			RequestTimeout: requestTimeout,
		},
		Log: Log{
			Path: logPath,
		},
		JSONFilePath: jsonConfigPath,
	}
}
