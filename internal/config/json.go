package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type jsonConfig struct {
	Vault struct {
		AutoLockTimeout Duration `json:"auto_lock_timeout"`
		KDFIterations   int      `json:"kdf_iterations"`
	} `json:"vault,omitempty"`

	Storage struct {
		DSN string `json:"dsn"`
	} `json:"storage,omitempty"`

	Sync struct {
		BaseURL        string   `json:"base_url"`
		Interval       Duration `json:"interval"`
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"sync,omitempty"`

	Log struct {
		Path string `json:"path"`
	} `json:"log,omitempty"`
}

func parseJSON(jsonFilePath string) (*Config, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg jsonConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &Config{
		Vault: Vault{
			AutoLockTimeout: time.Duration(jsonCfg.Vault.AutoLockTimeout),
			KDFIterations:   jsonCfg.Vault.KDFIterations,
		},
		Storage: Storage{
			DSN: jsonCfg.Storage.DSN,
		},
		Sync: Sync{
			BaseURL:        jsonCfg.Sync.BaseURL,
			Interval:       time.Duration(jsonCfg.Sync.Interval),
			RequestTimeout: time.Duration(jsonCfg.Sync.RequestTimeout),
		},
		Log: Log{
			Path: jsonCfg.Log.Path,
		},
		JSONFilePath: "",
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling from strings like "1h", "30s"
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
