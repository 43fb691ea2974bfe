package config

import (
	"errors"
	"fmt"

	"dario.cat/mergo"
	"github.com/caarlos0/env/v11"
)

// configBuilder collects one partial [Config] per source. Sources are added
// in priority order; mergo keeps the first non-zero value it sees for every
// field, so earlier sources win. Source errors are accumulated and surfaced
// together by build.
type configBuilder struct {
	configs []*Config
	err     error
}

func newConfigBuilder() *configBuilder {
	return &configBuilder{}
}

// add appends one source result. A failed source poisons the builder but
// does not stop the chain, so build reports every broken source at once.
func (b *configBuilder) add(cfg *Config, err error) *configBuilder {
	if err != nil {
		b.err = errors.Join(b.err, err)
		return b
	}
	b.configs = append(b.configs, cfg)
	return b
}

// withEnv reads environment variables via the `env` / `envPrefix` struct
// tags on [Config].
func (b *configBuilder) withEnv() *configBuilder {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return b.add(nil, fmt.Errorf("error getting env configs: %w", err))
	}
	return b.add(cfg, nil)
}

func (b *configBuilder) withFlags() *configBuilder {
	return b.add(ParseFlags(), nil)
}

// withJSON loads the optional JSON file. Its path comes from the sources
// already added, so withJSON must run after withEnv and withFlags.
func (b *configBuilder) withJSON() *configBuilder {
	var path string
	for _, cfg := range b.configs {
		if cfg.JSONFilePath != "" {
			path = cfg.JSONFilePath
		}
	}
	if path == "" {
		return b
	}
	return b.add(parseJSON(path))
}

func (b *configBuilder) build() (*Config, error) {
	if b.err != nil {
		return nil, fmt.Errorf("error occured during building config: %w", b.err)
	}

	merged := new(Config)
	for _, cfg := range b.configs {
		if err := mergo.Merge(merged, cfg); err != nil {
			return nil, fmt.Errorf("error merging configs: %w", err)
		}
	}

	return merged, merged.validate()
}
