package config

import (
	"fmt"
	"sync"
)

var (
	instance *Config
	loadErr  error
	once     sync.Once
)

// Load reads configuration once per process from the environment and the
// optional .env files. Later calls return the same result.
func Load() (*Config, error) {
	once.Do(func() {
		instance, loadErr = load()
	})
	return instance, loadErr
}

func load() (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}

	cfg, err := parse()
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}
