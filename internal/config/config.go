// Package config loads the application configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full application configuration.
type Config struct {
	API   APIConfig
	Cache CacheConfig
	Creds CredsConfig
}

// APIConfig drives the remote gateway client.
type APIConfig struct {
	BaseURL        string        `env:"API_BASE_URL" envDefault:"https://api.ecomapp.com"`
	Timeout        time.Duration `env:"API_TIMEOUT" envDefault:"30s"`
	RetryAttempts  int           `env:"API_RETRY_ATTEMPTS" envDefault:"3"`
	RetryBaseDelay time.Duration `env:"API_RETRY_BASE_DELAY" envDefault:"1s"`
}

// CacheConfig selects the snapshot cache backend.
type CacheConfig struct {
	// Backend is one of "memory", "redis", or "sqlite".
	Backend   string `env:"CACHE_BACKEND" envDefault:"sqlite"`
	RedisAddr string `env:"CACHE_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB   int    `env:"CACHE_REDIS_DB" envDefault:"0"`
	// SQLitePath is the snapshot database file for the sqlite backend.
	SQLitePath string `env:"CACHE_SQLITE_PATH" envDefault:"storefront.db"`
}

// CredsConfig drives the sealed credential store.
type CredsConfig struct {
	// Secret derives the sealing key. Required for the file store.
	Secret string `env:"CREDENTIALS_SECRET"`
	Path   string `env:"CREDENTIALS_PATH" envDefault:"credentials.sealed"`
}

// Load reads a .env file when present, then parses the environment. A missing
// .env file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Cache.Backend {
	case "memory", "redis", "sqlite":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.API.RetryAttempts < 0 {
		return fmt.Errorf("negative retry attempts %d", c.API.RetryAttempts)
	}
	return nil
}
