package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const (
	CacheBackendMemory   = "memory"
	CacheBackendPostgres = "postgres"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// DefaultMaxAge is the cache freshness window, in seconds, applied when
	// a request carries no usable Cache-Control directive.
	DefaultMaxAge   int    `envconfig:"DEFAULT_MAX_AGE" default:"86400"`
	DefaultLanguage string `envconfig:"DEFAULT_LANGUAGE" default:"en"`

	CacheBackend string `envconfig:"CACHE_BACKEND" default:"memory"`
	DatabaseURL  string `envconfig:"DATABASE_URL" default:""`

	// ProvidersConfig points to a JSON document describing the per-language
	// provider fallback lists. Empty uses the compiled-in defaults.
	ProvidersConfig string `envconfig:"PROVIDERS_CONFIG" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DefaultMaxAge < 0 {
		return fmt.Errorf("DEFAULT_MAX_AGE must be >= 0")
	}
	if strings.TrimSpace(c.DefaultLanguage) == "" {
		return fmt.Errorf("DEFAULT_LANGUAGE is required")
	}

	switch c.NormalizedCacheBackend() {
	case CacheBackendMemory:
	case CacheBackendPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required when CACHE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("CACHE_BACKEND must be %q or %q", CacheBackendMemory, CacheBackendPostgres)
	}
	return nil
}

// NormalizedCacheBackend returns the cache backend name in canonical form.
func (c *Config) NormalizedCacheBackend() string {
	if c == nil {
		return CacheBackendMemory
	}
	return strings.ToLower(strings.TrimSpace(c.CacheBackend))
}
