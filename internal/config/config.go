// Package config loads client configuration. Layering, lowest to highest
// precedence: built-in defaults, an optional YAML file, a .env file in the
// working directory, then AUTHC_* environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/pagefold/auth-client/internal/api"
)

// =============================================================================
// DEFAULTS
// =============================================================================

// DefaultBaseURL is the production auth backend.
// The canonical definition lives in the api package; this re-exports it.
const DefaultBaseURL = api.DefaultBaseURL

// DefaultTimeout bounds every backend request.
const DefaultTimeout = api.DefaultTimeout

// DefaultLogLevel is the zerolog level name used when nothing overrides it.
const DefaultLogLevel = "info"

// =============================================================================
// CONFIG
// =============================================================================

// Config holds everything the client and CLI need.
type Config struct {
	BaseURL   string        `env:"AUTHC_BASE_URL"`
	Timeout   time.Duration `env:"AUTHC_TIMEOUT"`
	UserAgent string        `env:"AUTHC_USER_AGENT"`
	LogLevel  string        `env:"AUTHC_LOG_LEVEL"`
}

// fileConfig is the YAML shape. Timeout is a string ("5s") because yaml.v3
// has no native duration decoding.
type fileConfig struct {
	BaseURL   string `yaml:"base_url"`
	Timeout   string `yaml:"timeout"`
	UserAgent string `yaml:"user_agent"`
	LogLevel  string `yaml:"log_level"`
}

// Default returns a Config with built-in defaults applied.
func Default() *Config {
	return &Config{
		BaseURL:  DefaultBaseURL,
		Timeout:  DefaultTimeout,
		LogLevel: DefaultLogLevel,
	}
}

// Load builds the effective configuration. path may be empty (no YAML layer).
// A missing YAML file is an error; a missing .env is not.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
		if fc.BaseURL != "" {
			cfg.BaseURL = fc.BaseURL
		}
		if fc.Timeout != "" {
			d, err := time.ParseDuration(fc.Timeout)
			if err != nil {
				return nil, fmt.Errorf("parsing timeout: %w", err)
			}
			cfg.Timeout = d
		}
		if fc.UserAgent != "" {
			cfg.UserAgent = fc.UserAgent
		}
		if fc.LogLevel != "" {
			cfg.LogLevel = fc.LogLevel
		}
	}

	// .env is a developer convenience; absence is the normal case.
	_ = godotenv.Load()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base_url must not be empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return cfg, nil
}
