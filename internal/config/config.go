// Package config loads process configuration from the environment and
// resource definitions from files.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the process configuration. Every field can be set through
// its environment variable; command-line flags override them.
type Config struct {
	DBPath          string        `env:"CRUDKIT_DB_PATH"          envDefault:"crudkit.db"`
	HTTPAddr        string        `env:"CRUDKIT_HTTP_ADDR"        envDefault:":8080"`
	ResourcesFile   string        `env:"CRUDKIT_RESOURCES"`
	LogLevel        string        `env:"CRUDKIT_LOG_LEVEL"        envDefault:"info"`
	LogFormat       string        `env:"CRUDKIT_LOG_FORMAT"       envDefault:"text"`
	ShutdownTimeout time.Duration `env:"CRUDKIT_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Load reads Config from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values the environment parser cannot.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("db path is required")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", c.LogFormat)
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown timeout must not be negative")
	}
	return nil
}
