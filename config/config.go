package config

import (
	"log/slog"
	"os"
	"strings"
)

// AppConfig is the root configuration for taskup clients. It composes the
// per-concern sections defined in the sibling files.
//
// Values are loaded from environment variables using
// github.com/caarlos0/env. See:
//   - api.go: backend base URL and transport behaviour
//   - storage.go: durable token/locale slot backend
//   - locale.go: default UI language
//   - observability.go: metrics and debug telemetry
type AppConfig struct {
	// Env names the deployment environment (development, staging, production).
	// Request/response debug logging is always disabled in production.
	Env string `env:"ENV" envDefault:"development"`

	// IsDev enables human-readable logs and .env loading hints.
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// LogLevel accepts debug, info, warn or error.
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"info"`

	API           APIConfig
	Storage       StorageConfig `envPrefix:"STORAGE_"`
	Locale        LocaleConfig
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	if c.Env == "" {
		c.Env = "development"
	}
	c.detectDevMode()

	c.API.Sanitize()
	c.Storage.Sanitize()
	c.Locale.Sanitize()
	c.Observability.Sanitize()

	if c.IsProduction() {
		c.API.DebugLogging = false
	}
}

// IsProduction reports whether the client runs against a production backend.
func (c *AppConfig) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback since the web surfaces share env files with this client.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}
