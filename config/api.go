package config

import "strings"

const defaultAPIBaseURL = "http://localhost:8000"

// APIConfig describes how clients reach the taskup backend.
type APIConfig struct {
	// BaseURL is the backend origin (e.g., "https://api.taskup.no"). Trailing slashes are trimmed.
	BaseURL string `env:"TASKUP_API_BASE_URL" envDefault:"http://localhost:8000"`

	// DebugLogging logs method, path, status and duration for every request.
	// Forced off when ENV=production.
	DebugLogging bool `env:"API_DEBUG_LOGGING" envDefault:"false"`

	// UserAgent is sent on every request when non-empty.
	UserAgent string `env:"API_USER_AGENT" envDefault:"taskup-client"`

	// CookiesEnabled keeps backend cookies between requests, matching browser behaviour.
	CookiesEnabled bool `env:"API_COOKIES_ENABLED" envDefault:"false"`
}

// Sanitize normalises the base URL.
func (a *APIConfig) Sanitize() {
	a.BaseURL = strings.TrimRight(strings.TrimSpace(a.BaseURL), "/")
	if a.BaseURL == "" {
		a.BaseURL = defaultAPIBaseURL
	}
	a.UserAgent = strings.TrimSpace(a.UserAgent)
}
