package config

import (
	"strings"

	"github.com/taskup/taskup-client/internal/locale"
)

// LocaleConfig controls the UI language defaults.
type LocaleConfig struct {
	// Default is the final fallback locale for lookups and detection.
	// Region and codeset suffixes are accepted ("nb-NO", "de_DE.UTF-8").
	Default string `env:"LOCALE_DEFAULT" envDefault:"en"`
}

// Sanitize reduces Default to a supported locale code, else English.
func (l *LocaleConfig) Sanitize() {
	parsed, ok := locale.Parse(strings.TrimSpace(l.Default))
	if !ok {
		parsed = locale.DefaultLocale
	}
	l.Default = string(parsed)
}

// Locale returns Default as a locale value.
func (l LocaleConfig) Locale() locale.Locale {
	return locale.Locale(l.Default)
}
