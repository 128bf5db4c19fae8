// Package locale holds the supported UI languages, their embedded
// translation tables, and the store that tracks the active one.
package locale

import (
	"os"
	"slices"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Locale is a supported two-letter UI language code.
type Locale string

const (
	English   Locale = "en"
	Norwegian Locale = "nb"
	Swedish   Locale = "sv"
	Danish    Locale = "da"
	German    Locale = "de"
	French    Locale = "fr"
	Spanish   Locale = "es"
)

// DefaultLocale is the final fallback for lookups and detection.
const DefaultLocale = English

// SupportedLocales lists every locale in display order.
var SupportedLocales = []Locale{English, Norwegian, Swedish, Danish, German, French, Spanish}

// IsSupported reports whether l is exactly one of SupportedLocales.
func IsSupported(l Locale) bool {
	return slices.Contains(SupportedLocales, l)
}

// Name returns the locale's name in its own language, e.g. "norsk bokmål".
func Name(l Locale) string {
	tag, err := language.Parse(string(l))
	if err != nil {
		return string(l)
	}
	if name := display.Self.Name(tag); name != "" {
		return name
	}
	return string(l)
}

// Parse maps a language tag in any common spelling ("nb-NO", "en_US.UTF-8",
// "de_DE@euro", "no") to a supported locale by its base language.
func Parse(s string) (Locale, bool) {
	s = cleanTag(s)
	if s == "" {
		return "", false
	}
	tag, err := language.Parse(s)
	if err != nil {
		return "", false
	}
	return fromTag(tag)
}

func fromTag(tag language.Tag) (Locale, bool) {
	base, _ := tag.Base()
	code := base.String()
	switch code {
	case "no", "nn":
		code = string(Norwegian)
	}
	l := Locale(code)
	if !IsSupported(l) {
		return "", false
	}
	return l, true
}

// cleanTag strips POSIX codeset and modifier suffixes.
func cleanTag(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, ".@"); i >= 0 {
		s = s[:i]
	}
	s = strings.ReplaceAll(s, "_", "-")
	switch strings.ToLower(s) {
	case "c", "posix":
		return ""
	}
	return s
}

// Detect returns the first supported locale named by prefs. Each entry may
// be a single tag, an Accept-Language list, or a colon-separated LANGUAGE
// value.
func Detect(prefs []string) (Locale, bool) {
	for _, pref := range prefs {
		pref = strings.TrimSpace(pref)
		if pref == "" {
			continue
		}

		if strings.ContainsAny(pref, ",;") {
			tags, _, err := language.ParseAcceptLanguage(pref)
			if err != nil {
				continue
			}
			for _, tag := range tags {
				if l, ok := fromTag(tag); ok {
					return l, true
				}
			}
			continue
		}

		for part := range strings.SplitSeq(pref, ":") {
			if l, ok := Parse(part); ok {
				return l, true
			}
		}
	}
	return "", false
}

// preferenceEnv is read in order by PreferencesFromEnv.
var preferenceEnv = []string{"LC_ALL", "LC_MESSAGES", "LANG", "LANGUAGE"}

// PreferencesFromEnv returns the non-empty locale environment variables.
func PreferencesFromEnv() []string {
	var prefs []string
	for _, key := range preferenceEnv {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			prefs = append(prefs, v)
		}
	}
	return prefs
}
