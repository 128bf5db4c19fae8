package locale

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Locale
		ok   bool
	}{
		{in: "en", want: English, ok: true},
		{in: "NB", want: Norwegian, ok: true},
		{in: "nb-NO", want: Norwegian, ok: true},
		{in: "no", want: Norwegian, ok: true},
		{in: "nn_NO", want: Norwegian, ok: true},
		{in: "en_US.UTF-8", want: English, ok: true},
		{in: "de_DE@euro", want: German, ok: true},
		{in: "sv-SE", want: Swedish, ok: true},
		{in: "pt-BR"},
		{in: "C"},
		{in: "POSIX"},
		{in: ""},
		{in: "not a tag"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Parse(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name  string
		prefs []string
		want  Locale
		ok    bool
	}{
		{name: "first supported wins", prefs: []string{"pt-BR", "da-DK", "en"}, want: Danish, ok: true},
		{name: "accept-language list", prefs: []string{"pt;q=0.9,fr-CA;q=0.8,en;q=0.1"}, want: French, ok: true},
		{name: "LANGUAGE colon list", prefs: []string{"pt_BR:es:en"}, want: Spanish, ok: true},
		{name: "posix default skipped", prefs: []string{"C.UTF-8", "nb_NO.UTF-8"}, want: Norwegian, ok: true},
		{name: "nothing supported", prefs: []string{"pt", "ja-JP"}},
		{name: "empty", prefs: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Detect(tt.prefs)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPreferencesFromEnv(t *testing.T) {
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_MESSAGES", "sv_SE.UTF-8")
	t.Setenv("LANG", "en_US.UTF-8")
	t.Setenv("LANGUAGE", "")

	assert.Equal(t, []string{"sv_SE.UTF-8", "en_US.UTF-8"}, PreferencesFromEnv())
}

func TestName(t *testing.T) {
	assert.NotEmpty(t, Name(Norwegian))
	assert.Equal(t, "English", Name(English))
}

func TestBuiltinCatalog(t *testing.T) {
	cat, err := Builtin()
	assert.NoError(t, err)
	for _, l := range SupportedLocales {
		assert.NotEmpty(t, cat[l], "missing table for %s", l)
	}

	en := cat[English]
	assert.Equal(t, "Invalid email or password", en["errors.invalid_credentials"])
	assert.Equal(t, "Network error. Check your connection and try again.", en["errors.network"])

	// Every key in another table must exist in the default table.
	for _, l := range SupportedLocales {
		for key := range cat[l] {
			_, ok := en[key]
			assert.True(t, ok, "%s has key %q missing from en", l, key)
		}
	}
}
