package locale

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/taskup/taskup-client/internal/ports"
)

// DefaultStorageKey is the durable slot for the chosen locale.
const DefaultStorageKey = "taskup_locale"

// Options configures a Store.
type Options struct {
	// Storage persists the choice; nil keeps it in memory only.
	Storage ports.KVStore
	Key     string
	// Default must be supported; anything else means DefaultLocale.
	Default Locale
	// Preferences feed detection when nothing valid is persisted.
	Preferences []string
	// Catalog overrides the embedded translations.
	Catalog Catalog
	Logger  *slog.Logger
}

// Store tracks the active locale and answers lookups against it.
type Store struct {
	storage ports.KVStore
	key     string
	def     Locale
	tables  Catalog
	logger  *slog.Logger

	mu     sync.RWMutex
	active Locale
}

// New resolves the initial locale: a valid persisted value, then the first
// supported preference, then the default.
func New(ctx context.Context, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "locale")

	def := opts.Default
	if !IsSupported(def) {
		def = DefaultLocale
	}

	tables := opts.Catalog
	if tables == nil {
		cat, err := Builtin()
		if err != nil {
			logger.Error("load embedded translations failed", "error", err)
			cat = Catalog{}
		}
		tables = cat
	}

	key := strings.TrimSpace(opts.Key)
	if key == "" {
		key = DefaultStorageKey
	}

	s := &Store{storage: opts.Storage, key: key, def: def, tables: tables, logger: logger}
	s.active = s.initial(ctx, opts.Preferences)
	return s
}

func (s *Store) initial(ctx context.Context, prefs []string) Locale {
	if s.storage != nil {
		v, ok, err := s.storage.Get(ctx, s.key)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "read stored locale failed", "error", err)
		case ok:
			if l := Locale(strings.ToLower(strings.TrimSpace(v))); IsSupported(l) {
				return l
			}
			s.logger.DebugContext(ctx, "ignoring unsupported stored locale", "value", v)
		}
	}
	if l, ok := Detect(prefs); ok {
		return l
	}
	return s.def
}

// Active returns the current locale.
func (s *Store) Active() Locale {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Default returns the fallback locale.
func (s *Store) Default() Locale { return s.def }

// SetLocale switches to l and persists it. Unsupported values are ignored
// and reported with false. A failed write is logged; the switch still holds.
func (s *Store) SetLocale(ctx context.Context, l Locale) bool {
	l = Locale(strings.ToLower(strings.TrimSpace(string(l))))
	if !IsSupported(l) {
		return false
	}

	s.mu.Lock()
	s.active = l
	s.mu.Unlock()

	if s.storage != nil {
		if err := s.storage.Set(ctx, s.key, string(l)); err != nil {
			s.logger.WarnContext(ctx, "persist locale failed", "locale", l, "error", err)
		}
	}
	return true
}

// T looks key up in the active table, then the default table, and
// otherwise returns key unchanged.
func (s *Store) T(key string) string {
	active := s.Active()
	if v, ok := s.tables[active][key]; ok {
		return v
	}
	if v, ok := s.tables[s.def][key]; ok {
		return v
	}
	return key
}
