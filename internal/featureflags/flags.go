// Package featureflags loads the backend's runtime config (feature flags and
// environment name) from GET /api/config.
package featureflags

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/taskup/taskup-client/internal/ports"
	"github.com/taskup/taskup-client/internal/transport"
	"github.com/taskup/taskup-client/internal/util"
)

const (
	configPath = "/api/config"

	flagsExpr = "data.feature_flags || feature_flags"
	envExpr   = "data.environment || environment"

	// DefaultEnvironment is reported until a config load names one.
	DefaultEnvironment = "development"
	// DefaultCacheKey is the durable slot for the last good config.
	DefaultCacheKey = "taskup_config"
)

// Options configures a Store.
type Options struct {
	Doer ports.APIDoer
	// Cache keeps the last good config across restarts; nil disables it.
	Cache    ports.KVStore
	CacheKey string
	Logger   *slog.Logger
}

type snapshot struct {
	Flags       map[string]bool `json:"feature_flags"`
	Environment string          `json:"environment"`
}

// Store holds the current flags. Reads never block on the network.
type Store struct {
	doer     ports.APIDoer
	cache    ports.KVStore
	cacheKey string
	logger   *slog.Logger

	mu    sync.RWMutex
	state snapshot
}

// New returns a Store primed from the cache when one is configured.
func New(ctx context.Context, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	key := strings.TrimSpace(opts.CacheKey)
	if key == "" {
		key = DefaultCacheKey
	}
	s := &Store{
		doer:     opts.Doer,
		cache:    opts.Cache,
		cacheKey: key,
		logger:   logger.With("component", "featureflags"),
		state:    snapshot{Flags: map[string]bool{}, Environment: DefaultEnvironment},
	}
	s.loadCache(ctx)
	return s
}

// Refresh reloads the config. Failures keep the previous flags and are
// only logged.
func (s *Store) Refresh(ctx context.Context) {
	if s.doer == nil {
		return
	}
	resp, err := s.doer.Do(ctx, transport.Request{Method: http.MethodGet, Path: configPath})
	if err != nil {
		s.logger.WarnContext(ctx, "config refresh failed; keeping previous flags", "error", err)
		return
	}

	next := snapshot{
		Flags:       parseFlags(util.Extract(flagsExpr, resp.Body)),
		Environment: DefaultEnvironment,
	}
	if env, ok := util.ExtractString(envExpr, resp.Body); ok {
		next.Environment = env
	}

	s.mu.Lock()
	s.state = next
	s.mu.Unlock()

	s.storeCache(ctx, next)
}

// Enabled reports whether the named flag is on. Unknown flags are off.
func (s *Store) Enabled(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Flags[name]
}

// Environment returns the backend's environment name.
func (s *Store) Environment() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Environment
}

// All returns a copy of every flag.
func (s *Store) All() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.state.Flags)
}

// Names returns the flag names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.state.Flags))
}

// parseFlags accepts booleans plus the string and numeric spellings some
// deployments use.
func parseFlags(v any) map[string]bool {
	raw, ok := v.(map[string]any)
	if !ok {
		return map[string]bool{}
	}
	out := make(map[string]bool, len(raw))
	for name, val := range raw {
		switch t := val.(type) {
		case bool:
			out[name] = t
		case float64:
			out[name] = t != 0
		case string:
			switch strings.ToLower(strings.TrimSpace(t)) {
			case "1", "true", "on", "yes", "enabled":
				out[name] = true
			default:
				out[name] = false
			}
		}
	}
	return out
}

func (s *Store) loadCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	raw, ok, err := s.cache.Get(ctx, s.cacheKey)
	if err != nil {
		s.logger.WarnContext(ctx, "read cached config failed", "error", err)
		return
	}
	if !ok {
		return
	}
	var snap snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		s.logger.WarnContext(ctx, "cached config is corrupt", "error", err)
		return
	}
	if snap.Flags == nil {
		snap.Flags = map[string]bool{}
	}
	if snap.Environment == "" {
		snap.Environment = DefaultEnvironment
	}
	s.state = snap
}

func (s *Store) storeCache(ctx context.Context, snap snapshot) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey, string(raw)); err != nil {
		s.logger.WarnContext(ctx, "cache config failed", "error", err)
	}
}
