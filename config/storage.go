package config

import (
	"fmt"
	"strings"
)

// StorageBackend selects where the durable token and locale slots live.
type StorageBackend string

const (
	// StorageBackendFile keeps slots in a single JSON file on local disk.
	StorageBackendFile StorageBackend = "file"
	// StorageBackendRedis keeps slots in Redis (shared kiosks, server-side rendering).
	StorageBackendRedis StorageBackend = "redis"
	// StorageBackendMemory keeps slots in process memory only.
	StorageBackendMemory StorageBackend = "memory"
)

// UnmarshalText implements encoding.TextUnmarshaler for StorageBackend.
func (b *StorageBackend) UnmarshalText(text []byte) error {
	v := StorageBackend(strings.ToLower(strings.TrimSpace(string(text))))
	switch v {
	case StorageBackendFile, StorageBackendRedis, StorageBackendMemory:
		*b = v
		return nil
	default:
		return fmt.Errorf("invalid StorageBackend: %q (valid options: file, redis, memory)", string(text))
	}
}

// StorageConfig contains durable local state configuration.
type StorageConfig struct {
	Backend StorageBackend `env:"BACKEND" envDefault:"file"`

	// FilePath is the JSON file used by the file backend.
	FilePath string `env:"FILE_PATH" envDefault:".taskup/state.json"`

	// Slot keys. Overwritten wholesale on change.
	TokenKey   string `env:"TOKEN_KEY"   envDefault:"taskup_token"`
	ProfileKey string `env:"PROFILE_KEY" envDefault:"taskup_auth_v2"`
	LocaleKey  string `env:"LOCALE_KEY"  envDefault:"taskup_locale"`

	Redis RedisConfig `envPrefix:"REDIS_"`
}

// RedisConfig contains Redis connection settings for the redis backend.
type RedisConfig struct {
	URI       string `env:"URI"        envDefault:"localhost:6379"`
	Password  string `env:"PASSWORD"   envDefault:""`
	DB        int    `env:"DB"         envDefault:"0"`
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"taskup:"`
}

// Sanitize fills empty slot keys with their defaults.
func (s *StorageConfig) Sanitize() {
	if s.Backend == "" {
		s.Backend = StorageBackendFile
	}
	s.FilePath = strings.TrimSpace(s.FilePath)
	if s.FilePath == "" {
		s.FilePath = ".taskup/state.json"
	}
	s.TokenKey = fallbackString(strings.TrimSpace(s.TokenKey), "taskup_token")
	s.ProfileKey = fallbackString(strings.TrimSpace(s.ProfileKey), "taskup_auth_v2")
	s.LocaleKey = fallbackString(strings.TrimSpace(s.LocaleKey), "taskup_locale")
	s.Redis.URI = strings.TrimSpace(s.Redis.URI)
	if s.Redis.DB < 0 {
		s.Redis.DB = 0
	}
}

func fallbackString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
