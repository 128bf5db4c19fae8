package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/taskup/taskup-client/config"
	"github.com/taskup/taskup-client/internal/adapters/filestore"
	"github.com/taskup/taskup-client/internal/adapters/memstore"
	kvredis "github.com/taskup/taskup-client/internal/adapters/redis"
	"github.com/taskup/taskup-client/internal/ports"
)

const redisPingTimeout = 5 * time.Second

// Storage is the durable slot backend plus whatever must be released with it.
type Storage struct {
	KV    ports.KVStore
	close func() error
}

// Close releases the backend connection, if any.
func (s *Storage) Close() error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close()
}

// NewStorage builds the configured KVStore backend.
func NewStorage(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*Storage, error) {
	switch cfg.Backend {
	case config.StorageBackendMemory:
		return &Storage{KV: memstore.New(nil)}, nil
	case config.StorageBackendRedis:
		client, err := ConnectRedis(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		return &Storage{
			KV:    kvredis.NewKVStoreWithPrefix(client, cfg.Redis.KeyPrefix),
			close: client.Close,
		}, nil
	case config.StorageBackendFile, "":
		fs, err := filestore.NewWithLogger(cfg.FilePath, logger)
		if err != nil {
			return nil, fmt.Errorf("open file storage: %w", err)
		}
		return &Storage{KV: fs}, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}

// ConnectRedis dials Redis and verifies the connection with a ping.
//
//nolint:ireturn // returning redis.UniversalClient keeps client selection flexible.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (redis.UniversalClient, error) {
	client, addrDesc, err := newDirectClient(cfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()

	if pingErr := client.Ping(pingCtx).Err(); pingErr != nil {
		if closeErr := client.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close redis client: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis: %w", pingErr)
	}

	if logger != nil {
		logger.Info("redis connected", "addr", redactAddr(addrDesc))
	}
	return client, nil
}

//nolint:ireturn // see ConnectRedis.
func newDirectClient(cfg config.RedisConfig) (redis.UniversalClient, string, error) {
	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return nil, "", errors.New("redis storage requires a URI")
	}

	if isRedisURL(uri) {
		opt, err := redis.ParseURL(uri)
		if err != nil {
			return nil, "", fmt.Errorf("parse redis url: %w", err)
		}
		if cfg.Password != "" && opt.Password == "" {
			opt.Password = cfg.Password
		}
		return redis.NewClient(opt), uri, nil
	}

	return redis.NewClient(&redis.Options{
		Addr:     uri,
		Password: cfg.Password,
		DB:       cfg.DB,
	}), uri, nil
}

func isRedisURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "redis://") || strings.HasPrefix(lower, "rediss://")
}

// redactAddr strips credentials before an address is logged.
func redactAddr(addr string) string {
	if u, err := url.Parse(addr); err == nil && u.User != nil {
		u.User = url.User("*")
		return u.Redacted()
	}
	if i := strings.LastIndex(addr, "@"); i > -1 {
		return addr[i+1:]
	}
	return addr
}
