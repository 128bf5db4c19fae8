// Package redis provides a Redis-backed KVStore so several client processes
// on one host can share a session.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/taskup/taskup-client/internal/ports"
)

var _ ports.KVStore = (*KVStore)(nil)

// DefaultPrefix namespaces every key written by the client.
const DefaultPrefix = "taskup:"

// KVStore stores values as plain Redis strings without TTL.
type KVStore struct {
	client redis.UniversalClient
	prefix string
}

// NewKVStore creates a store using DefaultPrefix.
func NewKVStore(client redis.UniversalClient) *KVStore {
	return NewKVStoreWithPrefix(client, DefaultPrefix)
}

// NewKVStoreWithPrefix creates a store with a custom key prefix.
func NewKVStoreWithPrefix(client redis.UniversalClient, prefix string) *KVStore {
	return &KVStore{client: client, prefix: prefix}
}

func (s *KVStore) key(k string) (string, error) {
	k = strings.TrimSpace(k)
	if k == "" {
		return "", errors.New("storage key cannot be empty")
	}
	return s.prefix + k, nil
}

func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	full, err := s.key(key)
	if err != nil {
		return "", false, err
	}
	val, err := s.client.Get(ctx, full).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get %s: %w", full, err)
	}
	return val, true, nil
}

func (s *KVStore) Set(ctx context.Context, key, value string) error {
	full, err := s.key(key)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, full, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", full, err)
	}
	return nil
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	full, err := s.key(key)
	if err != nil {
		return nil // Nothing to delete
	}
	if err := s.client.Del(ctx, full).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", full, err)
	}
	return nil
}
