// Package memstore is an in-process KVStore for tests and ephemeral sessions.
package memstore

import (
	"context"
	"maps"
	"sync"

	"github.com/taskup/taskup-client/internal/ports"
)

var _ ports.KVStore = (*Store)(nil)

// Store is a mutex-guarded map.
type Store struct {
	mu   sync.RWMutex
	data map[string]string
}

// New returns an empty store, optionally seeded.
func New(seed map[string]string) *Store {
	data := make(map[string]string, len(seed))
	maps.Copy(data, seed)
	return &Store{data: data}
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Snapshot returns a copy of every stored key.
func (s *Store) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.data)
}
