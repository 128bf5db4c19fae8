// Package filestore implements KVStore as a single JSON document on disk,
// the default durable storage for the CLI.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/taskup/taskup-client/internal/ports"
)

var _ ports.KVStore = (*Store)(nil)

// Store keeps every key in one JSON object. Writes replace the file
// atomically; concurrent use within one process is safe.
type Store struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// errCorrupt marks a state file that exists but is not a JSON object.
var errCorrupt = errors.New("state file is corrupt")

// New returns a store backed by path. The file and its directory are created
// on first write.
func New(path string) (*Store, error) {
	return NewWithLogger(path, nil)
}

// NewWithLogger is New with a logger for recovery warnings.
func NewWithLogger(path string, logger *slog.Logger) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("filestore path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: filepath.Clean(path), logger: logger.With("component", "filestore")}, nil
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := data[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("storage key cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, _, err := s.loadForWrite()
	if err != nil {
		return err
	}
	data[key] = value
	return s.save(data)
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, recovered, err := s.loadForWrite()
	if err != nil {
		return err
	}
	if _, ok := data[key]; !ok && !recovered {
		return nil
	}
	delete(data, key)
	return s.save(data)
}

func (s *Store) load() (map[string]string, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	data := map[string]string{}
	if len(strings.TrimSpace(string(b))) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("decode %s: %w: %w", s.path, errCorrupt, err)
	}
	return data, nil
}

// loadForWrite is load for the write paths. A corrupt file is moved aside to
// <path>.corrupt and replaced by an empty document; recovered reports that
// the file must be rewritten even if nothing else changes.
func (s *Store) loadForWrite() (data map[string]string, recovered bool, err error) {
	data, err = s.load()
	if err == nil {
		return data, false, nil
	}
	if !errors.Is(err, errCorrupt) {
		return nil, false, err
	}

	aside := s.path + ".corrupt"
	if renameErr := os.Rename(s.path, aside); renameErr != nil {
		aside = ""
	}
	s.logger.Warn("discarding corrupt state file", "path", s.path, "moved_to", aside, "error", err)
	return map[string]string{}, true, nil
}

func (s *Store) save(data map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err := writeJSONAtomic(s.path, data); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

// writeJSONAtomic writes through a temp file and renames it over path.
// The file holds a bearer token, so it is created owner-only.
func writeJSONAtomic(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}

	if err := os.Rename(tmp, path); err == nil {
		return nil
	}

	defer os.Remove(tmp)

	if runtime.GOOS == "windows" {
		_ = os.Remove(path)
	}
	return os.Rename(tmp, path)
}
