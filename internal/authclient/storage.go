package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	KeyAccessToken = "accessToken"
	KeyUser        = "user"
	keyCookies     = "cookies"
)

// Storage is the durable key/value area that outlives the process, the
// counterpart of a browser's local storage.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
	Remove(ctx context.Context, keys ...string) error
}

type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: map[string]string{}}
}

func (m *MemoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	return value, ok, nil
}

func (m *MemoryStorage) Set(_ context.Context, key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStorage) Remove(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

// FileStorage keeps every key in a single JSON object on disk.
type FileStorage struct {
	path string
	mu   sync.Mutex
}

func NewFileStorage(path string) (*FileStorage, error) {
	if path == "" {
		return nil, errors.New("storage file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &FileStorage{path: path}, nil
}

func (f *FileStorage) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.loadLocked()
	if err != nil {
		return "", false, err
	}
	value, ok := values[key]
	return value, ok, nil
}

func (f *FileStorage) Set(_ context.Context, key string, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.loadLocked()
	if err != nil {
		return err
	}
	values[key] = value
	return f.saveLocked(values)
}

func (f *FileStorage) Remove(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.loadLocked()
	if err != nil {
		return err
	}
	for _, key := range keys {
		delete(values, key)
	}
	return f.saveLocked(values)
}

func (f *FileStorage) loadLocked() (map[string]string, error) {
	values := map[string]string{}

	content, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read storage file: %w", err)
	}
	if len(content) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(content, &values); err != nil {
		return nil, fmt.Errorf("decode storage file: %w", err)
	}
	return values, nil
}

func (f *FileStorage) saveLocked(values map[string]string) error {
	content, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o600); err != nil {
		return fmt.Errorf("write storage file: %w", err)
	}
	return os.Rename(tmp, f.path)
}
