package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// ErrInjected is returned by MemoryStorage for keys marked with FailDeletes.
var ErrInjected = errors.New("injected storage failure")

// MemoryStorage keeps blobs in process memory. Tests use it to observe which
// objects exist and to simulate delete failures.
type MemoryStorage struct {
	mu          sync.Mutex
	objects     map[string][]byte
	failDeletes map[string]bool
	failPuts    bool
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		objects:     make(map[string][]byte),
		failDeletes: make(map[string]bool),
	}
}

// Put stores the bytes read from r.
func (m *MemoryStorage) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("memory storage read: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPuts {
		return ErrInjected
	}
	m.objects[key] = data
	return nil
}

// Delete removes key; missing keys succeed.
func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDeletes[key] {
		return ErrInjected
	}
	delete(m.objects, key)
	return nil
}

// URL returns a memory:// location for key.
func (m *MemoryStorage) URL(_ context.Context, key string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return "memory://" + key, nil
}

// PresignTTL reports a nominal lifetime for URLs.
func (m *MemoryStorage) PresignTTL() time.Duration { return defaultPresignTTL }

// Has reports whether key is stored.
func (m *MemoryStorage) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

// Len returns the number of stored objects.
func (m *MemoryStorage) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// FailDeletes makes Delete fail for the given keys.
func (m *MemoryStorage) FailDeletes(keys ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		m.failDeletes[key] = true
	}
}

// ClearFailures removes every injected failure.
func (m *MemoryStorage) ClearFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failDeletes = make(map[string]bool)
	m.failPuts = false
}

// FailPuts makes every Put fail while enabled.
func (m *MemoryStorage) FailPuts(enabled bool) {
	m.mu.Lock()
	m.failPuts = enabled
	m.mu.Unlock()
}
