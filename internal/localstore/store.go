// Package localstore persists guest-only state as string values under
// string keys, the way a browser's local storage does. Values are opaque
// to the store; callers serialize.
package localstore

import (
	"context"
	"sync"
)

// Store is a persistent key-value store.
//
// Get reports ok=false for a missing key. Delete of a missing key is not
// an error. Implementations must be safe for concurrent use; each call is
// atomic on its own, but read-modify-write cycles are the caller's problem.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Scoped returns a view of s whose keys are prefixed with namespace + ":".
// Sessions use it so every guest gets its own "cart" key.
func Scoped(s Store, namespace string) Store {
	return &scoped{store: s, prefix: namespace + ":"}
}

type scoped struct {
	store  Store
	prefix string
}

func (s *scoped) Get(ctx context.Context, key string) (string, bool, error) {
	return s.store.Get(ctx, s.prefix+key)
}

func (s *scoped) Set(ctx context.Context, key, value string) error {
	return s.store.Set(ctx, s.prefix+key, value)
}

func (s *scoped) Delete(ctx context.Context, key string) error {
	return s.store.Delete(ctx, s.prefix+key)
}

// Memory is an in-process Store. Contents are lost on exit.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*SQLite)(nil)
)
