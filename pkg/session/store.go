// Package session persists the last prefix a user filtered by, so a reopened
// map can restore its state. Prefixes are also encoded into URL fragments.
package session

import (
	"sort"
	"sync"
)

// Store keeps the last prefix per session id. An unknown session yields "".
type Store interface {
	LastPrefix(sessionID string) (string, error)
	SaveLastPrefix(sessionID, prefix string) error
	Close() error
}

// MemoryStore is a Store kept in a map, used with --no-session and in tests.
type MemoryStore struct {
	mu       sync.RWMutex
	prefixes map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{prefixes: make(map[string]string)}
}

func (m *MemoryStore) LastPrefix(sessionID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.prefixes[sessionID], nil
}

func (m *MemoryStore) SaveLastPrefix(sessionID, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefixes[sessionID] = prefix
	return nil
}

// Sessions returns the known session ids, sorted.
func (m *MemoryStore) Sessions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.prefixes))
	for id := range m.prefixes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *MemoryStore) Close() error { return nil }
