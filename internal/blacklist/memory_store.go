package blacklist

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory blacklist for demo/development mode.
type MemoryStore struct {
	entries map[string]*Entry
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory blacklist store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*Entry)}
}

func (m *MemoryStore) Add(ctx context.Context, entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	addr := strings.ToLower(entry.Address)
	cp := *entry
	cp.Address = addr
	if cp.AddedAt.IsZero() {
		cp.AddedAt = time.Now()
	}
	m.entries[addr] = &cp
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, address string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[strings.ToLower(address)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *entry
	return &cp, nil
}

func (m *MemoryStore) Remove(ctx context.Context, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	addr := strings.ToLower(address)
	if _, ok := m.entries[addr]; !ok {
		return ErrNotFound
	}
	delete(m.entries, addr)
	return nil
}

func (m *MemoryStore) List(ctx context.Context) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Entry, 0, len(m.entries))
	for _, entry := range m.entries {
		cp := *entry
		result = append(result, &cp)
	}
	return result, nil
}
