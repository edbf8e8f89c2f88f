package risk

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is an in-memory assessment store for demo/development mode.
type MemoryStore struct {
	byAddress map[string][]*Assessment
	mu        sync.RWMutex
}

// NewMemoryStore creates a new in-memory assessment store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byAddress: make(map[string][]*Assessment)}
}

func (m *MemoryStore) Append(ctx context.Context, a *Assessment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	addr := strings.ToLower(a.WalletAddress)
	cp := *a
	m.byAddress[addr] = append(m.byAddress[addr], &cp)
	return nil
}

func (m *MemoryStore) LatestFor(ctx context.Context, address string) (*Assessment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history := m.byAddress[strings.ToLower(address)]
	if len(history) == 0 {
		return nil, ErrNoAssessment
	}
	cp := *history[len(history)-1]
	return &cp, nil
}

func (m *MemoryStore) HistoryFor(ctx context.Context, address string, limit int) ([]*Assessment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history := m.byAddress[strings.ToLower(address)]
	var result []*Assessment
	for i := len(history) - 1; i >= 0; i-- {
		cp := *history[i]
		result = append(result, &cp)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}
