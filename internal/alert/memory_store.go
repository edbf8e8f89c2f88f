package alert

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory alert store for demo/development mode.
type MemoryStore struct {
	alerts []*Alert
	mu     sync.RWMutex
}

// NewMemoryStore creates a new in-memory alert store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Append(ctx context.Context, a *Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *a
	m.alerts = append(m.alerts, &cp)
	return nil
}

func (m *MemoryStore) Recent(ctx context.Context, limit int) ([]*Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Newest last in the slice; return newest first.
	var result []*Alert
	for i := len(m.alerts) - 1; i >= 0; i-- {
		cp := *m.alerts[i]
		result = append(result, &cp)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (m *MemoryStore) Latest(ctx context.Context) (*Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.alerts) == 0 {
		return nil, ErrNotFound
	}
	cp := *m.alerts[len(m.alerts)-1]
	return &cp, nil
}

func (m *MemoryStore) Acknowledge(ctx context.Context, id, by string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.alerts {
		if a.ID == id {
			a.Acknowledged = true
			a.AcknowledgedAt = time.Now()
			a.AcknowledgedBy = by
			return nil
		}
	}
	return ErrNotFound
}
