package wallet

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory wallet store for demo/development mode.
type MemoryStore struct {
	wallets map[string]*Wallet
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory wallet store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{wallets: make(map[string]*Wallet)}
}

func (m *MemoryStore) GetOrCreate(ctx context.Context, address string) (*Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	addr := strings.ToLower(address)
	if w, ok := m.wallets[addr]; ok {
		cp := *w
		return &cp, nil
	}

	now := time.Now()
	w := &Wallet{
		Address:    addr,
		EntityType: "Unknown",
		Status:     StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.wallets[addr] = w
	cp := *w
	return &cp, nil
}

func (m *MemoryStore) Get(ctx context.Context, address string) (*Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.wallets[strings.ToLower(address)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (m *MemoryStore) Save(ctx context.Context, w *Wallet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	addr := strings.ToLower(w.Address)
	if _, ok := m.wallets[addr]; !ok {
		return ErrNotFound
	}
	cp := *w
	cp.Address = addr
	cp.UpdatedAt = time.Now()
	m.wallets[addr] = &cp
	return nil
}

func (m *MemoryStore) List(ctx context.Context, limit int) ([]*Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Wallet, 0, len(m.wallets))
	for _, w := range m.wallets {
		cp := *w
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].RiskScore > result[j].RiskScore
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
