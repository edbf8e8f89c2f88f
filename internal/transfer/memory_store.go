package transfer

import (
	"context"
	"strings"
	"sync"
)

// MemoryWarningStore is an in-memory strike ledger for demo/development mode.
type MemoryWarningStore struct {
	byAddress map[string][]*Warning
	mu        sync.RWMutex
}

// NewMemoryWarningStore creates a new in-memory warning store.
func NewMemoryWarningStore() *MemoryWarningStore {
	return &MemoryWarningStore{byAddress: make(map[string][]*Warning)}
}

func (m *MemoryWarningStore) Append(ctx context.Context, w *Warning) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	addr := strings.ToLower(w.WalletAddress)
	cp := *w
	cp.WalletAddress = addr
	m.byAddress[addr] = append(m.byAddress[addr], &cp)
	return nil
}

func (m *MemoryWarningStore) Count(ctx context.Context, address string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.byAddress[strings.ToLower(address)]), nil
}

func (m *MemoryWarningStore) For(ctx context.Context, address string, limit int) ([]*Warning, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	warnings := m.byAddress[strings.ToLower(address)]
	var result []*Warning
	for i := len(warnings) - 1; i >= 0; i-- {
		cp := *warnings[i]
		result = append(result, &cp)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (m *MemoryWarningStore) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for addr, warnings := range m.byAddress {
		for i, w := range warnings {
			if w.ID == id {
				m.byAddress[addr] = append(warnings[:i], warnings[i+1:]...)
				return nil
			}
		}
	}
	return nil
}

// MemoryBlockedStore is an in-memory blocked-transfer audit log for
// demo/development mode.
type MemoryBlockedStore struct {
	records []*BlockedTransfer
	mu      sync.RWMutex
}

// NewMemoryBlockedStore creates a new in-memory blocked-transfer store.
func NewMemoryBlockedStore() *MemoryBlockedStore {
	return &MemoryBlockedStore{}
}

func (m *MemoryBlockedStore) Append(ctx context.Context, b *BlockedTransfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *b
	cp.Sender = strings.ToLower(cp.Sender)
	cp.Receiver = strings.ToLower(cp.Receiver)
	m.records = append(m.records, &cp)
	return nil
}

func (m *MemoryBlockedStore) Recent(ctx context.Context, limit int) ([]*BlockedTransfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*BlockedTransfer
	for i := len(m.records) - 1; i >= 0; i-- {
		cp := *m.records[i]
		result = append(result, &cp)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}
