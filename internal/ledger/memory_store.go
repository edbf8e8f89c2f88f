package ledger

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory transaction ledger for demo/development mode.
type MemoryStore struct {
	txs    []*Transaction
	byHash map[string]struct{}
	mu     sync.RWMutex
}

// NewMemoryStore creates a new in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byHash: make(map[string]struct{})}
}

func (m *MemoryStore) Append(ctx context.Context, tx *Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, dup := m.byHash[tx.Hash]; dup {
		return ErrDuplicateHash
	}

	cp := *tx
	cp.From = strings.ToLower(cp.From)
	cp.To = strings.ToLower(cp.To)
	if cp.Timestamp.IsZero() {
		cp.Timestamp = time.Now()
	}
	m.txs = append(m.txs, &cp)
	m.byHash[cp.Hash] = struct{}{}
	return nil
}

func (m *MemoryStore) Remove(ctx context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byHash[hash]; !ok {
		return nil
	}
	delete(m.byHash, hash)
	for i, tx := range m.txs {
		if tx.Hash == hash {
			m.txs = append(m.txs[:i], m.txs[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryStore) Balance(ctx context.Context, address string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	addr := strings.ToLower(address)
	var balance float64
	for _, tx := range m.txs {
		if tx.To == addr {
			balance += tx.Value
		}
		if tx.From == addr {
			balance -= tx.Value
		}
	}
	return balance, nil
}

func (m *MemoryStore) History(ctx context.Context, address string, limit int) ([]*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	addr := strings.ToLower(address)
	var result []*Transaction
	for _, tx := range m.txs {
		if tx.From == addr || tx.To == addr {
			cp := *tx
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
