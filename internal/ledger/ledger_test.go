package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Balance(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	txs := []*Transaction{
		{Hash: "0x1", From: "0xb1", To: "0xa1", Value: 5.0, Timestamp: base},
		{Hash: "0x2", From: "0xa1", To: "0xb2", Value: 2.0, Timestamp: base.Add(time.Minute)},
		{Hash: "0x3", From: "0xb3", To: "0xa1", Value: 1.5, Timestamp: base.Add(2 * time.Minute)},
	}
	for _, tx := range txs {
		require.NoError(t, store.Append(ctx, tx))
	}

	balance, err := store.Balance(ctx, "0xA1")
	require.NoError(t, err)
	assert.Equal(t, 4.5, balance)

	// Address with no history has zero balance.
	balance, err = store.Balance(ctx, "0xnobody")
	require.NoError(t, err)
	assert.Equal(t, 0.0, balance)
}

func TestMemoryStore_DuplicateHash(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Append(ctx, &Transaction{Hash: "0x1", From: "0xa", To: "0xb", Value: 1}))
	err := store.Append(ctx, &Transaction{Hash: "0x1", From: "0xa", To: "0xb", Value: 1})
	assert.ErrorIs(t, err, ErrDuplicateHash)
}

func TestMemoryStore_History(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, &Transaction{
			Hash: fmt.Sprintf("0x%d", i), From: "0xa1", To: "0xb1",
			Value: 1, Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, store.Append(ctx, &Transaction{
		Hash: "0xother", From: "0xc1", To: "0xc2", Value: 1, Timestamp: base,
	}))

	history, err := store.History(ctx, "0xa1", 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	// Most recent first.
	assert.Equal(t, "0x4", history[0].Hash)
	assert.Equal(t, "0x3", history[1].Hash)
}
