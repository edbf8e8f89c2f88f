// Package ledger records platform transfers and answers balance queries.
//
// The balance of an address is purely derived: sum of value received minus
// sum of value sent across recorded transactions. The transfer gate
// appends a synthetic record for each approved transfer.
package ledger

import (
	"context"
	"errors"
	"time"
)

var ErrDuplicateHash = errors.New("transaction hash already recorded")

// Transaction is one recorded transfer. To is empty for contract creation.
type Transaction struct {
	Hash       string    `json:"hash"`
	From       string    `json:"from_address"`
	To         string    `json:"to_address"`
	Value      float64   `json:"value"`
	Block      uint64    `json:"block,omitempty"`
	Flagged    bool      `json:"is_flagged"`
	FlagReason string    `json:"flag_reason,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Store persists transactions. Hashes are unique.
type Store interface {
	Append(ctx context.Context, tx *Transaction) error
	// Remove deletes a recorded transaction by hash. Used by the transfer
	// gate to unwind a commit whose follow-up writes failed. Removing an
	// unknown hash is a no-op.
	Remove(ctx context.Context, hash string) error
	// Balance is sum received minus sum sent for the address.
	Balance(ctx context.Context, address string) (float64, error)
	History(ctx context.Context, address string, limit int) ([]*Transaction, error)
}
