// Package chain fetches and normalizes on-chain transfer history.
//
// The canonical record is Transaction: a normalized asset transfer with the
// hash, counterparties, value in whole asset units, and a coarse category.
// Timestamps are derived from block metadata when the provider supplies it.
package chain

import (
	"context"
	"time"
)

// Category classifies a transfer by asset kind.
type Category string

const (
	CategoryNative   Category = "native-transfer"
	CategoryFungible Category = "fungible-token"
	CategoryNFT      Category = "nft"
)

// Transaction is a normalized on-chain transfer.
type Transaction struct {
	Hash      string    `json:"hash"`
	From      string    `json:"from_address"`
	To        string    `json:"to_address"`
	Value     float64   `json:"value"`
	Asset     string    `json:"asset"`
	Category  Category  `json:"category"`
	Block     uint64    `json:"block"`
	Timestamp time.Time `json:"timestamp"`
}

// Source fetches the recent transfer history for an address, most recent
// first. Implementations must be safe for concurrent use.
type Source interface {
	Transactions(ctx context.Context, address string, limit int) ([]Transaction, error)
}
