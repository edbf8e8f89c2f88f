// Package transfer enforces the protected-transfer policy.
//
// The gate decides whether a transfer proceeds, requires explicit user
// confirmation, or is blocked, and keeps the per-sender strike ledger:
// three confirmed transfers to risky receivers suspend the sender.
package transfer

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidInput = errors.New("invalid transfer input")

// Outcome is the gate's decision.
type Outcome string

const (
	OutcomeApproved Outcome = "APPROVED"
	OutcomeWarn     Outcome = "WARNING"
	OutcomeBlocked  Outcome = "BLOCKED"
)

// Block reason tags, user-visible.
const (
	ReasonBlacklisted       = "blacklisted"
	ReasonHighRisk          = "high_risk"
	ReasonReceiverFrozen    = "receiver_frozen"
	ReasonReceiverSuspended = "receiver_suspended"
	ReasonSenderSuspended   = "account_suspended"
	ReasonWarningsExceeded  = "warnings_exceeded"
	ReasonInsufficientFunds = "insufficient_funds"
)

// MaxWarnings is the strike limit: the third confirmed risky transfer
// suspends the sender.
const MaxWarnings = 3

// Request is one transfer attempt.
type Request struct {
	Sender    string  `json:"from_address"`
	Receiver  string  `json:"to_address"`
	Amount    float64 `json:"amount"`
	Confirmed bool    `json:"confirmed_risk"`
}

// Decision is the gate's answer.
type Decision struct {
	Outcome           Outcome `json:"outcome"`
	RiskScore         float64 `json:"risk_score"`
	RiskStatus        string  `json:"risk_status,omitempty"`
	WarningsRemaining int     `json:"warnings_remaining,omitempty"`
	WarningNumber     int     `json:"warning_number,omitempty"`
	BlockReason       string  `json:"block_reason,omitempty"`
	Message           string  `json:"message,omitempty"`
	TxHash            string  `json:"tx_hash,omitempty"`
}

// Warning is one strike against a sender. Append-only.
type Warning struct {
	ID            string    `json:"id"`
	WalletAddress string    `json:"wallet_address"`
	TargetAddress string    `json:"target_address"`
	Type          string    `json:"warning_type"`
	RiskScore     float64   `json:"risk_score"`
	Number        int       `json:"warning_number"`
	CreatedAt     time.Time `json:"created_at"`
}

// WarningStore persists strikes. Count is the sole input to the
// suspension rule.
type WarningStore interface {
	Append(ctx context.Context, w *Warning) error
	Count(ctx context.Context, address string) (int, error)
	For(ctx context.Context, address string, limit int) ([]*Warning, error)
	// Remove deletes a strike by ID. The gate uses it to unwind a strike
	// whose follow-up writes failed. Removing an unknown ID is a no-op.
	Remove(ctx context.Context, id string) error
}

// BlockedTransfer is the audit record for a block decision.
type BlockedTransfer struct {
	ID           string    `json:"id"`
	Sender       string    `json:"sender_address"`
	Receiver     string    `json:"receiver_address"`
	Amount       float64   `json:"amount"`
	RiskScore    float64   `json:"risk_score"`
	Reason       string    `json:"block_reason"`
	WarningCount int       `json:"user_warning_count"`
	BlockedAt    time.Time `json:"blocked_at"`
}

// BlockedStore persists block audit records, append-only.
type BlockedStore interface {
	Append(ctx context.Context, b *BlockedTransfer) error
	Recent(ctx context.Context, limit int) ([]*BlockedTransfer, error)
}
