// Package wallet tracks per-address account state.
//
// The account status is a severity ratchet: risk analysis can only move a
// wallet toward a more severe status, never back. Only an explicit admin
// override can downgrade.
package wallet

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("wallet not found")

// Status is the account enforcement state, ordered by severity.
type Status string

const (
	StatusActive      Status = "active"
	StatusUnderReview Status = "under_review"
	StatusSuspended   Status = "suspended"
	StatusFrozen      Status = "frozen"
)

// severity gives each status its rank in the ratchet ordering. Unknown
// statuses rank lowest so corrupt data cannot block an escalation.
func (s Status) severity() int {
	switch s {
	case StatusUnderReview:
		return 1
	case StatusSuspended:
		return 2
	case StatusFrozen:
		return 3
	default:
		return 0
	}
}

// Valid reports whether s is one of the defined statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusUnderReview, StatusSuspended, StatusFrozen:
		return true
	}
	return false
}

// StatusForScore maps a risk score to the status it warrants on its own.
func StatusForScore(score float64) Status {
	switch {
	case score >= 90:
		return StatusFrozen
	case score >= 70:
		return StatusSuspended
	case score >= 50:
		return StatusUnderReview
	default:
		return StatusActive
	}
}

// Ratchet returns the more severe of current and proposed. The monotonic
// rule lives here and nowhere else.
func Ratchet(current, proposed Status) Status {
	if proposed.severity() > current.severity() {
		return proposed
	}
	return current
}

// Wallet is the tracked state for one address.
type Wallet struct {
	Address            string    `json:"address"`
	Label              string    `json:"label,omitempty"`
	EntityType         string    `json:"entity_type"`
	Status             Status    `json:"account_status"`
	RiskScore          float64   `json:"risk_score"`
	RiskCategory       string    `json:"risk_category,omitempty"`
	TotalTransactions  int64     `json:"total_transactions"`
	TotalValueSent     float64   `json:"total_value_sent"`
	TotalValueReceived float64   `json:"total_value_received"`
	FirstSeenAt        time.Time `json:"first_seen_at,omitempty"`
	LastActivityAt     time.Time `json:"last_activity_at,omitempty"`
	FlaggedAt          time.Time `json:"flagged_at,omitempty"`
	FlaggedBy          string    `json:"flagged_by,omitempty"`
	Notes              string    `json:"notes,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ApplyScore records a fresh risk score and ratchets the status. Returns
// true when the status escalated.
func (w *Wallet) ApplyScore(score float64) bool {
	w.RiskScore = score
	next := Ratchet(w.Status, StatusForScore(score))
	changed := next != w.Status
	w.Status = next
	return changed
}

// Override sets the status directly, bypassing the ratchet. Admin use
// only; records who made the call.
func (w *Wallet) Override(status Status, by string, now time.Time) {
	w.Status = status
	w.FlaggedAt = now
	w.FlaggedBy = by
}

// Store persists wallets, keyed by canonical lowercase address.
type Store interface {
	// GetOrCreate returns the wallet for address, creating an active
	// zero-score record on first reference.
	GetOrCreate(ctx context.Context, address string) (*Wallet, error)
	Get(ctx context.Context, address string) (*Wallet, error)
	Save(ctx context.Context, w *Wallet) error
	List(ctx context.Context, limit int) ([]*Wallet, error)
}
