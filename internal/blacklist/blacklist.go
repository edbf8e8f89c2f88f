// Package blacklist maintains the set of known-bad addresses.
//
// A blacklisted address is scored 99 with CRITICAL level regardless of what
// any detector or model says, and transfers to it are blocked outright.
package blacklist

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

var ErrNotFound = errors.New("address not blacklisted")

// Entry is a single blacklisted address.
type Entry struct {
	Address  string    `json:"address"`
	Reason   string    `json:"reason"`
	Category string    `json:"category"`
	Severity string    `json:"severity"`
	AddedAt  time.Time `json:"added_at"`
}

// Store persists blacklist entries. Addresses are stored in canonical
// lowercase form.
type Store interface {
	Add(ctx context.Context, entry *Entry) error
	Get(ctx context.Context, address string) (*Entry, error)
	Remove(ctx context.Context, address string) error
	List(ctx context.Context) ([]*Entry, error)
}

// Checker answers "is this address blacklisted" for hot paths. Lookups
// fail open: a store error is logged and treated as not-blacklisted so a
// database blip cannot halt transfer processing.
type Checker struct {
	store  Store
	logger *slog.Logger
}

// NewChecker wraps a store in fail-open lookup semantics.
func NewChecker(store Store, logger *slog.Logger) *Checker {
	return &Checker{store: store, logger: logger}
}

// Check reports whether the address is blacklisted, along with its entry
// when it is.
func (c *Checker) Check(ctx context.Context, address string) (bool, *Entry) {
	entry, err := c.store.Get(ctx, address)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		c.logger.Warn("blacklist lookup failed, treating as clean",
			"address", address, "error", err)
		return false, nil
	}
	return true, entry
}
