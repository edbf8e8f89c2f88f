// Package health provides a registry of named subsystem health checkers.
package health

import (
	"context"
	"database/sql"
	"sync"
	"time"
)

// Status represents the health of a single subsystem.
type Status struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

// Checker is a function that checks the health of a subsystem.
type Checker func(ctx context.Context) Status

// Registry holds named health checkers and runs them on demand. Each
// check runs under a shared timeout so a hung subsystem cannot stall
// the health endpoint.
type Registry struct {
	mu       sync.RWMutex
	timeout  time.Duration
	checkers []namedChecker
}

type namedChecker struct {
	name  string
	check Checker
}

// NewRegistry creates a new health check registry.
func NewRegistry() *Registry {
	return &Registry{timeout: 3 * time.Second}
}

// Register adds a named health checker.
func (r *Registry) Register(name string, check Checker) {
	r.mu.Lock()
	r.checkers = append(r.checkers, namedChecker{name: name, check: check})
	r.mu.Unlock()
}

// CheckAll runs all registered checkers and returns the aggregate health
// status plus individual subsystem results.
func (r *Registry) CheckAll(ctx context.Context) (healthy bool, statuses []Status) {
	r.mu.RLock()
	checkers := make([]namedChecker, len(r.checkers))
	copy(checkers, r.checkers)
	r.mu.RUnlock()

	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	healthy = true
	statuses = make([]Status, len(checkers))

	for i, nc := range checkers {
		statuses[i] = nc.check(cctx)
		if !statuses[i].Healthy {
			healthy = false
		}
	}

	return healthy, statuses
}

// DBChecker pings the database connection pool.
func DBChecker(db *sql.DB) Checker {
	return func(ctx context.Context) Status {
		if err := db.PingContext(ctx); err != nil {
			return Status{Name: "database", Healthy: false, Detail: err.Error()}
		}
		return Status{Name: "database", Healthy: true}
	}
}

// PingSource is the minimal surface a transaction source must expose to
// be health-checked.
type PingSource interface {
	Ping(ctx context.Context) error
}

// SourceChecker verifies the transaction source RPC endpoint answers.
func SourceChecker(src PingSource) Checker {
	return func(ctx context.Context) Status {
		if err := src.Ping(ctx); err != nil {
			return Status{Name: "chain_rpc", Healthy: false, Detail: err.Error()}
		}
		return Status{Name: "chain_rpc", Healthy: true}
	}
}

// ScorerChecker reports whether the ML model artifact loaded. The scorer
// degrading to heuristics-only is a warning, not an outage, so the
// status stays healthy with a detail note.
func ScorerChecker(available bool) Checker {
	detail := ""
	if !available {
		detail = "model unavailable, heuristics only"
	}
	return func(ctx context.Context) Status {
		return Status{Name: "scorer", Healthy: true, Detail: detail}
	}
}
