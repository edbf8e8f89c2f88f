// Package scanner runs the background wallet scan loop.
//
// Every interval it picks a random tracked wallet (falling back to
// blacklist entries when nothing is tracked yet), re-analyzes it, and
// raises an alert plus a ratcheted status escalation when the score
// crosses the alert threshold. A failing wallet is skipped, never fatal.
package scanner

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"log/slog"
	"time"

	"github.com/mbd888/walletguard/internal/alert"
	"github.com/mbd888/walletguard/internal/blacklist"
	"github.com/mbd888/walletguard/internal/metrics"
	"github.com/mbd888/walletguard/internal/retry"
	"github.com/mbd888/walletguard/internal/risk"
	"github.com/mbd888/walletguard/internal/wallet"
)

// StatusEvents receives status escalations for realtime fanout.
type StatusEvents interface {
	PublishStatusChange(address, from, to string, score float64)
}

// Config for the scan loop.
type Config struct {
	Interval        time.Duration
	AlertThreshold  float64
	FreezeThreshold float64
	MaxAttempts     int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	StatsEvery      int
}

// DefaultConfig returns the production scan settings.
func DefaultConfig() Config {
	return Config{
		Interval:        10 * time.Second,
		AlertThreshold:  80,
		FreezeThreshold: 90,
		MaxAttempts:     3,
		BaseDelay:       500 * time.Millisecond,
		MaxDelay:        4 * time.Second,
		StatsEvery:      30,
	}
}

// Scanner drives the periodic re-analysis loop.
type Scanner struct {
	config    Config
	engine    *risk.Engine
	wallets   wallet.Store
	blacklist blacklist.Store
	alerts    *alert.Sink
	events    StatusEvents
	logger    *slog.Logger

	scanned int
	flagged int

	stop chan struct{}
	done chan struct{}
}

// New creates a scanner. events may be nil.
func New(cfg Config, engine *risk.Engine, wallets wallet.Store, bl blacklist.Store, alerts *alert.Sink, logger *slog.Logger) *Scanner {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Scanner{
		config:    cfg,
		engine:    engine,
		wallets:   wallets,
		blacklist: bl,
		alerts:    alerts,
		logger:    logger,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// WithEvents attaches a realtime emitter for status escalations.
func (s *Scanner) WithEvents(events StatusEvents) *Scanner {
	s.events = events
	return s
}

// Start begins the scan loop in a goroutine.
func (s *Scanner) Start(ctx context.Context) {
	s.logger.Info("scanner started",
		"interval", s.config.Interval,
		"alert_threshold", s.config.AlertThreshold,
	)
	go s.loop(ctx)
}

// Stop stops the loop and waits for the current iteration to finish.
func (s *Scanner) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Scanner) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			if err := s.scanOnce(ctx); err != nil {
				metrics.ScanCyclesTotal.WithLabelValues("error").Inc()
				s.logger.Error("scan iteration failed", "error", err)
			} else {
				metrics.ScanCyclesTotal.WithLabelValues("ok").Inc()
			}
			if s.config.StatsEvery > 0 && s.scanned > 0 && s.scanned%s.config.StatsEvery == 0 {
				s.logger.Info("scanner stats", "scanned", s.scanned, "flagged", s.flagged)
			}
		}
	}
}

// scanOnce picks one address and re-analyzes it.
func (s *Scanner) scanOnce(ctx context.Context) error {
	address, err := s.pickAddress(ctx)
	if err != nil {
		return err
	}
	if address == "" {
		return nil
	}

	var assessment *risk.Assessment
	err = retry.DoCapped(ctx, s.config.MaxAttempts, s.config.BaseDelay, s.config.MaxDelay, func() error {
		var aerr error
		assessment, aerr = s.engine.Analyze(ctx, address)
		return aerr
	})
	if err != nil {
		return fmt.Errorf("analyze %s: %w", address, err)
	}

	s.scanned++
	s.logger.Debug("wallet scanned",
		"address", address,
		"score", assessment.TotalScore,
		"level", assessment.Level,
	)

	if assessment.TotalScore >= s.config.AlertThreshold {
		s.escalate(ctx, address, assessment)
	}
	return nil
}

// pickAddress selects a random tracked wallet, falling back to the
// blacklist so a fresh deployment still has something to scan.
func (s *Scanner) pickAddress(ctx context.Context) (string, error) {
	wallets, err := s.wallets.List(ctx, 500)
	if err != nil {
		return "", fmt.Errorf("list wallets: %w", err)
	}
	if len(wallets) > 0 {
		return wallets[randIndex(len(wallets))].Address, nil
	}

	entries, err := s.blacklist.List(ctx)
	if err != nil {
		return "", fmt.Errorf("list blacklist: %w", err)
	}
	if len(entries) > 0 {
		return entries[randIndex(len(entries))].Address, nil
	}
	return "", nil
}

// escalate raises an alert and ratchets the wallet status.
func (s *Scanner) escalate(ctx context.Context, address string, assessment *risk.Assessment) {
	s.flagged++

	severity := alert.SeverityHigh
	if assessment.TotalScore >= s.config.FreezeThreshold {
		severity = alert.SeverityCritical
	}
	s.alerts.Raise(ctx, address, "HIGH_RISK_WALLET", severity,
		fmt.Sprintf("scan flagged wallet with risk score %.1f (%s)", assessment.TotalScore, assessment.Level),
		assessment.TotalScore)

	w, err := s.wallets.GetOrCreate(ctx, address)
	if err != nil {
		s.logger.Error("failed to load flagged wallet", "address", address, "error", err)
		return
	}

	previous := w.Status
	proposed := wallet.StatusSuspended
	if assessment.TotalScore >= s.config.FreezeThreshold {
		proposed = wallet.StatusFrozen
	}
	w.Status = wallet.Ratchet(w.Status, proposed)
	if w.Status == previous {
		return
	}

	w.FlaggedAt = time.Now()
	w.FlaggedBy = "scanner"
	if err := s.wallets.Save(ctx, w); err != nil {
		s.logger.Error("failed to escalate wallet status", "address", address, "error", err)
		return
	}

	s.logger.Warn("wallet status escalated",
		"address", address,
		"from", previous,
		"to", w.Status,
		"score", assessment.TotalScore,
	)
	if s.events != nil {
		s.events.PublishStatusChange(address, string(previous), string(w.Status), assessment.TotalScore)
	}
}

func randIndex(n int) int {
	if n <= 1 {
		return 0
	}
	var b [8]byte
	_, _ = rand.Read(b[:])
	return int(binary.LittleEndian.Uint64(b[:]) % uint64(n))
}
