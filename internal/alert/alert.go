// Package alert records and fans out security alerts.
//
// Alerts come from two producers: the background scanner when a wallet
// crosses the alert threshold, and the transfer gate when a sender is
// suspended or a transfer is blocked. Raising an alert persists it,
// pushes it to realtime subscribers, and logs it.
package alert

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mbd888/walletguard/internal/idgen"
)

var ErrNotFound = errors.New("alert not found")

// Severity levels, mirroring risk levels.
const (
	SeverityLow      = "LOW"
	SeverityMedium   = "MEDIUM"
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRITICAL"
)

// Alert is one security event tied to a wallet.
type Alert struct {
	ID             string    `json:"id"`
	WalletAddress  string    `json:"wallet_address"`
	Type           string    `json:"alert_type"`
	Severity       string    `json:"severity"`
	Message        string    `json:"message"`
	RiskScore      float64   `json:"risk_score"`
	DetectedAt     time.Time `json:"detected_at"`
	Acknowledged   bool      `json:"acknowledged"`
	AcknowledgedAt time.Time `json:"acknowledged_at,omitempty"`
	AcknowledgedBy string    `json:"acknowledged_by,omitempty"`
}

// Store persists alerts, append-only plus acknowledgement.
type Store interface {
	Append(ctx context.Context, a *Alert) error
	Recent(ctx context.Context, limit int) ([]*Alert, error)
	Latest(ctx context.Context) (*Alert, error)
	Acknowledge(ctx context.Context, id, by string) error
}

// Publisher pushes an alert to realtime subscribers.
type Publisher interface {
	PublishAlert(a *Alert)
}

// Sink is the single entry point for raising alerts.
type Sink struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
	onRaise   func(severity string)
}

// NewSink creates an alert sink. publisher may be nil when no realtime
// surface is running.
func NewSink(store Store, publisher Publisher, logger *slog.Logger) *Sink {
	return &Sink{store: store, publisher: publisher, logger: logger}
}

// OnRaise registers a callback invoked for each raised alert, used to
// bump metrics counters.
func (s *Sink) OnRaise(fn func(severity string)) {
	s.onRaise = fn
}

// Raise persists and fans out an alert. A storage failure is logged but
// not returned: an alert pipeline blip must not fail the operation that
// triggered it.
func (s *Sink) Raise(ctx context.Context, walletAddress, alertType, severity, message string, riskScore float64) *Alert {
	a := &Alert{
		ID:            idgen.WithPrefix("alrt_"),
		WalletAddress: walletAddress,
		Type:          alertType,
		Severity:      severity,
		Message:       message,
		RiskScore:     riskScore,
		DetectedAt:    time.Now(),
	}

	if err := s.store.Append(ctx, a); err != nil {
		s.logger.Error("failed to persist alert",
			"wallet", walletAddress, "type", alertType, "error", err)
	}
	if s.publisher != nil {
		s.publisher.PublishAlert(a)
	}
	if s.onRaise != nil {
		s.onRaise(severity)
	}

	s.logger.Warn("security alert raised",
		"wallet", walletAddress,
		"type", alertType,
		"severity", severity,
		"score", riskScore,
	)
	return a
}
