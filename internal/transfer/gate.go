package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mbd888/walletguard/internal/alert"
	"github.com/mbd888/walletguard/internal/blacklist"
	"github.com/mbd888/walletguard/internal/idgen"
	"github.com/mbd888/walletguard/internal/ledger"
	"github.com/mbd888/walletguard/internal/metrics"
	"github.com/mbd888/walletguard/internal/risk"
	"github.com/mbd888/walletguard/internal/syncutil"
	"github.com/mbd888/walletguard/internal/traces"
	"github.com/mbd888/walletguard/internal/validation"
	"github.com/mbd888/walletguard/internal/wallet"
)

// Risk bands for receiver risk as seen by the gate.
const (
	blockThreshold = 80.0
	warnThreshold  = 50.0
)

// Analyzer produces a fresh risk assessment when no persisted score
// exists for a receiver.
type Analyzer interface {
	Analyze(ctx context.Context, address string) (*risk.Assessment, error)
}

// BlockEvents streams blocked transfers to realtime subscribers.
type BlockEvents interface {
	PublishBlockedTransfer(data map[string]interface{})
}

// Gate is the transfer decision engine.
type Gate struct {
	wallets  wallet.Store
	warnings WarningStore
	blocked  BlockedStore
	ledger   ledger.Store
	checker  *blacklist.Checker
	analyzer Analyzer
	alerts   *alert.Sink
	events   BlockEvents
	locks    *syncutil.ShardedMutex
	logger   *slog.Logger
}

// NewGate wires the transfer gate.
func NewGate(
	wallets wallet.Store,
	warnings WarningStore,
	blocked BlockedStore,
	led ledger.Store,
	checker *blacklist.Checker,
	analyzer Analyzer,
	alerts *alert.Sink,
	logger *slog.Logger,
) *Gate {
	return &Gate{
		wallets:  wallets,
		warnings: warnings,
		blocked:  blocked,
		ledger:   led,
		checker:  checker,
		analyzer: analyzer,
		alerts:   alerts,
		locks:    syncutil.NewShardedMutex(),
		logger:   logger,
	}
}

// WithEvents attaches a realtime publisher for blocked transfers.
func (g *Gate) WithEvents(events BlockEvents) *Gate {
	g.events = events
	return g
}

// Process runs the full decision procedure for one transfer. The
// warning-append, status-flip, balance-check sequence is serialized per
// sender so two concurrent transfers cannot race past the strike limit or
// double-spend.
func (g *Gate) Process(ctx context.Context, req Request) (*Decision, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	ctx, span := traces.StartSpan(ctx, "transfer.process",
		traces.WalletAddr(req.Sender), traces.TransferAmount(req.Amount))
	defer span.End()

	unlock := g.locks.Lock(req.Sender)
	defer unlock()

	sender, err := g.wallets.GetOrCreate(ctx, req.Sender)
	if err != nil {
		return nil, fmt.Errorf("load sender: %w", err)
	}

	// Step 1: a suspended sender is rejected before anything else.
	if sender.Status == wallet.StatusSuspended {
		return g.deny(ctx, &Decision{
			Outcome:     OutcomeBlocked,
			BlockReason: ReasonSenderSuspended,
			Message:     "account suspended after repeated risk warnings",
		}), nil
	}

	// Step 2: receiver risk, by precedence.
	receiverRisk, riskStatus := g.receiverRisk(ctx, req.Receiver)

	// Step 3: hard block. The audit record carries the sender's current
	// strike count.
	if blockReason := g.hardBlockReason(ctx, req.Receiver, receiverRisk, riskStatus); blockReason != "" {
		count, _ := g.warnings.Count(ctx, req.Sender)
		g.recordBlock(ctx, &req, receiverRisk, blockReason, count)
		return g.deny(ctx, &Decision{
			Outcome:     OutcomeBlocked,
			RiskScore:   receiverRisk,
			RiskStatus:  riskStatus,
			BlockReason: blockReason,
			Message:     fmt.Sprintf("transfer blocked: receiver risk %.0f (%s)", receiverRisk, blockReason),
		}), nil
	}

	// Steps 4-5: the warning band.
	if receiverRisk >= warnThreshold {
		count, err := g.warnings.Count(ctx, req.Sender)
		if err != nil {
			return nil, fmt.Errorf("count warnings: %w", err)
		}

		if !req.Confirmed {
			// Step 4: warn without mutating anything.
			d := &Decision{
				Outcome:           OutcomeWarn,
				RiskScore:         receiverRisk,
				RiskStatus:        riskStatus,
				WarningsRemaining: MaxWarnings - count,
				Message:           fmt.Sprintf("receiver risk %.0f; confirm to proceed (%d warnings remaining)", receiverRisk, MaxWarnings-count),
			}
			traces.AddAttrs(ctx, traces.TransferOutcome(string(OutcomeWarn)), traces.RiskScore(receiverRisk))
			metrics.TransferDecisionsTotal.WithLabelValues(string(OutcomeWarn), "risky_receiver").Inc()
			return d, nil
		}

		// Step 5: confirmed risky transfer records a strike. If a later
		// write in the sequence fails, the strike is removed again so a
		// retried transfer is not double-counted.
		number := count + 1
		w := &Warning{
			ID:            idgen.WithPrefix("warn_"),
			WalletAddress: req.Sender,
			TargetAddress: req.Receiver,
			Type:          "ignored_risk",
			RiskScore:     receiverRisk,
			Number:        number,
			CreatedAt:     time.Now(),
		}
		if err := g.warnings.Append(ctx, w); err != nil {
			return nil, fmt.Errorf("append warning: %w", err)
		}

		if number >= MaxWarnings {
			return g.suspendSender(ctx, sender, &req, receiverRisk, number, w.ID)
		}

		d, err := g.execute(ctx, sender, &req, receiverRisk)
		if err != nil {
			g.removeWarning(ctx, w.ID)
			return nil, err
		}
		return d, nil
	}

	// Step 6: execution.
	return g.execute(ctx, sender, &req, receiverRisk)
}

// receiverRisk resolves the receiver's risk by precedence: blacklist,
// persisted score, fresh analysis.
func (g *Gate) receiverRisk(ctx context.Context, receiver string) (float64, string) {
	if hit, _ := g.checker.Check(ctx, receiver); hit {
		return 100, "blacklisted"
	}

	if w, err := g.wallets.Get(ctx, receiver); err == nil && w.RiskScore > 0 {
		return w.RiskScore, string(w.Status)
	}

	a, err := g.analyzer.Analyze(ctx, receiver)
	if err != nil {
		g.logger.Warn("receiver analysis failed, treating as unscored",
			"receiver", receiver, "error", err)
		return 0, string(wallet.StatusActive)
	}
	return a.TotalScore, string(wallet.StatusActive)
}

func (g *Gate) hardBlockReason(ctx context.Context, receiver string, receiverRisk float64, riskStatus string) string {
	if riskStatus == "blacklisted" {
		return ReasonBlacklisted
	}
	if w, err := g.wallets.Get(ctx, receiver); err == nil {
		switch w.Status {
		case wallet.StatusFrozen:
			return ReasonReceiverFrozen
		case wallet.StatusSuspended:
			return ReasonReceiverSuspended
		}
	}
	if receiverRisk >= blockThreshold {
		return ReasonHighRisk
	}
	return ""
}

// suspendSender flips the sender to suspended on the final strike. If the
// status flip cannot be persisted, the strike that triggered it is removed
// so the count and the status stay consistent.
func (g *Gate) suspendSender(ctx context.Context, sender *wallet.Wallet, req *Request, receiverRisk float64, strikes int, warningID string) (*Decision, error) {
	prevStatus := sender.Status
	sender.Status = wallet.StatusSuspended
	sender.FlaggedAt = time.Now()
	sender.FlaggedBy = "transfer-gate"
	if err := g.wallets.Save(ctx, sender); err != nil {
		sender.Status = prevStatus
		g.removeWarning(ctx, warningID)
		return nil, fmt.Errorf("suspend sender: %w", err)
	}

	g.alerts.Raise(ctx, sender.Address, "ACCOUNT_SUSPENDED", alert.SeverityHigh,
		fmt.Sprintf("account suspended after %d ignored risk warnings", strikes), receiverRisk)
	g.recordBlock(ctx, req, receiverRisk, ReasonWarningsExceeded, strikes)

	return g.deny(ctx, &Decision{
		Outcome:     OutcomeBlocked,
		RiskScore:   receiverRisk,
		BlockReason: ReasonWarningsExceeded,
		Message:     "third risk warning: account suspended, transfer blocked",
	}), nil
}

// execute checks the balance and commits the transfer.
func (g *Gate) execute(ctx context.Context, sender *wallet.Wallet, req *Request, receiverRisk float64) (*Decision, error) {
	balance, err := g.ledger.Balance(ctx, req.Sender)
	if err != nil {
		return nil, fmt.Errorf("compute balance: %w", err)
	}
	if balance < req.Amount {
		count, _ := g.warnings.Count(ctx, req.Sender)
		g.recordBlock(ctx, req, receiverRisk, ReasonInsufficientFunds, count)
		return g.deny(ctx, &Decision{
			Outcome:     OutcomeBlocked,
			RiskScore:   receiverRisk,
			BlockReason: ReasonInsufficientFunds,
			Message:     fmt.Sprintf("insufficient balance: have %.4f, need %.4f", balance, req.Amount),
		}), nil
	}

	hash := idgen.TxHash()
	now := time.Now()
	if err := g.ledger.Append(ctx, &ledger.Transaction{
		Hash:      hash,
		From:      req.Sender,
		To:        req.Receiver,
		Value:     req.Amount,
		Timestamp: now,
	}); err != nil {
		return nil, fmt.Errorf("commit transfer: %w", err)
	}

	sender.TotalTransactions++
	sender.TotalValueSent += req.Amount
	sender.LastActivityAt = now
	if err := g.wallets.Save(ctx, sender); err != nil {
		sender.TotalTransactions--
		sender.TotalValueSent -= req.Amount
		if rmErr := g.ledger.Remove(ctx, hash); rmErr != nil {
			g.logger.Error("failed to unwind transfer after counter save failure",
				"tx_hash", hash, "error", rmErr)
		}
		return nil, fmt.Errorf("update sender counters: %w", err)
	}

	receiver, err := g.wallets.GetOrCreate(ctx, req.Receiver)
	if err == nil {
		receiver.TotalTransactions++
		receiver.TotalValueReceived += req.Amount
		receiver.LastActivityAt = now
		if err := g.wallets.Save(ctx, receiver); err != nil {
			g.logger.Warn("failed to update receiver counters", "receiver", req.Receiver, "error", err)
		}
	}

	traces.AddAttrs(ctx, traces.TransferOutcome(string(OutcomeApproved)), traces.RiskScore(receiverRisk))
	metrics.TransferDecisionsTotal.WithLabelValues(string(OutcomeApproved), "clean").Inc()
	g.logger.Info("transfer approved",
		"sender", req.Sender, "receiver", req.Receiver,
		"amount", req.Amount, "receiver_risk", receiverRisk)

	return &Decision{
		Outcome:   OutcomeApproved,
		RiskScore: receiverRisk,
		TxHash:    hash,
		Message:   "transfer completed",
	}, nil
}

func (g *Gate) removeWarning(ctx context.Context, id string) {
	if err := g.warnings.Remove(ctx, id); err != nil {
		g.logger.Error("failed to remove warning after write failure",
			"warning_id", id, "error", err)
	}
}

func (g *Gate) recordBlock(ctx context.Context, req *Request, riskScore float64, reason string, warningCount int) {
	if err := g.blocked.Append(ctx, &BlockedTransfer{
		ID:           idgen.New(),
		Sender:       req.Sender,
		Receiver:     req.Receiver,
		Amount:       req.Amount,
		RiskScore:    riskScore,
		Reason:       reason,
		WarningCount: warningCount,
		BlockedAt:    time.Now(),
	}); err != nil {
		g.logger.Error("failed to record blocked transfer",
			"sender", req.Sender, "reason", reason, "error", err)
	}

	if g.events != nil {
		g.events.PublishBlockedTransfer(map[string]interface{}{
			"wallet_address": req.Sender,
			"to_address":     req.Receiver,
			"amount":         req.Amount,
			"risk_score":     riskScore,
			"block_reason":   reason,
		})
	}
}

func (g *Gate) deny(ctx context.Context, d *Decision) *Decision {
	traces.AddAttrs(ctx, traces.TransferOutcome(string(d.Outcome)), traces.RiskScore(d.RiskScore))
	metrics.TransferDecisionsTotal.WithLabelValues(string(d.Outcome), d.BlockReason).Inc()
	g.logger.Warn("transfer blocked", "reason", d.BlockReason, "risk", d.RiskScore)
	return d
}

func validateRequest(req *Request) error {
	req.Sender = validation.SanitizeAddress(req.Sender)
	req.Receiver = validation.SanitizeAddress(req.Receiver)

	switch {
	case req.Sender == "":
		return fmt.Errorf("%w: sender is required", ErrInvalidInput)
	case req.Receiver == "":
		return fmt.Errorf("%w: receiver is required", ErrInvalidInput)
	case req.Amount <= 0:
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	return nil
}
