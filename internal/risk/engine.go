package risk

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mbd888/walletguard/internal/blacklist"
	"github.com/mbd888/walletguard/internal/chain"
	"github.com/mbd888/walletguard/internal/detect"
	"github.com/mbd888/walletguard/internal/features"
	"github.com/mbd888/walletguard/internal/idgen"
	"github.com/mbd888/walletguard/internal/metrics"
	"github.com/mbd888/walletguard/internal/scorer"
	"github.com/mbd888/walletguard/internal/traces"
	"github.com/mbd888/walletguard/internal/validation"
	"github.com/mbd888/walletguard/internal/wallet"
)

// baseModelTag names the heuristic ensemble; the scorer's tag is appended
// when its prediction actually entered the blend.
const baseModelTag = "Multi-Agent-v1.0"

// Engine orchestrates one full risk analysis.
type Engine struct {
	source      chain.Source
	detectors   *detect.Set
	model       scorer.Scorer
	checker     *blacklist.Checker
	aggregator  *Aggregator
	assessments Store
	wallets     wallet.Store
	logger      *slog.Logger
	fetchLimit  int
}

// NewEngine wires the analysis pipeline.
func NewEngine(
	source chain.Source,
	detectors *detect.Set,
	model scorer.Scorer,
	checker *blacklist.Checker,
	aggregator *Aggregator,
	assessments Store,
	wallets wallet.Store,
	logger *slog.Logger,
	fetchLimit int,
) *Engine {
	if fetchLimit <= 0 {
		fetchLimit = 100
	}
	return &Engine{
		source:      source,
		detectors:   detectors,
		model:       model,
		checker:     checker,
		aggregator:  aggregator,
		assessments: assessments,
		wallets:     wallets,
		logger:      logger,
		fetchLimit:  fetchLimit,
	}
}

// Analyze fetches history for the address and runs the full pipeline. A
// transaction-source failure or an empty history never fails the caller:
// the last persisted score is served if one exists, otherwise the wallet
// is reported as unscored.
func (e *Engine) Analyze(ctx context.Context, address string) (*Assessment, error) {
	addr := validation.SanitizeAddress(address)

	ctx, span := traces.StartSpan(ctx, "risk.analyze", traces.WalletAddr(addr))
	defer span.End()

	// Blacklisted addresses are answered without a history fetch.
	if hit, _ := e.checker.Check(ctx, addr); hit {
		return e.AnalyzeTransactions(ctx, addr, nil, 0)
	}

	txs, err := e.source.Transactions(ctx, addr, e.fetchLimit)
	if err != nil {
		e.logger.Warn("transaction fetch failed, trying cached score",
			"address", addr, "error", err)
		return e.cachedAssessment(ctx, addr), nil
	}

	// An empty page is the provider's no-data failure mode, not evidence
	// of a clean wallet. Serve the last known score instead of scoring the
	// wallet down to zero.
	if len(txs) == 0 {
		return e.cachedAssessment(ctx, addr), nil
	}

	return e.AnalyzeTransactions(ctx, addr, txs, 0)
}

// AnalyzeTransactions runs the pipeline over an already-fetched history.
// ageDays <= 0 derives wallet age from the earliest transaction.
func (e *Engine) AnalyzeTransactions(ctx context.Context, address string, txs []chain.Transaction, ageDays int) (*Assessment, error) {
	addr := validation.SanitizeAddress(address)
	if ageDays <= 0 {
		ageDays = e.detectors.WalletAgeDays(txs, time.Now())
	}

	blacklisted, _ := e.checker.Check(ctx, addr)

	ml := e.detectors.MoneyLaundering(txs, addr)
	wt := e.detectors.WashTrading(txs, addr)
	scam := e.detectors.Scam(txs, addr, ageDays, blacklisted)

	vector := features.Extract(addr, txs)
	pred := e.model.Predict(vector)

	total, level, count, contrib := e.aggregator.Aggregate(ml, wt, scam, pred)

	metrics.AnalysesTotal.WithLabelValues(string(level)).Inc()
	metrics.RiskScores.Observe(total)
	for category, r := range map[string]detect.Result{
		"money_laundering": ml, "wash_trading": wt, "scam": scam,
	} {
		if r.Detected {
			metrics.DetectionsTotal.WithLabelValues(category).Inc()
		}
	}

	traces.AddAttrs(ctx, traces.RiskScore(total), traces.RiskLevel(string(level)))

	a := &Assessment{
		ID:            idgen.WithPrefix("risk_"),
		WalletAddress: addr,
		TotalScore:    total,
		Level:         level,
		Breakdown: Breakdown{
			MoneyLaundering: ml,
			WashTrading:     wt,
			Scam:            scam,
			ML:              contrib,
		},
		DetectionCount: count,
		ModelTag:       modelTag(contrib, e.model),
		AssessedAt:     time.Now(),
	}

	if err := e.persist(ctx, a); err != nil {
		e.logger.Error("failed to persist assessment", "address", addr, "error", err)
	}

	e.logger.Info("risk analysis complete",
		"address", addr,
		"score", total,
		"level", level,
		"detections", count,
	)
	return a, nil
}

// persist appends the assessment and ratchets the wallet's stored score
// and status.
func (e *Engine) persist(ctx context.Context, a *Assessment) error {
	if err := e.assessments.Append(ctx, a); err != nil {
		return fmt.Errorf("append assessment: %w", err)
	}

	w, err := e.wallets.GetOrCreate(ctx, a.WalletAddress)
	if err != nil {
		return fmt.Errorf("load wallet: %w", err)
	}
	w.ApplyScore(a.TotalScore)
	w.RiskCategory = dominantCategory(a.Breakdown)
	w.LastActivityAt = time.Now()
	if err := e.wallets.Save(ctx, w); err != nil {
		return fmt.Errorf("save wallet: %w", err)
	}
	return nil
}

// cachedAssessment serves the last known score when fresh history is
// unreachable.
func (e *Engine) cachedAssessment(ctx context.Context, addr string) *Assessment {
	if prior, err := e.assessments.LatestFor(ctx, addr); err == nil {
		cp := *prior
		cp.Cached = true
		return &cp
	}

	// Unknown wallet with unreachable history is reported unscored, not
	// failed.
	var score float64
	if w, err := e.wallets.Get(ctx, addr); err == nil {
		score = w.RiskScore
	}
	return &Assessment{
		ID:            idgen.WithPrefix("risk_"),
		WalletAddress: addr,
		TotalScore:    score,
		Level:         LevelForScore(score),
		ModelTag:      baseModelTag,
		Cached:        true,
		AssessedAt:    time.Now(),
	}
}

func modelTag(contrib MLContribution, model scorer.Scorer) string {
	if contrib.Applied {
		return baseModelTag + "+" + model.Tag()
	}
	return baseModelTag
}

func dominantCategory(b Breakdown) string {
	switch {
	case b.MoneyLaundering.Detected:
		return "money_laundering"
	case b.Scam.Detected:
		return "scam"
	case b.WashTrading.Detected:
		return "manipulation"
	default:
		return ""
	}
}
