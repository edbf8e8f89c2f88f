// Package risk turns transaction evidence into a scored assessment.
//
// The engine fetches history, runs the heuristic detectors and the ML
// scorer, and aggregates everything into a single 0-99 score with a
// discrete level. Assessments are append-only history linked to a wallet.
package risk

import (
	"context"
	"errors"
	"time"

	"github.com/mbd888/walletguard/internal/detect"
)

var ErrNoAssessment = errors.New("no assessment recorded")

// Level is the discrete risk classification.
type Level string

const (
	LevelLow      Level = "LOW"
	LevelMedium   Level = "MEDIUM"
	LevelHigh     Level = "HIGH"
	LevelCritical Level = "CRITICAL"
)

// Score thresholds for the level bands.
const (
	ThresholdCritical = 90.0
	ThresholdHigh     = 70.0
	ThresholdMedium   = 50.0
)

// LevelForScore maps a score onto its level band.
func LevelForScore(score float64) Level {
	switch {
	case score >= ThresholdCritical:
		return LevelCritical
	case score >= ThresholdHigh:
		return LevelHigh
	case score >= ThresholdMedium:
		return LevelMedium
	default:
		return LevelLow
	}
}

// MLContribution records how the model influenced (or didn't influence)
// an assessment.
type MLContribution struct {
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Available  bool    `json:"available"`
	Applied    bool    `json:"applied"`
}

// Breakdown is the per-category evidence behind an assessment.
type Breakdown struct {
	MoneyLaundering detect.Result  `json:"money_laundering"`
	WashTrading     detect.Result  `json:"wash_trading"`
	Scam            detect.Result  `json:"scam"`
	ML              MLContribution `json:"ml"`
}

// Assessment is one completed risk analysis. Historical records are never
// mutated.
type Assessment struct {
	ID             string    `json:"id"`
	WalletAddress  string    `json:"wallet_address"`
	TotalScore     float64   `json:"total_score"`
	Level          Level     `json:"risk_level"`
	Breakdown      Breakdown `json:"breakdown"`
	DetectionCount int       `json:"detection_count"`
	ModelTag       string    `json:"model"`
	Cached         bool      `json:"cached,omitempty"`
	AssessedAt     time.Time `json:"assessed_at"`
}

// Store persists assessment history.
type Store interface {
	Append(ctx context.Context, a *Assessment) error
	LatestFor(ctx context.Context, address string) (*Assessment, error)
	HistoryFor(ctx context.Context, address string, limit int) ([]*Assessment, error)
}
