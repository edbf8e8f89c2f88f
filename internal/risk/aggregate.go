package risk

import (
	"github.com/mbd888/walletguard/internal/detect"
	"github.com/mbd888/walletguard/internal/scorer"
)

// Category base scores.
const (
	scoreMoneyLaundering = 90.0
	scoreScam            = 85.0
	scoreWashTrading     = 70.0
	scoreBlacklist       = 99.0
	multiCategoryBonus   = 5.0
	maxScore             = 99.0
)

// mlWeight scales how much of the blend the model can claim at full
// confidence.
const mlWeight = 0.6

// Aggregator combines detector results and the ML prediction into one
// score. Deterministic: same inputs, same output.
type Aggregator struct {
	// confidenceFloor is the minimum model confidence before the blend
	// applies. An undocumented tunable inherited from operational
	// experience, not an architectural constant.
	confidenceFloor float64
}

// NewAggregator creates an aggregator with the given ML confidence floor.
func NewAggregator(confidenceFloor float64) *Aggregator {
	return &Aggregator{confidenceFloor: confidenceFloor}
}

// Aggregate applies the priority rule:
//  1. a blacklist match forces 99/CRITICAL, bypassing everything
//  2. heuristic score = max of detected category bases, +5 when two or
//     more categories fired (capped at 99)
//  3. the ML score blends in only when available and confident enough
func (g *Aggregator) Aggregate(ml, wt, scam detect.Result, pred scorer.Prediction) (float64, Level, int, MLContribution) {
	contrib := MLContribution{
		Score:      pred.Score,
		Confidence: pred.Confidence,
		Available:  pred.Available,
	}

	// The override reports no category count: the match alone is the
	// verdict.
	if detect.BlacklistHit(scam) {
		return scoreBlacklist, LevelCritical, 0, contrib
	}

	var heuristic float64
	count := 0
	if ml.Detected {
		heuristic = max(heuristic, scoreMoneyLaundering)
		count++
	}
	if wt.Detected {
		heuristic = max(heuristic, scoreWashTrading)
		count++
	}
	if scam.Detected {
		heuristic = max(heuristic, scoreScam)
		count++
	}
	if count >= 2 {
		heuristic = min(maxScore, heuristic+multiCategoryBonus)
	}

	total := heuristic
	if pred.Available && pred.Confidence > g.confidenceFloor {
		w := mlWeight * pred.Confidence
		total = pred.Score*w + heuristic*(1-w)
		contrib.Applied = true
	}

	total = min(maxScore, max(0, total))
	return total, LevelForScore(total), count, contrib
}
