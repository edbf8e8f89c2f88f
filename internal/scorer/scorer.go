// Package scorer wraps the trained fraud model behind a non-failing
// interface.
//
// The model is produced offline and shipped as a JSON artifact holding a
// feature standardizer and logistic-regression weights. If the artifact is
// missing or malformed the scorer loads as unavailable and analysis falls
// back to pure heuristics; a broken model file must never take the service
// down.
package scorer

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/mbd888/walletguard/internal/features"
)

// Prediction is the model's verdict for one feature vector.
type Prediction struct {
	Score      float64 `json:"score"`      // 0-100
	Confidence float64 `json:"confidence"` // 0-1
	Available  bool    `json:"available"`
}

// Scorer produces fraud predictions. Implementations never return errors;
// unavailability is signalled through Prediction.Available.
type Scorer interface {
	Predict(v *features.Vector) Prediction
	Tag() string
}

// Unavailable is a scorer with no backing model.
type Unavailable struct{}

func (Unavailable) Predict(*features.Vector) Prediction { return Prediction{} }
func (Unavailable) Tag() string                         { return "none" }

// artifact is the on-disk model format.
type artifact struct {
	SchemaVersion int       `json:"schema_version"`
	ModelTag      string    `json:"model_tag"`
	Means         []float64 `json:"means"`
	Stddevs       []float64 `json:"stddevs"`
	Weights       []float64 `json:"weights"`
	Bias          float64   `json:"bias"`
}

// LinearModel scores a standardized feature vector with logistic
// regression weights.
type LinearModel struct {
	art artifact
}

var _ Scorer = (*LinearModel)(nil)

// Load reads a model artifact from path. Any failure degrades: the error
// is logged and an Unavailable scorer is returned.
func Load(path string, logger *slog.Logger) Scorer {
	if path == "" {
		logger.Info("no model path configured, running heuristics-only")
		return Unavailable{}
	}

	model, err := load(path)
	if err != nil {
		logger.Warn("model artifact unusable, running heuristics-only",
			"path", path, "error", err)
		return Unavailable{}
	}

	logger.Info("fraud model loaded", "path", path, "tag", model.art.ModelTag)
	return model
}

func load(path string) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	var art artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("parse artifact: %w", err)
	}

	if art.SchemaVersion != features.SchemaVersion {
		return nil, fmt.Errorf("artifact schema v%d does not match feature schema v%d",
			art.SchemaVersion, features.SchemaVersion)
	}
	n := len(features.FieldNames)
	if len(art.Means) != n || len(art.Stddevs) != n || len(art.Weights) != n {
		return nil, fmt.Errorf("artifact expects %d/%d/%d features, schema has %d",
			len(art.Means), len(art.Stddevs), len(art.Weights), n)
	}

	return &LinearModel{art: art}, nil
}

// Predict standardizes the vector and applies the logistic weights.
// Confidence is the calibrated distance from the decision boundary.
func (m *LinearModel) Predict(v *features.Vector) Prediction {
	values := v.Values()

	z := m.art.Bias
	for i, x := range values {
		sd := m.art.Stddevs[i]
		if sd == 0 {
			sd = 1
		}
		z += m.art.Weights[i] * ((x - m.art.Means[i]) / sd)
	}

	p := 1.0 / (1.0 + math.Exp(-z))
	return Prediction{
		Score:      p * 100,
		Confidence: 2 * math.Abs(p-0.5),
		Available:  true,
	}
}

func (m *LinearModel) Tag() string {
	return m.art.ModelTag
}
