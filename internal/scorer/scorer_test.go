package scorer

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/walletguard/internal/features"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeArtifact(t *testing.T, art artifact) string {
	t.Helper()
	data, err := json.Marshal(art)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func validArtifact() artifact {
	n := len(features.FieldNames)
	art := artifact{
		SchemaVersion: features.SchemaVersion,
		ModelTag:      "fraud-lr-v1",
		Means:         make([]float64, n),
		Stddevs:       make([]float64, n),
		Weights:       make([]float64, n),
	}
	for i := range art.Stddevs {
		art.Stddevs[i] = 1
	}
	return art
}

func TestLoad_MissingFileDegrades(t *testing.T) {
	s := Load("/nonexistent/model.json", discard())
	pred := s.Predict(&features.Vector{})
	assert.False(t, pred.Available)
	assert.Equal(t, "none", s.Tag())
}

func TestLoad_EmptyPathDegrades(t *testing.T) {
	s := Load("", discard())
	assert.False(t, s.Predict(&features.Vector{}).Available)
}

func TestLoad_SchemaMismatchDegrades(t *testing.T) {
	art := validArtifact()
	art.SchemaVersion = features.SchemaVersion + 1
	s := Load(writeArtifact(t, art), discard())
	assert.False(t, s.Predict(&features.Vector{}).Available)
}

func TestLoad_WrongFeatureCountDegrades(t *testing.T) {
	art := validArtifact()
	art.Weights = art.Weights[:3]
	s := Load(writeArtifact(t, art), discard())
	assert.False(t, s.Predict(&features.Vector{}).Available)
}

func TestLinearModel_Predict(t *testing.T) {
	art := validArtifact()
	// All-zero weights and bias 0: p = 0.5, score 50, zero confidence.
	s := Load(writeArtifact(t, art), discard())
	assert.Equal(t, "fraud-lr-v1", s.Tag())

	pred := s.Predict(&features.Vector{})
	assert.True(t, pred.Available)
	assert.InDelta(t, 50.0, pred.Score, 1e-9)
	assert.InDelta(t, 0.0, pred.Confidence, 1e-9)
}

func TestLinearModel_PositiveBiasRaisesScore(t *testing.T) {
	art := validArtifact()
	art.Bias = 3.0
	s := Load(writeArtifact(t, art), discard())

	pred := s.Predict(&features.Vector{})
	assert.True(t, pred.Available)
	assert.Greater(t, pred.Score, 90.0)
	assert.Greater(t, pred.Confidence, 0.8)
	assert.LessOrEqual(t, pred.Score, 100.0)
}

func TestLinearModel_FeatureWeightApplied(t *testing.T) {
	art := validArtifact()
	art.Weights[0] = 2.0 // sent_count

	s := Load(writeArtifact(t, art), discard())
	low := s.Predict(&features.Vector{SentCount: 0})
	high := s.Predict(&features.Vector{SentCount: 5})
	assert.Greater(t, high.Score, low.Score)
}
