package risk

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/walletguard/internal/blacklist"
	"github.com/mbd888/walletguard/internal/chain"
	"github.com/mbd888/walletguard/internal/detect"
	"github.com/mbd888/walletguard/internal/scorer"
	"github.com/mbd888/walletguard/internal/wallet"
)

type fakeSource struct {
	txs   []chain.Transaction
	err   error
	calls int
}

func (f *fakeSource) Transactions(ctx context.Context, address string, limit int) ([]chain.Transaction, error) {
	f.calls++
	return f.txs, f.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(source chain.Source, bl blacklist.Store) (*Engine, wallet.Store, Store) {
	wallets := wallet.NewMemoryStore()
	assessments := NewMemoryStore()
	logger := discard()
	engine := NewEngine(
		source,
		detect.NewSet(detect.DefaultConfig()),
		scorer.Unavailable{},
		blacklist.NewChecker(bl, logger),
		NewAggregator(0.3),
		assessments,
		wallets,
		logger,
		100,
	)
	return engine, wallets, assessments
}

func TestAnalyze_CleanWallet(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{txs: []chain.Transaction{
		{Hash: "0x1", From: "0xc1", To: "0xa1", Value: 1.0, Timestamp: base, Category: chain.CategoryNative},
	}}
	engine, wallets, _ := newTestEngine(source, blacklist.NewMemoryStore())

	a, err := engine.Analyze(ctx, "0xA1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, a.TotalScore)
	assert.Equal(t, LevelLow, a.Level)
	assert.Equal(t, "Multi-Agent-v1.0", a.ModelTag)
	assert.False(t, a.Cached)

	// Wallet is lazily created with the score applied.
	w, err := wallets.Get(ctx, "0xa1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, w.RiskScore)
	assert.Equal(t, wallet.StatusActive, w.Status)
}

func TestAnalyze_MixerEscalatesWallet(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{txs: []chain.Transaction{
		{Hash: "0x1", From: "0xa1", To: "0x722122df12d4e14e13ac3b6895a86e84145b6967",
			Value: 1.0, Timestamp: base, Category: chain.CategoryNative},
	}}
	engine, wallets, assessments := newTestEngine(source, blacklist.NewMemoryStore())

	a, err := engine.Analyze(ctx, "0xa1")
	require.NoError(t, err)
	assert.Equal(t, 90.0, a.TotalScore)
	assert.Equal(t, LevelCritical, a.Level)
	assert.True(t, a.Breakdown.MoneyLaundering.Detected)

	w, err := wallets.Get(ctx, "0xa1")
	require.NoError(t, err)
	assert.Equal(t, wallet.StatusFrozen, w.Status)
	assert.Equal(t, "money_laundering", w.RiskCategory)

	stored, err := assessments.LatestFor(ctx, "0xa1")
	require.NoError(t, err)
	assert.Equal(t, a.ID, stored.ID)
}

func TestAnalyze_BlacklistedAddress(t *testing.T) {
	ctx := context.Background()
	bl := blacklist.NewMemoryStore()
	require.NoError(t, bl.Add(ctx, &blacklist.Entry{Address: "0xa1", Reason: "scam"}))

	engine, _, _ := newTestEngine(&fakeSource{}, bl)

	a, err := engine.Analyze(ctx, "0xa1")
	require.NoError(t, err)
	assert.Equal(t, 99.0, a.TotalScore)
	assert.Equal(t, LevelCritical, a.Level)
	assert.True(t, a.Breakdown.Scam.Detected)
	assert.Equal(t, 1.0, a.Breakdown.Scam.Confidence)
}

func TestAnalyze_FetchFailureFallsBackToCache(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{txs: []chain.Transaction{
		{Hash: "0x1", From: "0xa1", To: "0x722122df12d4e14e13ac3b6895a86e84145b6967",
			Value: 1.0, Timestamp: time.Now(), Category: chain.CategoryNative},
	}}
	engine, _, _ := newTestEngine(source, blacklist.NewMemoryStore())

	first, err := engine.Analyze(ctx, "0xa1")
	require.NoError(t, err)

	source.err = errors.New("rpc unreachable")
	source.txs = nil

	cached, err := engine.Analyze(ctx, "0xa1")
	require.NoError(t, err)
	assert.True(t, cached.Cached)
	assert.Equal(t, first.TotalScore, cached.TotalScore)
}

func TestAnalyze_FetchFailureUnknownAddressUnscored(t *testing.T) {
	engine, _, _ := newTestEngine(&fakeSource{err: errors.New("rpc unreachable")}, blacklist.NewMemoryStore())

	a, err := engine.Analyze(context.Background(), "0xnever_seen")
	require.NoError(t, err)
	assert.True(t, a.Cached)
	assert.Equal(t, 0.0, a.TotalScore)
	assert.Equal(t, LevelLow, a.Level)
}

func TestAnalyze_EmptyHistoryServesCachedScore(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{}
	engine, wallets, _ := newTestEngine(source, blacklist.NewMemoryStore())

	w, err := wallets.GetOrCreate(ctx, "0xa1")
	require.NoError(t, err)
	w.RiskScore = 60
	w.Status = wallet.StatusUnderReview
	require.NoError(t, wallets.Save(ctx, w))

	// An empty page must not overwrite the known score with a fresh zero.
	a, err := engine.Analyze(ctx, "0xa1")
	require.NoError(t, err)
	assert.True(t, a.Cached)
	assert.Equal(t, 60.0, a.TotalScore)
	assert.Equal(t, LevelMedium, a.Level)

	w, err = wallets.Get(ctx, "0xa1")
	require.NoError(t, err)
	assert.Equal(t, 60.0, w.RiskScore)
	assert.Equal(t, wallet.StatusUnderReview, w.Status)
}

func TestAnalyze_EmptyHistoryUnknownAddressUnscored(t *testing.T) {
	engine, _, _ := newTestEngine(&fakeSource{}, blacklist.NewMemoryStore())

	a, err := engine.Analyze(context.Background(), "0xnever_seen")
	require.NoError(t, err)
	assert.True(t, a.Cached)
	assert.Equal(t, 0.0, a.TotalScore)
	assert.Equal(t, LevelLow, a.Level)
}

func TestAnalyze_BlacklistedSkipsFetch(t *testing.T) {
	ctx := context.Background()
	bl := blacklist.NewMemoryStore()
	require.NoError(t, bl.Add(ctx, &blacklist.Entry{Address: "0xa1", Reason: "scam"}))

	source := &fakeSource{err: errors.New("provider down")}
	engine, _, _ := newTestEngine(source, bl)

	a, err := engine.Analyze(ctx, "0xa1")
	require.NoError(t, err)
	assert.Equal(t, 99.0, a.TotalScore)
	assert.Equal(t, LevelCritical, a.Level)
	assert.Equal(t, 0, source.calls)
}

func TestAnalyze_RatchetHoldsOnReanalysis(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mixerTx := []chain.Transaction{
		{Hash: "0x1", From: "0xa1", To: "0x722122df12d4e14e13ac3b6895a86e84145b6967",
			Value: 1.0, Timestamp: base, Category: chain.CategoryNative},
	}
	source := &fakeSource{txs: mixerTx}
	engine, wallets, _ := newTestEngine(source, blacklist.NewMemoryStore())

	_, err := engine.Analyze(ctx, "0xa1")
	require.NoError(t, err)

	// History now looks clean; the frozen status must hold.
	source.txs = []chain.Transaction{
		{Hash: "0x2", From: "0xc1", To: "0xa1", Value: 0.1, Timestamp: base, Category: chain.CategoryNative},
	}
	a, err := engine.Analyze(ctx, "0xa1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, a.TotalScore)

	w, err := wallets.Get(ctx, "0xa1")
	require.NoError(t, err)
	assert.Equal(t, wallet.StatusFrozen, w.Status)
}
