package detect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mbd888/walletguard/internal/chain"
)

const target = "0xaaaa000000000000000000000000000000000001"

func mkTx(from, to string, value float64, at time.Time) chain.Transaction {
	return chain.Transaction{From: from, To: to, Value: value, Timestamp: at, Category: chain.CategoryNative}
}

func TestMoneyLaundering_Structuring(t *testing.T) {
	set := NewSet(DefaultConfig())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Five near-identical outgoing amounts inside one hour.
	var txs []chain.Transaction
	for i := 0; i < 5; i++ {
		txs = append(txs, mkTx(target, "0xb1", 1.0+float64(i)*0.01, base.Add(time.Duration(i)*5*time.Minute)))
	}

	r := set.MoneyLaundering(txs, target)
	assert.True(t, r.Detected)
	assert.Equal(t, ConfidenceStructuring, r.Confidence)
	assert.Contains(t, r.Reasons[0], "Structuring")
}

func TestMoneyLaundering_StructuringSpreadAcrossHours(t *testing.T) {
	set := NewSet(DefaultConfig())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Same amounts spread one per hour: no single bucket fills.
	var txs []chain.Transaction
	for i := 0; i < 5; i++ {
		txs = append(txs, mkTx(target, "0xb1", 1.0, base.Add(time.Duration(i)*time.Hour)))
	}

	r := set.MoneyLaundering(txs, target)
	assert.False(t, r.Detected)
}

func TestMoneyLaundering_VariedAmountsNotStructuring(t *testing.T) {
	set := NewSet(DefaultConfig())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	values := []float64{0.1, 1.0, 5.0, 12.0, 40.0}
	var txs []chain.Transaction
	for i, v := range values {
		txs = append(txs, mkTx(target, "0xb1", v, base.Add(time.Duration(i)*time.Minute)))
	}

	r := set.MoneyLaundering(txs, target)
	assert.False(t, r.Detected)
}

func TestMoneyLaundering_Mixer(t *testing.T) {
	set := NewSet(DefaultConfig())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	txs := []chain.Transaction{
		mkTx(target, "0x722122DF12D4E14E13AC3B6895A86E84145B6967", 1.0, base),
	}

	r := set.MoneyLaundering(txs, target)
	assert.True(t, r.Detected)
	assert.Equal(t, ConfidenceMixer, r.Confidence)
	assert.Contains(t, r.Reasons[0], "Mixer")
}

func TestMoneyLaundering_IncomingFromMixerIgnored(t *testing.T) {
	set := NewSet(DefaultConfig())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Only outgoing transfers count for mixer detection.
	txs := []chain.Transaction{
		mkTx("0x722122df12d4e14e13ac3b6895a86e84145b6967", target, 1.0, base),
	}

	r := set.MoneyLaundering(txs, target)
	assert.False(t, r.Detected)
}

func TestWashTrading_Cycle(t *testing.T) {
	set := NewSet(DefaultConfig())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	txs := []chain.Transaction{
		mkTx(target, "0xb1", 1.0, base),
		mkTx("0xb1", target, 1.0, base.Add(30*time.Minute)),
	}

	r := set.WashTrading(txs, target)
	assert.True(t, r.Detected)
	assert.Equal(t, ConfidenceCycle, r.Confidence)
}

func TestWashTrading_ReciprocalTooFarApart(t *testing.T) {
	set := NewSet(DefaultConfig())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	txs := []chain.Transaction{
		mkTx(target, "0xb1", 1.0, base),
		mkTx("0xb1", target, 1.0, base.Add(2*time.Hour)),
	}

	r := set.WashTrading(txs, target)
	assert.False(t, r.Detected)
}

func TestWashTrading_HighFrequency(t *testing.T) {
	set := NewSet(DefaultConfig())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// 60 transactions in 30 minutes: 120/hour.
	var txs []chain.Transaction
	for i := 0; i < 60; i++ {
		txs = append(txs, mkTx("0xc1", target, 1.0, base.Add(time.Duration(i)*30*time.Second)))
	}

	r := set.WashTrading(txs, target)
	assert.True(t, r.Detected)
	assert.Equal(t, ConfidenceHighFreq, r.Confidence)
}

func TestWashTrading_TinySpanIsMaximalFrequency(t *testing.T) {
	set := NewSet(DefaultConfig())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// 50 transactions within 2 minutes, span under 0.1h.
	var txs []chain.Transaction
	for i := 0; i < 50; i++ {
		txs = append(txs, mkTx("0xc1", target, 1.0, base.Add(time.Duration(i)*2*time.Second)))
	}

	r := set.WashTrading(txs, target)
	assert.True(t, r.Detected)
}

func TestWashTrading_FewTransactionsNeverHighFrequency(t *testing.T) {
	set := NewSet(DefaultConfig())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var txs []chain.Transaction
	for i := 0; i < 49; i++ {
		txs = append(txs, mkTx("0xc1", target, 1.0, base.Add(time.Duration(i)*time.Second)))
	}

	r := set.WashTrading(txs, target)
	assert.False(t, r.Detected)
}

func TestScam_Honeypot(t *testing.T) {
	set := NewSet(DefaultConfig())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	txs := []chain.Transaction{
		mkTx("0xc1", target, 11.0, base),
	}

	r := set.Scam(txs, target, 2, false)
	assert.True(t, r.Detected)
	assert.Equal(t, ConfidenceHoneypot, r.Confidence)
}

func TestScam_OldWalletNotHoneypot(t *testing.T) {
	set := NewSet(DefaultConfig())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	txs := []chain.Transaction{
		mkTx("0xc1", target, 1000000.0, base),
	}

	r := set.Scam(txs, target, 30, false)
	assert.False(t, r.Detected)
}

func TestScam_HoneypotWeiNormalized(t *testing.T) {
	set := NewSet(DefaultConfig())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// 11 ETH received, expressed in wei.
	txs := []chain.Transaction{
		mkTx("0xc1", target, 11e18, base),
	}

	r := set.Scam(txs, target, 1, false)
	assert.True(t, r.Detected)
}

func TestScam_Blacklist(t *testing.T) {
	set := NewSet(DefaultConfig())

	r := set.Scam(nil, target, 365, true)
	assert.True(t, r.Detected)
	assert.Equal(t, ConfidenceBlacklist, r.Confidence)
	assert.True(t, BlacklistHit(r))

	clean := set.Scam(nil, target, 365, false)
	assert.False(t, BlacklistHit(clean))
}

func TestWalletAgeDays(t *testing.T) {
	set := NewSet(DefaultConfig())
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 365, set.WalletAgeDays(nil, now))

	txs := []chain.Transaction{
		mkTx("0xc1", target, 1.0, now.Add(-5*24*time.Hour)),
		mkTx("0xc1", target, 1.0, now.Add(-2*24*time.Hour)),
	}
	assert.Equal(t, 5, set.WalletAgeDays(txs, now))

	recent := []chain.Transaction{
		mkTx("0xc1", target, 1.0, now.Add(-time.Hour)),
	}
	assert.Equal(t, 1, set.WalletAgeDays(recent, now))
}

func TestDescribe(t *testing.T) {
	out := Describe(map[string]Result{
		"money_laundering": {Detected: true, Confidence: 0.95},
		"wash_trading":     {},
	})
	assert.Equal(t, "money_laundering (95%)", out)

	assert.Equal(t, "no detections", Describe(map[string]Result{}))
}
