// Package detect implements the heuristic fraud detectors.
//
// Three categories of rule-based detection run over an address's raw
// transaction history: money laundering (structuring, mixer usage), wash
// trading (cycle trading, bot behavior), and scams (honeypot wallets,
// blacklist matches). Each detector is pure given its inputs; the
// blacklist verdict is supplied by the caller.
package detect

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/mbd888/walletguard/internal/chain"
	"github.com/mbd888/walletguard/internal/features"
)

// Detector confidence levels. A blacklist match is an absolute signal.
const (
	ConfidenceStructuring = 0.85
	ConfidenceMixer       = 0.95
	ConfidenceCycle       = 0.75
	ConfidenceHighFreq    = 0.80
	ConfidenceHoneypot    = 0.70
	ConfidenceBlacklist   = 1.0
)

// KnownMixers is the fixed set of Tornado Cash router addresses.
var KnownMixers = map[string]struct{}{
	"0x722122df12d4e14e13ac3b6895a86e84145b6967": {},
	"0xdd4c48c0b24039969fc16d1cdf626eab821d3384": {},
	"0xd90e2f925da726b50c4ed8d0fb90ad053324f31b": {},
	"0xd96f2b1c14db8458374d9aca76e26c3d18364307": {},
}

// Config holds the detector thresholds. These are tunables, not laws:
// no calibration data backs the defaults, they mirror operational
// experience.
type Config struct {
	StructuringMinTxs    int
	StructuringWindow    time.Duration
	StructuringMaxCV     float64
	CycleWindow          time.Duration
	HighFreqMinTxs       int
	HighFreqPerHour      float64
	HoneypotMaxAgeDays   int
	HoneypotMinReceived  float64
	DefaultWalletAgeDays int
}

// DefaultConfig returns the standard detector thresholds.
func DefaultConfig() Config {
	return Config{
		StructuringMinTxs:    5,
		StructuringWindow:    time.Hour,
		StructuringMaxCV:     0.15,
		CycleWindow:          time.Hour,
		HighFreqMinTxs:       50,
		HighFreqPerHour:      50,
		HoneypotMaxAgeDays:   3,
		HoneypotMinReceived:  10.0,
		DefaultWalletAgeDays: 365,
	}
}

// Result is one detection category's verdict.
type Result struct {
	Detected   bool     `json:"detected"`
	Confidence float64  `json:"confidence"`
	Reasons    []string `json:"reasons"`
}

func (r *Result) add(confidence float64, reason string) {
	r.Detected = true
	r.Reasons = append(r.Reasons, reason)
	if confidence > r.Confidence {
		r.Confidence = confidence
	}
}

// Set runs the detector categories with a shared config.
type Set struct {
	cfg Config
}

// NewSet creates a detector set with the given thresholds.
func NewSet(cfg Config) *Set {
	return &Set{cfg: cfg}
}

// MoneyLaundering checks outgoing transactions for structuring and mixer
// interaction.
func (s *Set) MoneyLaundering(txs []chain.Transaction, address string) Result {
	var result Result
	outgoing := outgoingOf(txs, address)
	if len(outgoing) == 0 {
		return result
	}

	if s.detectStructuring(outgoing) {
		result.add(ConfidenceStructuring, "Structuring: Multiple similar transactions in short timeframe")
	}
	if detectMixerUsage(outgoing) {
		result.add(ConfidenceMixer, "Mixer Usage: Transactions to Tornado Cash detected")
	}
	return result
}

// WashTrading checks for reciprocal cycle trading and bot-like transaction
// frequency.
func (s *Set) WashTrading(txs []chain.Transaction, address string) Result {
	var result Result
	if len(txs) == 0 {
		return result
	}

	if s.detectCycles(txs, strings.ToLower(address)) {
		result.add(ConfidenceCycle, "Cycle Trading: Reciprocal transactions detected")
	}
	if s.detectHighFrequency(txs) {
		result.add(ConfidenceHighFreq, "Bot Behavior: Extremely high transaction frequency")
	}
	return result
}

// Scam checks the honeypot pattern and a blacklist verdict supplied by the
// caller. blacklisted must reflect an authoritative lookup; the match
// carries absolute confidence.
func (s *Set) Scam(txs []chain.Transaction, address string, walletAgeDays int, blacklisted bool) Result {
	var result Result

	if s.detectHoneypot(txs, strings.ToLower(address), walletAgeDays) {
		result.add(ConfidenceHoneypot, "Honeypot: New wallet with large incoming funds")
	}
	if blacklisted {
		result.Detected = true
		result.Reasons = append(result.Reasons, "Blacklist Match: Address flagged in database")
		result.Confidence = ConfidenceBlacklist
	}
	return result
}

// BlacklistHit reports whether a scam result includes a blacklist match.
func BlacklistHit(scam Result) bool {
	for _, r := range scam.Reasons {
		if strings.Contains(r, "Blacklist") {
			return true
		}
	}
	return false
}

// WalletAgeDays derives wallet age from the earliest transaction, or the
// configured default for an empty history. Never less than one day.
func (s *Set) WalletAgeDays(txs []chain.Transaction, now time.Time) int {
	if len(txs) == 0 {
		return s.cfg.DefaultWalletAgeDays
	}
	first := txs[0].Timestamp
	for _, tx := range txs[1:] {
		if tx.Timestamp.Before(first) {
			first = tx.Timestamp
		}
	}
	days := int(now.Sub(first).Hours() / 24)
	if days < 1 {
		return 1
	}
	return days
}

// detectStructuring flags buckets of near-identical outgoing amounts.
// Transactions are grouped into fixed windows; a window with enough
// entries whose coefficient of variation is below the threshold means
// amounts were deliberately kept alike.
func (s *Set) detectStructuring(outgoing []chain.Transaction) bool {
	if len(outgoing) < s.cfg.StructuringMinTxs {
		return false
	}

	windows := make(map[int64][]float64)
	for _, tx := range outgoing {
		key := tx.Timestamp.Truncate(s.cfg.StructuringWindow).Unix()
		windows[key] = append(windows[key], tx.Value)
	}

	for _, values := range windows {
		if len(values) < s.cfg.StructuringMinTxs {
			continue
		}
		mean, stddev := meanStddev(values)
		if mean > 0 && stddev/mean < s.cfg.StructuringMaxCV {
			return true
		}
	}
	return false
}

func detectMixerUsage(outgoing []chain.Transaction) bool {
	for _, tx := range outgoing {
		if _, hit := KnownMixers[strings.ToLower(tx.To)]; hit {
			return true
		}
	}
	return false
}

// detectCycles looks for a send and a receive with the same counterparty
// within the cycle window of each other.
func (s *Set) detectCycles(txs []chain.Transaction, address string) bool {
	type timeline struct {
		sent     []time.Time
		received []time.Time
	}
	byCounterparty := make(map[string]*timeline)

	get := func(addr string) *timeline {
		t, ok := byCounterparty[addr]
		if !ok {
			t = &timeline{}
			byCounterparty[addr] = t
		}
		return t
	}

	for _, tx := range txs {
		from := strings.ToLower(tx.From)
		to := strings.ToLower(tx.To)
		switch {
		case from == address:
			get(to).sent = append(get(to).sent, tx.Timestamp)
		case to == address:
			get(from).received = append(get(from).received, tx.Timestamp)
		}
	}

	window := s.cfg.CycleWindow.Seconds()
	for _, t := range byCounterparty {
		for _, sentAt := range t.sent {
			for _, recvAt := range t.received {
				if math.Abs(sentAt.Sub(recvAt).Seconds()) < window {
					return true
				}
			}
		}
	}
	return false
}

// detectHighFrequency flags bot-like transaction rates. A span too short
// to measure counts as maximal frequency.
func (s *Set) detectHighFrequency(txs []chain.Transaction) bool {
	if len(txs) < s.cfg.HighFreqMinTxs {
		return false
	}

	times := make([]time.Time, len(txs))
	for i, tx := range txs {
		times[i] = tx.Timestamp
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	spanHours := times[len(times)-1].Sub(times[0]).Hours()
	if spanHours < 0.1 {
		return true
	}
	return float64(len(txs))/spanHours > s.cfg.HighFreqPerHour
}

// detectHoneypot flags the disposable-wallet pattern: a wallet only days
// old that has already accumulated a large incoming balance.
func (s *Set) detectHoneypot(txs []chain.Transaction, address string, walletAgeDays int) bool {
	if walletAgeDays > s.cfg.HoneypotMaxAgeDays {
		return false
	}

	var totalReceived float64
	for _, tx := range txs {
		if strings.ToLower(tx.To) == address {
			totalReceived += tx.Value
		}
	}
	return features.NormalizeValue(totalReceived) > s.cfg.HoneypotMinReceived
}

func meanStddev(values []float64) (mean, stddev float64) {
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

func outgoingOf(txs []chain.Transaction, address string) []chain.Transaction {
	addr := strings.ToLower(address)
	var out []chain.Transaction
	for _, tx := range txs {
		if strings.ToLower(tx.From) == addr {
			out = append(out, tx)
		}
	}
	return out
}

// Describe renders a short human summary of a result set, used in alert
// messages.
func Describe(results map[string]Result) string {
	var parts []string
	for _, name := range []string{"money_laundering", "wash_trading", "scam"} {
		r, ok := results[name]
		if !ok || !r.Detected {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (%.0f%%)", name, r.Confidence*100))
	}
	if len(parts) == 0 {
		return "no detections"
	}
	return strings.Join(parts, ", ")
}
