// Package features derives a numeric behavior profile from an address's
// transaction history.
//
// The Vector struct is the fixed feature schema shared with the scorer: a
// model artifact declares the schema version it was trained against, and
// the loader rejects artifacts trained on a different version. Fields
// absent from a given history stay at their zero value so the scorer
// always receives a complete, aligned vector.
package features

import (
	"sort"
	"strings"
	"time"

	"github.com/mbd888/walletguard/internal/chain"
)

// SchemaVersion identifies the Vector field list. Bump when fields are
// added, removed, or reordered.
const SchemaVersion = 2

// weiThreshold is the magnitude cutoff above which a raw value is assumed
// to be denominated in base units (wei) and scaled down by 1e18.
const weiThreshold = 1000.0

const weiPerEth = 1e18

// Vector is the extracted feature set for one address. All values are
// plain floats so it maps directly onto the scorer's numeric input.
type Vector struct {
	SentCount              float64 `json:"sent_count"`
	ReceivedCount          float64 `json:"received_count"`
	TotalCount             float64 `json:"total_count"`
	CreatedContracts       float64 `json:"created_contracts"`
	UniqueSentTo           float64 `json:"unique_sent_to"`
	UniqueReceivedFrom     float64 `json:"unique_received_from"`
	MinValueSent           float64 `json:"min_value_sent"`
	MaxValueSent           float64 `json:"max_value_sent"`
	AvgValueSent           float64 `json:"avg_value_sent"`
	TotalValueSent         float64 `json:"total_value_sent"`
	MinValueReceived       float64 `json:"min_value_received"`
	MaxValueReceived       float64 `json:"max_value_received"`
	AvgValueReceived       float64 `json:"avg_value_received"`
	TotalValueReceived     float64 `json:"total_value_received"`
	NetBalance             float64 `json:"net_balance"`
	AvgMinutesBetweenSent  float64 `json:"avg_minutes_between_sent"`
	AvgMinutesBetweenRecv  float64 `json:"avg_minutes_between_recv"`
	SpanMinutes            float64 `json:"span_minutes"`
	TokenCount                 float64 `json:"token_count"`
	TokenMinValueSent          float64 `json:"token_min_value_sent"`
	TokenMaxValueSent          float64 `json:"token_max_value_sent"`
	TokenAvgValueSent          float64 `json:"token_avg_value_sent"`
	TokenTotalSent             float64 `json:"token_total_sent"`
	TokenMinValueReceived      float64 `json:"token_min_value_received"`
	TokenMaxValueReceived      float64 `json:"token_max_value_received"`
	TokenAvgValueReceived      float64 `json:"token_avg_value_received"`
	TokenTotalReceived         float64 `json:"token_total_received"`
	TokenUniqueSentTo          float64 `json:"token_unique_sent_to"`
	TokenUniqueRecvFrom        float64 `json:"token_unique_recv_from"`
	TokenAvgMinutesBetweenSent float64 `json:"token_avg_minutes_between_sent"`
	TokenAvgMinutesBetweenRecv float64 `json:"token_avg_minutes_between_recv"`
}

// FieldNames lists the schema's fields in Values() order.
var FieldNames = []string{
	"sent_count", "received_count", "total_count", "created_contracts",
	"unique_sent_to", "unique_received_from",
	"min_value_sent", "max_value_sent", "avg_value_sent", "total_value_sent",
	"min_value_received", "max_value_received", "avg_value_received", "total_value_received",
	"net_balance",
	"avg_minutes_between_sent", "avg_minutes_between_recv", "span_minutes",
	"token_count",
	"token_min_value_sent", "token_max_value_sent", "token_avg_value_sent", "token_total_sent",
	"token_min_value_received", "token_max_value_received", "token_avg_value_received", "token_total_received",
	"token_unique_sent_to", "token_unique_recv_from",
	"token_avg_minutes_between_sent", "token_avg_minutes_between_recv",
}

// Values flattens the vector into the canonical field order.
func (v *Vector) Values() []float64 {
	return []float64{
		v.SentCount, v.ReceivedCount, v.TotalCount, v.CreatedContracts,
		v.UniqueSentTo, v.UniqueReceivedFrom,
		v.MinValueSent, v.MaxValueSent, v.AvgValueSent, v.TotalValueSent,
		v.MinValueReceived, v.MaxValueReceived, v.AvgValueReceived, v.TotalValueReceived,
		v.NetBalance,
		v.AvgMinutesBetweenSent, v.AvgMinutesBetweenRecv, v.SpanMinutes,
		v.TokenCount,
		v.TokenMinValueSent, v.TokenMaxValueSent, v.TokenAvgValueSent, v.TokenTotalSent,
		v.TokenMinValueReceived, v.TokenMaxValueReceived, v.TokenAvgValueReceived, v.TokenTotalReceived,
		v.TokenUniqueSentTo, v.TokenUniqueRecvFrom,
		v.TokenAvgMinutesBetweenSent, v.TokenAvgMinutesBetweenRecv,
	}
}

// NormalizeValue scales a raw transfer value into whole asset units.
// Provider responses mix already-scaled values with base-unit ones; values
// above the magnitude threshold are assumed to be wei.
func NormalizeValue(raw float64) float64 {
	if raw > weiThreshold {
		return raw / weiPerEth
	}
	return raw
}

// Extract computes the feature vector for address over its transaction
// history. Pure function: no I/O, no side effects.
func Extract(address string, txs []chain.Transaction) *Vector {
	v := &Vector{}
	if len(txs) == 0 {
		return v
	}

	addr := strings.ToLower(address)

	var native, token []chain.Transaction
	for _, tx := range txs {
		if tx.Category == chain.CategoryNative {
			native = append(native, tx)
		} else {
			token = append(token, tx)
		}
	}

	sent, received := split(native, addr)

	v.SentCount = float64(len(sent))
	v.ReceivedCount = float64(len(received))
	v.TotalCount = float64(len(native))
	for _, tx := range sent {
		if tx.To == "" {
			v.CreatedContracts++
		}
	}

	v.UniqueSentTo = float64(uniqueCounterparties(sent, func(tx chain.Transaction) string { return tx.To }))
	v.UniqueReceivedFrom = float64(uniqueCounterparties(received, func(tx chain.Transaction) string { return tx.From }))

	v.MinValueSent, v.MaxValueSent, v.AvgValueSent, v.TotalValueSent = valueStats(sent)
	v.MinValueReceived, v.MaxValueReceived, v.AvgValueReceived, v.TotalValueReceived = valueStats(received)
	v.NetBalance = v.TotalValueReceived - v.TotalValueSent

	v.AvgMinutesBetweenSent = avgGapMinutes(sent)
	v.AvgMinutesBetweenRecv = avgGapMinutes(received)
	v.SpanMinutes = spanMinutes(native)

	if len(token) > 0 {
		tokenSent, tokenRecv := split(token, addr)
		v.TokenCount = float64(len(token))
		v.TokenMinValueSent, v.TokenMaxValueSent, v.TokenAvgValueSent, v.TokenTotalSent = valueStats(tokenSent)
		v.TokenMinValueReceived, v.TokenMaxValueReceived, v.TokenAvgValueReceived, v.TokenTotalReceived = valueStats(tokenRecv)
		v.TokenUniqueSentTo = float64(uniqueCounterparties(tokenSent, func(tx chain.Transaction) string { return tx.To }))
		v.TokenUniqueRecvFrom = float64(uniqueCounterparties(tokenRecv, func(tx chain.Transaction) string { return tx.From }))
		v.TokenAvgMinutesBetweenSent = avgGapMinutes(tokenSent)
		v.TokenAvgMinutesBetweenRecv = avgGapMinutes(tokenRecv)
	}

	return v
}

func split(txs []chain.Transaction, addr string) (sent, received []chain.Transaction) {
	for _, tx := range txs {
		switch {
		case strings.ToLower(tx.From) == addr:
			sent = append(sent, tx)
		case strings.ToLower(tx.To) == addr:
			received = append(received, tx)
		}
	}
	return sent, received
}

func uniqueCounterparties(txs []chain.Transaction, key func(chain.Transaction) string) int {
	seen := make(map[string]struct{})
	for _, tx := range txs {
		k := strings.ToLower(key(tx))
		if k != "" {
			seen[k] = struct{}{}
		}
	}
	return len(seen)
}

func valueStats(txs []chain.Transaction) (min, max, avg, total float64) {
	if len(txs) == 0 {
		return 0, 0, 0, 0
	}
	min = NormalizeValue(txs[0].Value)
	for _, tx := range txs {
		v := NormalizeValue(tx.Value)
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		total += v
	}
	avg = total / float64(len(txs))
	return min, max, avg, total
}

// avgGapMinutes is the mean gap between consecutive transactions, sorted
// by timestamp. Fewer than two transactions yields 0.
func avgGapMinutes(txs []chain.Transaction) float64 {
	if len(txs) < 2 {
		return 0
	}
	times := sortedTimes(txs)
	var totalGap time.Duration
	for i := 1; i < len(times); i++ {
		totalGap += times[i].Sub(times[i-1])
	}
	return totalGap.Minutes() / float64(len(times)-1)
}

func spanMinutes(txs []chain.Transaction) float64 {
	if len(txs) < 2 {
		return 0
	}
	times := sortedTimes(txs)
	return times[len(times)-1].Sub(times[0]).Minutes()
}

func sortedTimes(txs []chain.Transaction) []time.Time {
	times := make([]time.Time, len(txs))
	for i, tx := range txs {
		times[i] = tx.Timestamp
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	return times
}
