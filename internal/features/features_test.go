package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mbd888/walletguard/internal/chain"
)

const target = "0xaaaa000000000000000000000000000000000001"

func tx(from, to string, value float64, at time.Time, cat chain.Category) chain.Transaction {
	return chain.Transaction{
		Hash: "0x" + at.Format("150405"), From: from, To: to,
		Value: value, Category: cat, Timestamp: at,
	}
}

func TestExtract_Empty(t *testing.T) {
	v := Extract(target, nil)
	assert.Equal(t, 0.0, v.TotalCount)
	assert.Equal(t, 0.0, v.AvgMinutesBetweenSent)
	assert.Len(t, v.Values(), len(FieldNames))
}

func TestExtract_SplitsAndValues(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	txs := []chain.Transaction{
		tx(target, "0xb1", 1.0, base, chain.CategoryNative),
		tx(target, "0xb2", 3.0, base.Add(10*time.Minute), chain.CategoryNative),
		tx("0xc1", target, 5.0, base.Add(20*time.Minute), chain.CategoryNative),
		tx("0xc1", target, 2.0, base.Add(30*time.Minute), chain.CategoryNative),
	}

	v := Extract(target, txs)
	assert.Equal(t, 2.0, v.SentCount)
	assert.Equal(t, 2.0, v.ReceivedCount)
	assert.Equal(t, 4.0, v.TotalCount)
	assert.Equal(t, 2.0, v.UniqueSentTo)
	assert.Equal(t, 1.0, v.UniqueReceivedFrom)
	assert.Equal(t, 1.0, v.MinValueSent)
	assert.Equal(t, 3.0, v.MaxValueSent)
	assert.Equal(t, 2.0, v.AvgValueSent)
	assert.Equal(t, 4.0, v.TotalValueSent)
	assert.Equal(t, 7.0, v.TotalValueReceived)
	assert.Equal(t, 3.0, v.NetBalance)
	assert.Equal(t, 10.0, v.AvgMinutesBetweenSent)
	assert.Equal(t, 10.0, v.AvgMinutesBetweenRecv)
	assert.Equal(t, 30.0, v.SpanMinutes)
}

func TestExtract_WeiValuesScaled(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	txs := []chain.Transaction{
		// 2 ETH expressed in wei
		tx(target, "0xb1", 2e18, base, chain.CategoryNative),
		// already-scaled value stays as-is
		tx(target, "0xb2", 0.5, base.Add(time.Minute), chain.CategoryNative),
	}

	v := Extract(target, txs)
	assert.Equal(t, 2.5, v.TotalValueSent)
	assert.Equal(t, 2.0, v.MaxValueSent)
	assert.Equal(t, 0.5, v.MinValueSent)
}

func TestExtract_SingleTxGapIsZero(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	v := Extract(target, []chain.Transaction{
		tx(target, "0xb1", 1.0, base, chain.CategoryNative),
	})
	assert.Equal(t, 0.0, v.AvgMinutesBetweenSent)
	assert.Equal(t, 0.0, v.SpanMinutes)
}

func TestExtract_TokenSplit(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	txs := []chain.Transaction{
		tx(target, "0xb1", 1.0, base, chain.CategoryNative),
		tx(target, "0xb2", 100.0, base.Add(time.Minute), chain.CategoryFungible),
		tx("0xc1", target, 50.0, base.Add(2*time.Minute), chain.CategoryFungible),
		tx("0xc2", target, 0.0, base.Add(3*time.Minute), chain.CategoryNFT),
	}

	v := Extract(target, txs)
	assert.Equal(t, 1.0, v.TotalCount)
	assert.Equal(t, 3.0, v.TokenCount)
	assert.Equal(t, 100.0, v.TokenTotalSent)
	assert.Equal(t, 50.0, v.TokenTotalReceived)
	assert.Equal(t, 1.0, v.TokenUniqueSentTo)
	assert.Equal(t, 2.0, v.TokenUniqueRecvFrom)
}

func TestExtract_TokenDirectionalStats(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	txs := []chain.Transaction{
		tx(target, "0xb1", 10.0, base, chain.CategoryFungible),
		tx(target, "0xb1", 30.0, base.Add(4*time.Minute), chain.CategoryFungible),
		tx(target, "0xb2", 20.0, base.Add(12*time.Minute), chain.CategoryFungible),
		tx("0xc1", target, 5.0, base.Add(1*time.Minute), chain.CategoryFungible),
		tx("0xc1", target, 15.0, base.Add(7*time.Minute), chain.CategoryFungible),
	}

	v := Extract(target, txs)
	assert.Equal(t, 10.0, v.TokenMinValueSent)
	assert.Equal(t, 30.0, v.TokenMaxValueSent)
	assert.Equal(t, 20.0, v.TokenAvgValueSent)
	assert.Equal(t, 60.0, v.TokenTotalSent)
	assert.Equal(t, 5.0, v.TokenMinValueReceived)
	assert.Equal(t, 15.0, v.TokenMaxValueReceived)
	assert.Equal(t, 10.0, v.TokenAvgValueReceived)
	assert.Equal(t, 20.0, v.TokenTotalReceived)
	// Sent gaps: 4m and 8m -> mean 6m. Received gap: 6m.
	assert.Equal(t, 6.0, v.TokenAvgMinutesBetweenSent)
	assert.Equal(t, 6.0, v.TokenAvgMinutesBetweenRecv)
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, 999.0, NormalizeValue(999))
	assert.Equal(t, 1000.0, NormalizeValue(1000))
	assert.Equal(t, 1.5, NormalizeValue(1.5e18))
}

func TestContractCreationCounted(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	v := Extract(target, []chain.Transaction{
		tx(target, "", 0.0, base, chain.CategoryNative),
	})
	assert.Equal(t, 1.0, v.CreatedContracts)
}
