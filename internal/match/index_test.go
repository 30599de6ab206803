package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/bankrec/internal/model"
)

func TestBuildTransactionIndex(t *testing.T) {
	ix := BuildTransactionIndex([]model.Transaction{
		txn("10", "100", "500.00", day(2024, 1, 10)),
		txn("2", "", "300", day(2024, 1, 12)),
		txn("1", " ", "300.0", day(2024, 1, 12)),
	})

	assert.True(t, ix.HasCheckNo("100"))
	assert.True(t, ix.HasCheckNo(" 100 "), "check numbers are trimmed")
	assert.False(t, ix.HasCheckNo(""), "empty check numbers never match")
	assert.False(t, ix.HasCheckNo(" "))

	first, ok := ix.FirstByAmountDate(dec("300"), day(2024, 1, 12))
	require.True(t, ok)
	assert.Equal(t, "1", first)
	assert.False(t, ix.HasAmountDate(dec("300"), day(2024, 1, 13)))
	_, ok = ix.FirstByCheckNo("")
	assert.False(t, ok)
}

func TestKeyOf_NumericAmounts(t *testing.T) {
	assert.Equal(t, KeyOf(dec("500"), day(2024, 1, 1)), KeyOf(dec("500.00"), day(2024, 1, 1)))
	assert.NotEqual(t, KeyOf(dec("500"), day(2024, 1, 1)), KeyOf(dec("500.01"), day(2024, 1, 1)))
	assert.NotEqual(t, KeyOf(dec("500"), day(2024, 1, 1)), KeyOf(dec("-500"), day(2024, 1, 1)))
}

func TestFirstBy_AscendingID(t *testing.T) {
	ix := BuildTransactionIndex([]model.Transaction{
		txn("T9", "77", "10", day(2024, 3, 1)),
		txn("T10", "77", "10", day(2024, 3, 1)),
		txn("T3", "77", "10", day(2024, 3, 1)),
	})

	first, ok := ix.FirstByCheckNo("77")
	require.True(t, ok)
	assert.Equal(t, "T10", first, "non-numeric ids order lexically")

	first, ok = ix.FirstByAmountDate(dec("10.00"), day(2024, 3, 1))
	require.True(t, ok)
	assert.Equal(t, "T10", first)

	numeric := BuildTransactionIndex([]model.Transaction{
		txn("9", "", "10", day(2024, 3, 1)),
		txn("10", "", "10", day(2024, 3, 1)),
	})
	first, ok = numeric.FirstByAmountDate(dec("10"), day(2024, 3, 1))
	require.True(t, ok)
	assert.Equal(t, "9", first, "numeric ids order numerically")
}

func TestBuildCandidateIndex(t *testing.T) {
	ix := BuildCandidateIndex([]model.Candidate{
		cand("C1", "100", "500", day(2024, 1, 11)),
		cand("C2", "", "300", day(2024, 1, 12)),
	})
	first, ok := ix.FirstByCheckNo("100")
	require.True(t, ok)
	assert.Equal(t, "C1", first)
	assert.True(t, ix.HasAmountDate(dec("300.00"), day(2024, 1, 12)))
	_, ok = ix.FirstByCheckNo("")
	assert.False(t, ok)
}
