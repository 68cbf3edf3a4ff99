package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddSubRequireSameCurrency(t *testing.T) {
	usdt := New(decimal.NewFromInt(10), "USDT")
	usd := New(decimal.NewFromInt(5), "USD")

	_, err := usdt.Add(usd)
	require.ErrorIs(t, err, ErrCurrencyMismatch)

	sum, err := usdt.Add(New(decimal.NewFromInt(5), "USDT"))
	require.NoError(t, err)
	assert.True(t, sum.Amount.Equal(decimal.NewFromInt(15)))
}

func TestPercentModifyDirection(t *testing.T) {
	entry := decimal.NewFromInt(100)
	five := decimal.NewFromInt(5)

	// LONG TP is above entry (profit direction up).
	tp := PercentModify(entry, five, Long, true)
	assert.True(t, tp.Equal(decimal.NewFromInt(105)))

	// LONG SL is below entry (loss direction down).
	sl := PercentModify(entry, five, Long, false)
	assert.True(t, sl.Equal(decimal.NewFromInt(95)))

	// SHORT TP is below entry.
	tpShort := PercentModify(entry, five, Short, true)
	assert.True(t, tpShort.Equal(decimal.NewFromInt(95)))

	// SHORT SL is above entry.
	slShort := PercentModify(entry, five, Short, false)
	assert.True(t, slShort.Equal(decimal.NewFromInt(105)))
}

func TestRoundToStepFloors(t *testing.T) {
	v := decimal.RequireFromString("100.987")
	step := decimal.RequireFromString("0.01")
	rounded := RoundToStep(v, step)
	assert.Equal(t, "100.98", rounded.String())

	// Non-positive step is a no-op.
	assert.True(t, RoundToStep(v, decimal.Zero).Equal(v))
}
