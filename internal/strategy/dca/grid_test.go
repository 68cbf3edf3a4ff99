package dca

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdulloh5007/backtest-core/internal/money"
	"github.com/abdulloh5007/backtest-core/internal/strategy"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestFromParametersGeometricVolumeAndDeviation(t *testing.T) {
	levels, err := FromParameters(Params{
		NumberOfLevels:      3,
		EntryVolume:         d("100"),
		VolumeMultiplier:    d("2"),
		PriceDeviation:      d("10"),
		DeviationMultiplier: d("1"),
		OffsetMode:          FromPrevious,
		VolumeMode:          strategy.AbsoluteQuote,
	})
	require.NoError(t, err)
	require.Len(t, levels, 3)
	assert.True(t, levels[0].VolumeValue.Equal(d("100")))
	assert.True(t, levels[0].OffsetPercent.Equal(decimal.Zero))
	assert.True(t, levels[1].VolumeValue.Equal(d("200")))
	assert.True(t, levels[1].OffsetPercent.Equal(d("10")))
	assert.True(t, levels[2].VolumeValue.Equal(d("400")))
	assert.True(t, levels[2].OffsetPercent.Equal(d("10")))
}

func TestBuildOrderMapFromPreviousLong(t *testing.T) {
	// Matches the worked example in spec.md §8 scenario 4: entry 100,
	// subsequent fills at 90 and 81 (10% steps compounding from previous).
	levels, err := FromParameters(Params{
		NumberOfLevels:      3,
		EntryVolume:         d("100"),
		VolumeMultiplier:    d("2"),
		PriceDeviation:      d("10"),
		DeviationMultiplier: d("1"),
		VolumeMode:          strategy.AbsoluteQuote,
	})
	require.NoError(t, err)

	ctx := strategy.TradingContext{Balance: d("1000"), Margin: d("1000"), CurrentPrice: d("100")}
	entries, err := BuildOrderMap(levels, FromPrevious, money.Long, ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.True(t, entries[0].Offset.Equal(decimal.Zero))
	// level 1: ratio = 1*(1-0.10) = 0.90 -> offset magnitude 10 -> signed -10
	assert.True(t, entries[1].Offset.Equal(d("-10")), entries[1].Offset.String())
	// level 2: ratio = 0.90*(1-0.10) = 0.81 -> offset magnitude 19 -> signed -19
	assert.True(t, entries[2].Offset.Equal(d("-19")), entries[2].Offset.String())

	// Entry price 100 falling by those offsets lands on 90 and 81.
	entryPrice := d("100")
	price1 := entryPrice.Mul(decimal.NewFromInt(1).Add(entries[1].Offset.Div(decimal.NewFromInt(100))))
	price2 := entryPrice.Mul(decimal.NewFromInt(1).Add(entries[2].Offset.Div(decimal.NewFromInt(100))))
	assert.True(t, price1.Equal(d("90")))
	assert.True(t, price2.Equal(d("81")))
}

func TestBuildOrderMapFromEntrySignsByDirection(t *testing.T) {
	levels := []Level{
		{VolumeValue: d("100"), VolumeMode: strategy.AbsoluteQuote, OffsetPercent: decimal.Zero},
		{VolumeValue: d("100"), VolumeMode: strategy.AbsoluteQuote, OffsetPercent: d("5")},
		{VolumeValue: d("100"), VolumeMode: strategy.AbsoluteQuote, OffsetPercent: d("10")},
	}
	ctx := strategy.TradingContext{Balance: d("1000"), Margin: d("1000"), CurrentPrice: d("100")}

	long, err := BuildOrderMap(levels, FromEntry, money.Long, ctx)
	require.NoError(t, err)
	assert.True(t, long[1].Offset.Equal(d("-5")))
	assert.True(t, long[2].Offset.Equal(d("-10")))
	// monotone increasing magnitude
	assert.True(t, long[1].Offset.Abs().LessThan(long[2].Offset.Abs()))

	short, err := BuildOrderMap(levels, FromEntry, money.Short, ctx)
	require.NoError(t, err)
	assert.True(t, short[1].Offset.Equal(d("5")))
	assert.True(t, short[2].Offset.Equal(d("10")))
}

func TestFromParametersRejectsZeroLevels(t *testing.T) {
	_, err := FromParameters(Params{NumberOfLevels: 0})
	require.Error(t, err)
}
