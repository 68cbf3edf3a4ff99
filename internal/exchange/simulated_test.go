package exchange

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdulloh5007/backtest-core/internal/money"
)

func spec() map[string]MarketSpec {
	return map[string]MarketSpec{
		"BTCUSDT": {
			TickSize:    decimal.NewFromFloat(0.1),
			QtyStep:     decimal.NewFromFloat(0.001),
			Leverage:    decimal.NewFromInt(10),
			HasLeverage: true,
			MarginMode:  Isolated,
			HasMargin:   true,
		},
	}
}

func TestGetCurrentPriceRequiresSetCurrentPrice(t *testing.T) {
	ex := NewSimulated(spec(), nil)
	m := Market{Symbol: "BTCUSDT", MarketType: Futures}
	_, err := ex.GetCurrentPrice(m)
	require.Error(t, err)

	ex.SetCurrentPrice(m, decimal.NewFromInt(50000))
	price, err := ex.GetCurrentPrice(m)
	require.NoError(t, err)
	assert.True(t, price.Amount.Equal(decimal.NewFromInt(50000)))
}

func TestUnknownMarketRejected(t *testing.T) {
	ex := NewSimulated(spec(), nil)
	m := Market{Symbol: "ETHUSDT", MarketType: Futures}
	_, err := ex.OpenPosition(m, money.Long, decimal.NewFromInt(1), nil, nil)
	require.ErrorIs(t, err, ErrMarketNotConfigured)
}

func TestPlaceLimitOrderThenRemove(t *testing.T) {
	ex := NewSimulated(spec(), nil)
	m := Market{Symbol: "BTCUSDT", MarketType: Futures}
	id, err := ex.PlaceLimitOrder(m, decimal.NewFromInt(1), decimal.NewFromInt(49000), money.Long, nil)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	removed, err := ex.RemoveLimitOrders(m)
	require.NoError(t, err)
	assert.True(t, removed)
}

func TestFeeScheduleDefaults(t *testing.T) {
	ex := NewSimulated(spec(), nil)
	assert.True(t, ex.GetTakerFee(Futures).Equal(decimal.NewFromFloat(0.00055)))
	assert.True(t, ex.GetMakerFee(Spot).Equal(decimal.NewFromFloat(0.001)))
}

func TestSwitchMarginMode(t *testing.T) {
	ex := NewSimulated(spec(), nil)
	m := Market{Symbol: "BTCUSDT", MarketType: Futures}
	ok, err := ex.SwitchMarginMode(m, Cross)
	require.NoError(t, err)
	assert.True(t, ok)

	mode, has := ex.GetMarginMode(m)
	assert.True(t, has)
	assert.Equal(t, Cross, mode)
}
