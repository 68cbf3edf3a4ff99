package singleentry

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdulloh5007/backtest-core/internal/candle"
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

func viewAt(price string, openTime int64) strategy.MarketView {
	w := candle.NewWindow(0)
	w.Append(candle.Candle{OpenTime: openTime, Open: d(price), High: d(price), Low: d(price), Close: d(price)})
	return strategy.MarketView{Window: w, Indicators: map[string]float64{}}
}

func baseCfg() Config {
	spec, _ := strategy.ParseVolumeSpec("100 USDT")
	return Config{
		TickSize:          d("0.1"),
		QtyStep:           d("0.001"),
		Volume:            spec,
		TakeProfitPercent: d("5"),
		StopLossPercent:   d("2"),
		Leverage:          d("10"),
	}
}

func TestHandleLongSetsTPAndSL(t *testing.T) {
	b := NewBase(baseCfg())
	view := viewAt("100", 0)
	ctx := strategy.TradingContext{Balance: d("1000"), CurrentPrice: d("100")}

	pos, err := b.HandleLong(view, ctx)
	require.NoError(t, err)
	assert.Equal(t, money.Long, pos.Direction)
	require.NotNil(t, pos.TakeProfitPrice)
	require.NotNil(t, pos.StopLossPrice)
	assert.True(t, pos.TakeProfitPrice.Equal(d("105")))
	assert.True(t, pos.StopLossPrice.Equal(d("98")))
}

func TestHandleShortSetsTPAndSLInverted(t *testing.T) {
	b := NewBase(baseCfg())
	view := viewAt("100", 0)
	ctx := strategy.TradingContext{Balance: d("1000"), CurrentPrice: d("100")}

	pos, err := b.HandleShort(view, ctx)
	require.NoError(t, err)
	assert.True(t, pos.TakeProfitPrice.Equal(d("95")))
	assert.True(t, pos.StopLossPrice.Equal(d("102")))
}

func TestValidateRejectsStopLossBeyondLiquidation(t *testing.T) {
	cfg := baseCfg()
	cfg.StopLossPercent = d("20")
	cfg.Leverage = d("10")
	b := NewBase(cfg)
	result := b.ValidateExchangeSettings()
	assert.False(t, result.OK())
}

func TestValidateWarnsNearLiquidation(t *testing.T) {
	cfg := baseCfg()
	cfg.StopLossPercent = d("9")
	cfg.Leverage = d("10")
	b := NewBase(cfg)
	result := b.ValidateExchangeSettings()
	assert.True(t, result.OK())
	assert.NotEmpty(t, result.Warnings)
}

func TestUpdatePositionArmsBreakevenLockAtProgressThreshold(t *testing.T) {
	cfg := baseCfg()
	cfg.BreakevenLockEnabled = true
	cfg.BreakevenLockTriggerPercent = d("50")
	cfg.BreakevenLockClosePercent = d("50")
	b := NewBase(cfg)

	view := viewAt("100", 0)
	ctx := strategy.TradingContext{Balance: d("1000"), CurrentPrice: d("100")}
	pos, err := b.HandleLong(view, ctx)
	require.NoError(t, err)
	// TP is 105, entry 100: 50% progress price is 102.5.
	midView := viewAt("103", 60)
	require.NoError(t, b.UpdatePosition(midView, pos))
	require.NotNil(t, pos.PartialCloseTriggerPrice)
	assert.True(t, pos.PartialCloseTriggerPrice.Equal(d("102.5")))
	require.NotNil(t, pos.PartialCloseVolume)
}
