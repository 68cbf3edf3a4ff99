package dca

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdulloh5007/backtest-core/internal/candle"
	"github.com/abdulloh5007/backtest-core/internal/exchange"
	"github.com/abdulloh5007/backtest-core/internal/strategy"
)

func testMarket() exchange.Market {
	return exchange.Market{Symbol: "BTCUSDT", MarketType: exchange.Spot}
}

func windowAt(price string, openTime int64) *candle.Window {
	w := candle.NewWindow(0)
	w.Append(candle.Candle{OpenTime: openTime, Open: d(price), High: d(price), Low: d(price), Close: d(price)})
	return w
}

func goldenGridCfg() Config {
	return Config{
		TickSize: d("0.1"),
		QtyStep:  d("0.001"),
		Grid: Params{
			NumberOfLevels:      3,
			EntryVolume:         d("100"),
			VolumeMultiplier:    d("2"),
			PriceDeviation:      d("10"),
			DeviationMultiplier: d("1"),
			VolumeMode:          strategy.AbsoluteQuote,
		},
		OffsetMode:        FromPrevious,
		Mode:              MarketMode,
		TakeProfitPercent: d("5"),
	}
}

func TestGoldenGridShouldLongRequiresTrendAndDip(t *testing.T) {
	s := NewGoldenGrid(10, 14, 35, 65, true, false, goldenGridCfg(), nil, testMarket())

	view := strategy.MarketView{
		Window:     windowAt("105", 0),
		Indicators: map[string]float64{"EMA": 100, "RSI": 30},
	}
	assert.True(t, s.ShouldLong(view), "price above EMA with oversold RSI should long")

	below := strategy.MarketView{
		Window:     windowAt("95", 0),
		Indicators: map[string]float64{"EMA": 100, "RSI": 30},
	}
	assert.False(t, s.ShouldLong(below), "price below EMA trend should not long even if RSI is oversold")

	notOversold := strategy.MarketView{
		Window:     windowAt("105", 0),
		Indicators: map[string]float64{"EMA": 100, "RSI": 50},
	}
	assert.False(t, s.ShouldLong(notOversold), "RSI above the lower band should not trigger an entry")
}

func TestGoldenGridShouldShortIsDisabledByDefault(t *testing.T) {
	s := NewGoldenGrid(10, 14, 35, 65, true, false, goldenGridCfg(), nil, testMarket())
	view := strategy.MarketView{
		Window:     windowAt("90", 0),
		Indicators: map[string]float64{"EMA": 100, "RSI": 70},
	}
	assert.False(t, s.ShouldShort(view))
	assert.False(t, s.DoesShort())
}

func TestGoldenGridHandleLongBuildsGridAndSetsTP(t *testing.T) {
	s := NewGoldenGrid(10, 14, 35, 65, true, true, goldenGridCfg(), nil, testMarket())
	view := strategy.MarketView{Window: windowAt("100", 0)}
	ctx := strategy.TradingContext{Balance: d("1000"), CurrentPrice: d("100")}

	pos, err := s.HandleLong(view, ctx)
	require.NoError(t, err)
	assert.True(t, pos.AverageEntryPrice.Equal(d("100")))
	require.NotNil(t, pos.TakeProfitPrice)
	assert.True(t, pos.TakeProfitPrice.Equal(d("105")))
	assert.Len(t, pos.PendingLevels, 2)
}
