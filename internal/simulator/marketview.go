package simulator

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/abdulloh5007/backtest-core/internal/indicator"
	"github.com/abdulloh5007/backtest-core/internal/strategy"
)

func toFloats(ds []decimal.Decimal) []float64 {
	out := make([]float64, len(ds))
	for i, v := range ds {
		f, _ := v.Float64()
		out[i] = f
	}
	return out
}

// buildMarketView computes the indicator/Bollinger snapshots a strategy
// declared via UseIndicators, from the current window, and folds them
// into a strategy.MarketView alongside the window itself. Recognised
// descriptor names (case-sensitive, matching internal/indicator's
// exported functions): RSI, EMA, BOLLINGER, ATR.
func (s *Simulator) buildMarketView(descs []strategy.IndicatorDescriptor) strategy.MarketView {
	closes := toFloats(s.window.Closes())
	view := strategy.MarketView{
		Window:     s.window,
		Indicators: make(map[string]float64, len(descs)),
		Bollinger:  make(map[string]strategy.BollingerSnapshot),
	}

	for _, d := range descs {
		switch d.Name {
		case "RSI":
			vals := indicator.RSI(closes, d.Period)
			if len(vals) > 0 {
				view.Indicators[d.Name] = vals[len(vals)-1]
			}
		case "EMA":
			vals := indicator.EMA(closes, d.Period)
			if len(vals) > 0 {
				view.Indicators[d.Name] = vals[len(vals)-1]
			}
		case "ATR":
			highs := toFloats(s.window.Highs())
			lows := toFloats(s.window.Lows())
			view.Indicators[d.Name] = indicator.ATR(highs, lows, closes, d.Period)
		case "BOLLINGER":
			k := 2.0
			if raw, ok := d.Extra["k"]; ok {
				if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
					k = parsed
				}
			}
			bands := indicator.Bollinger(closes, d.Period, k)
			if len(bands) > 0 {
				last := bands[len(bands)-1]
				view.Bollinger[d.Name] = strategy.BollingerSnapshot{Upper: last.Upper, Middle: last.Middle, Lower: last.Lower}
			}
		}
	}
	return view
}
