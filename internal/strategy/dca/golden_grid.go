package dca

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/abdulloh5007/backtest-core/internal/exchange"
	"github.com/abdulloh5007/backtest-core/internal/indicator"
	"github.com/abdulloh5007/backtest-core/internal/strategy"
	"github.com/abdulloh5007/backtest-core/internal/timeframe"
)

// GoldenGrid is a trend-aware DCA grid: it only opens the LONG (and
// optionally SHORT) grid once an EMA trend filter and an RSI confluence
// reading agree, instead of always-on grid entry. Once opened, averaging
// and TP resync are entirely the embedded Base's concern.
type GoldenGrid struct {
	*Base

	EMAPeriod int
	RSIPeriod int
	RSIUpper  float64
	RSILower  float64

	AllowLong, AllowShort bool
}

// NewGoldenGrid constructs a trend-aware DCA strategy from already-resolved
// descriptor values, plus the grid/bracket Config shared with every DCA
// strategy.
func NewGoldenGrid(emaPeriod, rsiPeriod int, rsiLower, rsiUpper float64, allowLong, allowShort bool, cfg Config, ex exchange.Exchange, market exchange.Market) *GoldenGrid {
	return &GoldenGrid{
		Base:       NewBase(cfg, ex, market),
		EMAPeriod:  emaPeriod,
		RSIPeriod:  rsiPeriod,
		RSILower:   rsiLower,
		RSIUpper:   rsiUpper,
		AllowLong:  allowLong,
		AllowShort: allowShort,
	}
}

func (s *GoldenGrid) UseIndicators() []strategy.IndicatorDescriptor {
	return []strategy.IndicatorDescriptor{
		{Name: "EMA", Period: s.EMAPeriod},
		{Name: "RSI", Period: s.RSIPeriod},
	}
}

func (s *GoldenGrid) RequiredTimeframes() []timeframe.Timeframe { return nil }

// ShouldLong enters the LONG grid once price trades above the EMA trend
// line and RSI has pulled back into the lower confluence band — a dip
// within an uptrend, the classic entry shape for an averaging grid.
func (s *GoldenGrid) ShouldLong(view strategy.MarketView) bool {
	if !s.AllowLong || view.Window.Len() == 0 {
		return false
	}
	ema, ok := view.Indicators["EMA"]
	if !ok {
		return false
	}
	rsi, ok := view.Indicators["RSI"]
	if !ok {
		return false
	}
	close, _ := view.Window.Last().Close.Float64()
	return close >= ema && rsi <= s.RSILower
}

// ShouldShort is the SHORT mirror: price below the EMA trend line with RSI
// pushed into the upper confluence band.
func (s *GoldenGrid) ShouldShort(view strategy.MarketView) bool {
	if !s.AllowShort || view.Window.Len() == 0 {
		return false
	}
	ema, ok := view.Indicators["EMA"]
	if !ok {
		return false
	}
	rsi, ok := view.Indicators["RSI"]
	if !ok {
		return false
	}
	close, _ := view.Window.Last().Close.Float64()
	return close <= ema && rsi >= s.RSIUpper
}

func (s *GoldenGrid) DoesLong() bool  { return s.AllowLong }
func (s *GoldenGrid) DoesShort() bool { return s.AllowShort }

func (s *GoldenGrid) GetDisplayName() string { return "Golden Grid DCA" }

func (s *GoldenGrid) GetParameters() []strategy.Descriptor {
	return []strategy.Descriptor{
		{Name: "emaPeriod", Label: "EMA Trend Period", Type: strategy.ParamInt, ClassDefault: fmt.Sprintf("%d", s.EMAPeriod), IsBacktestRelevant: true},
		{Name: "rsiPeriod", Label: "RSI Period", Type: strategy.ParamInt, ClassDefault: fmt.Sprintf("%d", s.RSIPeriod), IsBacktestRelevant: true},
		{Name: "rsiLower", Label: "RSI Lower Band", Type: strategy.ParamFloat, ClassDefault: fmt.Sprintf("%g", s.RSILower), IsBacktestRelevant: true},
		{Name: "rsiUpper", Label: "RSI Upper Band", Type: strategy.ParamFloat, ClassDefault: fmt.Sprintf("%g", s.RSIUpper), IsBacktestRelevant: true},
		{Name: "numberOfLevels", Label: "Grid Levels", Type: strategy.ParamInt, ClassDefault: fmt.Sprintf("%d", s.Base.Cfg.Grid.NumberOfLevels), IsBacktestRelevant: true},
		{Name: "priceDeviation", Label: "Price Deviation %", Type: strategy.ParamFloat, ClassDefault: s.Base.Cfg.Grid.PriceDeviation.String(), IsBacktestRelevant: true},
		{Name: "deviationMultiplier", Label: "Deviation Multiplier", Type: strategy.ParamFloat, ClassDefault: s.Base.Cfg.Grid.DeviationMultiplier.String(), IsBacktestRelevant: true},
		{Name: "volumeMultiplier", Label: "Volume Multiplier", Type: strategy.ParamFloat, ClassDefault: s.Base.Cfg.Grid.VolumeMultiplier.String(), IsBacktestRelevant: true},
		{Name: "takeProfitPercent", Label: "Take Profit %", Type: strategy.ParamFloat, ClassDefault: s.Base.Cfg.TakeProfitPercent.String(), IsBacktestRelevant: true},
		{Name: "allowLong", Label: "Allow Long", Type: strategy.ParamBool, ClassDefault: "true"},
		{Name: "allowShort", Label: "Allow Short", Type: strategy.ParamBool, ClassDefault: "false"},
	}
}

// DefaultRSILower and DefaultRSIUpper mirror internal/indicator's own thresholds, reused here
// so a caller building this strategy from bare CLI params has a sane
// fallback without importing indicator's constants directly.
var (
	DefaultRSILower = decimal.NewFromFloat(indicator.DefaultOversoldThreshold)
	DefaultRSIUpper = decimal.NewFromFloat(indicator.DefaultOverboughtThreshold)
)
