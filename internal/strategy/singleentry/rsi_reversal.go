package singleentry

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/abdulloh5007/backtest-core/internal/indicator"
	"github.com/abdulloh5007/backtest-core/internal/strategy"
	"github.com/abdulloh5007/backtest-core/internal/timeframe"
)

// RSIReversal longs an oversold RSI reading and shorts an overbought
// one, with the bracket mechanics handled entirely by the embedded Base.
type RSIReversal struct {
	*Base

	Period               int
	OversoldThreshold    float64
	OverboughtThreshold  float64
	AllowLong, AllowShort bool
}

// NewRSIReversal constructs an RSI-reversal strategy from descriptor
// values already resolved by strategy.Resolve, plus the bracket Config
// shared with every single-entry strategy.
func NewRSIReversal(period int, oversold, overbought float64, allowLong, allowShort bool, cfg Config) *RSIReversal {
	return &RSIReversal{
		Base:                NewBase(cfg),
		Period:              period,
		OversoldThreshold:   oversold,
		OverboughtThreshold: overbought,
		AllowLong:           allowLong,
		AllowShort:          allowShort,
	}
}

func (s *RSIReversal) UseIndicators() []strategy.IndicatorDescriptor {
	return []strategy.IndicatorDescriptor{{Name: "RSI", Period: s.Period}}
}

func (s *RSIReversal) RequiredTimeframes() []timeframe.Timeframe { return nil }

func (s *RSIReversal) ShouldLong(view strategy.MarketView) bool {
	if !s.AllowLong {
		return false
	}
	rsi, ok := view.Indicators["RSI"]
	return ok && rsi <= s.OversoldThreshold
}

func (s *RSIReversal) ShouldShort(view strategy.MarketView) bool {
	if !s.AllowShort {
		return false
	}
	rsi, ok := view.Indicators["RSI"]
	return ok && rsi >= s.OverboughtThreshold
}

func (s *RSIReversal) DoesLong() bool  { return s.AllowLong }
func (s *RSIReversal) DoesShort() bool { return s.AllowShort }

func (s *RSIReversal) GetDisplayName() string { return "RSI Reversal" }

func (s *RSIReversal) GetParameters() []strategy.Descriptor {
	return []strategy.Descriptor{
		{Name: "period", Label: "RSI Period", Type: strategy.ParamInt, ClassDefault: fmt.Sprintf("%d", s.Period), IsBacktestRelevant: true},
		{Name: "oversold", Label: "Oversold Threshold", Type: strategy.ParamFloat, ClassDefault: fmt.Sprintf("%g", s.OversoldThreshold), IsBacktestRelevant: true},
		{Name: "overbought", Label: "Overbought Threshold", Type: strategy.ParamFloat, ClassDefault: fmt.Sprintf("%g", s.OverboughtThreshold), IsBacktestRelevant: true},
		{Name: "takeProfitPercent", Label: "Take Profit %", Type: strategy.ParamFloat, ClassDefault: s.Base.Cfg.TakeProfitPercent.String(), IsBacktestRelevant: true},
		{Name: "stopLossPercent", Label: "Stop Loss %", Type: strategy.ParamFloat, ClassDefault: s.Base.Cfg.StopLossPercent.String(), IsBacktestRelevant: true},
		{Name: "allowLong", Label: "Allow Long", Type: strategy.ParamBool, ClassDefault: "true"},
		{Name: "allowShort", Label: "Allow Short", Type: strategy.ParamBool, ClassDefault: "false"},
	}
}

// DefaultOversoldThreshold and DefaultOverboughtThreshold mirror
// internal/indicator's own defaults so a caller building this strategy
// from bare CLI params has a sane fallback.
var (
	DefaultOversoldThreshold   = decimal.NewFromFloat(indicator.DefaultOversoldThreshold)
	DefaultOverboughtThreshold = decimal.NewFromFloat(indicator.DefaultOverboughtThreshold)
)
