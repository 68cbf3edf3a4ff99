package strategy

import (
	"github.com/abdulloh5007/backtest-core/internal/candle"
	"github.com/abdulloh5007/backtest-core/internal/position"
	"github.com/abdulloh5007/backtest-core/internal/timeframe"
)

// IndicatorDescriptor names an indicator a strategy needs computed on its
// behalf, along with the parameters it was configured with.
type IndicatorDescriptor struct {
	Name   string
	Period int
	// Extra carries indicator-specific parameters (e.g. Bollinger's k,
	// RSI's oversold/overbought thresholds) as a flat string map so the
	// descriptor stays generic across indicator kinds.
	Extra map[string]string
}

// MarketView is the read-only slice of simulator state a strategy may
// observe: the rolling candle window plus the latest indicator snapshot
// for every indicator it declared via UseIndicators.
type MarketView struct {
	Window     *candle.Window
	Indicators map[string]float64
	Bollinger  map[string]BollingerSnapshot
}

// BollingerSnapshot is the latest Bollinger Band reading for an indicator
// name that resolves to a band rather than a scalar.
type BollingerSnapshot struct {
	Upper, Middle, Lower float64
}

// ValidationResult carries the outcome of ValidateExchangeSettings:
// fatal errors block trading (spec.md §7 "Validation errors"); warnings
// are recorded but the run proceeds (spec.md §7 "Validation warnings").
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

// OK reports whether the configuration is free of fatal validation errors.
func (v ValidationResult) OK() bool { return len(v.Errors) == 0 }

// Strategy is the fixed method-set contract shared by single-entry and DCA
// strategies (spec.md §9): dynamic method lookup on subclasses is replaced
// by this interface.
type Strategy interface {
	UseIndicators() []IndicatorDescriptor
	RequiredTimeframes() []timeframe.Timeframe

	ShouldLong(view MarketView) bool
	ShouldShort(view MarketView) bool
	DoesLong() bool
	DoesShort() bool

	HandleLong(view MarketView, ctx TradingContext) (*position.Position, error)
	HandleShort(view MarketView, ctx TradingContext) (*position.Position, error)
	UpdatePosition(view MarketView, pos *position.Position) error

	ValidateExchangeSettings() ValidationResult
	GetParameters() []Descriptor
	GetDisplayName() string
}
