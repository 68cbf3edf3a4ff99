package strategy

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// VolumeMode is the interpretation of a configured entry-volume amount.
type VolumeMode string

const (
	AbsoluteQuote  VolumeMode = "ABSOLUTE_QUOTE"
	AbsoluteBase   VolumeMode = "ABSOLUTE_BASE"
	PercentBalance VolumeMode = "PERCENT_BALANCE"
	PercentMargin  VolumeMode = "PERCENT_MARGIN"
)

// VolumeSpec is a parsed, unresolved entry-volume specification.
type VolumeSpec struct {
	Value decimal.Decimal
	Mode  VolumeMode
	// BaseCurrency is set only for ABSOLUTE_BASE specs, e.g. "0.01 BTC".
	BaseCurrency string
}

// TradingContext is the balance/margin/price snapshot a VolumeSpec and a
// DCA grid are resolved against.
type TradingContext struct {
	Balance      decimal.Decimal
	Margin       decimal.Decimal
	CurrentPrice decimal.Decimal
}

var (
	percentMarginRe = regexp.MustCompile(`(?i)^([0-9]*\.?[0-9]+)\s*%\s*(m|margin)$`)
	percentRe       = regexp.MustCompile(`^([0-9]*\.?[0-9]+)\s*%$`)
	numberCcyRe     = regexp.MustCompile(`(?i)^([0-9]*\.?[0-9]+)\s*([a-z]{2,10})?$`)
)

// ParseVolumeSpec parses a raw entry-volume string into its value and mode.
// Recognised forms: "140" and "140 USDT" -> ABSOLUTE_QUOTE; "5%" ->
// PERCENT_BALANCE; "5%M" / "5% margin" -> PERCENT_MARGIN; "<n> <CCY>" with
// CCY != USDT -> ABSOLUTE_BASE.
func ParseVolumeSpec(raw string) (VolumeSpec, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return VolumeSpec{}, fmt.Errorf("strategy: empty volume spec")
	}

	if m := percentMarginRe.FindStringSubmatch(trimmed); m != nil {
		v, err := decimal.NewFromString(m[1])
		if err != nil {
			return VolumeSpec{}, err
		}
		return VolumeSpec{Value: v, Mode: PercentMargin}, nil
	}
	if m := percentRe.FindStringSubmatch(trimmed); m != nil {
		v, err := decimal.NewFromString(m[1])
		if err != nil {
			return VolumeSpec{}, err
		}
		return VolumeSpec{Value: v, Mode: PercentBalance}, nil
	}
	if m := numberCcyRe.FindStringSubmatch(trimmed); m != nil {
		v, err := decimal.NewFromString(m[1])
		if err != nil {
			return VolumeSpec{}, err
		}
		ccy := strings.ToUpper(m[2])
		if ccy == "" || ccy == "USDT" {
			return VolumeSpec{Value: v, Mode: AbsoluteQuote}, nil
		}
		return VolumeSpec{Value: v, Mode: AbsoluteBase, BaseCurrency: ccy}, nil
	}
	return VolumeSpec{}, fmt.Errorf("strategy: unrecognised volume spec %q", raw)
}

// Resolve converts the spec into a quote-currency amount against ctx.
func (s VolumeSpec) Resolve(ctx TradingContext) (decimal.Decimal, error) {
	switch s.Mode {
	case AbsoluteQuote:
		return s.Value, nil
	case PercentBalance:
		return ctx.Balance.Mul(s.Value).Div(decimal.NewFromInt(100)), nil
	case PercentMargin:
		return ctx.Margin.Mul(s.Value).Div(decimal.NewFromInt(100)), nil
	case AbsoluteBase:
		return s.Value.Mul(ctx.CurrentPrice), nil
	default:
		return decimal.Zero, fmt.Errorf("strategy: unknown volume mode %q", s.Mode)
	}
}

// Format reconstructs the canonical raw string for a spec, the inverse of
// ParseVolumeSpec, for the round-trip law of spec.md §8.
func (s VolumeSpec) Format() string {
	switch s.Mode {
	case AbsoluteQuote:
		return s.Value.String() + " USDT"
	case PercentBalance:
		return s.Value.String() + "%"
	case PercentMargin:
		return s.Value.String() + "%M"
	case AbsoluteBase:
		return s.Value.String() + " " + s.BaseCurrency
	default:
		return s.Value.String()
	}
}
