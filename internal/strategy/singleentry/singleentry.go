// Package singleentry implements the shared entry/update/validation
// protocol for strategies that hold at most one fill per direction: a
// single market entry, a fixed TP/SL bracket, and an optional
// breakeven-lock partial close (spec.md §4.3).
package singleentry

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/abdulloh5007/backtest-core/internal/money"
	"github.com/abdulloh5007/backtest-core/internal/position"
	"github.com/abdulloh5007/backtest-core/internal/strategy"
)

// Config is the fixed bracket configuration a concrete single-entry
// strategy is built with. Concrete strategies embed *Base and add their
// own signal logic and parameter descriptors on top.
type Config struct {
	TickSize decimal.Decimal
	QtyStep  decimal.Decimal
	Volume   strategy.VolumeSpec

	TakeProfitPercent decimal.Decimal
	StopLossPercent   decimal.Decimal
	Leverage          decimal.Decimal

	BreakevenLockEnabled        bool
	BreakevenLockTriggerPercent decimal.Decimal
	BreakevenLockClosePercent   decimal.Decimal

	IsolatedMarginRequired bool
}

// Base implements HandleLong, HandleShort, UpdatePosition, and
// ValidateExchangeSettings for a single-entry strategy. It does not
// implement UseIndicators, ShouldLong/Short, DoesLong/Short,
// GetParameters, or GetDisplayName — those stay with the concrete
// strategy, which embeds Base to pick up the shared mechanics.
type Base struct {
	Cfg Config
}

// NewBase constructs the shared single-entry mechanics from cfg.
func NewBase(cfg Config) *Base {
	return &Base{Cfg: cfg}
}

func (b *Base) openPosition(dir money.Direction, view strategy.MarketView, ctx strategy.TradingContext) (*position.Position, error) {
	volume, err := b.Cfg.Volume.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("singleentry: resolving volume: %w", err)
	}
	entryPrice := money.RoundToStep(ctx.CurrentPrice, b.Cfg.TickSize)
	if !entryPrice.IsPositive() {
		return nil, fmt.Errorf("singleentry: current price %s is not positive", ctx.CurrentPrice)
	}
	qty := money.RoundToStep(volume.Div(entryPrice), b.Cfg.QtyStep)
	if !qty.IsPositive() {
		return nil, fmt.Errorf("singleentry: resolved quantity is not positive")
	}

	createdAt := int64(0)
	if view.Window.Len() > 0 {
		createdAt = view.Window.Last().OpenTime
	}
	pos := position.New("", dir, b.Cfg.TickSize, createdAt)
	if err := pos.ApplyFill(createdAt, entryPrice, qty); err != nil {
		return nil, fmt.Errorf("singleentry: applying entry fill: %w", err)
	}

	tp := b.Cfg.TakeProfitPercent
	sl := b.Cfg.StopLossPercent
	pos.ExpectedProfitPercent = &tp
	pos.ExpectedStopLossPercent = &sl
	pos.UpdateTakeProfit(nil)
	slPrice := money.PercentModify(pos.AverageEntryPrice, sl, dir, false)
	if err := pos.SetStopLossPrice(slPrice); err != nil {
		return nil, fmt.Errorf("singleentry: setting stop loss: %w", err)
	}
	return pos, nil
}

// HandleLong opens a single LONG position sized by Cfg.Volume with TP/SL
// set immediately from Cfg.TakeProfitPercent/StopLossPercent.
func (b *Base) HandleLong(view strategy.MarketView, ctx strategy.TradingContext) (*position.Position, error) {
	return b.openPosition(money.Long, view, ctx)
}

// HandleShort is the SHORT mirror of HandleLong.
func (b *Base) HandleShort(view strategy.MarketView, ctx strategy.TradingContext) (*position.Position, error) {
	return b.openPosition(money.Short, view, ctx)
}

// UpdatePosition resyncs TP on an average-entry shift and, once armed,
// waits for the configured breakeven-lock progress threshold: it arms a
// simultaneous partial-close and SL-to-breakeven trigger at the exact
// progress price (not whatever price the candle closes at), so both
// execute together the first candle that reaches it.
func (b *Base) UpdatePosition(view strategy.MarketView, pos *position.Position) error {
	pos.UpdateTakeProfit(nil)

	if !b.Cfg.BreakevenLockEnabled {
		return nil
	}
	if pos.IsBreakevenLockExecuted() || pos.BreakevenLockTriggerPrice != nil {
		return nil
	}
	if pos.TakeProfitPrice == nil {
		return nil
	}

	triggerPrice := pos.AverageEntryPrice.Add(
		pos.TakeProfitPrice.Sub(pos.AverageEntryPrice).
			Mul(b.Cfg.BreakevenLockTriggerPercent).
			Div(decimal.NewFromInt(100)),
	)
	current := view.Window.Last().Close
	crossed := (pos.Direction == money.Long && current.GreaterThanOrEqual(triggerPrice)) ||
		(pos.Direction == money.Short && current.LessThanOrEqual(triggerPrice))
	if !crossed {
		return nil
	}

	closeVolume := pos.Volume.Mul(b.Cfg.BreakevenLockClosePercent).Div(decimal.NewFromInt(100))
	pos.PartialCloseTriggerPrice = &triggerPrice
	pos.PartialCloseVolume = &closeVolume
	pos.BreakevenLockTriggerPrice = &triggerPrice
	return nil
}

// ValidateExchangeSettings implements spec.md §4.3's rejection/warning
// rules: SL beyond the liquidation threshold is rejected, SL within 80%
// of it is a warning, and a breakeven-lock trigger outside [10, 90]% is
// rejected.
func (b *Base) ValidateExchangeSettings() strategy.ValidationResult {
	var result strategy.ValidationResult
	if b.Cfg.Leverage.IsPositive() {
		liquidationThreshold := decimal.NewFromInt(100).Div(b.Cfg.Leverage)
		if b.Cfg.StopLossPercent.GreaterThanOrEqual(liquidationThreshold) {
			result.Errors = append(result.Errors, fmt.Sprintf(
				"stop loss %s%% is beyond the liquidation threshold %s%% at %sx leverage",
				b.Cfg.StopLossPercent, liquidationThreshold, b.Cfg.Leverage))
		} else if b.Cfg.StopLossPercent.GreaterThan(liquidationThreshold.Mul(decimal.NewFromFloat(0.8))) {
			result.Warnings = append(result.Warnings, "stop loss is within 80% of the liquidation threshold")
		}
	}
	if b.Cfg.BreakevenLockEnabled {
		if b.Cfg.BreakevenLockTriggerPercent.LessThan(decimal.NewFromInt(10)) ||
			b.Cfg.BreakevenLockTriggerPercent.GreaterThan(decimal.NewFromInt(90)) {
			result.Errors = append(result.Errors, "breakeven lock trigger percent must be within [10, 90]")
		}
	}
	return result
}
