package dca

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/abdulloh5007/backtest-core/internal/exchange"
	"github.com/abdulloh5007/backtest-core/internal/money"
	"github.com/abdulloh5007/backtest-core/internal/position"
	"github.com/abdulloh5007/backtest-core/internal/strategy"
)

// Mode selects whether the grid beyond the first level is resting as
// real limit orders on the exchange, or purely tracked in-core and
// matched generically by the simulator (spec.md §4.3 "DCA").
type Mode string

const (
	MarketMode Mode = "MARKET"
	LimitMode  Mode = "LIMIT"
)

// Config is the fixed grid + bracket configuration a concrete DCA
// strategy is built with.
type Config struct {
	TickSize decimal.Decimal
	QtyStep  decimal.Decimal

	Grid       Params
	OffsetMode OffsetMode
	Mode       Mode

	TakeProfitPercent decimal.Decimal
}

// Base implements HandleLong, HandleShort, UpdatePosition, and
// ValidateExchangeSettings for a DCA strategy. Concrete strategies embed
// Base and add UseIndicators/ShouldLong/ShouldShort/etc.
type Base struct {
	Cfg      Config
	Exchange exchange.Exchange
	Market   exchange.Market
}

// NewBase constructs the shared DCA mechanics.
func NewBase(cfg Config, ex exchange.Exchange, market exchange.Market) *Base {
	return &Base{Cfg: cfg, Exchange: ex, Market: market}
}

func (b *Base) openPosition(dir money.Direction, view strategy.MarketView, ctx strategy.TradingContext) (*position.Position, error) {
	levels, err := FromParameters(b.Cfg.Grid)
	if err != nil {
		return nil, err
	}
	entries, err := BuildOrderMap(levels, b.Cfg.OffsetMode, dir, ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("dca: grid produced no levels")
	}

	entryPrice := money.RoundToStep(ctx.CurrentPrice, b.Cfg.TickSize)
	if !entryPrice.IsPositive() {
		return nil, fmt.Errorf("dca: current price %s is not positive", ctx.CurrentPrice)
	}

	createdAt := int64(0)
	if view.Window.Len() > 0 {
		createdAt = view.Window.Last().OpenTime
	}
	pos := position.New("", dir, b.Cfg.TickSize, createdAt)

	qty0 := money.RoundToStep(entries[0].Volume.Div(entryPrice), b.Cfg.QtyStep)
	if !qty0.IsPositive() {
		return nil, fmt.Errorf("dca: first level quantity is not positive")
	}
	if err := pos.ApplyFill(createdAt, entryPrice, qty0); err != nil {
		return nil, fmt.Errorf("dca: applying entry fill: %w", err)
	}

	tp := b.Cfg.TakeProfitPercent
	pos.ExpectedProfitPercent = &tp
	pos.UpdateTakeProfit(nil)

	hundred := decimal.NewFromInt(100)
	for _, e := range entries[1:] {
		levelPrice := entryPrice.Mul(decimal.NewFromInt(1).Add(e.Offset.Div(hundred)))
		qty := money.RoundToStep(e.Volume.Div(levelPrice), b.Cfg.QtyStep)
		if !qty.IsPositive() {
			continue
		}
		if b.Cfg.Mode == LimitMode && b.Exchange != nil {
			if _, err := b.Exchange.PlaceLimitOrder(b.Market, qty, levelPrice, dir, nil); err != nil {
				return nil, fmt.Errorf("dca: placing grid limit order: %w", err)
			}
		}
		pos.QueueLevel(levelPrice, qty)
	}
	return pos, nil
}

// HandleLong builds the LONG grid from Cfg.Grid at the current trading
// context and market-fills the first level; remaining levels are queued
// on the position for the simulator to drain deterministically.
func (b *Base) HandleLong(view strategy.MarketView, ctx strategy.TradingContext) (*position.Position, error) {
	return b.openPosition(money.Long, view, ctx)
}

// HandleShort is the SHORT mirror of HandleLong.
func (b *Base) HandleShort(view strategy.MarketView, ctx strategy.TradingContext) (*position.Position, error) {
	return b.openPosition(money.Short, view, ctx)
}

// UpdatePosition resyncs TP whenever a grid fill has moved the average
// entry price. Grid-level triggering itself is generic core behaviour
// (position.TakeTriggeredLevels, drained by the simulator), not
// strategy-specific logic.
func (b *Base) UpdatePosition(view strategy.MarketView, pos *position.Position) error {
	pos.UpdateTakeProfit(nil)
	return nil
}

// ValidateExchangeSettings rejects a grid with fewer than one level or a
// non-positive deviation step.
func (b *Base) ValidateExchangeSettings() strategy.ValidationResult {
	var result strategy.ValidationResult
	if b.Cfg.Grid.NumberOfLevels < 1 {
		result.Errors = append(result.Errors, "dca: numberOfLevels must be >= 1")
	}
	if b.Cfg.Grid.NumberOfLevels > 1 && !b.Cfg.Grid.PriceDeviation.IsPositive() {
		result.Errors = append(result.Errors, "dca: priceDeviation must be positive when numberOfLevels > 1")
	}
	return result
}
