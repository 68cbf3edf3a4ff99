// Package position implements the position lifecycle state machine: entry
// fills, DCA averaging, take-profit/stop-loss/breakeven-lock bookkeeping,
// and the terminal close states.
package position

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/abdulloh5007/backtest-core/internal/money"
)

// Status is the explicit lifecycle state of a Position. Close reason and
// ClosedAt are invariants of the terminal variants rather than separate
// nullable fields scattered across the struct.
type Status string

const (
	Pending    Status = "PENDING"
	Open       Status = "OPEN"
	ClosedTP   Status = "CLOSED_TP"
	ClosedSL   Status = "CLOSED_SL"
	ClosedBL   Status = "CLOSED_BL"
	Liquidated Status = "LIQUIDATED"
)

// IsTerminal reports whether s is a closed/terminal status.
func (s Status) IsTerminal() bool {
	switch s {
	case ClosedTP, ClosedSL, ClosedBL, Liquidated:
		return true
	default:
		return false
	}
}

// Fill records a single averaging event (entry or DCA) against a position.
type Fill struct {
	Time        int64
	Price       decimal.Decimal
	AddedVolume decimal.Decimal
}

// Position is the stored, mutable state of a single trade the simulator is
// tracking. Positions are owned exclusively by the simulator; strategies
// receive a reference and may mutate only TP/SL metadata.
type Position struct {
	ID                      string
	Direction               money.Direction
	Volume                  decimal.Decimal
	EntryPrice              decimal.Decimal
	AverageEntryPrice       decimal.Decimal
	CurrentPrice            decimal.Decimal
	TakeProfitPrice         *decimal.Decimal
	StopLossPrice           *decimal.Decimal
	ExpectedProfitPercent   *decimal.Decimal
	ExpectedStopLossPercent *decimal.Decimal
	CreatedAt               int64
	ClosedAt                *int64
	Status                  Status
	Fills                   []Fill
	ExchangePositionID      string

	// TickSize is needed by IsBreakevenLockExecuted and is fixed for the
	// life of the position (set at entry from the pair's exchange metadata).
	TickSize decimal.Decimal

	// PendingLevels are resting DCA grid rungs queued by the strategy at
	// entry, ordered from closest to entry to furthest. The simulator
	// drains triggered levels front-to-back every candle.
	PendingLevels []PendingLevel

	// BreakevenLockTriggerPrice and PartialClose* are one-shot price
	// levels a strategy may arm on the position; the simulator clears
	// each to nil once executed.
	BreakevenLockTriggerPrice *decimal.Decimal
	PartialCloseTriggerPrice  *decimal.Decimal
	PartialCloseVolume        *decimal.Decimal
}

// PendingLevel is one untriggered DCA grid rung: a price to average into
// the position at, and how much volume to add when it triggers.
type PendingLevel struct {
	Price  decimal.Decimal
	Volume decimal.Decimal
}

// QueueLevel appends a resting DCA level. Callers must queue in
// worsening order (closest to entry first) so TakeTriggeredLevels can
// pop strictly from the front.
func (p *Position) QueueLevel(price, volume decimal.Decimal) {
	p.PendingLevels = append(p.PendingLevels, PendingLevel{Price: price, Volume: volume})
}

// TakeTriggeredLevels pops and returns every leading pending level whose
// price lies within [low, high], stopping at the first level that does
// not trigger (a large single-candle move may trigger several levels at
// once; a level whose price hasn't been reached yet blocks the ones
// behind it, since the grid must fill in order).
func (p *Position) TakeTriggeredLevels(low, high decimal.Decimal) []PendingLevel {
	var triggered []PendingLevel
	for len(p.PendingLevels) > 0 {
		lvl := p.PendingLevels[0]
		if lvl.Price.LessThan(low) || lvl.Price.GreaterThan(high) {
			break
		}
		triggered = append(triggered, lvl)
		p.PendingLevels = p.PendingLevels[1:]
	}
	return triggered
}

// New constructs a PENDING position with no fills yet.
func New(id string, dir money.Direction, tickSize decimal.Decimal, createdAt int64) *Position {
	return &Position{
		ID:        id,
		Direction: dir,
		Volume:    decimal.Zero,
		Status:    Pending,
		CreatedAt: createdAt,
		TickSize:  tickSize,
	}
}

var (
	// ErrAlreadyTerminal is returned when a fill or close is attempted
	// against a position that already reached a terminal status.
	ErrAlreadyTerminal = errors.New("position: already in a terminal state")
	// ErrNonPositiveFill is returned for a fill with non-positive price or
	// volume.
	ErrNonPositiveFill = errors.New("position: fill price and volume must be positive")
)

// ApplyFill averages a fill of addedVolume at price into the position,
// transitioning PENDING -> OPEN on the first fill and recomputing the
// volume-weighted AverageEntryPrice on every fill thereafter.
func (p *Position) ApplyFill(t int64, price, addedVolume decimal.Decimal) error {
	if p.Status.IsTerminal() {
		return ErrAlreadyTerminal
	}
	if !price.IsPositive() || !addedVolume.IsPositive() {
		return ErrNonPositiveFill
	}

	priorVolume := p.Volume
	newVolume := priorVolume.Add(addedVolume)
	if priorVolume.IsZero() {
		p.EntryPrice = price
		p.AverageEntryPrice = price
	} else {
		weighted := p.AverageEntryPrice.Mul(priorVolume).Add(price.Mul(addedVolume))
		p.AverageEntryPrice = weighted.Div(newVolume)
	}
	p.Volume = newVolume
	p.Fills = append(p.Fills, Fill{Time: t, Price: price, AddedVolume: addedVolume})
	if p.Status == Pending {
		p.Status = Open
	}
	return nil
}

// ReduceVolume removes qty from the position's volume without recomputing
// AverageEntryPrice (used by partial-close and breakeven-lock, which do not
// change the cost basis of the remaining volume).
func (p *Position) ReduceVolume(qty decimal.Decimal) error {
	if p.Status.IsTerminal() {
		return ErrAlreadyTerminal
	}
	if qty.GreaterThan(p.Volume) {
		return fmt.Errorf("position: cannot reduce %s below held volume %s", qty, p.Volume)
	}
	p.Volume = p.Volume.Sub(qty)
	return nil
}

// Close transitions the position to a terminal status at closedAt.
func (p *Position) Close(status Status, closedAt int64) error {
	if !status.IsTerminal() {
		return fmt.Errorf("position: %s is not a terminal status", status)
	}
	if p.Status.IsTerminal() {
		return ErrAlreadyTerminal
	}
	p.Status = status
	p.ClosedAt = &closedAt
	return nil
}

// IsBreakevenLockExecuted reports whether the stored StopLossPrice lies
// within two tick sizes of AverageEntryPrice. This is the sole mechanism
// for detecting an executed breakeven lock: there is no separate boolean
// flag, so the state survives persistence without extra fields.
func (p *Position) IsBreakevenLockExecuted() bool {
	if p.StopLossPrice == nil || p.AverageEntryPrice.IsZero() {
		return false
	}
	threshold := p.TickSize.Mul(decimal.NewFromInt(2))
	diff := p.StopLossPrice.Sub(p.AverageEntryPrice).Abs()
	return !diff.GreaterThan(threshold)
}

// SetStopLossPrice sets the stop loss, preserving the invariant that SL
// stays on the losing side of entry: LONG SL <= entry, SHORT SL >= entry.
// Breakeven-lock callers that need to move SL "to entry" should nudge by
// one tick on the losing side to keep the invariant strict until executed.
func (p *Position) SetStopLossPrice(price decimal.Decimal) error {
	entry := p.AverageEntryPrice
	if p.Direction == money.Long && price.GreaterThan(entry) {
		return fmt.Errorf("position: LONG stop loss %s must be <= entry %s", price, entry)
	}
	if p.Direction == money.Short && price.LessThan(entry) {
		return fmt.Errorf("position: SHORT stop loss %s must be >= entry %s", price, entry)
	}
	p.StopLossPrice = &price
	return nil
}

// MoveStopLossToBreakeven sets SL one tick on the losing side of the
// current average entry price (the canonical breakeven-lock move).
func (p *Position) MoveStopLossToBreakeven() error {
	tick := p.TickSize
	if tick.IsZero() {
		tick = decimal.Zero
	}
	var price decimal.Decimal
	if p.Direction == money.Long {
		price = p.AverageEntryPrice.Sub(tick)
	} else {
		price = p.AverageEntryPrice.Add(tick)
	}
	p.StopLossPrice = &price
	return nil
}

// UnrealizedPnL computes mark-to-market profit/loss at the given price for
// the position's current volume (fees are the simulator's concern, not
// the position's).
func (p *Position) UnrealizedPnL(markPrice decimal.Decimal) decimal.Decimal {
	diff := markPrice.Sub(p.AverageEntryPrice)
	if p.Direction == money.Short {
		diff = diff.Neg()
	}
	return diff.Mul(p.Volume)
}

// CreatedAtTime and ClosedAtTime convert the stored unix-seconds timestamps
// to time.Time for callers (statistics, event records) that want them.
func (p *Position) CreatedAtTime() time.Time { return time.Unix(p.CreatedAt, 0).UTC() }

func (p *Position) ClosedAtTime() *time.Time {
	if p.ClosedAt == nil {
		return nil
	}
	t := time.Unix(*p.ClosedAt, 0).UTC()
	return &t
}
