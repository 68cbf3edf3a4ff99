// Package dca builds Dollar-Cost-Averaging order grids: a sequence of
// progressively-worse-priced levels that lower a position's average entry.
package dca

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/abdulloh5007/backtest-core/internal/money"
	"github.com/abdulloh5007/backtest-core/internal/strategy"
)

// OffsetMode is a tagged variant (not a boolean) because a third mode is
// foreseen by the source spec: FromEntry accumulates offsets linearly from
// the entry price; FromPrevious composes each offset multiplicatively
// relative to the previous level's price.
type OffsetMode string

const (
	FromEntry    OffsetMode = "FROM_ENTRY"
	FromPrevious OffsetMode = "FROM_PREVIOUS"
)

// Level is a single grid rung: how much to buy/sell and at what offset from
// entry, denominated per volumeMode.
type Level struct {
	VolumeValue   decimal.Decimal
	VolumeMode    strategy.VolumeMode
	OffsetPercent decimal.Decimal
}

// OrderMapEntry is a resolved grid level ready for order placement: an
// absolute quote-currency volume and a signed percent offset from entry.
type OrderMapEntry struct {
	Volume decimal.Decimal // quote currency
	Offset decimal.Decimal // signed percent from entry
}

// Params configures FromParameters grid construction.
type Params struct {
	NumberOfLevels      int
	EntryVolume         decimal.Decimal
	VolumeMultiplier    decimal.Decimal
	PriceDeviation      decimal.Decimal
	DeviationMultiplier decimal.Decimal
	OffsetMode          OffsetMode
	VolumeMode          strategy.VolumeMode
}

// FromParameters builds the ordered level sequence per spec.md §4.5:
// level 0 has zero offset and the configured entry volume; level 1's
// offset is priceDeviation; each subsequent level's deviation is the
// previous deviation times deviationMultiplier, and each subsequent
// volume is the previous volume times volumeMultiplier.
func FromParameters(p Params) ([]Level, error) {
	if p.NumberOfLevels < 1 {
		return nil, fmt.Errorf("dca: numberOfLevels must be >= 1, got %d", p.NumberOfLevels)
	}
	levels := make([]Level, 0, p.NumberOfLevels)
	levels = append(levels, Level{VolumeValue: p.EntryVolume, VolumeMode: p.VolumeMode, OffsetPercent: decimal.Zero})
	if p.NumberOfLevels == 1 {
		return levels, nil
	}

	deviation := p.PriceDeviation
	volume := p.EntryVolume.Mul(p.VolumeMultiplier)
	levels = append(levels, Level{VolumeValue: volume, VolumeMode: p.VolumeMode, OffsetPercent: deviation})

	for i := 2; i < p.NumberOfLevels; i++ {
		deviation = deviation.Mul(p.DeviationMultiplier)
		volume = volume.Mul(p.VolumeMultiplier)
		levels = append(levels, Level{VolumeValue: volume, VolumeMode: p.VolumeMode, OffsetPercent: deviation})
	}
	return levels, nil
}

// BuildOrderMap converts a level list into absolute order entries using the
// offset-mode algebra of spec.md §3: for FROM_PREVIOUS, each step composes
// multiplicatively (ratio *= (1 - step/100) for LONG, ratio *= (1 +
// step/100) for SHORT) before being converted back to a percent offset from
// entry; for FROM_ENTRY, offsets accumulate linearly as listed. sign is -1
// for LONG (offsets sit below entry) and +1 for SHORT.
func BuildOrderMap(levels []Level, offsetMode OffsetMode, dir money.Direction, ctx strategy.TradingContext) ([]OrderMapEntry, error) {
	sign := decimal.NewFromInt(-1)
	if dir == money.Short {
		sign = decimal.NewFromInt(1)
	}

	out := make([]OrderMapEntry, 0, len(levels))
	ratio := decimal.NewFromInt(1)
	hundred := decimal.NewFromInt(100)

	for i, lvl := range levels {
		spec := strategy.VolumeSpec{Value: lvl.VolumeValue, Mode: lvl.VolumeMode}
		volume, err := spec.Resolve(ctx)
		if err != nil {
			return nil, fmt.Errorf("dca: resolving level %d volume: %w", i, err)
		}

		var magnitude decimal.Decimal
		switch offsetMode {
		case FromEntry:
			magnitude = lvl.OffsetPercent
		case FromPrevious:
			if i == 0 {
				magnitude = decimal.Zero
			} else {
				step := lvl.OffsetPercent
				if dir == money.Long {
					ratio = ratio.Mul(decimal.NewFromInt(1).Sub(step.Div(hundred)))
					magnitude = decimal.NewFromInt(1).Sub(ratio).Mul(hundred)
				} else {
					ratio = ratio.Mul(decimal.NewFromInt(1).Add(step.Div(hundred)))
					magnitude = ratio.Sub(decimal.NewFromInt(1)).Mul(hundred)
				}
			}
		default:
			return nil, fmt.Errorf("dca: unknown offset mode %q", offsetMode)
		}
		offset := sign.Mul(magnitude)

		out = append(out, OrderMapEntry{Volume: volume, Offset: offset})
	}
	return out, nil
}
