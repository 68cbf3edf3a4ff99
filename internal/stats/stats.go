// Package stats computes the post-run statistics pipeline: financial
// summary, trade durations, idle time, per-direction splits, and risk
// ratios (spec.md §4.7).
package stats

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/abdulloh5007/backtest-core/internal/money"
	"github.com/abdulloh5007/backtest-core/internal/position"
)

// MinTrades is the minimum number of finished trades required before risk
// ratios are computed at all (spec.md §4.7).
const MinTrades = 5

// Interval is a half-open [Start, End) span used by the idle-time merge.
type Interval struct {
	Start int64
	End   int64
}

// Financial holds the balance-derived summary fields.
type Financial struct {
	PnL            decimal.Decimal
	PnLPercent     decimal.Decimal
	MaxDrawdown    decimal.Decimal
	CoinPriceStart decimal.Decimal
	CoinPriceEnd   decimal.Decimal
}

// Durations holds the shortest/longest/average trade length in seconds.
type Durations struct {
	Shortest float64
	Longest  float64
	Average  float64
}

// DirectionSplit is the per-direction win/loss/breakeven-lock count plus
// its own duration summary.
type DirectionSplit struct {
	Finished  int
	Wins      int
	Losses    int
	BL        int
	Durations Durations
}

// RiskRatios are nil when fewer than MinTrades finished trades exist or
// initialBalance is non-positive (spec.md §4.7: "return null, not zero").
type RiskRatios struct {
	Sharpe       *float64
	Sortino      *float64
	AvgReturn    *float64
	StdDeviation *float64
}

// ComputeFinancial derives the financial summary from initial/final
// balance and the min observed unrealized excursion.
func ComputeFinancial(initialBalance, finalBalance, maxUnrealizedDrawdown, coinPriceStart, coinPriceEnd decimal.Decimal) Financial {
	pnl := finalBalance.Sub(initialBalance)
	var pnlPercent decimal.Decimal
	if initialBalance.IsPositive() {
		pnlPercent = pnl.Div(initialBalance).Mul(decimal.NewFromInt(100))
	}
	return Financial{
		PnL:            pnl,
		PnLPercent:     pnlPercent,
		MaxDrawdown:    maxUnrealizedDrawdown,
		CoinPriceStart: coinPriceStart,
		CoinPriceEnd:   coinPriceEnd,
	}
}

// ComputeDurations returns shortest/longest/average trade length in
// seconds over a set of finished positions. Positions without a ClosedAt
// are ignored (callers should only pass finished positions).
func ComputeDurations(positions []*position.Position) Durations {
	if len(positions) == 0 {
		return Durations{}
	}
	var shortest, longest, sum float64
	first := true
	for _, p := range positions {
		if p.ClosedAt == nil {
			continue
		}
		d := float64(*p.ClosedAt - p.CreatedAt)
		if first {
			shortest, longest = d, d
			first = false
		} else {
			if d < shortest {
				shortest = d
			}
			if d > longest {
				longest = d
			}
		}
		sum += d
	}
	count := 0
	for _, p := range positions {
		if p.ClosedAt != nil {
			count++
		}
	}
	if count == 0 {
		return Durations{}
	}
	return Durations{Shortest: shortest, Longest: longest, Average: sum / float64(count)}
}

// MergeIntervals sorts a copy of intervals by Start and merges
// overlapping/touching spans; the input slice is left unmodified.
func MergeIntervals(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}
	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	merged := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &merged[len(merged)-1]
		if iv.Start <= last.End {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// IdleSeconds computes total simulation span minus the length of the
// union of position intervals, each clipped to [simStart, simEnd].
func IdleSeconds(simStart, simEnd int64, intervals []Interval) float64 {
	if simEnd <= simStart {
		return 0
	}
	clipped := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		start, end := iv.Start, iv.End
		if start < simStart {
			start = simStart
		}
		if end > simEnd {
			end = simEnd
		}
		if end > start {
			clipped = append(clipped, Interval{Start: start, End: end})
		}
	}
	merged := MergeIntervals(clipped)
	var covered int64
	for _, iv := range merged {
		covered += iv.End - iv.Start
	}
	total := simEnd - simStart
	idle := total - covered
	if idle < 0 {
		idle = 0
	}
	return float64(idle)
}

// SplitByDirection partitions finished positions into per-direction win
// (closed TP), loss (closed SL, no lock), and breakeven-lock (closed SL
// with the lock executed, or closed BL directly) buckets.
func SplitByDirection(positions []*position.Position) (long, short DirectionSplit) {
	var longPos, shortPos []*position.Position
	for _, p := range positions {
		switch p.Status {
		case position.ClosedTP:
			if p.Direction == money.Long {
				long.Wins++
			} else {
				short.Wins++
			}
		case position.ClosedBL:
			if p.Direction == money.Long {
				long.BL++
			} else {
				short.BL++
			}
		case position.ClosedSL:
			if p.IsBreakevenLockExecuted() {
				if p.Direction == money.Long {
					long.BL++
				} else {
					short.BL++
				}
			} else {
				if p.Direction == money.Long {
					long.Losses++
				} else {
					short.Losses++
				}
			}
		default:
			continue
		}
		if p.Direction == money.Long {
			long.Finished++
			longPos = append(longPos, p)
		} else {
			short.Finished++
			shortPos = append(shortPos, p)
		}
	}
	long.Durations = ComputeDurations(longPos)
	short.Durations = ComputeDurations(shortPos)
	return long, short
}

// ComputeRiskRatios computes Sharpe/Sortino per spec.md §4.7. Returns all
// nil fields when fewer than MinTrades finished trades exist or
// initialBalance is non-positive. durationDays is the wall-clock span of
// the run in days; when zero, tradesPerYear falls back to totalTrades.
func ComputeRiskRatios(finished []*position.Position, initialBalance decimal.Decimal, durationDays float64) RiskRatios {
	total := len(finished)
	if total < MinTrades || !initialBalance.IsPositive() {
		return RiskRatios{}
	}

	returns := make([]float64, 0, total)
	initF, _ := initialBalance.Float64()
	for _, p := range finished {
		pnl, _ := positionRealizedPnL(p).Float64()
		returns = append(returns, pnl/initF)
	}

	mean := avg(returns)
	var sqDiffSum, downsideSqSum float64
	for _, r := range returns {
		diff := r - mean
		sqDiffSum += diff * diff
		if diff < 0 {
			downsideSqSum += diff * diff
		}
	}
	std := math.Sqrt(sqDiffSum / float64(total))
	downsideStd := math.Sqrt(downsideSqSum / float64(total))

	tradesPerYear := float64(total)
	if durationDays > 0 {
		tradesPerYear = float64(total) / durationDays * 365
	}
	annualisation := math.Sqrt(tradesPerYear)

	out := RiskRatios{}
	avgReturn := mean
	stdDev := std
	out.AvgReturn = &avgReturn
	out.StdDeviation = &stdDev

	if std > 0 {
		sharpe := mean / std * annualisation
		if finite(sharpe) {
			out.Sharpe = &sharpe
		}
	}
	if downsideStd > 0 {
		sortino := mean / downsideStd * annualisation
		if finite(sortino) {
			out.Sortino = &sortino
		}
	}
	return out
}

// positionRealizedPnL approximates a finished position's realized PnL as
// its unrealized PnL at close price, matching the simulator's convention
// that a closed position's CurrentPrice is frozen at its close price.
func positionRealizedPnL(p *position.Position) decimal.Decimal {
	return p.UnrealizedPnL(p.CurrentPrice)
}

func avg(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
