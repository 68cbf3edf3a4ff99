package stats

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdulloh5007/backtest-core/internal/money"
	"github.com/abdulloh5007/backtest-core/internal/position"
)

func closedPosition(t *testing.T, dir money.Direction, entry, closePrice string, createdAt, closedAt int64, status position.Status) *position.Position {
	t.Helper()
	p := position.New("id", dir, decimal.NewFromFloat(0.1), createdAt)
	require.NoError(t, p.ApplyFill(createdAt, decimal.RequireFromString(entry), decimal.NewFromInt(1)))
	p.CurrentPrice = decimal.RequireFromString(closePrice)
	require.NoError(t, p.Close(status, closedAt))
	return p
}

func TestComputeFinancial(t *testing.T) {
	f := ComputeFinancial(decimal.NewFromInt(1000), decimal.NewFromInt(1100), decimal.NewFromInt(-50), decimal.NewFromInt(100), decimal.NewFromInt(110))
	assert.True(t, f.PnL.Equal(decimal.NewFromInt(100)))
	assert.True(t, f.PnLPercent.Equal(decimal.NewFromInt(10)))
	assert.True(t, f.MaxDrawdown.Equal(decimal.NewFromInt(-50)))
}

func TestMergeIntervalsOverlapping(t *testing.T) {
	merged := MergeIntervals([]Interval{
		{Start: 0, End: 10},
		{Start: 5, End: 15},
		{Start: 20, End: 30},
	})
	require.Len(t, merged, 2)
	assert.Equal(t, Interval{0, 15}, merged[0])
	assert.Equal(t, Interval{20, 30}, merged[1])
}

func TestIdleSecondsSubtractsCoveredSpan(t *testing.T) {
	idle := IdleSeconds(0, 100, []Interval{{Start: 10, End: 30}, {Start: 20, End: 40}})
	assert.Equal(t, 70.0, idle)
}

func TestIdleSecondsClipsToWindow(t *testing.T) {
	idle := IdleSeconds(50, 100, []Interval{{Start: 0, End: 60}})
	assert.Equal(t, 40.0, idle)
}

func TestSplitByDirectionCountsWinsLossesBL(t *testing.T) {
	positions := []*position.Position{
		closedPosition(t, money.Long, "100", "110", 0, 10, position.ClosedTP),
		closedPosition(t, money.Long, "100", "90", 0, 10, position.ClosedSL),
		closedPosition(t, money.Short, "100", "90", 0, 10, position.ClosedTP),
	}
	long, short := SplitByDirection(positions)
	assert.Equal(t, 2, long.Finished)
	assert.Equal(t, 1, long.Wins)
	assert.Equal(t, 1, long.Losses)
	assert.Equal(t, 1, short.Finished)
	assert.Equal(t, 1, short.Wins)
}

func TestComputeRiskRatiosNilBelowMinTrades(t *testing.T) {
	positions := []*position.Position{
		closedPosition(t, money.Long, "100", "110", 0, 10, position.ClosedTP),
	}
	ratios := ComputeRiskRatios(positions, decimal.NewFromInt(1000), 1)
	assert.Nil(t, ratios.Sharpe)
	assert.Nil(t, ratios.Sortino)
}

func TestComputeRiskRatiosPopulatedAtMinTrades(t *testing.T) {
	var positions []*position.Position
	closes := []string{"110", "90", "120", "95", "130"}
	for i, c := range closes {
		positions = append(positions, closedPosition(t, money.Long, "100", c, int64(i*100), int64(i*100+50), position.ClosedTP))
	}
	ratios := ComputeRiskRatios(positions, decimal.NewFromInt(1000), 1)
	require.NotNil(t, ratios.AvgReturn)
	require.NotNil(t, ratios.StdDeviation)
}
