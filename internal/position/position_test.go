package position

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdulloh5007/backtest-core/internal/money"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestApplyFillTransitionsPendingToOpen(t *testing.T) {
	p := New("p1", money.Long, d("0.01"), 0)
	require.Equal(t, Pending, p.Status)

	require.NoError(t, p.ApplyFill(0, d("100"), d("1")))
	assert.Equal(t, Open, p.Status)
	assert.True(t, p.AverageEntryPrice.Equal(d("100")))
}

func TestApplyFillAveragesEntry(t *testing.T) {
	p := New("p1", money.Long, d("0.01"), 0)
	require.NoError(t, p.ApplyFill(0, d("100"), d("1")))
	require.NoError(t, p.ApplyFill(60, d("90"), d("2")))
	// (100*1 + 90*2)/3 = 93.333...
	expected := d("100").Mul(d("1")).Add(d("90").Mul(d("2"))).Div(d("3"))
	assert.True(t, p.AverageEntryPrice.Equal(expected))
}

func TestApplyFillRejectsOnTerminal(t *testing.T) {
	p := New("p1", money.Long, d("0.01"), 0)
	require.NoError(t, p.ApplyFill(0, d("100"), d("1")))
	require.NoError(t, p.Close(ClosedTP, 60))
	err := p.ApplyFill(120, d("100"), d("1"))
	require.ErrorIs(t, err, ErrAlreadyTerminal)
}

func TestIsBreakevenLockExecuted(t *testing.T) {
	p := New("p1", money.Long, d("0.01"), 0)
	require.NoError(t, p.ApplyFill(0, d("100"), d("1")))
	require.NoError(t, p.SetStopLossPrice(d("95")))
	assert.False(t, p.IsBreakevenLockExecuted())

	require.NoError(t, p.MoveStopLossToBreakeven())
	assert.True(t, p.IsBreakevenLockExecuted())
	assert.True(t, p.StopLossPrice.LessThanOrEqual(p.AverageEntryPrice))
}

func TestSetStopLossPriceEnforcesLosingSide(t *testing.T) {
	p := New("p1", money.Long, d("0.01"), 0)
	require.NoError(t, p.ApplyFill(0, d("100"), d("1")))
	err := p.SetStopLossPrice(d("105"))
	require.Error(t, err)

	pShort := New("p2", money.Short, d("0.01"), 0)
	require.NoError(t, pShort.ApplyFill(0, d("100"), d("1")))
	err = pShort.SetStopLossPrice(d("95"))
	require.Error(t, err)
	require.NoError(t, pShort.SetStopLossPrice(d("105")))
}

func TestUpdateTakeProfitRecomputesOnAverageShift(t *testing.T) {
	p := New("p1", money.Long, d("0.01"), 0)
	require.NoError(t, p.ApplyFill(0, d("100"), d("1")))
	five := d("5")
	p.ExpectedProfitPercent = &five
	p.UpdateTakeProfit(nil)
	require.NotNil(t, p.TakeProfitPrice)
	assert.True(t, p.TakeProfitPrice.Equal(d("105")))

	require.NoError(t, p.ApplyFill(60, d("90"), d("1")))
	p.UpdateTakeProfit(nil)
	expectedAvg := d("95")
	assert.True(t, p.AverageEntryPrice.Equal(expectedAvg))
	assert.True(t, p.TakeProfitPrice.Equal(d("99.75")))
}

func TestTakeTriggeredLevelsPopsFromFrontWithinRange(t *testing.T) {
	p := New("p1", money.Long, d("0.01"), 0)
	require.NoError(t, p.ApplyFill(0, d("100"), d("1")))
	p.QueueLevel(d("90"), d("1"))
	p.QueueLevel(d("81"), d("2"))
	p.QueueLevel(d("72.9"), d("4"))

	triggered := p.TakeTriggeredLevels(d("80"), d("95"))
	require.Len(t, triggered, 2)
	assert.True(t, triggered[0].Price.Equal(d("90")))
	assert.True(t, triggered[1].Price.Equal(d("81")))
	require.Len(t, p.PendingLevels, 1)
	assert.True(t, p.PendingLevels[0].Price.Equal(d("72.9")))
}

func TestTakeTriggeredLevelsStopsAtFirstUntouched(t *testing.T) {
	p := New("p1", money.Long, d("0.01"), 0)
	require.NoError(t, p.ApplyFill(0, d("100"), d("1")))
	p.QueueLevel(d("90"), d("1"))
	p.QueueLevel(d("81"), d("2"))

	triggered := p.TakeTriggeredLevels(d("95"), d("99"))
	assert.Empty(t, triggered)
	require.Len(t, p.PendingLevels, 2)
}

func TestUnrealizedPnLSignByDirection(t *testing.T) {
	long := New("p1", money.Long, d("0.01"), 0)
	require.NoError(t, long.ApplyFill(0, d("100"), d("1")))
	assert.True(t, long.UnrealizedPnL(d("110")).Equal(d("10")))

	short := New("p2", money.Short, d("0.01"), 0)
	require.NoError(t, short.ApplyFill(0, d("100"), d("1")))
	assert.True(t, short.UnrealizedPnL(d("110")).Equal(d("-10")))
}
