package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRSIInsufficientInputReturnsNil(t *testing.T) {
	prices := []float64{1, 2, 3}
	assert.Nil(t, RSI(prices, 14))
}

func TestRSIAllGainsSaturatesAt100(t *testing.T) {
	prices := make([]float64, 0, 20)
	for i := 0; i < 20; i++ {
		prices = append(prices, float64(100+i))
	}
	rsi := RSI(prices, 14)
	require.NotEmpty(t, rsi)
	for _, v := range rsi {
		assert.InDelta(t, 100.0, v, 0.0001)
	}
}

func TestRSISignalsClassify(t *testing.T) {
	signals := RSISignals([]float64{10, 50, 90}, 30, 70)
	assert.Equal(t, []Signal{Oversold, Neutral, Overbought}, signals)
}

func TestEMASeededAtSMA(t *testing.T) {
	prices := []float64{1, 2, 3, 4, 5}
	ema := EMA(prices, 3)
	require.Len(t, ema, 3)
	assert.InDelta(t, 2.0, ema[0], 0.0001) // SMA(1,2,3)
}

func TestEMAInsufficientInputReturnsNil(t *testing.T) {
	assert.Nil(t, EMA([]float64{1, 2}, 5))
}

func TestBollingerWidthIsZeroOnFlatSeries(t *testing.T) {
	prices := []float64{10, 10, 10, 10, 10}
	bands := Bollinger(prices, 5, 2)
	require.Len(t, bands, 1)
	assert.Equal(t, 10.0, bands[0].Upper)
	assert.Equal(t, 10.0, bands[0].Middle)
	assert.Equal(t, 10.0, bands[0].Lower)
}

func TestATRShortInputReturnsZero(t *testing.T) {
	assert.Equal(t, 0.0, ATR([]float64{1}, []float64{1}, []float64{1}, 14))
}

func TestATRComputesMeanTrueRange(t *testing.T) {
	highs := []float64{10, 11, 12}
	lows := []float64{9, 9, 10}
	closes := []float64{9.5, 10.5, 11.5}
	atr := ATR(highs, lows, closes, 2)
	// bar1: TR = max(11-9, |11-9.5|, |9-9.5|) = max(2,1.5,0.5)=2
	// bar2: TR = max(12-10,|12-10.5|,|10-10.5|)=max(2,1.5,0.5)=2
	assert.InDelta(t, 2.0, atr, 0.0001)
}
