package candle

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestValidateSeriesRejectsNonMonotonic(t *testing.T) {
	series := []Candle{
		{OpenTime: 60, Open: d("100"), High: d("101"), Low: d("99"), Close: d("100")},
		{OpenTime: 0, Open: d("100"), High: d("101"), Low: d("99"), Close: d("100")},
	}
	err := ValidateSeries(series)
	require.ErrorIs(t, err, ErrNonMonotonic)
}

func TestValidateSeriesAcceptsGaps(t *testing.T) {
	series := []Candle{
		{OpenTime: 0, Open: d("100"), High: d("101"), Low: d("99"), Close: d("100")},
		{OpenTime: 6000, Open: d("100"), High: d("101"), Low: d("99"), Close: d("100")},
	}
	require.NoError(t, ValidateSeries(series))
}

func TestCandleValidateRejectsBadOHLC(t *testing.T) {
	bad := Candle{OpenTime: 0, Open: d("100"), High: d("100"), Low: d("101"), Close: d("100")}
	require.Error(t, bad.Validate())
}

func TestWindowEvictsOldest(t *testing.T) {
	w := NewWindow(2)
	w.Append(Candle{OpenTime: 0, Close: d("1")})
	w.Append(Candle{OpenTime: 60, Close: d("2")})
	w.Append(Candle{OpenTime: 120, Close: d("3")})
	require.Equal(t, 2, w.Len())
	assert.Equal(t, int64(60), w.All()[0].OpenTime)
	assert.Equal(t, int64(120), w.Last().OpenTime)
}

func TestWindowHighsLows(t *testing.T) {
	w := NewWindow(0)
	w.Append(Candle{OpenTime: 0, High: d("105"), Low: d("95"), Close: d("100")})
	w.Append(Candle{OpenTime: 60, High: d("110"), Low: d("98"), Close: d("108")})
	assert.True(t, w.Highs()[1].Equal(d("110")))
	assert.True(t, w.Lows()[0].Equal(d("95")))
}

func TestFileSourceParsesCSV(t *testing.T) {
	csvData := "0,100,101,99,100,10\n60,100,110,99,108,20\n"
	src, err := NewFileSource(strings.NewReader(csvData))
	require.NoError(t, err)
	out, err := src.Fetch(context.Background(), 0, 60)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, out[1].Close.Equal(d("108")))
}

func TestFileSourceRejectsEmpty(t *testing.T) {
	_, err := NewFileSource(strings.NewReader(""))
	require.Error(t, err)
}
