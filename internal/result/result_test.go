package result

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalParseRoundTrip(t *testing.T) {
	sharpe := 1.25
	r := Result{
		ExchangeName:   "simulated",
		Ticker:         "BTCUSDT",
		Timeframe:      "1h",
		Strategy:       "rsi-reversal",
		StrategyParams: map[string]string{"period": "14"},
		InitialBalance: decimal.NewFromInt(1000),
		FinalBalance:   decimal.NewFromInt(1100),
		PnL:            decimal.NewFromInt(100),
		PnLPercent:     decimal.NewFromInt(10),
		TradesFinished: 6,
		Sharpe:         &sharpe,
	}

	data, err := MarshalRecord(r)
	require.NoError(t, err)

	parsed, err := ParseRecord(data)
	require.NoError(t, err)
	assert.Equal(t, r.Ticker, parsed.Ticker)
	assert.True(t, r.FinalBalance.Equal(parsed.FinalBalance))
	require.NotNil(t, parsed.Sharpe)
	assert.Equal(t, 1.25, *parsed.Sharpe)
	assert.Nil(t, parsed.Sortino)
}

func TestAsFieldsFlattensForEventlog(t *testing.T) {
	r := Result{Ticker: "ETHUSDT", TradesFinished: 3}
	fields := r.AsFields()
	assert.Equal(t, "ETHUSDT", fields["ticker"])
	assert.Equal(t, float64(3), fields["tradesFinished"])
}
