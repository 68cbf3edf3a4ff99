// Package result defines the flat Result record persisted at the end of a
// run (spec.md §6) and its JSON round-trip helpers.
package result

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// DirectionStats is the per-direction slice of trade outcomes (spec.md
// §6 "per-direction").
type DirectionStats struct {
	Finished int     `json:"finished"`
	Wins     int     `json:"wins"`
	Losses   int     `json:"losses"`
	BL       int     `json:"bl"`
	Shortest float64 `json:"shortest"`
	Longest  float64 `json:"longest"`
	Average  float64 `json:"average"`
}

// OpenPosition is one line of the result's open-positions list.
type OpenPosition struct {
	Direction      string          `json:"direction"`
	Entry          decimal.Decimal `json:"entry"`
	Volume         decimal.Decimal `json:"volume"`
	CreatedAt      int64           `json:"createdAt"`
	UnrealizedPnL  decimal.Decimal `json:"unrealizedPnl"`
	TimeHangingSec int64           `json:"timeHangingSec"`
}

// Result is the full flat summary of one backtest run, per spec.md §6.
// Risk-ratio fields are pointers so a zero-denominator result can be
// persisted as JSON null rather than a misleading 0.
type Result struct {
	ExchangeName    string            `json:"exchangeName"`
	Ticker          string            `json:"ticker"`
	MarketType      string            `json:"marketType"`
	Timeframe       string            `json:"timeframe"`
	Strategy        string            `json:"strategy"`
	StrategyParams  map[string]string `json:"strategyParams"`
	SimStart        int64             `json:"simStart"`
	SimEnd          int64             `json:"simEnd"`
	CreatedAt       int64             `json:"createdAt"`

	InitialBalance decimal.Decimal `json:"initialBalance"`
	FinalBalance   decimal.Decimal `json:"finalBalance"`
	PnL            decimal.Decimal `json:"pnl"`
	PnLPercent     decimal.Decimal `json:"pnlPercent"`
	MaxDrawdown    decimal.Decimal `json:"maxDrawdown"`
	Liquidated     bool            `json:"liquidated"`
	CoinPriceStart decimal.Decimal `json:"coinPriceStart"`
	CoinPriceEnd   decimal.Decimal `json:"coinPriceEnd"`

	TradesFinished int     `json:"tradesFinished"`
	TradesOpen     int     `json:"tradesOpen"`
	TradesPending  int     `json:"tradesPending"`
	TradesWins     int     `json:"tradesWins"`
	TradesLosses   int     `json:"tradesLosses"`
	TradesBL       int     `json:"tradesBL"`
	TradeShortest  float64 `json:"tradeShortest"`
	TradeLongest   float64 `json:"tradeLongest"`
	TradeAverage   float64 `json:"tradeAverage"`
	TradeIdle      float64 `json:"tradeIdle"`

	Sharpe       *float64 `json:"sharpe"`
	Sortino      *float64 `json:"sortino"`
	AvgReturn    *float64 `json:"avgReturn"`
	StdDeviation *float64 `json:"stdDeviation"`

	Long  DirectionStats `json:"long"`
	Short DirectionStats `json:"short"`

	OpenPositions []OpenPosition `json:"openPositions"`
}

// MarshalRecord serializes r to a single JSON object, the shape persisted
// to the result file and emitted as the eventlog "result" record's
// payload.
func MarshalRecord(r Result) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("result: marshal: %w", err)
	}
	return b, nil
}

// ParseRecord is the inverse of MarshalRecord, used by playback tooling
// that reads a persisted result file back in.
func ParseRecord(data []byte) (Result, error) {
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return Result{}, fmt.Errorf("result: unmarshal: %w", err)
	}
	return r, nil
}

// AsFields flattens r into the map shape eventlog.Event expects, so the
// same struct backs both the persisted file and the streamed "result"
// event.
func (r Result) AsFields() map[string]any {
	b, _ := json.Marshal(r)
	var fields map[string]any
	_ = json.Unmarshal(b, &fields)
	return fields
}
