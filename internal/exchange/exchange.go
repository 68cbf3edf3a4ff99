// Package exchange defines the abstract venue contract strategies trade
// against at the seam, plus a deterministic in-memory stub used during
// backtests. Live exchange drivers (REST clients, credential handling) are
// a collaborator's concern (spec.md §1) and live outside this package.
package exchange

import (
	"github.com/shopspring/decimal"

	"github.com/abdulloh5007/backtest-core/internal/money"
)

// MarginMode is the margin isolation mode for a futures market.
type MarginMode string

const (
	Isolated MarginMode = "ISOLATED"
	Cross    MarginMode = "CROSS"
)

// MarketType distinguishes spot and derivatives markets; fee schedules and
// liquidation semantics differ between them.
type MarketType string

const (
	Spot    MarketType = "SPOT"
	Futures MarketType = "FUTURES"
)

// Market identifies the trading pair an exchange call targets.
type Market struct {
	Symbol     string
	MarketType MarketType
}

// Exchange is the full seam strategies and the simulator use to read
// market state and place/manage orders. The production implementation is
// a live REST client (out of scope here); Simulated below is the
// deterministic stub the backtest core uses.
type Exchange interface {
	GetCurrentPrice(m Market) (money.Money, error)
	OpenPosition(m Market, direction money.Direction, amount decimal.Decimal, price *decimal.Decimal, takeProfitPercent *decimal.Decimal) (bool, error)
	PlaceLimitOrder(m Market, amount, price decimal.Decimal, direction money.Direction, takeProfitPercent *decimal.Decimal) (string, error)
	PlaceLimitClose(m Market, volume, price decimal.Decimal, direction money.Direction) (string, error)
	PartialClose(m Market, volume decimal.Decimal, isBreakevenLock bool, closePrice *decimal.Decimal) (bool, error)
	SetTakeProfit(m Market, price decimal.Decimal)
	SetStopLoss(m Market, price decimal.Decimal)
	RemoveLimitOrders(m Market) (bool, error)
	GetQtyStep(m Market) decimal.Decimal
	GetTickSize(m Market) decimal.Decimal
	GetLeverage(m Market) (decimal.Decimal, bool)
	GetMarginMode(m Market) (MarginMode, bool)
	SwitchMarginMode(m Market, mode MarginMode) (bool, error)
	GetTakerFee(mt MarketType) decimal.Decimal
	GetMakerFee(mt MarketType) decimal.Decimal
}

// FeeSchedule is the maker/taker fee rate pair for one market type. The
// spec.md §9 open question promotes fee schedules from the source's
// hard-coded-per-exchange constants to an explicit run input.
type FeeSchedule struct {
	MakerRate decimal.Decimal
	TakerRate decimal.Decimal
}

// DefaultFeeSchedules are the defaults named in spec.md §4.6.
func DefaultFeeSchedules() map[MarketType]FeeSchedule {
	return map[MarketType]FeeSchedule{
		Spot: {
			MakerRate: decimal.NewFromFloat(0.001),
			TakerRate: decimal.NewFromFloat(0.001),
		},
		Futures: {
			MakerRate: decimal.NewFromFloat(0.0002),
			TakerRate: decimal.NewFromFloat(0.00055),
		},
	}
}
