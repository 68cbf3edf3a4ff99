package position

import (
	"github.com/shopspring/decimal"

	"github.com/abdulloh5007/backtest-core/internal/money"
)

// ExchangeTPSetter is the single-market take-profit setter the position
// pushes a recomputed take-profit price to. exchange.Exchange does not
// satisfy it directly: its SetTakeProfit also takes the Market.
type ExchangeTPSetter interface {
	SetTakeProfit(price decimal.Decimal)
}

// UpdateTakeProfit recomputes TakeProfitPrice from the current
// AverageEntryPrice and ExpectedProfitPercent whenever the average entry
// has shifted since the last update (i.e. a DCA fill moved the cost
// basis), and pushes the new price to the exchange seam. A no-op if no
// expected-profit percent has been configured.
func (p *Position) UpdateTakeProfit(ex ExchangeTPSetter) {
	if p.ExpectedProfitPercent == nil {
		return
	}
	newTP := money.PercentModify(p.AverageEntryPrice, *p.ExpectedProfitPercent, p.Direction, true)
	if p.TakeProfitPrice != nil && p.TakeProfitPrice.Equal(newTP) {
		return
	}
	p.TakeProfitPrice = &newTP
	if ex != nil {
		ex.SetTakeProfit(newTP)
	}
}

// ProgressToTakeProfit returns the percent progress of current toward the
// take-profit price, measured from AverageEntryPrice: 0 at entry, 100 at
// TP. Returns false if TP is not set or entry==TP (degenerate).
func (p *Position) ProgressToTakeProfit(current decimal.Decimal) (decimal.Decimal, bool) {
	if p.TakeProfitPrice == nil {
		return decimal.Zero, false
	}
	denom := p.TakeProfitPrice.Sub(p.AverageEntryPrice)
	if denom.IsZero() {
		return decimal.Zero, false
	}
	progress := current.Sub(p.AverageEntryPrice).Div(denom).Mul(decimal.NewFromInt(100))
	return progress, true
}
