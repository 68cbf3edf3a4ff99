// Package money models signed quote/base amounts with currency-aware
// arithmetic and exchange-style rounding to tick/step multiples.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Direction distinguishes which side of a trade an amount belongs to, for
// the purposes of "profit direction" percent modification.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// ErrCurrencyMismatch is returned when Add/Sub is attempted across two
// Money values denominated in different currencies.
var ErrCurrencyMismatch = errors.New("money: currency mismatch")

// Money pairs a decimal amount with a short currency identifier. Amount is
// non-negative for volumes and may be signed for PnL figures.
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// New constructs a Money value.
func New(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

// Zero returns the additive identity in the given currency.
func Zero(currency string) Money {
	return Money{Amount: decimal.Zero, Currency: currency}
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Amount.String(), m.Currency)
}

// Add returns m+other. Both operands must share a currency.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}, nil
}

// Sub returns m-other. Both operands must share a currency.
func (m Money) Sub(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{Amount: m.Amount.Sub(other.Amount), Currency: m.Currency}, nil
}

// PercentModify applies +p% in the profit direction and -p% in the loss
// direction (for LONG that means +p% moves the price up, -p% moves it down;
// for SHORT the sign is reversed). inProfitDirection selects which way the
// percent is applied.
func PercentModify(price decimal.Decimal, percent decimal.Decimal, dir Direction, inProfitDirection bool) decimal.Decimal {
	sign := decimal.NewFromInt(1)
	if dir == Long && !inProfitDirection {
		sign = decimal.NewFromInt(-1)
	}
	if dir == Short && inProfitDirection {
		sign = decimal.NewFromInt(-1)
	}
	factor := decimal.NewFromInt(1).Add(sign.Mul(percent).Div(decimal.NewFromInt(100)))
	return price.Mul(factor)
}

// RoundToStep snaps value down to the nearest multiple of step (floor
// rounding), as required for exchange price/quantity formatting. A
// non-positive step is a no-op.
func RoundToStep(value, step decimal.Decimal) decimal.Decimal {
	if step.LessThanOrEqual(decimal.Zero) {
		return value
	}
	units := value.Div(step).Floor()
	return units.Mul(step)
}
