package exchange

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/abdulloh5007/backtest-core/internal/money"
)

// ErrMarketNotConfigured mirrors the teacher's "adapter not configured"
// failure mode: a caller asked about a market the simulator was never told
// about.
var ErrMarketNotConfigured = errors.New("exchange: market not configured")

// MarketSpec is the static, per-market configuration a Simulated exchange
// is seeded with for a run: tick/step sizes, leverage, and margin mode.
type MarketSpec struct {
	TickSize     decimal.Decimal
	QtyStep      decimal.Decimal
	Leverage     decimal.Decimal
	HasLeverage  bool
	MarginMode   MarginMode
	HasMargin    bool
}

// pendingOrder is a resting limit order the simulator fills against future
// candles; it is not itself a position.
type pendingOrder struct {
	market    Market
	volume    decimal.Decimal
	price     decimal.Decimal
	direction money.Direction
	tpPercent *decimal.Decimal
	isClose   bool
}

// Simulated is the deterministic in-memory Exchange used by backtests. It
// holds no network state; price is advanced explicitly by the simulator
// calling SetCurrentPrice once per candle, following the teacher's
// no-op/disabled adapter pattern of keeping all state local and returning
// explicit errors instead of reaching out anywhere.
type Simulated struct {
	mu sync.Mutex

	specs    map[string]MarketSpec
	fees     map[MarketType]FeeSchedule
	prices   map[string]decimal.Decimal
	orders   map[string]pendingOrder
	tpPrices map[string]decimal.Decimal
	slPrices map[string]decimal.Decimal
}

// NewSimulated builds a Simulated exchange for the given per-market specs
// and fee schedules. specs is keyed by Market.Symbol.
func NewSimulated(specs map[string]MarketSpec, fees map[MarketType]FeeSchedule) *Simulated {
	if fees == nil {
		fees = DefaultFeeSchedules()
	}
	return &Simulated{
		specs:    specs,
		fees:     fees,
		prices:   make(map[string]decimal.Decimal),
		orders:   make(map[string]pendingOrder),
		tpPrices: make(map[string]decimal.Decimal),
		slPrices: make(map[string]decimal.Decimal),
	}
}

// SetCurrentPrice advances the simulator's view of a market's mark price.
// The simulator calls it with each candle's close, never a strategy.
func (s *Simulated) SetCurrentPrice(m Market, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[m.Symbol] = price
}

func (s *Simulated) spec(m Market) (MarketSpec, error) {
	spec, ok := s.specs[m.Symbol]
	if !ok {
		return MarketSpec{}, ErrMarketNotConfigured
	}
	return spec, nil
}

func (s *Simulated) GetCurrentPrice(m Market) (money.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	price, ok := s.prices[m.Symbol]
	if !ok {
		return money.Money{}, ErrMarketNotConfigured
	}
	return money.New(price, "USDT"), nil
}

// OpenPosition always succeeds immediately at the current mark price (or
// the supplied price, for pre-arranged fills); position bookkeeping itself
// lives in internal/position and internal/simulator, not here. The
// exchange seam only reports whether the request was accepted.
func (s *Simulated) OpenPosition(m Market, direction money.Direction, amount decimal.Decimal, price *decimal.Decimal, takeProfitPercent *decimal.Decimal) (bool, error) {
	if _, err := s.spec(m); err != nil {
		return false, err
	}
	if amount.Sign() <= 0 {
		return false, errors.New("exchange: amount must be positive")
	}
	return true, nil
}

func (s *Simulated) PlaceLimitOrder(m Market, amount, price decimal.Decimal, direction money.Direction, takeProfitPercent *decimal.Decimal) (string, error) {
	if _, err := s.spec(m); err != nil {
		return "", err
	}
	if amount.Sign() <= 0 {
		return "", errors.New("exchange: amount must be positive")
	}
	id := uuid.NewString()
	s.mu.Lock()
	s.orders[id] = pendingOrder{market: m, volume: amount, price: price, direction: direction, tpPercent: takeProfitPercent}
	s.mu.Unlock()
	return id, nil
}

func (s *Simulated) PlaceLimitClose(m Market, volume, price decimal.Decimal, direction money.Direction) (string, error) {
	if _, err := s.spec(m); err != nil {
		return "", err
	}
	if volume.Sign() <= 0 {
		return "", errors.New("exchange: volume must be positive")
	}
	id := uuid.NewString()
	s.mu.Lock()
	s.orders[id] = pendingOrder{market: m, volume: volume, price: price, direction: direction, isClose: true}
	s.mu.Unlock()
	return id, nil
}

func (s *Simulated) PartialClose(m Market, volume decimal.Decimal, isBreakevenLock bool, closePrice *decimal.Decimal) (bool, error) {
	if _, err := s.spec(m); err != nil {
		return false, err
	}
	if volume.Sign() <= 0 {
		return false, errors.New("exchange: volume must be positive")
	}
	return true, nil
}

func (s *Simulated) SetTakeProfit(m Market, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tpPrices[m.Symbol] = price
}

func (s *Simulated) SetStopLoss(m Market, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slPrices[m.Symbol] = price
}

func (s *Simulated) RemoveLimitOrders(m Market) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := false
	for id, o := range s.orders {
		if o.market.Symbol == m.Symbol {
			delete(s.orders, id)
			removed = true
		}
	}
	return removed, nil
}

func (s *Simulated) GetQtyStep(m Market) decimal.Decimal {
	spec, err := s.spec(m)
	if err != nil {
		return decimal.Zero
	}
	return spec.QtyStep
}

func (s *Simulated) GetTickSize(m Market) decimal.Decimal {
	spec, err := s.spec(m)
	if err != nil {
		return decimal.Zero
	}
	return spec.TickSize
}

func (s *Simulated) GetLeverage(m Market) (decimal.Decimal, bool) {
	spec, err := s.spec(m)
	if err != nil || !spec.HasLeverage {
		return decimal.Zero, false
	}
	return spec.Leverage, true
}

func (s *Simulated) GetMarginMode(m Market) (MarginMode, bool) {
	spec, err := s.spec(m)
	if err != nil || !spec.HasMargin {
		return "", false
	}
	return spec.MarginMode, true
}

func (s *Simulated) SwitchMarginMode(m Market, mode MarginMode) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	spec, ok := s.specs[m.Symbol]
	if !ok {
		return false, ErrMarketNotConfigured
	}
	spec.MarginMode = mode
	spec.HasMargin = true
	s.specs[m.Symbol] = spec
	return true, nil
}

func (s *Simulated) GetTakerFee(mt MarketType) decimal.Decimal {
	return s.fees[mt].TakerRate
}

func (s *Simulated) GetMakerFee(mt MarketType) decimal.Decimal {
	return s.fees[mt].MakerRate
}
