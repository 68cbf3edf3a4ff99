// Package simulator implements the candle-driven backtest event loop: a
// single-threaded, cooperative run over an ordered candle series that
// drives a Strategy against a deterministic Exchange, emitting an
// append-only event stream and a final Result.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/abdulloh5007/backtest-core/internal/candle"
	"github.com/abdulloh5007/backtest-core/internal/eventlog"
	"github.com/abdulloh5007/backtest-core/internal/exchange"
	"github.com/abdulloh5007/backtest-core/internal/money"
	"github.com/abdulloh5007/backtest-core/internal/position"
	"github.com/abdulloh5007/backtest-core/internal/result"
	"github.com/abdulloh5007/backtest-core/internal/stats"
	"github.com/abdulloh5007/backtest-core/internal/strategy"
)

// IntraCandlePolicy resolves the ordering of SL/TP closes when both price
// levels fall inside the same candle (spec.md §4.6 step (d), a deliberate
// testable policy rather than an accident of iteration order).
type IntraCandlePolicy string

const (
	// SLFirst is the default: a conservative assumption that the worse
	// outcome for the trader is assumed to have happened first.
	SLFirst IntraCandlePolicy = "SL_FIRST"
	TPFirst IntraCandlePolicy = "TP_FIRST"
)

// RunOptions configures a single backtest run.
type RunOptions struct {
	Candles  []candle.Candle
	Market   exchange.Market
	Strategy strategy.Strategy
	Exchange *exchange.Simulated

	InitialBalance decimal.Decimal
	TickSize       decimal.Decimal
	QtyStep        decimal.Decimal

	Sink eventlog.Sink

	IntraCandlePolicy     IntraCandlePolicy
	ProgressEveryCandles  int
	BalanceSampleEverySec int64
	CooldownSeconds       int64

	ExchangeName   string
	Ticker         string
	Timeframe      string
	StrategyName   string
	StrategyParams map[string]string
}

// BalancePoint is one sampled observation of realised balance over time.
type BalancePoint struct {
	Time    int64
	Balance decimal.Decimal
}

// Simulator owns one run's mutable state: balance, open/finished
// positions, balance history, and the maximum observed unrealised
// drawdown (spec.md §4.6).
type Simulator struct {
	opts RunOptions

	window *candle.Window

	balance               decimal.Decimal
	openPositions         map[string]*position.Position
	openOrder             []string
	finishedPositions     []*position.Position
	balanceHistory        []BalancePoint
	maxUnrealizedDrawdown decimal.Decimal
	liquidated            bool

	lastBalanceSampleAt int64
	lastEmittedBalance  decimal.Decimal
	lastEntryAt         map[money.Direction]int64

	simStart, simEnd int64
}

// ErrInvalidBalance and ErrNoStrategy are configuration errors that fail
// run construction (spec.md §7). An empty candle series is not one of
// these: spec.md §7/§8 require a run over zero candles to still produce
// init -> result -> done, with zero trades and the balance unchanged.
var (
	ErrInvalidBalance = errors.New("simulator: initial balance must be positive")
	ErrNoStrategy     = errors.New("simulator: strategy is required")
)

// NewSimulator validates opts and constructs a Simulator ready to Run.
func NewSimulator(opts RunOptions) (*Simulator, error) {
	if err := candle.ValidateSeries(opts.Candles); err != nil {
		return nil, fmt.Errorf("simulator: %w", err)
	}
	if !opts.InitialBalance.IsPositive() {
		return nil, ErrInvalidBalance
	}
	if opts.Strategy == nil {
		return nil, ErrNoStrategy
	}
	if opts.Exchange == nil {
		return nil, errors.New("simulator: exchange is required")
	}
	if !opts.TickSize.IsPositive() || !opts.QtyStep.IsPositive() {
		return nil, errors.New("simulator: tick size and qty step must be positive")
	}
	if opts.Sink == nil {
		opts.Sink = eventlog.NewMemorySink()
	}
	if opts.IntraCandlePolicy == "" {
		opts.IntraCandlePolicy = SLFirst
	}
	if opts.ProgressEveryCandles <= 0 {
		opts.ProgressEveryCandles = 100
	}

	validation := opts.Strategy.ValidateExchangeSettings()
	if !validation.OK() {
		return nil, fmt.Errorf("simulator: strategy validation failed: %s", strings.Join(validation.Errors, "; "))
	}

	var simStart, simEnd int64
	if len(opts.Candles) > 0 {
		simStart = opts.Candles[0].OpenTime
		simEnd = opts.Candles[len(opts.Candles)-1].OpenTime
	}

	return &Simulator{
		opts:               opts,
		balance:            opts.InitialBalance,
		openPositions:      make(map[string]*position.Position),
		lastEntryAt:        make(map[money.Direction]int64),
		lastEmittedBalance: opts.InitialBalance,
		simStart:           simStart,
		simEnd:             simEnd,
	}, nil
}

// addOpenPosition registers pos as open, recording its insertion order so
// that later iteration is deterministic regardless of Go's randomized map
// iteration (spec.md §8 property 1).
func (s *Simulator) addOpenPosition(pos *position.Position) {
	s.openPositions[pos.ID] = pos
	s.openOrder = append(s.openOrder, pos.ID)
}

// removeOpenPosition drops id from both the lookup map and the order slice.
func (s *Simulator) removeOpenPosition(id string) {
	delete(s.openPositions, id)
	for i, existing := range s.openOrder {
		if existing == id {
			s.openOrder = append(s.openOrder[:i], s.openOrder[i+1:]...)
			break
		}
	}
}

// orderedOpenPositions returns the currently open positions in insertion
// order, the single iteration path every step of Run uses in place of
// ranging over openPositions directly.
func (s *Simulator) orderedOpenPositions() []*position.Position {
	out := make([]*position.Position, 0, len(s.openOrder))
	for _, id := range s.openOrder {
		if pos, ok := s.openPositions[id]; ok {
			out = append(out, pos)
		}
	}
	return out
}

func windowCapacity(descs []strategy.IndicatorDescriptor) int {
	capacity := 50
	for _, d := range descs {
		if d.Period+5 > capacity {
			capacity = d.Period + 5
		}
	}
	return capacity
}

// Run executes the candle loop to completion (or until cancelled or
// liquidated) and returns the final Result.
func (s *Simulator) Run(ctx context.Context) (*result.Result, error) {
	descs := s.opts.Strategy.UseIndicators()
	s.window = candle.NewWindow(windowCapacity(descs))

	s.emit(eventlog.Init, map[string]any{
		"ticker":         s.opts.Ticker,
		"timeframe":      s.opts.Timeframe,
		"strategy":       s.opts.StrategyName,
		"initialBalance": s.balance.String(),
		"simStart":       s.simStart,
		"simEnd":         s.simEnd,
	})

	cancelled := false
	for i, c := range s.opts.Candles {
		if err := ctx.Err(); err != nil {
			cancelled = true
			break
		}

		s.window.Append(c)
		view := s.buildMarketView(descs)
		s.emitCandle(c, view)

		s.opts.Exchange.SetCurrentPrice(s.opts.Market, c.Close)
		for _, pos := range s.orderedOpenPositions() {
			pos.CurrentPrice = c.Close
		}

		if s.checkLiquidation(c) {
			break
		}

		s.applyDCAFills(c)
		s.applyPartialCloseAndBreakevenLock(c)
		s.applySLTP(c)

		for _, pos := range s.orderedOpenPositions() {
			if err := s.opts.Strategy.UpdatePosition(view, pos); err != nil {
				s.emit(eventlog.Error, map[string]any{"message": err.Error(), "positionId": pos.ID})
			}
		}

		// A strategy's update step may arm a breakeven-lock/partial-close
		// trigger whose price was already inside this candle's range (the
		// progress check that arms it reads this same candle's close).
		// Re-running the execution step catches that same-candle fire
		// instead of deferring it to the next candle; already-fired
		// triggers are nil and this is a no-op for them.
		s.applyPartialCloseAndBreakevenLock(c)
		s.applySLTP(c)

		s.maybeEnter(view, c)
		s.bookkeeping(c, i)
	}

	finalBalance := s.balance
	for _, pos := range s.orderedOpenPositions() {
		finalBalance = finalBalance.Add(pos.UnrealizedPnL(pos.CurrentPrice))
	}

	r := s.buildResult(finalBalance)

	fields := r.AsFields()
	s.emit(eventlog.Result, fields)
	doneReason := "completed"
	if s.liquidated {
		doneReason = "liquidated"
	} else if cancelled {
		doneReason = "cancelled"
	}
	s.emit(eventlog.Done, map[string]any{"reason": doneReason})
	if err := s.opts.Sink.Flush(); err != nil {
		return &r, fmt.Errorf("simulator: flushing event sink: %w", err)
	}
	return &r, nil
}

func (s *Simulator) emit(t eventlog.Type, fields map[string]any) {
	_ = s.opts.Sink.Append(eventlog.Event{Type: t, Fields: fields})
}

func (s *Simulator) emitCandle(c candle.Candle, view strategy.MarketView) {
	fields := map[string]any{
		"t": c.OpenTime,
		"o": c.Open.String(),
		"h": c.High.String(),
		"l": c.Low.String(),
		"c": c.Close.String(),
		"v": c.Volume.String(),
	}
	ind := make(map[string]any, len(view.Indicators)+len(view.Bollinger))
	for k, v := range view.Indicators {
		ind[k] = v
	}
	for k, v := range view.Bollinger {
		ind[k] = map[string]float64{"upper": v.Upper, "middle": v.Middle, "lower": v.Lower}
	}
	fields["ind"] = ind
	s.emit(eventlog.Candle, fields)
}

func within(low, high, price decimal.Decimal) bool {
	return !price.LessThan(low) && !price.GreaterThan(high)
}

// checkLiquidation implements spec.md §4.6 step (a): if mark-to-market
// balance at the worst price reachable within the candle would go
// negative, the run ends immediately.
func (s *Simulator) checkLiquidation(c candle.Candle) bool {
	if len(s.openPositions) == 0 {
		return false
	}
	var worstTotal decimal.Decimal
	for _, pos := range s.orderedOpenPositions() {
		worst := c.Low
		if pos.Direction == money.Short {
			worst = c.High
		}
		worstTotal = worstTotal.Add(pos.UnrealizedPnL(worst))
	}
	if !s.balance.Add(worstTotal).IsNegative() {
		return false
	}

	s.liquidated = true
	for _, pos := range s.orderedOpenPositions() {
		worst := c.Low
		if pos.Direction == money.Short {
			worst = c.High
		}
		pos.CurrentPrice = worst
		_ = pos.Close(position.Liquidated, c.OpenTime)
		s.emit(eventlog.PositionClose, map[string]any{
			"positionId": pos.ID, "reason": "liquidation", "price": worst.String(), "time": c.OpenTime,
		})
		s.finishedPositions = append(s.finishedPositions, pos)
		s.removeOpenPosition(pos.ID)
	}
	s.balance = decimal.Zero
	return true
}

func (s *Simulator) feeRate(maker bool) decimal.Decimal {
	if maker {
		return s.opts.Exchange.GetMakerFee(s.opts.Market.MarketType)
	}
	return s.opts.Exchange.GetTakerFee(s.opts.Market.MarketType)
}

// applyDCAFills implements spec.md §4.6 step (b): resting grid levels
// queued on the position by the strategy at entry are drained against
// the candle's range and debited the maker fee.
func (s *Simulator) applyDCAFills(c candle.Candle) {
	for _, pos := range s.orderedOpenPositions() {
		triggered := pos.TakeTriggeredLevels(c.Low, c.High)
		for _, lvl := range triggered {
			_ = pos.ApplyFill(c.OpenTime, lvl.Price, lvl.Volume)
			fee := lvl.Price.Mul(lvl.Volume).Mul(s.feeRate(true))
			s.balance = s.balance.Sub(fee)
			pos.UpdateTakeProfit(nil)
			s.emit(eventlog.DCAFill, map[string]any{
				"positionId": pos.ID, "price": lvl.Price.String(), "volume": lvl.Volume.String(), "time": c.OpenTime,
			})
		}
	}
}

// applyPartialCloseAndBreakevenLock implements spec.md §4.6 step (c).
func (s *Simulator) applyPartialCloseAndBreakevenLock(c candle.Candle) {
	for _, pos := range s.orderedOpenPositions() {
		if pos.PartialCloseTriggerPrice != nil && within(c.Low, c.High, *pos.PartialCloseTriggerPrice) {
			qty := pos.Volume
			if pos.PartialCloseVolume != nil && pos.PartialCloseVolume.LessThan(qty) {
				qty = *pos.PartialCloseVolume
			}
			price := *pos.PartialCloseTriggerPrice
			share := qty.Div(pos.Volume)
			realized := pos.UnrealizedPnL(price).Mul(share)
			fee := price.Mul(qty).Mul(s.feeRate(false))
			_ = pos.ReduceVolume(qty)
			s.balance = s.balance.Add(realized).Sub(fee)
			pos.PartialCloseTriggerPrice = nil
			pos.PartialCloseVolume = nil
			s.emit(eventlog.PartialClose, map[string]any{
				"positionId": pos.ID, "price": price.String(), "volume": qty.String(), "time": c.OpenTime,
			})
		}
		if pos.BreakevenLockTriggerPrice != nil && within(c.Low, c.High, *pos.BreakevenLockTriggerPrice) {
			_ = pos.MoveStopLossToBreakeven()
			pos.BreakevenLockTriggerPrice = nil
			s.emit(eventlog.BreakevenLock, map[string]any{"positionId": pos.ID, "time": c.OpenTime})
		}
	}
}

// applySLTP implements spec.md §4.6 steps (d)-(f): SL closes before TP
// when both are bracketed by the same candle, per s.opts.IntraCandlePolicy.
func (s *Simulator) applySLTP(c candle.Candle) {
	for _, pos := range s.orderedOpenPositions() {
		slHit := pos.StopLossPrice != nil && within(c.Low, c.High, *pos.StopLossPrice)
		tpHit := pos.TakeProfitPrice != nil && within(c.Low, c.High, *pos.TakeProfitPrice)
		if !slHit && !tpHit {
			continue
		}

		closeSLFirst := slHit && (s.opts.IntraCandlePolicy == SLFirst || !tpHit)
		if closeSLFirst {
			s.closeViaSL(pos, c)
			continue
		}
		s.closeViaTP(pos, c)
	}
}

func (s *Simulator) closeViaSL(pos *position.Position, c candle.Candle) {
	price := *pos.StopLossPrice
	locked := pos.IsBreakevenLockExecuted()
	status := position.ClosedSL
	reason := "sl"
	if locked {
		status = position.ClosedBL
		reason = "bl"
	}
	realized := pos.UnrealizedPnL(price)
	fee := price.Mul(pos.Volume).Mul(s.feeRate(false))
	s.balance = s.balance.Add(realized).Sub(fee)
	pos.CurrentPrice = price
	_ = pos.Close(status, c.OpenTime)
	s.emit(eventlog.PositionClose, map[string]any{
		"positionId": pos.ID, "reason": reason, "price": price.String(), "time": c.OpenTime,
	})
	s.finishedPositions = append(s.finishedPositions, pos)
	s.removeOpenPosition(pos.ID)
}

func (s *Simulator) closeViaTP(pos *position.Position, c candle.Candle) {
	price := *pos.TakeProfitPrice
	realized := pos.UnrealizedPnL(price)
	fee := price.Mul(pos.Volume).Mul(s.feeRate(true))
	s.balance = s.balance.Add(realized).Sub(fee)
	pos.CurrentPrice = price
	_ = pos.Close(position.ClosedTP, c.OpenTime)
	s.emit(eventlog.PositionClose, map[string]any{
		"positionId": pos.ID, "reason": "tp", "price": price.String(), "time": c.OpenTime,
	})
	s.finishedPositions = append(s.finishedPositions, pos)
	s.removeOpenPosition(pos.ID)
}

// maybeEnter implements spec.md §4.6 step 5: if the strategy trades a
// direction and holds no open position in it (cooldown permitting), ask
// for an entry signal and, if positive, open the position.
func (s *Simulator) maybeEnter(view strategy.MarketView, c candle.Candle) {
	ctx := strategy.TradingContext{Balance: s.balance, Margin: s.balance, CurrentPrice: c.Close}

	if s.opts.Strategy.DoesLong() && !s.hasOpenDirection(money.Long) && s.cooldownElapsed(money.Long, c.OpenTime) {
		if s.opts.Strategy.ShouldLong(view) {
			s.openFromSignal(money.Long, view, ctx, c)
		}
	}
	if s.opts.Strategy.DoesShort() && !s.hasOpenDirection(money.Short) && s.cooldownElapsed(money.Short, c.OpenTime) {
		if s.opts.Strategy.ShouldShort(view) {
			s.openFromSignal(money.Short, view, ctx, c)
		}
	}
}

func (s *Simulator) hasOpenDirection(dir money.Direction) bool {
	for _, pos := range s.orderedOpenPositions() {
		if pos.Direction == dir {
			return true
		}
	}
	return false
}

func (s *Simulator) cooldownElapsed(dir money.Direction, now int64) bool {
	last, ok := s.lastEntryAt[dir]
	if !ok {
		return true
	}
	return now-last >= s.opts.CooldownSeconds
}

func (s *Simulator) openFromSignal(dir money.Direction, view strategy.MarketView, ctx strategy.TradingContext, c candle.Candle) {
	var pos *position.Position
	var err error
	if dir == money.Long {
		pos, err = s.opts.Strategy.HandleLong(view, ctx)
	} else {
		pos, err = s.opts.Strategy.HandleShort(view, ctx)
	}
	if err != nil {
		s.emit(eventlog.Error, map[string]any{"message": err.Error(), "direction": string(dir)})
		return
	}
	if pos == nil || pos.Volume.IsZero() {
		return
	}
	if pos.ID == "" {
		pos.ID = uuid.NewString()
	}

	lastFill := pos.Fills[len(pos.Fills)-1]
	fee := lastFill.Price.Mul(lastFill.AddedVolume).Mul(s.feeRate(false))
	s.balance = s.balance.Sub(fee)

	s.addOpenPosition(pos)
	s.lastEntryAt[dir] = c.OpenTime
	s.emit(eventlog.PositionOpen, map[string]any{
		"positionId": pos.ID, "direction": string(dir), "price": pos.AverageEntryPrice.String(),
		"volume": pos.Volume.String(), "time": c.OpenTime,
	})
}

// bookkeeping implements spec.md §4.6 step 6.
func (s *Simulator) bookkeeping(c candle.Candle, index int) {
	var unrealized decimal.Decimal
	for _, pos := range s.orderedOpenPositions() {
		unrealized = unrealized.Add(pos.UnrealizedPnL(pos.CurrentPrice))
	}
	if unrealized.LessThan(s.maxUnrealizedDrawdown) {
		s.maxUnrealizedDrawdown = unrealized
	}

	if s.opts.BalanceSampleEverySec <= 0 || c.OpenTime-s.lastBalanceSampleAt >= s.opts.BalanceSampleEverySec {
		s.balanceHistory = append(s.balanceHistory, BalancePoint{Time: c.OpenTime, Balance: s.balance})
		s.lastBalanceSampleAt = c.OpenTime
	}

	if !s.balance.Equal(s.lastEmittedBalance) {
		s.emit(eventlog.Balance, map[string]any{"time": c.OpenTime, "balance": s.balance.String()})
		s.lastEmittedBalance = s.balance
	}

	if (index+1)%s.opts.ProgressEveryCandles == 0 || index == len(s.opts.Candles)-1 {
		s.emit(eventlog.Progress, map[string]any{"index": index + 1, "total": len(s.opts.Candles)})
	}
}

func (s *Simulator) buildResult(finalBalance decimal.Decimal) result.Result {
	var coinStart, coinEnd decimal.Decimal
	if len(s.opts.Candles) > 0 {
		coinStart = s.opts.Candles[0].Close
		coinEnd = s.opts.Candles[len(s.opts.Candles)-1].Close
	}
	financial := stats.ComputeFinancial(
		s.opts.InitialBalance, finalBalance, s.maxUnrealizedDrawdown,
		coinStart, coinEnd,
	)

	var intervals []stats.Interval
	for _, pos := range s.finishedPositions {
		if pos.ClosedAt != nil {
			intervals = append(intervals, stats.Interval{Start: pos.CreatedAt, End: *pos.ClosedAt})
		}
	}
	durations := stats.ComputeDurations(s.finishedPositions)
	idle := stats.IdleSeconds(s.simStart, s.simEnd, intervals)
	long, short := stats.SplitByDirection(s.finishedPositions)

	durationDays := float64(s.simEnd-s.simStart) / 86400.0
	risk := stats.ComputeRiskRatios(s.finishedPositions, s.opts.InitialBalance, durationDays)

	wins, losses, bl := 0, 0, 0
	for _, pos := range s.finishedPositions {
		switch pos.Status {
		case position.ClosedTP:
			wins++
		case position.ClosedBL:
			bl++
		case position.ClosedSL:
			if pos.IsBreakevenLockExecuted() {
				bl++
			} else {
				losses++
			}
		}
	}

	var openPositions []result.OpenPosition
	for _, pos := range s.orderedOpenPositions() {
		openPositions = append(openPositions, result.OpenPosition{
			Direction:      string(pos.Direction),
			Entry:          pos.AverageEntryPrice,
			Volume:         pos.Volume,
			CreatedAt:      pos.CreatedAt,
			UnrealizedPnL:  pos.UnrealizedPnL(pos.CurrentPrice),
			TimeHangingSec: s.simEnd - pos.CreatedAt,
		})
	}

	return result.Result{
		ExchangeName:   s.opts.ExchangeName,
		Ticker:         s.opts.Ticker,
		MarketType:     string(s.opts.Market.MarketType),
		Timeframe:      s.opts.Timeframe,
		Strategy:       s.opts.StrategyName,
		StrategyParams: s.opts.StrategyParams,
		SimStart:       s.simStart,
		SimEnd:         s.simEnd,

		InitialBalance: s.opts.InitialBalance,
		FinalBalance:   finalBalance,
		PnL:            financial.PnL,
		PnLPercent:     financial.PnLPercent,
		MaxDrawdown:    financial.MaxDrawdown,
		Liquidated:     s.liquidated,
		CoinPriceStart: financial.CoinPriceStart,
		CoinPriceEnd:   financial.CoinPriceEnd,

		TradesFinished: len(s.finishedPositions),
		TradesOpen:     len(s.openPositions),
		TradesWins:     wins,
		TradesLosses:   losses,
		TradesBL:       bl,
		TradeShortest:  durations.Shortest,
		TradeLongest:   durations.Longest,
		TradeAverage:   durations.Average,
		TradeIdle:      idle,

		Sharpe:       risk.Sharpe,
		Sortino:      risk.Sortino,
		AvgReturn:    risk.AvgReturn,
		StdDeviation: risk.StdDeviation,

		Long: result.DirectionStats{
			Finished: long.Finished, Wins: long.Wins, Losses: long.Losses, BL: long.BL,
			Shortest: long.Durations.Shortest, Longest: long.Durations.Longest, Average: long.Durations.Average,
		},
		Short: result.DirectionStats{
			Finished: short.Finished, Wins: short.Wins, Losses: short.Losses, BL: short.BL,
			Shortest: short.Durations.Shortest, Longest: short.Durations.Longest, Average: short.Durations.Average,
		},

		OpenPositions: openPositions,
	}
}
