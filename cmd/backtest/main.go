// Command backtest runs a single deterministic backtest over a CSV candle
// file and writes the event stream + result record to disk, per spec.md
// §6's CLI surface.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/abdulloh5007/backtest-core/internal/candle"
	"github.com/abdulloh5007/backtest-core/internal/config"
	"github.com/abdulloh5007/backtest-core/internal/eventlog"
	"github.com/abdulloh5007/backtest-core/internal/exchange"
	"github.com/abdulloh5007/backtest-core/internal/result"
	"github.com/abdulloh5007/backtest-core/internal/simulator"
	"github.com/abdulloh5007/backtest-core/internal/strategy"
)

var (
	pair           string
	timeframeFlag  string
	startTime      int64
	endTime        int64
	candlesPath    string
	strategyName   string
	paramsRaw      string
	initialBalance float64
	eventsPath     string
	resultPath     string

	marketTypeFlag string
	exchangeName   string
	tickSize       float64
	qtyStep        float64
	leverage       float64
	isolatedMargin bool
	makerFeeFlag   float64
	takerFeeFlag   float64
	cooldownSec    int64

	logLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a deterministic candle-driven trading backtest",
	Long:  "backtest replays a CSV candle series against a parameterised strategy and writes an event stream plus a flat result record.",
	RunE:  runBacktest,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&pair, "pair", "", "ticker symbol, e.g. BTCUSDT (required)")
	flags.StringVar(&timeframeFlag, "timeframe", "1h", "candle timeframe")
	flags.Int64Var(&startTime, "start", 0, "unix seconds, inclusive lower bound of the candle fetch window")
	flags.Int64Var(&endTime, "end", 0, "unix seconds, inclusive upper bound (0 = end of file)")
	flags.StringVar(&candlesPath, "candles", "", "path to a CSV candle file: openTime,open,high,low,close,volume (required)")
	flags.StringVar(&strategyName, "strategy", "", "strategy name: rsi_reversal | golden_grid (required)")
	flags.StringVar(&paramsRaw, "params", "", "comma-separated key=value strategy parameter overrides")
	flags.Float64Var(&initialBalance, "initial-balance", 1000, "starting quote-currency balance")
	flags.StringVar(&eventsPath, "events", "", "path to write the line-delimited event stream (required)")
	flags.StringVar(&resultPath, "result", "", "path to write the JSON result record (required)")

	flags.StringVar(&marketTypeFlag, "market-type", "SPOT", "SPOT or FUTURES")
	flags.StringVar(&exchangeName, "exchange", "simulated", "exchange name tag recorded on the result")
	flags.Float64Var(&tickSize, "tick-size", 0.01, "minimum price increment")
	flags.Float64Var(&qtyStep, "qty-step", 0.001, "minimum quantity increment")
	flags.Float64Var(&leverage, "leverage", 1, "leverage (FUTURES only)")
	flags.BoolVar(&isolatedMargin, "isolated-margin", true, "isolated margin mode (FUTURES only)")
	flags.Float64Var(&makerFeeFlag, "maker-fee", -1, "override maker fee rate (fraction, e.g. 0.0002); negative keeps the market-type default")
	flags.Float64Var(&takerFeeFlag, "taker-fee", -1, "override taker fee rate (fraction); negative keeps the market-type default")
	flags.Int64Var(&cooldownSec, "cooldown-seconds", 0, "minimum seconds between one entry and the next entry in the same direction, measured between their candle open times")

	flags.StringVar(&logLevel, "log-level", "", "override BACKTEST_LOG_LEVEL for this run")

	rootCmd.MarkFlagRequired("pair")
	rootCmd.MarkFlagRequired("candles")
	rootCmd.MarkFlagRequired("strategy")
	rootCmd.MarkFlagRequired("events")
	rootCmd.MarkFlagRequired("result")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logger := config.NewLogger(config.ParseLevel(cfg.LogLevel))

	params := parseParams(paramsRaw)

	marketType := exchange.MarketType(strings.ToUpper(marketTypeFlag))
	if marketType != exchange.Spot && marketType != exchange.Futures {
		return fmt.Errorf("invalid --market-type %q: must be SPOT or FUTURES", marketTypeFlag)
	}

	market := exchange.Market{Symbol: pair, MarketType: marketType}
	tick := decimal.NewFromFloat(tickSize)
	step := decimal.NewFromFloat(qtyStep)

	fees := exchange.DefaultFeeSchedules()
	sched := fees[marketType]
	if makerFeeFlag >= 0 {
		sched.MakerRate = decimal.NewFromFloat(makerFeeFlag)
	}
	if takerFeeFlag >= 0 {
		sched.TakerRate = decimal.NewFromFloat(takerFeeFlag)
	}
	fees[marketType] = sched

	spec := exchange.MarketSpec{TickSize: tick, QtyStep: step}
	if marketType == exchange.Futures {
		spec.Leverage = decimal.NewFromFloat(leverage)
		spec.HasLeverage = true
		spec.HasMargin = true
		spec.MarginMode = exchange.Cross
		if isolatedMargin {
			spec.MarginMode = exchange.Isolated
		}
	}
	ex := exchange.NewSimulated(map[string]exchange.MarketSpec{pair: spec}, fees)

	strat, strategyParams, err := buildStrategy(strategyName, params, tick, step, spec, ex, market)
	if err != nil {
		return fmt.Errorf("building strategy %q: %w", strategyName, err)
	}

	f, err := os.Open(candlesPath)
	if err != nil {
		return fmt.Errorf("opening candle file: %w", err)
	}
	defer f.Close()
	source, err := candle.NewFileSource(f)
	if err != nil {
		return fmt.Errorf("parsing candle file: %w", err)
	}

	end := endTime
	if end == 0 {
		end = int64(1) << 62
	}
	candles, err := source.Fetch(context.Background(), startTime, end)
	if err != nil {
		return fmt.Errorf("fetching candle window: %w", err)
	}
	if len(candles) == 0 {
		logger.Warn("no candles in [%d, %d]; emitting an empty result", startTime, endTime)
	}

	eventFile, err := os.Create(eventsPath)
	if err != nil {
		return fmt.Errorf("creating events file: %w", err)
	}
	defer eventFile.Close()
	sink := eventlog.NewJSONLWriter(eventFile)

	opts := simulator.RunOptions{
		Candles:              candles,
		Market:                market,
		Strategy:              strat,
		Exchange:              ex,
		InitialBalance:        decimal.NewFromFloat(initialBalance),
		TickSize:              tick,
		QtyStep:               step,
		Sink:                  sink,
		IntraCandlePolicy:     simulator.SLFirst,
		ProgressEveryCandles:  100,
		BalanceSampleEverySec: 3600,
		CooldownSeconds:       cooldownSec,
		ExchangeName:          exchangeName,
		Ticker:                pair,
		Timeframe:             timeframeFlag,
		StrategyName:          strategyName,
		StrategyParams:        strategyParams,
	}

	sim, err := simulator.NewSimulator(opts)
	if err != nil {
		_ = sink.Append(eventlog.Event{Type: eventlog.Error, Fields: map[string]any{"message": err.Error()}})
		_ = sink.Flush()
		return err
	}

	r, err := sim.Run(context.Background())
	if err != nil {
		logger.Error("run failed: %v", err)
		return err
	}

	if err := writeResult(resultPath, *r); err != nil {
		return fmt.Errorf("writing result file: %w", err)
	}

	logger.Info("run complete: pnl=%s finalBalance=%s liquidated=%t tradesFinished=%d",
		r.PnL.String(), r.FinalBalance.String(), r.Liquidated, r.TradesFinished)
	return nil
}

func writeResult(path string, r result.Result) error {
	data, err := result.MarshalRecord(r)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// parseParams splits a "k=v,k2=v2" string into a raw parameter map. Empty
// input yields an empty (not nil) map so strategy.Resolve falls back to
// every descriptor's ClassDefault.
func parseParams(raw string) map[string]string {
	out := make(map[string]string)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return out
	}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			continue
		}
		out[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
	return out
}

var errUnknownStrategy = fmt.Errorf("unknown strategy: use rsi_reversal or golden_grid")

// buildStrategy resolves params against the named strategy's descriptor
// set (via a throwaway instance's GetParameters) and constructs the
// concrete, fully configured strategy.Strategy. Returns the canonicalised
// parameter map for persistence in the result record alongside it.
func buildStrategy(
	name string,
	raw map[string]string,
	tick, step decimal.Decimal,
	spec exchange.MarketSpec,
	ex exchange.Exchange,
	market exchange.Market,
) (strategy.Strategy, map[string]string, error) {
	switch name {
	case "rsi_reversal":
		return buildRSIReversal(raw, tick, step, spec)
	case "golden_grid":
		return buildGoldenGrid(raw, tick, step, ex, market)
	default:
		return nil, nil, errUnknownStrategy
	}
}
