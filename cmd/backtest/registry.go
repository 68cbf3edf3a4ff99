package main

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/abdulloh5007/backtest-core/internal/exchange"
	"github.com/abdulloh5007/backtest-core/internal/strategy"
	"github.com/abdulloh5007/backtest-core/internal/strategy/dca"
	"github.com/abdulloh5007/backtest-core/internal/strategy/singleentry"
)

// rsiReversalDescriptors lists every parameter rsi_reversal accepts on the
// CLI with its ClassDefault, used only to resolve --params against before
// the concrete strategy (which needs the resolved values to construct)
// exists. It is a superset of singleentry.RSIReversal.GetParameters(): it
// also carries the breakeven-lock, volume and leverage settings.
func rsiReversalDescriptors() []strategy.Descriptor {
	return []strategy.Descriptor{
		{Name: "period", Type: strategy.ParamInt, ClassDefault: "14", IsBacktestRelevant: true},
		{Name: "oversold", Type: strategy.ParamFloat, ClassDefault: "30", IsBacktestRelevant: true},
		{Name: "overbought", Type: strategy.ParamFloat, ClassDefault: "70", IsBacktestRelevant: true},
		{Name: "takeProfitPercent", Type: strategy.ParamFloat, ClassDefault: "5", IsBacktestRelevant: true},
		{Name: "stopLossPercent", Type: strategy.ParamFloat, ClassDefault: "5", IsBacktestRelevant: true},
		{Name: "breakevenLockEnabled", Type: strategy.ParamBool, ClassDefault: "false"},
		{Name: "breakevenLockTriggerPercent", Type: strategy.ParamFloat, ClassDefault: "50"},
		{Name: "breakevenLockClosePercent", Type: strategy.ParamFloat, ClassDefault: "50"},
		{Name: "volume", Type: strategy.ParamString, ClassDefault: "100"},
		{Name: "leverage", Type: strategy.ParamFloat, ClassDefault: "1"},
		{Name: "allowLong", Type: strategy.ParamBool, ClassDefault: "true"},
		{Name: "allowShort", Type: strategy.ParamBool, ClassDefault: "false"},
	}
}

func buildRSIReversal(raw map[string]string, tick, step decimal.Decimal, spec exchange.MarketSpec) (strategy.Strategy, map[string]string, error) {
	set, err := strategy.Resolve(rsiReversalDescriptors(), raw)
	if err != nil {
		return nil, nil, err
	}

	period, _ := set.MustGet("period").Int()
	oversold, _ := set.MustGet("oversold").Float()
	overbought, _ := set.MustGet("overbought").Float()
	tp, err := decimal.NewFromString(set.MustGet("takeProfitPercent").String())
	if err != nil {
		return nil, nil, fmt.Errorf("takeProfitPercent: %w", err)
	}
	sl, err := decimal.NewFromString(set.MustGet("stopLossPercent").String())
	if err != nil {
		return nil, nil, fmt.Errorf("stopLossPercent: %w", err)
	}
	blEnabled, _ := set.MustGet("breakevenLockEnabled").Bool()
	blTrigger, err := decimal.NewFromString(set.MustGet("breakevenLockTriggerPercent").String())
	if err != nil {
		return nil, nil, fmt.Errorf("breakevenLockTriggerPercent: %w", err)
	}
	blClose, err := decimal.NewFromString(set.MustGet("breakevenLockClosePercent").String())
	if err != nil {
		return nil, nil, fmt.Errorf("breakevenLockClosePercent: %w", err)
	}
	volSpec, err := strategy.ParseVolumeSpec(set.MustGet("volume").String())
	if err != nil {
		return nil, nil, fmt.Errorf("volume: %w", err)
	}
	leverage, err := decimal.NewFromString(set.MustGet("leverage").String())
	if err != nil {
		return nil, nil, fmt.Errorf("leverage: %w", err)
	}
	allowLong, _ := set.MustGet("allowLong").Bool()
	allowShort, _ := set.MustGet("allowShort").Bool()

	cfg := singleentry.Config{
		TickSize:                    tick,
		QtyStep:                     step,
		Volume:                      volSpec,
		TakeProfitPercent:           tp,
		StopLossPercent:             sl,
		Leverage:                    leverage,
		BreakevenLockEnabled:        blEnabled,
		BreakevenLockTriggerPercent: blTrigger,
		BreakevenLockClosePercent:   blClose,
		IsolatedMarginRequired:      spec.HasMargin && spec.MarginMode == exchange.Isolated,
	}

	strat := singleentry.NewRSIReversal(period, oversold, overbought, allowLong, allowShort, cfg)
	return strat, set.Raw(), nil
}

func goldenGridDescriptors() []strategy.Descriptor {
	return []strategy.Descriptor{
		{Name: "emaPeriod", Type: strategy.ParamInt, ClassDefault: "50", IsBacktestRelevant: true},
		{Name: "rsiPeriod", Type: strategy.ParamInt, ClassDefault: "14", IsBacktestRelevant: true},
		{Name: "rsiLower", Type: strategy.ParamFloat, ClassDefault: "35", IsBacktestRelevant: true},
		{Name: "rsiUpper", Type: strategy.ParamFloat, ClassDefault: "65", IsBacktestRelevant: true},
		{Name: "numberOfLevels", Type: strategy.ParamInt, ClassDefault: "3", IsBacktestRelevant: true},
		{Name: "entryVolume", Type: strategy.ParamString, ClassDefault: "100"},
		{Name: "volumeMultiplier", Type: strategy.ParamFloat, ClassDefault: "2"},
		{Name: "priceDeviation", Type: strategy.ParamFloat, ClassDefault: "5"},
		{Name: "deviationMultiplier", Type: strategy.ParamFloat, ClassDefault: "1"},
		{Name: "offsetMode", Type: strategy.ParamSelect, Options: []string{"FROM_ENTRY", "FROM_PREVIOUS"}, ClassDefault: "FROM_PREVIOUS"},
		{Name: "mode", Type: strategy.ParamSelect, Options: []string{"MARKET", "LIMIT"}, ClassDefault: "MARKET"},
		{Name: "takeProfitPercent", Type: strategy.ParamFloat, ClassDefault: "5", IsBacktestRelevant: true},
		{Name: "allowLong", Type: strategy.ParamBool, ClassDefault: "true"},
		{Name: "allowShort", Type: strategy.ParamBool, ClassDefault: "false"},
	}
}

func buildGoldenGrid(raw map[string]string, tick, step decimal.Decimal, ex exchange.Exchange, market exchange.Market) (strategy.Strategy, map[string]string, error) {
	set, err := strategy.Resolve(goldenGridDescriptors(), raw)
	if err != nil {
		return nil, nil, err
	}

	emaPeriod, _ := set.MustGet("emaPeriod").Int()
	rsiPeriod, _ := set.MustGet("rsiPeriod").Int()
	rsiLower, _ := set.MustGet("rsiLower").Float()
	rsiUpper, _ := set.MustGet("rsiUpper").Float()
	numberOfLevels, _ := set.MustGet("numberOfLevels").Int()

	entryVolSpec, err := strategy.ParseVolumeSpec(set.MustGet("entryVolume").String())
	if err != nil {
		return nil, nil, fmt.Errorf("entryVolume: %w", err)
	}
	volumeMultiplier, err := decimal.NewFromString(set.MustGet("volumeMultiplier").String())
	if err != nil {
		return nil, nil, fmt.Errorf("volumeMultiplier: %w", err)
	}
	priceDeviation, err := decimal.NewFromString(set.MustGet("priceDeviation").String())
	if err != nil {
		return nil, nil, fmt.Errorf("priceDeviation: %w", err)
	}
	deviationMultiplier, err := decimal.NewFromString(set.MustGet("deviationMultiplier").String())
	if err != nil {
		return nil, nil, fmt.Errorf("deviationMultiplier: %w", err)
	}
	tp, err := decimal.NewFromString(set.MustGet("takeProfitPercent").String())
	if err != nil {
		return nil, nil, fmt.Errorf("takeProfitPercent: %w", err)
	}
	allowLong, _ := set.MustGet("allowLong").Bool()
	allowShort, _ := set.MustGet("allowShort").Bool()

	cfg := dca.Config{
		TickSize: tick,
		QtyStep:  step,
		Grid: dca.Params{
			NumberOfLevels:      numberOfLevels,
			EntryVolume:         entryVolSpec.Value,
			VolumeMultiplier:    volumeMultiplier,
			PriceDeviation:      priceDeviation,
			DeviationMultiplier: deviationMultiplier,
			OffsetMode:          dca.OffsetMode(set.MustGet("offsetMode").String()),
			VolumeMode:          strategy.VolumeMode(entryVolSpec.Mode),
		},
		OffsetMode:        dca.OffsetMode(set.MustGet("offsetMode").String()),
		Mode:              dca.Mode(set.MustGet("mode").String()),
		TakeProfitPercent: tp,
	}

	strat := dca.NewGoldenGrid(emaPeriod, rsiPeriod, rsiLower, rsiUpper, allowLong, allowShort, cfg, ex, market)
	return strat, set.Raw(), nil
}
