// Package indicator implements pure, stateless technical indicators over
// close-price (and high/low/close) series. EMA and Bollinger output index i
// corresponds to input index i+(period-1); RSI output index i corresponds to
// input index i+period, since its first value needs period price changes.
// ATR returns a single value for the latest bars. Insufficient input yields
// nil (0 for ATR) rather than a misaligned result.
package indicator

import "math"

// Signal classifies an RSI reading against configured thresholds.
type Signal string

const (
	Oversold   Signal = "oversold"
	Neutral    Signal = "neutral"
	Overbought Signal = "overbought"
)

const (
	DefaultOversoldThreshold   = 30.0
	DefaultOverboughtThreshold = 70.0
)

// RSI computes Wilder-smoothed Relative Strength Index over period. Returns
// nil if prices has fewer than period+1 elements.
func RSI(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period+1 {
		return nil
	}
	gains := make([]float64, 0, len(prices)-1)
	losses := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			gains = append(gains, delta)
			losses = append(losses, 0)
		} else {
			gains = append(gains, 0)
			losses = append(losses, -delta)
		}
	}

	out := make([]float64, 0, len(prices)-period)
	var avgGain, avgLoss float64
	for i := 0; i < period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out = append(out, rsiFromAverages(avgGain, avgLoss))

	for i := period; i < len(gains); i++ {
		avgGain = (avgGain*float64(period-1) + gains[i]) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + losses[i]) / float64(period)
		out = append(out, rsiFromAverages(avgGain, avgLoss))
	}
	return out
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// RSISignals classifies each RSI value against the given thresholds.
func RSISignals(rsi []float64, oversold, overbought float64) []Signal {
	out := make([]Signal, len(rsi))
	for i, v := range rsi {
		switch {
		case v <= oversold:
			out[i] = Oversold
		case v >= overbought:
			out[i] = Overbought
		default:
			out[i] = Neutral
		}
	}
	return out
}

// EMA computes the exponential moving average over period, seeded at the
// SMA of the first period values. Returns nil if prices has fewer than
// period elements.
func EMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return nil
	}
	alpha := 2.0 / (float64(period) + 1.0)
	var sma float64
	for i := 0; i < period; i++ {
		sma += prices[i]
	}
	sma /= float64(period)

	out := make([]float64, 0, len(prices)-period+1)
	out = append(out, sma)
	prev := sma
	for i := period; i < len(prices); i++ {
		v := alpha*prices[i] + (1-alpha)*prev
		out = append(out, v)
		prev = v
	}
	return out
}

// BollingerBand is a single bar's upper/middle/lower band values.
type BollingerBand struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// Bollinger computes Bollinger Bands over period using k standard
// deviations (population stddev) of each window. Returns nil if prices has
// fewer than period elements.
func Bollinger(prices []float64, period int, k float64) []BollingerBand {
	if period <= 0 || len(prices) < period {
		return nil
	}
	out := make([]BollingerBand, 0, len(prices)-period+1)
	for end := period; end <= len(prices); end++ {
		window := prices[end-period : end]
		mean := sum(window) / float64(period)
		var variance float64
		for _, v := range window {
			d := v - mean
			variance += d * d
		}
		variance /= float64(period)
		sigma := math.Sqrt(variance)
		out = append(out, BollingerBand{
			Upper:  mean + k*sigma,
			Middle: mean,
			Lower:  mean - k*sigma,
		})
	}
	return out
}

func sum(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}

// ATR computes the Average True Range over the last period bars. Returns 0
// if inputs are shorter than period+1 (need one prior close per bar).
func ATR(highs, lows, closes []float64, period int) float64 {
	if period <= 0 || len(highs) < period+1 || len(lows) < period+1 || len(closes) < period+1 {
		return 0
	}
	n := len(closes)
	var total float64
	for i := n - period; i < n; i++ {
		tr := trueRange(highs[i], lows[i], closes[i-1])
		total += tr
	}
	return total / float64(period)
}

func trueRange(high, low, prevClose float64) float64 {
	a := high - low
	b := math.Abs(high - prevClose)
	c := math.Abs(low - prevClose)
	return math.Max(a, math.Max(b, c))
}
