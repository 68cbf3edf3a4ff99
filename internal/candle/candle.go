// Package candle models OHLCV records and the sliding window a strategy
// observes as the simulator advances.
package candle

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Candle is a single OHLCV bar. OpenTime is seconds since epoch.
type Candle struct {
	OpenTime int64
	Open     decimal.Decimal
	High     decimal.Decimal
	Low      decimal.Decimal
	Close    decimal.Decimal
	Volume   decimal.Decimal
}

// Validate checks the structural invariants of a single candle.
func (c Candle) Validate() error {
	if c.Low.GreaterThan(decimal.Min(c.Open, c.Close)) {
		return fmt.Errorf("candle at %d: low %s above min(open,close)", c.OpenTime, c.Low)
	}
	if c.High.LessThan(decimal.Max(c.Open, c.Close)) {
		return fmt.Errorf("candle at %d: high %s below max(open,close)", c.OpenTime, c.High)
	}
	if c.Volume.IsNegative() {
		return fmt.Errorf("candle at %d: negative volume", c.OpenTime)
	}
	return nil
}

// Contains reports whether price lies within [Low, High] inclusive.
func (c Candle) Contains(price decimal.Decimal) bool {
	return !price.LessThan(c.Low) && !price.GreaterThan(c.High)
}

// ErrNonMonotonic is returned by ValidateSeries when two consecutive
// candles do not strictly increase in OpenTime.
var ErrNonMonotonic = errors.New("candle: non-monotonic open time")

// ValidateSeries checks every candle plus the strictly-increasing OpenTime
// invariant across the series. Gaps larger than one timeframe are accepted
// (per spec); only non-monotonic or decreasing timestamps are rejected.
func ValidateSeries(series []Candle) error {
	var prev *Candle
	for i := range series {
		if err := series[i].Validate(); err != nil {
			return err
		}
		if prev != nil && series[i].OpenTime <= prev.OpenTime {
			return fmt.Errorf("%w: at index %d (%d <= %d)", ErrNonMonotonic, i, series[i].OpenTime, prev.OpenTime)
		}
		prev = &series[i]
	}
	return nil
}

// Window is a bounded, append-only ring buffer of recent candles exposed
// read-only to strategies. Capacity 0 means unbounded.
type Window struct {
	capacity int
	buf      []Candle
}

// NewWindow constructs a Window with the given capacity (0 = unbounded).
func NewWindow(capacity int) *Window {
	return &Window{capacity: capacity}
}

// Append adds a new candle to the window, evicting the oldest entry once
// capacity is exceeded.
func (w *Window) Append(c Candle) {
	w.buf = append(w.buf, c)
	if w.capacity > 0 && len(w.buf) > w.capacity {
		w.buf = w.buf[len(w.buf)-w.capacity:]
	}
}

// Len returns the number of candles currently retained.
func (w *Window) Len() int { return len(w.buf) }

// Last returns the most recently appended candle. Panics if the window is
// empty; callers must check Len() first.
func (w *Window) Last() Candle { return w.buf[len(w.buf)-1] }

// All returns the retained candles, oldest first. The returned slice must
// not be mutated by the caller.
func (w *Window) All() []Candle { return w.buf }

// Closes returns the close prices of the retained candles, oldest first.
func (w *Window) Closes() []decimal.Decimal {
	out := make([]decimal.Decimal, len(w.buf))
	for i, c := range w.buf {
		out[i] = c.Close
	}
	return out
}

// Highs and Lows return the high/low prices of the retained candles,
// oldest first, for indicators (e.g. ATR) that need more than closes.
func (w *Window) Highs() []decimal.Decimal {
	out := make([]decimal.Decimal, len(w.buf))
	for i, c := range w.buf {
		out[i] = c.High
	}
	return out
}

func (w *Window) Lows() []decimal.Decimal {
	out := make([]decimal.Decimal, len(w.buf))
	for i, c := range w.buf {
		out[i] = c.Low
	}
	return out
}

// Source is the collaborator seam for candle acquisition (spec.md §6). The
// core consumes a Source; how it is backed (database, file, live API) is
// out of scope for the core itself.
type Source interface {
	Fetch(ctx context.Context, startTime, endTime int64) ([]Candle, error)
	Latest(ctx context.Context) (Candle, error)
}

// SliceSource is a Source backed by an already-loaded, in-memory candle
// series — the adapter used by tests and by FileSource once it has parsed
// its input.
type SliceSource struct {
	series []Candle
}

// NewSliceSource wraps a pre-loaded, time-ordered candle series.
func NewSliceSource(series []Candle) *SliceSource {
	return &SliceSource{series: series}
}

func (s *SliceSource) Fetch(ctx context.Context, startTime, endTime int64) ([]Candle, error) {
	out := make([]Candle, 0, len(s.series))
	for _, c := range s.series {
		if c.OpenTime >= startTime && c.OpenTime <= endTime {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *SliceSource) Latest(ctx context.Context) (Candle, error) {
	if len(s.series) == 0 {
		return Candle{}, errors.New("candle: empty series")
	}
	return s.series[len(s.series)-1], nil
}
