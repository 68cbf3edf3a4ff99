// Package strategy defines the parameter descriptor/value model and the
// engine contracts shared by single-entry and DCA strategies.
package strategy

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// ParamType is the type tag of a strategy parameter descriptor.
type ParamType string

const (
	ParamInt    ParamType = "INT"
	ParamFloat  ParamType = "FLOAT"
	ParamBool   ParamType = "BOOL"
	ParamString ParamType = "STRING"
	ParamSelect ParamType = "SELECT"
)

// EnabledWhen gates a parameter's visibility/relevance on another
// parameter's canonical value.
type EnabledWhen struct {
	ParamKey string
	Value    string
}

// Descriptor is the static, value-free metadata for a single strategy
// parameter. Runtime values are held separately by Value — the duality is
// modelled as (Descriptor, Value) pairs rather than an instance that
// sometimes carries a value and sometimes doesn't.
type Descriptor struct {
	Name               string
	Label              string
	Type               ParamType
	Group              string
	ClassDefault       string
	Options            []string
	EnabledWhen        *EnabledWhen
	IsBacktestRelevant bool
}

// truthySet is the canonical set of strings that normalize to BOOL "true".
var truthySet = map[string]bool{"true": true, "yes": true, "1": true}

// Normalize canonicalises a raw parameter value per the descriptor's type:
// BOOL maps the truthy set to "true" and everything else to "false"; FLOAT
// strips trailing zeros (and a trailing decimal point); INT/STRING/SELECT
// pass through trimmed. Normalize is idempotent: Normalize(Normalize(x)) ==
// Normalize(x).
func (d Descriptor) Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	switch d.Type {
	case ParamBool:
		if truthySet[strings.ToLower(raw)] {
			return "true"
		}
		return "false"
	case ParamFloat:
		return normalizeFloat(raw)
	default:
		return raw
	}
}

func normalizeFloat(raw string) string {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	return s
}

// Mutate returns a neighbouring raw value for optimisation search, per the
// type-specific rule: BOOL flips; INT moves by +-1 (0 always moves to 1);
// FLOAT moves by +-(10% * uniform[0.5,1.0]) of the current value, clamped
// non-negative; SELECT picks any other option uniformly. rng must be
// supplied by the caller — the core never consults system entropy.
func (d Descriptor) Mutate(rng *rand.Rand, current string) (string, error) {
	switch d.Type {
	case ParamBool:
		normalized := d.Normalize(current)
		if normalized == "true" {
			return "false", nil
		}
		return "true", nil
	case ParamInt:
		return mutateInt(rng, current)
	case ParamFloat:
		return mutateFloat(rng, current)
	case ParamSelect:
		return mutateSelect(rng, d.Options, current)
	default:
		return current, nil
	}
}

func mutateInt(rng *rand.Rand, current string) (string, error) {
	v, err := strconv.Atoi(strings.TrimSpace(current))
	if err != nil {
		return "", fmt.Errorf("strategy: invalid int param %q: %w", current, err)
	}
	if v == 0 {
		return "1", nil
	}
	if rng.Intn(2) == 0 {
		return strconv.Itoa(v + 1), nil
	}
	return strconv.Itoa(v - 1), nil
}

func mutateFloat(rng *rand.Rand, current string) (string, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(current), 64)
	if err != nil {
		return "", fmt.Errorf("strategy: invalid float param %q: %w", current, err)
	}
	magnitude := 0.5 + rng.Float64()*0.5 // uniform[0.5, 1.0]
	delta := v * 0.10 * magnitude
	if rng.Intn(2) == 0 {
		delta = -delta
	}
	next := v + delta
	if next < 0 {
		next = 0
	}
	return strconv.FormatFloat(next, 'f', -1, 64), nil
}

func mutateSelect(rng *rand.Rand, options []string, current string) (string, error) {
	if len(options) == 0 {
		return current, nil
	}
	candidates := make([]string, 0, len(options))
	for _, o := range options {
		if o != current {
			candidates = append(candidates, o)
		}
	}
	if len(candidates) == 0 {
		return current, nil
	}
	return candidates[rng.Intn(len(candidates))], nil
}

// Value is the runtime value instance for a descriptor: a resolved,
// normalized raw string plus the descriptor it was resolved against.
type Value struct {
	Descriptor Descriptor
	Raw        string
}

// NewValue normalizes raw against desc and returns the bound Value.
func NewValue(desc Descriptor, raw string) Value {
	return Value{Descriptor: desc, Raw: desc.Normalize(raw)}
}

func (v Value) String() string { return v.Raw }

func (v Value) Int() (int, error)       { return strconv.Atoi(v.Raw) }
func (v Value) Float() (float64, error) { return strconv.ParseFloat(v.Raw, 64) }
func (v Value) Bool() (bool, error) {
	return v.Raw == "true", nil
}

// Set is a factory-constructed collection of runtime values keyed by
// descriptor name, built from a raw string map (e.g. parsed CLI --params).
type Set struct {
	values map[string]Value
}

// ErrUnknownParam is returned when a raw value names a parameter the
// strategy does not declare.
type ErrUnknownParam struct{ Name string }

func (e ErrUnknownParam) Error() string { return fmt.Sprintf("strategy: unknown parameter %q", e.Name) }

// Resolve builds a Set from descs, filling any parameter missing from raw
// with its ClassDefault, and rejects raw keys that do not match a
// descriptor.
func Resolve(descs []Descriptor, raw map[string]string) (*Set, error) {
	byName := make(map[string]Descriptor, len(descs))
	for _, d := range descs {
		byName[d.Name] = d
	}
	for k := range raw {
		if _, ok := byName[k]; !ok {
			return nil, ErrUnknownParam{Name: k}
		}
	}
	values := make(map[string]Value, len(descs))
	for _, d := range descs {
		r, ok := raw[d.Name]
		if !ok {
			r = d.ClassDefault
		}
		values[d.Name] = NewValue(d, r)
	}
	return &Set{values: values}, nil
}

// Get returns the resolved Value for name, or the zero Value and false if
// name was never declared.
func (s *Set) Get(name string) (Value, bool) {
	v, ok := s.values[name]
	return v, ok
}

// MustGet returns the resolved Value for name, panicking if it is absent.
// Intended for use inside a strategy's own code against its own declared
// parameters, where absence is a programmer error.
func (s *Set) MustGet(name string) Value {
	v, ok := s.values[name]
	if !ok {
		panic(fmt.Sprintf("strategy: parameter %q not resolved", name))
	}
	return v
}

// Raw returns a canonical key-value map of every resolved value, suitable
// for persistence in a result record.
func (s *Set) Raw() map[string]string {
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v.Raw
	}
	return out
}
