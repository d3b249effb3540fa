// Package derive aligns per-country death series on threshold events and
// computes daily deltas and rolling-window rates.
//
// The work is done in explicit passes: group and sort by country, compute
// the rolling columns per country, find one anchor per country and
// threshold, then a single pass fills the day offsets from the anchor maps.
package derive

import (
	"time"

	"github.com/okian/covidtrend/internal/domain/model"
)

// Default derivation parameters.
const (
	DefaultDeathThreshold = 8
	DefaultRateThreshold  = 3.0
	DefaultWindow         = 7
)

// Option applies a configuration option to the engine.
type Option func(*Engine)

// WithDeathThreshold sets the cumulative death bound of the primary anchor.
func WithDeathThreshold(bound int) Option {
	return func(e *Engine) {
		if bound >= 0 {
			e.deathThreshold = bound
		}
	}
}

// WithRateThreshold sets the daily-rate bound of the secondary anchor.
func WithRateThreshold(bound float64) Option {
	return func(e *Engine) {
		if bound >= 0 {
			e.rateThreshold = bound
		}
	}
}

// WithWindow sets the rolling window length.
func WithWindow(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.window = n
		}
	}
}

// Engine holds the derivation parameters. It has no mutable state, so one
// Engine can derive any number of tables.
type Engine struct {
	deathThreshold int
	rateThreshold  float64
	window         int
}

// NewEngine creates an Engine with defaults overridden by opts.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		deathThreshold: DefaultDeathThreshold,
		rateThreshold:  DefaultRateThreshold,
		window:         DefaultWindow,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Summary describes one derivation for logs and metrics.
type Summary struct {
	Countries    int
	Rows         int
	DeathAnchors map[string]time.Time
	RateAnchors  map[string]time.Time
}

// Derive is a convenience wrapper around NewEngine(opts...).Derive.
func Derive(obs []model.Observation, opts ...Option) []model.DerivedObservation {
	rows, _ := NewEngine(opts...).Derive(obs)
	return rows
}

// Derive computes the derived table, ordered by (Country, Date). The input
// is not modified.
func (e *Engine) Derive(obs []model.Observation) ([]model.DerivedObservation, Summary) {
	names, groups := model.GroupByCountry(obs)

	out := make([]model.DerivedObservation, 0, len(obs))
	rateAnchors := make(map[string]time.Time, len(names))
	for _, country := range names {
		series := groups[country]
		dates, deaths := columns(series)
		deltas := Deltas(deaths)
		sums := RollingSum(deltas, e.window)
		rates := make([]float64, len(sums))
		for i, s := range sums {
			rates[i] = Rate(s, e.window)
		}
		if a, ok := FindAnchor(dates, rates, e.rateThreshold); ok {
			rateAnchors[country] = a
		}
		for i, o := range series {
			out = append(out, model.DerivedObservation{
				Observation: o,
				DailyDelta:  deltas[i],
				WeeklySum:   sums[i],
				DailyRate:   rates[i],
			})
		}
	}

	deathAnchors := FindAnchors(groups, e.deathThreshold)
	for i := range out {
		row := &out[i]
		da, dok := deathAnchors[row.Country]
		row.DaySinceDeathThreshold = offsetPtr(row.Date, da, dok)
		ra, rok := rateAnchors[row.Country]
		row.DaySinceRateThreshold = offsetPtr(row.Date, ra, rok)
	}

	return out, Summary{
		Countries:    len(names),
		Rows:         len(out),
		DeathAnchors: deathAnchors,
		RateAnchors:  rateAnchors,
	}
}
