// Package model contains domain models passed between pipeline stages.
package model

import (
	"sort"
	"time"
)

// Observation is one cumulative death count for a country on a date.
// (Country, Date) is unique within a table.
type Observation struct {
	Country string
	Date    time.Time // UTC midnight
	Deaths  int       // cumulative
}

// DerivedObservation extends Observation with per-country alignment and
// rolling-window columns.
type DerivedObservation struct {
	Observation

	// DaySinceDeathThreshold is nil when the country never reached the
	// death-count bound.
	DaySinceDeathThreshold *int

	// DailyDelta is Deaths minus the previous date's Deaths; 0 on the first date.
	DailyDelta int

	// WeeklySum is the trailing window sum of DailyDelta.
	WeeklySum int

	// DailyRate is WeeklySum divided by the window length, one decimal.
	DailyRate float64

	// DaySinceRateThreshold is nil when the country never reached the
	// daily-rate bound.
	DaySinceRateThreshold *int
}

// WideTable is the date-per-column shape between the loader and the melt.
type WideTable struct {
	// Dates holds the raw date column labels in source order.
	Dates []string
	Rows  []WideRow
}

// WideRow holds one country's values aligned with WideTable.Dates.
type WideRow struct {
	Country string
	Values  []int
}

// Countries returns the distinct country names in table order.
func (t WideTable) Countries() []string {
	out := make([]string, 0, len(t.Rows))
	seen := make(map[string]struct{}, len(t.Rows))
	for _, r := range t.Rows {
		if _, ok := seen[r.Country]; ok {
			continue
		}
		seen[r.Country] = struct{}{}
		out = append(out, r.Country)
	}
	return out
}

// SortObservations orders rows by (Country, Date) in place.
func SortObservations(obs []Observation) {
	sort.SliceStable(obs, func(i, j int) bool {
		if obs[i].Country != obs[j].Country {
			return obs[i].Country < obs[j].Country
		}
		return obs[i].Date.Before(obs[j].Date)
	})
}

// GroupByCountry splits rows into per-country series, each sorted by date.
// The returned names are sorted.
func GroupByCountry(obs []Observation) ([]string, map[string][]Observation) {
	groups := make(map[string][]Observation)
	for _, o := range obs {
		groups[o.Country] = append(groups[o.Country], o)
	}
	names := make([]string, 0, len(groups))
	for name, series := range groups {
		sort.SliceStable(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
		names = append(names, name)
	}
	sort.Strings(names)
	return names, groups
}

// IntPtr returns a pointer to a copy of v.
func IntPtr(v int) *int { return &v }
