// Package shaping turns the raw wide CSV into long-form observations.
//
// Each step is a pure function taking the previous table and returning a new
// one, so every step can be tested on its own:
//
//	Clean -> Aggregate -> Filter -> Melt
package shaping

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/okian/covidtrend/internal/domain/dedupe"
	"github.com/okian/covidtrend/internal/domain/model"
)

// Source column names.
const (
	CountryColumn = "Country/Region"
	DateLayout    = "1/2/06"
)

// qualifierColumns are geographic qualifiers dropped before aggregation.
var qualifierColumns = map[string]struct{}{
	"Province/State": {},
	"Lat":            {},
	"Long":           {},
}

// Clean drops qualifier columns, renames the country column and parses the
// per-date values. Every column that is neither the country nor a qualifier
// is a date column. Empty cells count as zero.
func Clean(header []string, records [][]string) (model.WideTable, error) {
	countryIdx := -1
	var dateIdx []int
	var dates []string
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == CountryColumn {
			countryIdx = i
			continue
		}
		if _, ok := qualifierColumns[name]; ok {
			continue
		}
		dateIdx = append(dateIdx, i)
		dates = append(dates, name)
	}
	if countryIdx < 0 {
		return model.WideTable{}, fmt.Errorf("%w: %q", ErrMissingColumn, CountryColumn)
	}

	rows := make([]model.WideRow, 0, len(records))
	for n, rec := range records {
		if len(rec) != len(header) {
			return model.WideTable{}, fmt.Errorf("%w: record %d has %d fields, want %d", ErrMalformedRow, n+1, len(rec), len(header))
		}
		country := strings.TrimSpace(rec[countryIdx])
		if country == "" {
			return model.WideTable{}, fmt.Errorf("%w: record %d has no country", ErrMalformedRow, n+1)
		}
		values := make([]int, len(dateIdx))
		for j, idx := range dateIdx {
			v, err := parseCount(rec[idx])
			if err != nil {
				return model.WideTable{}, fmt.Errorf("%w: record %d (%s) column %q: %v", ErrMalformedRow, n+1, country, dates[j], err)
			}
			values[j] = v
		}
		rows = append(rows, model.WideRow{Country: country, Values: values})
	}

	return model.WideTable{Dates: dates, Rows: rows}, nil
}

func parseCount(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("negative count %d", v)
	}
	return v, nil
}

// Aggregate sums all rows sharing a country name, so countries reported per
// region collapse into one national series. Output is sorted by country.
func Aggregate(t model.WideTable) model.WideTable {
	sums := make(map[string][]int)
	for _, r := range t.Rows {
		acc, ok := sums[r.Country]
		if !ok {
			acc = make([]int, len(t.Dates))
			sums[r.Country] = acc
		}
		for i, v := range r.Values {
			acc[i] += v
		}
	}

	names := make([]string, 0, len(sums))
	for name := range sums {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]model.WideRow, 0, len(names))
	for _, name := range names {
		rows = append(rows, model.WideRow{Country: name, Values: sums[name]})
	}
	return model.WideTable{Dates: append([]string(nil), t.Dates...), Rows: rows}
}

// Filter keeps only allow-listed countries. Unknown names are dropped
// silently; allow-listed names missing from the table simply yield no rows.
func Filter(t model.WideTable, countries []string) model.WideTable {
	allow := make(map[string]struct{}, len(countries))
	for _, c := range countries {
		allow[c] = struct{}{}
	}
	rows := make([]model.WideRow, 0, len(countries))
	for _, r := range t.Rows {
		if _, ok := allow[r.Country]; ok {
			rows = append(rows, model.WideRow{Country: r.Country, Values: append([]int(nil), r.Values...)})
		}
	}
	return model.WideTable{Dates: append([]string(nil), t.Dates...), Rows: rows}
}

// Melt pivots the wide table into one observation per (country, date).
// Date labels must parse as M/D/YY and resolve to distinct days.
func Melt(ctx context.Context, t model.WideTable) ([]model.Observation, error) {
	dates := make([]time.Time, len(t.Dates))
	for i, label := range t.Dates {
		d, err := ParseDate(label)
		if err != nil {
			return nil, err
		}
		dates[i] = d
	}

	seen := dedupe.NewInMemoryDeduper(len(t.Rows) * len(dates))
	obs := make([]model.Observation, 0, len(t.Rows)*len(dates))
	for _, r := range t.Rows {
		for i, d := range dates {
			if seen.SeenAndRecord(ctx, dedupe.ObservationKey(r.Country, d)) {
				return nil, fmt.Errorf("%w: %s on %s (column %q)", ErrDuplicateDate, r.Country, d.Format(time.DateOnly), t.Dates[i])
			}
			obs = append(obs, model.Observation{Country: r.Country, Date: d, Deaths: r.Values[i]})
		}
	}
	model.SortObservations(obs)
	return obs, nil
}

// ParseDate parses a M/D/YY column label into UTC midnight.
func ParseDate(label string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(label))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrBadDate, label, err)
	}
	return d, nil
}

// Shape runs the whole chain on a decoded CSV.
func Shape(ctx context.Context, header []string, records [][]string, countries []string) ([]model.Observation, error) {
	wide, err := Clean(header, records)
	if err != nil {
		return nil, err
	}
	return Melt(ctx, Filter(Aggregate(wide), countries))
}
