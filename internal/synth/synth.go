// Package synth generates synthetic cumulative-death tables in the Johns
// Hopkins wide CSV layout. Output is deterministic for a given seed, which
// makes it usable as a test fixture and for offline runs.
package synth

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"strconv"
	"time"
)

// Generation defaults.
const (
	DefaultDays      = 60
	DefaultProvinces = 3
	defaultGrowthMin = 1.05
	defaultGrowthMax = 1.35
	// growth decays toward 1 by this factor per day after onset
	growthDecay = 0.97
	dateLayout  = "1/2/06"
)

// DefaultStart is the first date column of generated tables.
var DefaultStart = time.Date(2020, 1, 22, 0, 0, 0, 0, time.UTC)

// Config controls the generated table.
type Config struct {
	Countries []string
	// SplitCountries are emitted as several province rows that sum to the
	// country total.
	SplitCountries []string
	Provinces      int
	Days           int
	Start          time.Time
	Seed           uint64
}

// Table is a generated wide table.
type Table struct {
	Header  []string
	Records [][]string
	// Totals holds each country's cumulative series before any province split.
	Totals map[string][]int
}

// Generate builds a table. Every series is non-decreasing.
func Generate(cfg Config) (*Table, error) {
	if len(cfg.Countries) == 0 {
		return nil, fmt.Errorf("%w: no countries", ErrConfig)
	}
	if cfg.Days <= 0 {
		cfg.Days = DefaultDays
	}
	if cfg.Provinces <= 1 {
		cfg.Provinces = DefaultProvinces
	}
	if cfg.Start.IsZero() {
		cfg.Start = DefaultStart
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	split := make(map[string]bool, len(cfg.SplitCountries))
	for _, c := range cfg.SplitCountries {
		split[c] = true
	}

	header := []string{"Province/State", "Country/Region", "Lat", "Long"}
	for d := 0; d < cfg.Days; d++ {
		header = append(header, cfg.Start.AddDate(0, 0, d).Format(dateLayout))
	}

	t := &Table{Header: header, Totals: make(map[string][]int, len(cfg.Countries))}
	for _, country := range cfg.Countries {
		total := series(rng, cfg.Days)
		t.Totals[country] = total
		lat, long := coordinate(rng)
		if !split[country] {
			t.Records = append(t.Records, record("", country, lat, long, total))
			continue
		}
		for i, part := range splitSeries(rng, total, cfg.Provinces) {
			t.Records = append(t.Records, record(fmt.Sprintf("Province %d", i+1), country, lat, long, part))
		}
	}
	return t, nil
}

// WriteCSV writes the table as CSV.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := cw.WriteAll(t.Records); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

// series draws an epidemic curve: zero until onset, then multiplicative
// growth that slowly flattens.
func series(rng *rand.Rand, days int) []int {
	out := make([]int, days)
	onset := rng.IntN(days/3 + 1)
	growth := defaultGrowthMin + rng.Float64()*(defaultGrowthMax-defaultGrowthMin)
	level := 1.0
	for d := onset; d < days; d++ {
		out[d] = int(math.Floor(level))
		level *= growth
		growth = 1 + (growth-1)*growthDecay
	}
	return out
}

// splitSeries divides a cumulative series into n non-decreasing parts that
// sum to it on every day.
func splitSeries(rng *rand.Rand, total []int, n int) [][]int {
	parts := make([][]int, n)
	for i := range parts {
		parts[i] = make([]int, len(total))
	}
	prev := 0
	for d, v := range total {
		if d > 0 {
			for i := range parts {
				parts[i][d] = parts[i][d-1]
			}
		}
		for k := 0; k < v-prev; k++ {
			parts[rng.IntN(n)][d]++
		}
		prev = v
	}
	return parts
}

func coordinate(rng *rand.Rand) (string, string) {
	lat := -60 + rng.Float64()*130
	long := -180 + rng.Float64()*360
	return strconv.FormatFloat(lat, 'f', 4, 64), strconv.FormatFloat(long, 'f', 4, 64)
}

func record(province, country, lat, long string, values []int) []string {
	rec := make([]string, 0, len(values)+4)
	rec = append(rec, province, country, lat, long)
	for _, v := range values {
		rec = append(rec, strconv.Itoa(v))
	}
	return rec
}
