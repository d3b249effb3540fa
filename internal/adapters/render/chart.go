package render

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/okian/covidtrend/internal/domain/model"
)

// Column names of the embedded dataset.
const (
	FieldCountry                = "Country"
	FieldDate                   = "Date"
	FieldDeaths                 = "Deaths"
	FieldDailyDelta             = "DailyDelta"
	FieldWeeklySum              = "WeeklySum"
	FieldDailyRate              = "DailyRate"
	FieldDaySinceDeathThreshold = "DaySinceDeathThreshold"
	FieldDaySinceRateThreshold  = "DaySinceRateThreshold"
)

const (
	countrySelection = "countries"
	gridSelection    = "grid"

	dateLayout     = "2006-01-02"
	datetimeLayout = "2006-01-02T15:04:05"

	selectedOpacity   = 1
	unselectedOpacity = 0.12
	lineSize          = 1.7
	labelOffset       = 6
	legendColumns     = 4
	quantitativePad   = 2
)

var quantitativeFields = map[string]func(model.DerivedObservation) (float64, bool){
	FieldDeaths:     func(r model.DerivedObservation) (float64, bool) { return float64(r.Deaths), true },
	FieldDailyDelta: func(r model.DerivedObservation) (float64, bool) { return float64(r.DailyDelta), true },
	FieldWeeklySum:  func(r model.DerivedObservation) (float64, bool) { return float64(r.WeeklySum), true },
	FieldDailyRate:  func(r model.DerivedObservation) (float64, bool) { return r.DailyRate, true },
	FieldDaySinceDeathThreshold: func(r model.DerivedObservation) (float64, bool) {
		return optional(r.DaySinceDeathThreshold)
	},
	FieldDaySinceRateThreshold: func(r model.DerivedObservation) (float64, bool) {
		return optional(r.DaySinceRateThreshold)
	},
}

func optional(p *int) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return float64(*p), true
}

// ChartOptions selects the axes of one chart.
type ChartOptions struct {
	XField string
	XTitle string
	YField string
	YTitle string
	// YMin drops rows whose y value is below it; a log scale cannot show 0.
	YMin float64
	// Temporal plots XField as dates between DomainStart and DomainEnd.
	Temporal    bool
	DomainStart string
	DomainEnd   string
	// Keep restricts the plotted rows. Nil keeps every row.
	Keep func(model.DerivedObservation) bool
}

// Build assembles a layered line chart with end-of-line labels, a legend
// bound country highlight and pan/zoom.
func Build(rows []model.DerivedObservation, opts ChartOptions) (*Spec, error) {
	if _, ok := quantitativeFields[opts.YField]; !ok {
		return nil, fmt.Errorf("%w: y %q", ErrUnknownField, opts.YField)
	}
	if opts.Temporal {
		if opts.XField != FieldDate {
			return nil, fmt.Errorf("%w: temporal x %q", ErrUnknownField, opts.XField)
		}
	} else if _, ok := quantitativeFields[opts.XField]; !ok {
		return nil, fmt.Errorf("%w: x %q", ErrUnknownField, opts.XField)
	}

	values := make([]Datum, 0, len(rows))
	xMax := math.Inf(-1)
	for _, r := range rows {
		if opts.Keep != nil && !opts.Keep(r) {
			continue
		}
		values = append(values, toDatum(r))
		if !opts.Temporal {
			if x, ok := quantitativeFields[opts.XField](r); ok && x > xMax {
				xMax = x
			}
		}
	}

	x := &Field{Field: opts.XField, Axis: &Axis{Title: opts.XTitle}}
	if opts.Temporal {
		x.Type = TypeTemporal
		x.Scale = &Scale{Domain: []any{opts.DomainStart, opts.DomainEnd}}
	} else {
		if math.IsInf(xMax, -1) {
			xMax = 0
		}
		x.Type = TypeQuantitative
		x.Axis.TickMinStep = 1
		x.Scale = &Scale{Domain: []any{0, xMax + quantitativePad}}
	}
	y := &Field{
		Field: opts.YField,
		Type:  TypeQuantitative,
		Axis:  &Axis{Title: opts.YTitle},
		Scale: &Scale{Type: "log"},
	}
	color := &Field{Field: FieldCountry, Type: TypeNominal}
	yFilter := Transform{Filter: fmt.Sprintf("(datum.%s >= %g)", opts.YField, opts.YMin)}
	inSelection := Transform{Filter: SelectionFilter{Selection: countrySelection}}

	lastX := *x
	lastX.Aggregate = "max"
	lastY := *y
	lastY.Aggregate = ArgAggregate{Argmax: opts.XField}

	opacity := &Conditional{
		Condition: ConditionalValue{Selection: countrySelection, Value: selectedOpacity},
		Value:     unselectedOpacity,
	}

	line := Layer{
		Mark: Mark{Type: "line", Size: lineSize},
		Encoding: Encoding{
			X:       x,
			Y:       y,
			Color:   color,
			Opacity: opacity,
			Tooltip: []Field{
				{Field: FieldCountry, Type: TypeNominal},
				{Field: FieldDeaths, Type: TypeQuantitative},
				{Field: FieldDailyRate, Type: TypeQuantitative},
				{Field: FieldDaySinceDeathThreshold, Type: TypeQuantitative},
				{Field: FieldDaySinceRateThreshold, Type: TypeQuantitative},
				{Field: FieldDate, Type: TypeTemporal},
			},
		},
		Selection: map[string]Selection{
			countrySelection: {Type: "multi", Fields: []string{FieldCountry}, Bind: "legend"},
			gridSelection:    {Type: "interval", Encodings: []string{"x", "y"}, Bind: "scales"},
		},
		Transform: []Transform{yFilter},
	}
	point := Layer{
		Mark:      Mark{Type: "point"},
		Encoding:  Encoding{X: &lastX, Y: &lastY, Color: color, Opacity: opacity},
		Transform: []Transform{yFilter, inSelection},
	}
	label := Layer{
		Mark: Mark{Type: "text", Align: "left", Baseline: "middle", Dx: labelOffset},
		Encoding: Encoding{
			X:    &lastX,
			Y:    &lastY,
			Text: &Field{Field: FieldCountry, Type: TypeNominal},
		},
		Transform: []Transform{yFilter, inSelection},
	}

	return &Spec{
		Schema: SchemaURL,
		Config: &Config{
			Legend: &LegendConfig{Orient: "bottom", Columns: legendColumns},
			View:   &ViewConfig{ContinuousWidth: 400, ContinuousHeight: 300},
		},
		Data:   &Data{Values: values},
		Layer:  []Layer{line, point, label},
		Width:  "container",
		Height: "container",
	}, nil
}

// Marshal encodes a spec as compact JSON suitable for embedding in a page.
func Marshal(s *Spec) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return string(b), nil
}

func toDatum(r model.DerivedObservation) Datum {
	return Datum{
		Country:                r.Country,
		Date:                   r.Date.UTC().Format(datetimeLayout),
		Deaths:                 r.Deaths,
		DailyDelta:             r.DailyDelta,
		WeeklySum:              r.WeeklySum,
		DailyRate:              r.DailyRate,
		DaySinceDeathThreshold: r.DaySinceDeathThreshold,
		DaySinceRateThreshold:  r.DaySinceRateThreshold,
	}
}

func formatDay(t time.Time) string {
	return t.Format(dateLayout)
}
