package render

import (
	"fmt"
	"time"

	"github.com/okian/covidtrend/internal/domain/model"
)

// Clock returns the current time.
type Clock func() time.Time

// Defaults of the standard page.
const (
	DefaultDomainStart   = "2020-02-25"
	DefaultPaddingDays   = 5
	DeathsYMin           = 10
	RateYMin             = 1
	defaultDeathBound    = 8
	defaultWindowLength  = 7
	defaultDateAxisTitle = "Date"
	totalDeathsTitle     = "Total deaths"
)

// StandardOptions parameterizes the four page charts.
type StandardOptions struct {
	DomainStart    string
	PaddingDays    int
	DeathThreshold int
	RateThreshold  float64
	Window         int
}

func (o StandardOptions) withDefaults() StandardOptions {
	if o.DomainStart == "" {
		o.DomainStart = DefaultDomainStart
	}
	if o.PaddingDays < 0 {
		o.PaddingDays = DefaultPaddingDays
	}
	if o.DeathThreshold <= 0 {
		o.DeathThreshold = defaultDeathBound
	}
	if o.Window <= 0 {
		o.Window = defaultWindowLength
	}
	return o
}

// DeathAnchorTitle labels the x axis of the death-aligned chart. The default
// bound of 8 is shown as "~10th death", matching how the chart is read.
func DeathAnchorTitle(bound int) string {
	if bound == defaultDeathBound {
		return "Number of days since ~10th death"
	}
	return fmt.Sprintf("Number of days since %d deaths", bound)
}

// RateAnchorTitle labels the x axis of the rate-aligned chart.
func RateAnchorTitle(bound float64) string {
	return fmt.Sprintf("Number of days since %g deaths per day", bound)
}

// RateTitle labels the y axis of the rate charts.
func RateTitle(window int) string {
	return fmt.Sprintf("Deaths per day (%d-day rolling average)", window)
}

// StandardCharts builds, in page order: deaths by date, deaths since the
// death anchor, daily rate by date and daily rate since the rate anchor.
func StandardCharts(rows []model.DerivedObservation, clock Clock, opts StandardOptions) ([]*Spec, error) {
	opts = opts.withDefaults()
	if clock == nil {
		clock = time.Now
	}
	domainEnd := formatDay(clock().AddDate(0, 0, opts.PaddingDays))
	rateTitle := RateTitle(opts.Window)

	charts := []ChartOptions{
		{
			XField: FieldDate, XTitle: defaultDateAxisTitle,
			YField: FieldDeaths, YTitle: totalDeathsTitle,
			YMin:     DeathsYMin,
			Temporal: true, DomainStart: opts.DomainStart, DomainEnd: domainEnd,
		},
		{
			XField: FieldDaySinceDeathThreshold, XTitle: DeathAnchorTitle(opts.DeathThreshold),
			YField: FieldDeaths, YTitle: totalDeathsTitle,
			YMin: DeathsYMin,
			Keep: func(r model.DerivedObservation) bool {
				return r.DaySinceDeathThreshold != nil && *r.DaySinceDeathThreshold >= 0
			},
		},
		{
			XField: FieldDate, XTitle: defaultDateAxisTitle,
			YField: FieldDailyRate, YTitle: rateTitle,
			YMin:     RateYMin,
			Temporal: true, DomainStart: opts.DomainStart, DomainEnd: domainEnd,
			Keep: func(r model.DerivedObservation) bool { return r.DailyRate >= 0 },
		},
		{
			XField: FieldDaySinceRateThreshold, XTitle: RateAnchorTitle(opts.RateThreshold),
			YField: FieldDailyRate, YTitle: rateTitle,
			YMin: RateYMin,
			Keep: func(r model.DerivedObservation) bool {
				return r.DaySinceRateThreshold != nil && *r.DaySinceRateThreshold >= 0
			},
		},
	}

	specs := make([]*Spec, 0, len(charts))
	for _, c := range charts {
		s, err := Build(rows, c)
		if err != nil {
			return nil, err
		}
		specs = append(specs, s)
	}
	return specs, nil
}
