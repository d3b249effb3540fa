// Package config defines the pipeline configuration and its loading hooks.
//
// Conventions:
//   - New() returns defaults that reproduce the published charts.
//   - Load(ctx) layers a YAML file and environment variables on top.
//   - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

// DefaultSourceURL is the JHU CSSE global deaths time series.
const DefaultSourceURL = "https://raw.githubusercontent.com/CSSEGISandData/COVID-19/master/" +
	"csse_covid_19_data/csse_covid_19_time_series/time_series_covid19_deaths_global.csv"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// SourceURL is an http(s) URL or a local path to the wide CSV.
	SourceURL string `koanf:"source_url"`

	// FetchTimeout bounds the single download.
	FetchTimeout time.Duration `koanf:"fetch_timeout"`

	// Countries is the allow-list. Env form is comma separated.
	Countries []string `koanf:"countries"`

	// DeathThreshold is the cumulative death bound for the primary anchor.
	// Set slightly below 10 to absorb reporting noise around the 10th death.
	DeathThreshold int `koanf:"death_threshold"`

	// RateThreshold is the daily-rate bound for the secondary anchor.
	RateThreshold float64 `koanf:"rate_threshold"`

	// Window is the rolling window length in observations.
	Window int `koanf:"window"`

	// DateDomainStart is the left edge of the date axes (YYYY-MM-DD).
	DateDomainStart string `koanf:"date_domain_start"`

	// DomainPaddingDays extends the date axes past today.
	DomainPaddingDays int `koanf:"domain_padding_days"`

	// TemplatePath overrides the embedded page template when set.
	TemplatePath string `koanf:"template_path"`

	// OutputPath is where the HTML page is written.
	OutputPath string `koanf:"output_path"`

	// PageTitle is passed to the template.
	PageTitle string `koanf:"page_title"`

	// Chart runtime versions loaded by the page.
	VegaVersion      string `koanf:"vega_version"`
	VegaLiteVersion  string `koanf:"vegalite_version"`
	VegaEmbedVersion string `koanf:"vegaembed_version"`

	// ExportPath enables the Parquet export of the derived table.
	ExportPath string `koanf:"export_path"`

	// ExportCompression is SNAPPY, GZIP or NONE.
	ExportCompression string `koanf:"export_compression"`

	// MetricsPath enables writing run metrics in the Prometheus text format.
	MetricsPath string `koanf:"metrics_path"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:     "info",
		LogFormat:    "text",
		SourceURL:    DefaultSourceURL,
		FetchTimeout: 30 * time.Second,
		Countries: []string{
			"Austria",
			"Belgium",
			"Canada",
			"Denmark",
			"France",
			"Germany",
			"Italy",
			"Norway",
			"Spain",
			"Sweden",
			"United Kingdom",
			"US",
		},
		DeathThreshold:    8,
		RateThreshold:     3,
		Window:            7,
		DateDomainStart:   "2020-02-25",
		DomainPaddingDays: 5,
		OutputPath:        "docs/index.html",
		PageTitle:         "COVID-19 Deaths for Some Selected Countries",
		VegaVersion:       "5",
		VegaLiteVersion:   "4.17.0",
		VegaEmbedVersion:  "6",
		ExportCompression: "SNAPPY",
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if strings.TrimSpace(c.SourceURL) == "" {
		result = multierror.Append(result, fmt.Errorf("%w: source_url must not be empty", ErrInvalidConfig))
	}
	if strings.TrimSpace(c.OutputPath) == "" {
		result = multierror.Append(result, fmt.Errorf("%w: output_path must not be empty", ErrInvalidConfig))
	}
	if len(c.Countries) == 0 {
		result = multierror.Append(result, fmt.Errorf("%w: countries must not be empty", ErrInvalidConfig))
	}
	if c.FetchTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("%w: fetch_timeout must be positive", ErrInvalidConfig))
	}
	if c.Window <= 0 {
		result = multierror.Append(result, fmt.Errorf("%w: window must be positive", ErrInvalidConfig))
	}
	if c.DeathThreshold < 0 {
		result = multierror.Append(result, fmt.Errorf("%w: death_threshold must not be negative", ErrInvalidConfig))
	}
	if c.RateThreshold < 0 {
		result = multierror.Append(result, fmt.Errorf("%w: rate_threshold must not be negative", ErrInvalidConfig))
	}
	if _, err := time.Parse(time.DateOnly, c.DateDomainStart); err != nil {
		result = multierror.Append(result, fmt.Errorf("%w: date_domain_start: %v", ErrInvalidConfig, err))
	}
	switch strings.ToUpper(c.ExportCompression) {
	case "SNAPPY", "GZIP", "NONE", "":
	default:
		result = multierror.Append(result, fmt.Errorf("%w: unsupported export_compression %q", ErrInvalidConfig, c.ExportCompression))
	}

	return result.ErrorOrNil()
}

// normalize trims allow-list entries and drops blanks.
func (c *Config) normalize() {
	var out []string
	for _, name := range c.Countries {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	c.Countries = out
}

// splitList parses the comma separated env form of a list. Names that
// contain commas ("Korea, South") need the YAML form.
func splitList(raw string) []string {
	return strings.Split(raw, ",")
}
