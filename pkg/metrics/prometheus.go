// Package metrics provides Prometheus metrics for covidtrend runs.
//
// A run is a batch job, so metrics are not scraped. They are written once per
// run in the node_exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline stage label values.
const (
	StageFetch  = "fetch"
	StageShape  = "shape"
	StageDerive = "derive"
	StageRender = "render"
	StageWrite  = "write"
	StageExport = "export"
)

// Anchor kind label values.
const (
	AnchorDeath = "death"
	AnchorRate  = "rate"
)

// Manager owns the run metrics and the registry they live on.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         *prometheus.Registry

	sourceRows      prometheus.Gauge
	observations    prometheus.Gauge
	derivedRows     prometheus.Gauge
	countries       prometheus.Gauge
	anchored        *prometheus.GaugeVec
	charts          prometheus.Gauge
	specBytes       prometheus.Gauge
	stageDuration   *prometheus.HistogramVec
	stageErrors     *prometheus.CounterVec
	runSuccess      prometheus.Gauge
	lastSuccessUnix prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Default returns the process-wide manager.
func Default() *Manager {
	return globalManager
}

// NewManager creates a metrics manager on its own registry unless one is
// supplied.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "covidtrend",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)
	gauge := func(name, help string) prometheus.Gauge {
		return auto.NewGauge(prometheus.GaugeOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: m.constLabels,
		})
	}

	m.sourceRows = gauge("source_rows", "Rows in the fetched source table")
	m.observations = gauge("observations", "Observations after cleaning, aggregation and filtering")
	m.derivedRows = gauge("derived_rows", "Rows in the derived table")
	m.countries = gauge("countries", "Countries present in the derived table")
	m.charts = gauge("charts", "Charts rendered into the page")
	m.specBytes = gauge("spec_bytes", "Total size of the encoded chart specs in bytes")
	m.runSuccess = gauge("last_run_success", "1 if the last run completed, 0 otherwise")
	m.lastSuccessUnix = gauge("last_success_timestamp_seconds", "Unix time of the last completed run")

	m.anchored = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "anchored_countries",
		Help:        "Countries that reached the threshold of the given anchor kind",
		ConstLabels: m.constLabels,
	}, []string{"anchor"})

	m.stageDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "stage_duration_seconds",
		Help:        "Duration of each pipeline stage in seconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"stage"})

	m.stageErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "stage_errors_total",
		Help:        "Failures by pipeline stage",
		ConstLabels: m.constLabels,
	}, []string{"stage"})
}

// Registry returns the registry the metrics are registered on.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// SetSourceRows records the size of the raw table.
func (m *Manager) SetSourceRows(n int) { m.sourceRows.Set(float64(n)) }

// SetObservations records the number of long-form observations.
func (m *Manager) SetObservations(n int) { m.observations.Set(float64(n)) }

// SetDerivedRows records the size of the derived table.
func (m *Manager) SetDerivedRows(n int) { m.derivedRows.Set(float64(n)) }

// SetCountries records how many countries were derived.
func (m *Manager) SetCountries(n int) { m.countries.Set(float64(n)) }

// SetAnchored records how many countries reached an anchor of kind.
func (m *Manager) SetAnchored(kind string, n int) {
	m.anchored.WithLabelValues(kind).Set(float64(n))
}

// SetPage records the charts embedded into the page.
func (m *Manager) SetPage(charts, specBytes int) {
	m.charts.Set(float64(charts))
	m.specBytes.Set(float64(specBytes))
}

// ObserveStage records how long a stage took.
func (m *Manager) ObserveStage(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordStageError counts a failed stage and marks the run as failed.
func (m *Manager) RecordStageError(stage string) {
	m.stageErrors.WithLabelValues(stage).Inc()
	m.runSuccess.Set(0)
}

// RecordSuccess marks the run as completed at t.
func (m *Manager) RecordSuccess(t time.Time) {
	m.runSuccess.Set(1)
	m.lastSuccessUnix.Set(float64(t.Unix()))
}

// WriteTextfile writes every metric of the registry to path in the text
// exposition format. The write goes through a temp file and a rename.
func (m *Manager) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteTextfile, err)
	}
	return nil
}
