package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func textfile(m *Manager) string {
	path := filepath.Join(os.TempDir(), "covidtrend-metrics-"+time.Now().Format("150405.000000000")+".prom")
	defer func() { _ = os.Remove(path) }()
	So(m.WriteTextfile(path), ShouldBeNil)
	b, err := os.ReadFile(path)
	So(err, ShouldBeNil)
	return string(b)
}

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("run"),
				WithHistogramBuckets([]float64{0.1, 1}),
				WithConstLabels(map[string]string{"env": "ci"}),
				WithPrometheusRegistry(registry),
			)
			m.SetSourceRows(3)

			Convey("Then the metrics use the configured names and registry", func() {
				So(m.Registry(), ShouldEqual, registry)
				out := textfile(m)
				So(out, ShouldContainSubstring, `test_run_source_rows{env="ci"} 3`)
			})
		})

		Convey("When empty values are passed", func() {
			m := NewManager(WithNamespace(""), WithSubsystem(""), WithHistogramBuckets(nil), WithPrometheusRegistry(nil))

			Convey("Then defaults are kept", func() {
				So(m.Registry(), ShouldNotBeNil)
				m.SetCountries(2)
				So(textfile(m), ShouldContainSubstring, "covidtrend_pipeline_countries 2")
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given a manager on a fresh registry", t, func() {
		m := NewManager()

		Convey("When a run completes", func() {
			m.SetSourceRows(289)
			m.SetObservations(1200)
			m.SetDerivedRows(1200)
			m.SetCountries(12)
			m.SetAnchored(AnchorDeath, 11)
			m.SetAnchored(AnchorRate, 9)
			m.SetPage(4, 2048)
			m.ObserveStage(StageFetch, 250*time.Millisecond)
			m.RecordSuccess(time.Unix(1586476800, 0))
			out := textfile(m)

			Convey("Then the counts are exported", func() {
				So(out, ShouldContainSubstring, "covidtrend_pipeline_source_rows 289")
				So(out, ShouldContainSubstring, "covidtrend_pipeline_derived_rows 1200")
				So(out, ShouldContainSubstring, `covidtrend_pipeline_anchored_countries{anchor="death"} 11`)
				So(out, ShouldContainSubstring, `covidtrend_pipeline_anchored_countries{anchor="rate"} 9`)
				So(out, ShouldContainSubstring, "covidtrend_pipeline_charts 4")
			})

			Convey("Then the stage duration is observed", func() {
				So(out, ShouldContainSubstring, `covidtrend_pipeline_stage_duration_seconds_count{stage="fetch"} 1`)
			})

			Convey("Then the run is marked successful", func() {
				So(out, ShouldContainSubstring, "covidtrend_pipeline_last_run_success 1")
				So(out, ShouldContainSubstring, "covidtrend_pipeline_last_success_timestamp_seconds 1.5864768e+09")
			})
		})

		Convey("When a stage fails", func() {
			m.RecordStageError(StageWrite)
			out := textfile(m)

			Convey("Then the error is counted and the run is not successful", func() {
				So(out, ShouldContainSubstring, `covidtrend_pipeline_stage_errors_total{stage="write"} 1`)
				So(out, ShouldContainSubstring, "covidtrend_pipeline_last_run_success 0")
			})
		})
	})
}

func TestWriteTextfile(t *testing.T) {
	Convey("Given an unwritable path", t, func() {
		m := NewManager()
		err := m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "run.prom"))

		Convey("Then ErrWriteTextfile is returned", func() {
			So(errors.Is(err, ErrWriteTextfile), ShouldBeTrue)
		})
	})
}

func TestDefaultManager(t *testing.T) {
	Convey("Given the default manager", t, func() {
		So(Default(), ShouldNotBeNil)
		So(Default().Registry(), ShouldEqual, customRegistry)
	})
}
