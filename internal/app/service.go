// Package service wires the pipeline stages into a single run: fetch the
// source table, shape it, derive the aligned views, render the charts and
// write the page, then optionally export the table and the run metrics.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/covidtrend/internal/adapters/export"
	"github.com/okian/covidtrend/internal/adapters/page"
	"github.com/okian/covidtrend/internal/adapters/render"
	"github.com/okian/covidtrend/internal/adapters/source"
	"github.com/okian/covidtrend/internal/config"
	"github.com/okian/covidtrend/internal/domain/derive"
	"github.com/okian/covidtrend/internal/domain/model"
	"github.com/okian/covidtrend/internal/domain/shaping"
	"github.com/okian/covidtrend/pkg/logger"
	"github.com/okian/covidtrend/pkg/metrics"
)

// Result summarizes a completed run.
type Result struct {
	RunID        string
	SourceRows   int
	Observations int
	Countries    int
	Missing      []string
	DeathAnchors int
	RateAnchors  int
	Charts       int
	OutputPath   string
	ExportPath   string
	Duration     time.Duration
}

// Pipeline runs the whole job once per call to Run.
type Pipeline struct {
	cfg     *config.Config
	fetcher *source.Fetcher
	engine  *derive.Engine
	writer  *page.Writer
	metrics *metrics.Manager
	clock   render.Clock
	logger  logger.Logger
}

// Option applies a configuration option to the Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithFetcher replaces the source fetcher built from config.
func WithFetcher(f *source.Fetcher) Option {
	return func(p *Pipeline) {
		if f != nil {
			p.fetcher = f
		}
	}
}

// WithMetrics records run metrics on m instead of the default manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(p *Pipeline) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithClock sets the time source used for chart domains and timestamps.
func WithClock(c render.Clock) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.clock = c
		}
	}
}

// New constructs a Pipeline for cfg. cfg must already be validated.
func New(cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:     cfg,
		metrics: metrics.Default(),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Named("pipeline")
	}
	if p.fetcher == nil {
		p.fetcher = source.NewFetcher(
			source.WithTimeout(cfg.FetchTimeout),
			source.WithLogger(p.logger.Named("source")),
		)
	}
	p.engine = derive.NewEngine(
		derive.WithDeathThreshold(cfg.DeathThreshold),
		derive.WithRateThreshold(cfg.RateThreshold),
		derive.WithWindow(cfg.Window),
	)
	writerOpts := []page.Option{page.WithLogger(p.logger.Named("page"))}
	if cfg.TemplatePath != "" {
		writerOpts = append(writerOpts, page.WithTemplatePath(cfg.TemplatePath))
	}
	p.writer = page.NewWriter(writerOpts...)
	return p
}

// Run executes every stage in order. Any stage error aborts the run before
// the page is written, so a failed run never leaves a partial page.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	started := p.clock()
	res := &Result{RunID: uuid.NewString(), OutputPath: p.cfg.OutputPath}
	log := p.logger.With(logger.String("run_id", res.RunID))

	err := p.run(ctx, log, res)
	if err != nil {
		log.Error(ctx, "run failed", logger.Error(err))
	} else {
		p.metrics.RecordSuccess(p.clock())
		res.Duration = p.clock().Sub(started)
		log.Info(ctx, "run completed",
			logger.String("output", res.OutputPath),
			logger.Int("countries", res.Countries),
			logger.Int("observations", res.Observations),
			logger.Duration("duration", res.Duration))
	}

	if p.cfg.MetricsPath != "" {
		if merr := p.metrics.WriteTextfile(p.cfg.MetricsPath); merr != nil {
			log.Warn(ctx, "metrics textfile not written", logger.Error(merr))
		}
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, log logger.Logger, res *Result) error {
	var raw *source.RawTable
	if err := p.stage(ctx, log, metrics.StageFetch, func() (err error) {
		raw, err = p.fetcher.Fetch(ctx, p.cfg.SourceURL)
		return err
	}); err != nil {
		return err
	}
	res.SourceRows = len(raw.Records)
	p.metrics.SetSourceRows(res.SourceRows)

	var obs []model.Observation
	if err := p.stage(ctx, log, metrics.StageShape, func() (err error) {
		obs, err = shaping.Shape(ctx, raw.Header, raw.Records, p.cfg.Countries)
		return err
	}); err != nil {
		return err
	}
	res.Observations = len(obs)
	p.metrics.SetObservations(res.Observations)
	res.Missing = missingCountries(p.cfg.Countries, obs)
	for _, c := range res.Missing {
		log.Debug(ctx, "allow-listed country not in source", logger.String("country", c))
	}

	var (
		rows    []model.DerivedObservation
		summary derive.Summary
	)
	if err := p.stage(ctx, log, metrics.StageDerive, func() error {
		rows, summary = p.engine.Derive(obs)
		return ctx.Err()
	}); err != nil {
		return err
	}
	res.Countries = summary.Countries
	res.DeathAnchors = len(summary.DeathAnchors)
	res.RateAnchors = len(summary.RateAnchors)
	p.metrics.SetDerivedRows(summary.Rows)
	p.metrics.SetCountries(summary.Countries)
	p.metrics.SetAnchored(metrics.AnchorDeath, res.DeathAnchors)
	p.metrics.SetAnchored(metrics.AnchorRate, res.RateAnchors)
	log.Debug(ctx, "derived",
		logger.Int("rows", summary.Rows),
		logger.Int("death_anchors", res.DeathAnchors),
		logger.Int("rate_anchors", res.RateAnchors))

	var specs []string
	if err := p.stage(ctx, log, metrics.StageRender, func() error {
		charts, err := render.StandardCharts(rows, p.clock, render.StandardOptions{
			DomainStart:    p.cfg.DateDomainStart,
			PaddingDays:    p.cfg.DomainPaddingDays,
			DeathThreshold: p.cfg.DeathThreshold,
			RateThreshold:  p.cfg.RateThreshold,
			Window:         p.cfg.Window,
		})
		if err != nil {
			return err
		}
		for _, c := range charts {
			s, err := render.Marshal(c)
			if err != nil {
				return err
			}
			specs = append(specs, s)
		}
		return nil
	}); err != nil {
		return err
	}
	res.Charts = len(specs)

	if err := p.stage(ctx, log, metrics.StageWrite, func() error {
		return p.writer.Write(ctx, p.cfg.OutputPath, page.Data{
			Title:            p.cfg.PageTitle,
			VegaVersion:      p.cfg.VegaVersion,
			VegaLiteVersion:  p.cfg.VegaLiteVersion,
			VegaEmbedVersion: p.cfg.VegaEmbedVersion,
			Specs:            specs,
			GeneratedAt:      p.clock().UTC().Format(time.RFC3339),
		})
	}); err != nil {
		return err
	}
	p.metrics.SetPage(res.Charts, pageSize(specs))

	if p.cfg.ExportPath == "" {
		return nil
	}
	if err := p.stage(ctx, log, metrics.StageExport, func() error {
		return export.WriteParquet(ctx, p.cfg.ExportPath, rows, p.cfg.ExportCompression)
	}); err != nil {
		return err
	}
	res.ExportPath = p.cfg.ExportPath
	return nil
}

// stage times fn and records its outcome.
func (p *Pipeline) stage(ctx context.Context, log logger.Logger, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	p.metrics.ObserveStage(name, elapsed)
	if err != nil {
		p.metrics.RecordStageError(name)
		return fmt.Errorf("%s: %w", name, err)
	}
	log.Debug(ctx, "stage done", logger.String("stage", name), logger.Duration("elapsed", elapsed))
	return nil
}

func missingCountries(allow []string, obs []model.Observation) []string {
	present := make(map[string]struct{})
	for _, o := range obs {
		present[o.Country] = struct{}{}
	}
	var missing []string
	for _, c := range allow {
		if _, ok := present[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}

func pageSize(specs []string) int {
	n := 0
	for _, s := range specs {
		n += len(s)
	}
	return n
}
