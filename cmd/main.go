// Command covidtrend fetches the global COVID-19 deaths time series, derives
// threshold-aligned views and writes them as interactive charts into a
// static HTML page.
//
// Usage:
//
//	covidtrend
//	covidtrend --config covidtrend.yaml --output docs/index.html
//	covidtrend --source ./time_series_covid19_deaths_global.csv --log-level debug
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	app "github.com/okian/covidtrend/internal/app"
	"github.com/okian/covidtrend/internal/config"
	"github.com/okian/covidtrend/pkg/logger"
)

type flags struct {
	configPath string
	outputPath string
	sourceURL  string
	exportPath string
	logLevel   string
}

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:           "covidtrend",
		Short:         "Render COVID-19 death trends for selected countries",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), f)
		},
	}
	cmd.Flags().StringVar(&f.configPath, "config", os.Getenv(config.EnvConfig), "YAML config file")
	cmd.Flags().StringVar(&f.outputPath, "output", "", "HTML output path (overrides output_path)")
	cmd.Flags().StringVar(&f.sourceURL, "source", "", "CSV URL or local path (overrides source_url)")
	cmd.Flags().StringVar(&f.exportPath, "export", "", "Parquet export path (overrides export_path)")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error (overrides log_level)")
	return cmd
}

func run(ctx context.Context, f flags) error {
	if err := logger.Init(); err != nil {
		// logger isn't available yet
		fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	cfg, err := loadConfig(ctx, f)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		return err
	}

	if err := logger.SetFormat(cfg.LogFormat); err != nil {
		fmt.Fprintln(os.Stderr, "invalid log_format; using text:", err)
		_ = logger.SetFormat(logger.FormatText)
	}
	log := logger.Get()
	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	log.Info(ctx, "starting run",
		logger.String("source", cfg.SourceURL),
		logger.String("output", cfg.OutputPath),
		logger.Int("countries", len(cfg.Countries)))

	if _, err := app.New(cfg, app.WithLogger(log.Named("pipeline"))).Run(ctx); err != nil {
		return err
	}
	return nil
}

// loadConfig layers defaults, the config file, the environment and finally
// the command line flags.
func loadConfig(ctx context.Context, f flags) (*config.Config, error) {
	cfg, err := config.LoadFile(ctx, f.configPath)
	if err != nil {
		return nil, err
	}
	if f.outputPath != "" {
		cfg.OutputPath = f.outputPath
	}
	if f.sourceURL != "" {
		cfg.SourceURL = f.sourceURL
	}
	if f.exportPath != "" {
		cfg.ExportPath = f.exportPath
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
