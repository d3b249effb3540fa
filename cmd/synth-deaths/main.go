// Command synth-deaths writes a synthetic deaths table in the Johns Hopkins
// wide CSV layout, for offline runs of covidtrend.
//
// Usage:
//
//	synth-deaths --output testdata/deaths.csv --days 90 --seed 7
//	synth-deaths --countries Italy,Spain --split Canada
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/covidtrend/internal/synth"
	"github.com/okian/covidtrend/pkg/logger"
)

var defaultCountries = []string{"Austria", "Belgium", "Canada", "Denmark", "France", "Germany", "Italy", "Norway", "Spain", "Sweden", "United Kingdom", "US"}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		output    string
		countries []string
		split     []string
		days      int
		seed      uint64
	)
	cmd := &cobra.Command{
		Use:          "synth-deaths",
		Short:        "Generate a synthetic cumulative deaths CSV",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(); err != nil {
				return err
			}
			tbl, err := synth.Generate(synth.Config{
				Countries:      countries,
				SplitCountries: split,
				Days:           days,
				Seed:           seed,
			})
			if err != nil {
				return err
			}
			if err := writeTable(output, tbl); err != nil {
				return err
			}
			logger.Get().Info(context.Background(), "synthetic table written",
				logger.String("output", output),
				logger.Int("records", len(tbl.Records)),
				logger.Int("days", len(tbl.Header)-4))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file, - for stdout")
	cmd.Flags().StringSliceVar(&countries, "countries", defaultCountries, "countries to generate")
	cmd.Flags().StringSliceVar(&split, "split", []string{"Canada", "United Kingdom"}, "countries emitted as province rows")
	cmd.Flags().IntVar(&days, "days", synth.DefaultDays, "number of date columns")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "random seed")
	return cmd
}

func writeTable(path string, tbl *synth.Table) error {
	if path == "" || path == "-" {
		return tbl.WriteCSV(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	if err := tbl.WriteCSV(w); err != nil {
		_ = f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}
