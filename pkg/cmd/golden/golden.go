package golden

import (
	"context"
	"fmt"
	"os"

	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"github.com/mpapenbr/f1viz-service-go/log"
	"github.com/mpapenbr/f1viz-service-go/pkg/adapter"
	"github.com/mpapenbr/f1viz-service-go/pkg/bundle"
	cmdutil "github.com/mpapenbr/f1viz-service-go/pkg/cmd/util"
	"github.com/mpapenbr/f1viz-service-go/pkg/config"
)

func NewGoldenCmd() *cobra.Command {
	opts := DefaultOptions()
	var output string
	cmd := &cobra.Command{
		Use:   "golden",
		Short: "creates the reference bundle used for cached responses",
		Long: `Runs every analysis script once for the configured session and writes
the reduced results as bundle file. The file can be used with --bundle-source.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGolden(cmd.Context(), &opts, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "monza-2023.json", "bundle file to write")
	cmd.Flags().IntVar(&opts.Race.Year, "year", opts.Race.Year, "season")
	cmd.Flags().StringVar(&opts.Race.Track, "track", opts.Race.Track, "track or event name")
	cmd.Flags().StringVar(&opts.Race.Session, "session", opts.Race.Session, "session")
	cmd.Flags().StringVar(&opts.Driver, "driver", opts.Driver, "driver used for telemetry")
	cmd.Flags().IntVar(&opts.TrackPoints, "track-points", opts.TrackPoints,
		"number of track map points to keep")
	cmd.Flags().IntVar(&opts.TelemetrySamples, "telemetry-samples", opts.TelemetrySamples,
		"number of telemetry samples to keep")
	cmd.Flags().IntVar(&opts.StrategyDrivers, "strategy-drivers", opts.StrategyDrivers,
		"number of drivers to keep in the strategy section")
	return cmd
}

func runGolden(ctx context.Context, opts *Options, output string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cmdutil.SetupLogger()
	cfg := config.FromFlags()

	doc, err := Build(ctx, adapter.New(adapter.WithConfig(&cfg)), *opts)
	if err != nil {
		return err
	}
	data := []byte(oj.JSON(doc, &ojg.Options{Indent: 1, Sort: true}))
	if _, err := bundle.Parse(data); err != nil {
		return fmt.Errorf("generated bundle is not valid: %w", err)
	}
	//nolint:gosec // bundle is public data
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return err
	}
	log.Info("bundle written", log.String("file", output), log.Int("bytes", len(data)))
	return nil
}
