package fetch

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/f1viz-service-go/log"
	cmdutil "github.com/mpapenbr/f1viz-service-go/pkg/cmd/util"
	"github.com/mpapenbr/f1viz-service-go/pkg/config"
	"github.com/mpapenbr/f1viz-service-go/pkg/fallback"
	"github.com/mpapenbr/f1viz-service-go/pkg/model"
)

type fetchArgs struct {
	year    int
	track   string
	session string
	driver  string
	step    int
	random  bool
	output  string
}

func NewFetchCmd() *cobra.Command {
	args := fetchArgs{}
	cmd := &cobra.Command{
		Use:   "fetch <track-map|telemetry|race-results|pit-strategy>",
		Short: "runs the data pipeline once and prints the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			kind, err := model.ParseKind(cmdArgs[0])
			if err != nil {
				return err
			}
			return runFetch(cmd.Context(), kind, &args)
		},
	}
	cmd.Flags().IntVar(&args.year, "year", model.ReferenceRace.Year, "season")
	cmd.Flags().StringVar(&args.track, "track", model.ReferenceRace.Track, "track or event name")
	cmd.Flags().StringVar(&args.session, "session", model.ReferenceRace.Session,
		"session (FP1, Q, R, ...)")
	cmd.Flags().StringVar(&args.driver, "driver", "",
		"driver abbreviation (telemetry only, default: fastest lap)")
	cmd.Flags().IntVar(&args.step, "step", 1, "keep every n-th point/sample")
	cmd.Flags().BoolVar(&args.random, "random", false, "pick a random featured race")
	cmd.Flags().StringVarP(&args.output, "output", "o", "json", "output format (json, table)")
	return cmd
}

func runFetch(ctx context.Context, kind model.DatasetKind, args *fetchArgs) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cmdutil.SetupLogger()
	cfg := config.FromFlags()

	req := model.DataRequest{
		Kind:    kind,
		Year:    args.year,
		Track:   args.track,
		Session: args.session,
		Driver:  args.driver,
		Step:    max(1, args.step),
		Random:  args.random,
	}
	if req.Random {
		req = req.WithRef(fallback.PickFeatured(cmdutil.FeaturedRaces(&cfg)).RaceRef)
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}

	resp := cmdutil.NewPipeline(&cfg).Resolve(ctx, req)
	if resp.Terminal || resp.Substituted {
		log.Warn("requested data not available",
			log.Stringer("requested", resp.Requested),
			log.Stringer("served", resp.Served),
			log.Bool("placeholder", resp.Terminal))
	}
	return Render(os.Stdout, kind, resp.Body, args.output)
}
