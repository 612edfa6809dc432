package golden

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ohler55/ojg/jp"

	"github.com/mpapenbr/f1viz-service-go/log"
	"github.com/mpapenbr/f1viz-service-go/pkg/fallback"
	"github.com/mpapenbr/f1viz-service-go/pkg/model"
	"github.com/mpapenbr/f1viz-service-go/pkg/sanitize"
)

const (
	DefaultTrackPoints      = 450
	DefaultTelemetrySamples = 350
	DefaultStrategyDrivers  = 10
)

var ErrNoData = errors.New("script returned no usable data")

var (
	pathTrackPoints = jp.MustParseString("$.data.points")
	pathSamples     = jp.MustParseString("$.samples")
	pathData        = jp.MustParseString("$.data")
)

// Options controls which session is captured and how far it is reduced
type Options struct {
	Race             model.RaceRef
	Driver           string
	TrackPoints      int
	TelemetrySamples int
	StrategyDrivers  int
}

func DefaultOptions() Options {
	return Options{
		Race:             model.RaceRef{Year: 2023, Track: "Monza", Session: "R"},
		Driver:           "SAI",
		TrackPoints:      DefaultTrackPoints,
		TelemetrySamples: DefaultTelemetrySamples,
		StrategyDrivers:  DefaultStrategyDrivers,
	}
}

// Build runs all scripts for the configured session once and assembles the
// reference bundle document.
func Build(ctx context.Context, f fallback.Fetcher, opts Options) (map[string]any, error) {
	fetch := func(kind model.DatasetKind) (map[string]any, error) {
		req := model.DataRequest{Kind: kind, Step: 1}.WithRef(opts.Race)
		if kind == model.KindTelemetry {
			req.Driver = opts.Driver
		}
		raw, err := f.Fetch(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
		doc, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s: %w", kind, ErrNoData)
		}
		if msg, _ := doc["error"].(string); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", kind, ErrNoData, msg)
		}
		return doc, nil
	}

	ret := map[string]any{}
	trackMap, err := fetch(model.KindTrackMap)
	if err != nil {
		return nil, err
	}
	if err := reduce(trackMap, pathTrackPoints, opts.TrackPoints); err != nil {
		return nil, fmt.Errorf("%s: %w", model.KindTrackMap, err)
	}
	ret["track_map"] = trackMap

	telemetry, err := fetch(model.KindTelemetry)
	if err != nil {
		return nil, err
	}
	if err := reduce(telemetry, pathSamples, opts.TelemetrySamples); err != nil {
		return nil, fmt.Errorf("%s: %w", model.KindTelemetry, err)
	}
	ret["telemetry"] = telemetry

	if ret["race_results"], err = fetch(model.KindRaceResults); err != nil {
		return nil, err
	}

	strategy, err := fetch(model.KindPitStrategy)
	if err != nil {
		return nil, err
	}
	if err := reduce(strategy, pathData, -opts.StrategyDrivers); err != nil {
		return nil, fmt.Errorf("%s: %w", model.KindPitStrategy, err)
	}
	ret["strategy"] = strategy

	ret["metadata"] = map[string]any{
		"year":    opts.Race.Year,
		"track":   opts.Race.Track,
		"session": opts.Race.Session,
		"driver":  opts.Driver,
		"description": fmt.Sprintf("%s %d %s - Featured Session (Optimized)",
			opts.Race.Track, opts.Race.Year, sessionName(opts.Race.Session)),
	}
	log.Info("bundle assembled",
		log.Stringer("race", opts.Race),
		log.String("driver", opts.Driver))
	return sanitize.ScrubNonFinite(ret).(map[string]any), nil
}

// reduce shrinks the array found at path to target entries. A positive target
// keeps evenly spaced entries including both ends, a negative one keeps the
// leading entries.
func reduce(doc map[string]any, path jp.Expr, target int) error {
	items, ok := path.First(doc).([]any)
	if !ok {
		return ErrNoData
	}
	var reduced []any
	switch {
	case target > 0:
		reduced = sanitize.Downsample(items, target)
	case target < 0 && len(items) > -target:
		reduced = items[:-target]
	default:
		return nil
	}
	return path.Set(doc, reduced)
}

func sessionName(s string) string {
	switch strings.ToUpper(s) {
	case "R":
		return "Race"
	case "Q":
		return "Qualifying"
	case "S":
		return "Sprint"
	}
	return s
}
