package golden

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/oj"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/f1viz-service-go/pkg/bundle"
	"github.com/mpapenbr/f1viz-service-go/pkg/fallback"
	"github.com/mpapenbr/f1viz-service-go/pkg/model"
)

func scriptOutput(req model.DataRequest) map[string]any {
	switch req.Kind {
	case model.KindTrackMap:
		return map[string]any{"track": "monza", "data": map[string]any{
			"points": lo.Times(1000, func(i int) any {
				return map[string]any{"x": float64(i), "y": 0.0}
			}),
			"corners": []any{},
		}}
	case model.KindTelemetry:
		return map[string]any{"driver": req.Driver, "lap_time": math.NaN(),
			"samples": lo.Times(700, func(i int) any {
				return map[string]any{"time": float64(i), "speed": math.Inf(1)}
			}),
		}
	case model.KindRaceResults:
		return map[string]any{"data": []any{map[string]any{"position": "1", "driver": "VER"}}}
	default:
		return map[string]any{"data": lo.Times(20, func(i int) any {
			return map[string]any{"driver": i, "stints": []any{}}
		})}
	}
}

func TestBuild(t *testing.T) {
	var seen []model.DataRequest
	f := fallback.FetcherFunc(func(_ context.Context, req model.DataRequest) (any, error) {
		seen = append(seen, req)
		return scriptOutput(req), nil
	})
	doc, err := Build(context.Background(), f, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, seen, 4)
	assert.Equal(t, "SAI", seen[1].Driver)
	assert.Equal(t, "", seen[0].Driver)

	points := pathTrackPoints.First(doc["track_map"]).([]any)
	assert.Len(t, points, DefaultTrackPoints)
	assert.Equal(t, 999.0, points[len(points)-1].(map[string]any)["x"])

	samples := pathSamples.First(doc["telemetry"]).([]any)
	assert.Len(t, samples, DefaultTelemetrySamples)
	assert.Equal(t, 0.0, samples[0].(map[string]any)["speed"])
	assert.Equal(t, 0.0, doc["telemetry"].(map[string]any)["lap_time"])

	assert.Len(t, pathData.First(doc["strategy"]).([]any), DefaultStrategyDrivers)
	assert.Equal(t, "Monza 2023 Race - Featured Session (Optimized)",
		doc["metadata"].(map[string]any)["description"])

	b, err := bundle.Parse([]byte(oj.JSON(doc, &ojg.Options{Sort: true})))
	require.NoError(t, err)
	assert.Equal(t, "SAI", b.Metadata["driver"])
}

func TestBuildFailures(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name  string
		fetch func(model.DataRequest) (any, error)
		want  error
	}{
		{
			name:  "adapter failure",
			fetch: func(model.DataRequest) (any, error) { return nil, boom },
			want:  boom,
		},
		{
			name: "upstream error",
			fetch: func(model.DataRequest) (any, error) {
				return map[string]any{"error": "session not found"}, nil
			},
			want: ErrNoData,
		},
		{
			name: "not an object",
			fetch: func(model.DataRequest) (any, error) {
				return []any{}, nil
			},
			want: ErrNoData,
		},
		{
			name: "telemetry without samples",
			fetch: func(req model.DataRequest) (any, error) {
				if req.Kind == model.KindTelemetry {
					return map[string]any{"driver": "SAI"}, nil
				}
				return scriptOutput(req), nil
			},
			want: ErrNoData,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := fallback.FetcherFunc(func(_ context.Context, req model.DataRequest) (any, error) {
				return tt.fetch(req)
			})
			_, err := Build(context.Background(), f, DefaultOptions())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
