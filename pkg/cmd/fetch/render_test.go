package fetch

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/f1viz-service-go/pkg/fallback"
	"github.com/mpapenbr/f1viz-service-go/pkg/model"
)

func TestRenderJSON(t *testing.T) {
	var b bytes.Buffer
	require.NoError(t, Render(&b, model.KindRaceResults, map[string]any{"data": []any{}}, "json"))
	assert.JSONEq(t, `{"data":[]}`, b.String())
}

func TestRenderTable(t *testing.T) {
	body := map[string]any{
		"title": "Monza 2023 Pit Strategy",
		"data": []any{
			map[string]any{"driver": "VER", "stints": []any{
				map[string]any{"compound": "SOFT", "length": 18},
				map[string]any{"compound": "HARD", "length": 35},
			}},
		},
	}
	var b bytes.Buffer
	require.NoError(t, Render(&b, model.KindPitStrategy, body, "table"))
	out := strings.ToUpper(b.String())
	assert.Contains(t, out, "MONZA 2023 PIT STRATEGY")
	assert.Contains(t, out, "SOFT 18, HARD 35")
	assert.Contains(t, out, "53")
}

func TestRenderPlaceholderTable(t *testing.T) {
	req := model.DataRequest{Kind: model.KindRaceResults, Year: 2025, Track: "Nowhereville", Session: "R"}
	var b bytes.Buffer
	require.NoError(t, Render(&b, req.Kind, fallback.Placeholder(req, "no data").Body, "table"))
	assert.Contains(t, strings.ToUpper(b.String()), "ERROR: NO DATA")
}

func TestRenderErrors(t *testing.T) {
	var b bytes.Buffer
	assert.Error(t, Render(&b, model.KindTelemetry, map[string]any{}, "yaml"))
	assert.Error(t, Render(&b, model.KindTelemetry, map[string]any{"nothing": 1}, "table"))
}
