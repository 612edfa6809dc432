// Package sanitize turns the raw documents of the analysis scripts into the
// strict shapes consumed by the dashboard.
package sanitize

import (
	"encoding/json"
	"fmt"

	"github.com/ohler55/ojg/jp"
	"github.com/samber/lo"

	"github.com/mpapenbr/f1viz-service-go/pkg/model"
)

// Outcome is either Ok or Malformed
type Outcome interface {
	isOutcome()
}

// Ok carries a sanitized result. The result may be empty.
type Ok struct {
	Result *Result
}

// Malformed is returned when the raw document does not have the expected
// envelope. Raw is the unmodified input.
type Malformed struct {
	Raw    any
	Reason string
}

func (Ok) isOutcome()        {}
func (Malformed) isOutcome() {}

// Result is a sanitized document. Only the field matching Kind is populated.
// The remaining envelope fields of the raw document are kept as they are.
type Result struct {
	Kind     model.DatasetKind
	Points   []model.Point
	Corners  []model.Corner
	Samples  []model.Sample
	Rows     []model.ResultRow
	Strategy []model.DriverStints
	doc      map[string]any
}

// Len returns the number of entries in the primary collection
func (r *Result) Len() int {
	switch r.Kind {
	case model.KindTrackMap:
		return len(r.Points)
	case model.KindTelemetry:
		return len(r.Samples)
	case model.KindRaceResults:
		return len(r.Rows)
	case model.KindPitStrategy:
		return len(r.Strategy)
	}
	return 0
}

func (r *Result) Empty() bool { return r.Len() == 0 }

// UpstreamError returns the error message reported by the script, if any
func (r *Result) UpstreamError() string {
	if s, ok := r.doc["error"].(string); ok {
		return s
	}
	return ""
}

// Document returns a shallow copy of the sanitized document
func (r *Result) Document() map[string]any {
	return copyMap(r.doc)
}

func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.doc)
}

var (
	pathDataPoints  = jp.MustParseString("$.data.points")
	pathPoints      = jp.MustParseString("$.points")
	pathSamples     = jp.MustParseString("$.samples")
	pathDataSamples = jp.MustParseString("$.data.samples")
	pathData        = jp.MustParseString("$.data")
)

// Sanitize validates raw for kind and normalizes it. Points and samples are
// resampled with step, rows and stints are kept complete.
func Sanitize(kind model.DatasetKind, raw any, step int) Outcome {
	switch kind {
	case model.KindTrackMap:
		return trackMap(raw, step)
	case model.KindTelemetry:
		return telemetry(raw, step)
	case model.KindRaceResults:
		return raceResults(raw)
	case model.KindPitStrategy:
		return strategy(raw)
	}
	return Malformed{Raw: raw, Reason: fmt.Sprintf("unknown kind %q", kind)}
}

func trackMap(raw any, step int) Outcome {
	root, ok := raw.(map[string]any)
	if !ok {
		return Malformed{Raw: raw, Reason: "document is not an object"}
	}
	env := copyMap(root)
	var section map[string]any
	var points []any
	if p, ok := pathDataPoints.First(raw).([]any); ok {
		section = copyMap(root["data"].(map[string]any))
		points = p
	} else if p, ok := pathPoints.First(raw).([]any); ok {
		section = copyMap(root)
		points = p
		delete(env, "points")
		delete(env, "corners")
	} else {
		return Malformed{Raw: raw, Reason: "points missing"}
	}

	res := &Result{Kind: model.KindTrackMap}
	res.Points = lo.Map(Resample(points, step), func(item any, _ int) model.Point {
		p := asMap(item)
		ret := model.Point{
			X:     pixel(p["x"]),
			Y:     pixel(p["y"]),
			Value: optNumber(p["value"], 2),
		}
		if c, ok := p["color"].(string); ok {
			ret.Color = c
		}
		return ret
	})
	corners, _ := section["corners"].([]any)
	res.Corners = lo.Map(corners, func(item any, _ int) model.Corner {
		c := asMap(item)
		ret := model.Corner{
			Number:    pixel(c["number"]),
			X:         pixel(c["x"]),
			Y:         pixel(c["y"]),
			ApexSpeed: optNumber(c["apex_speed"], 2),
		}
		if l, ok := c["letter"].(string); ok {
			ret.Letter = l
		}
		return ret
	})

	section["points"] = res.Points
	section["corners"] = res.Corners
	if w, ok := toFloat(section["strokeWidth"]); ok {
		section["strokeWidth"] = w
	} else {
		delete(section, "strokeWidth")
	}
	env["data"] = section
	res.doc = env
	return Ok{Result: res}
}

func telemetry(raw any, step int) Outcome {
	root, ok := raw.(map[string]any)
	if !ok {
		return Malformed{Raw: raw, Reason: "document is not an object"}
	}
	env := copyMap(root)
	samples, ok := pathSamples.First(raw).([]any)
	if !ok {
		if samples, ok = pathDataSamples.First(raw).([]any); !ok {
			return Malformed{Raw: raw, Reason: "samples missing"}
		}
		data := copyMap(root["data"].(map[string]any))
		delete(data, "samples")
		env["data"] = data
	}

	res := &Result{Kind: model.KindTelemetry}
	res.Samples = lo.Map(Resample(samples, step), func(item any, _ int) model.Sample {
		s := asMap(item)
		return model.Sample{
			Time:     number(s["time"], 3),
			Speed:    number(s["speed"], 2),
			Throttle: number(s["throttle"], 2),
			Brake:    number(s["brake"], 2),
			Steering: number(s["steering"], 2),
			X:        pixel(s["x"]),
			Y:        pixel(s["y"]),
		}
	})
	env["samples"] = res.Samples
	res.doc = env
	return Ok{Result: res}
}

// rowsEnvelope looks up the data array of results and strategy documents.
// A top level array is accepted as well.
func rowsEnvelope(raw any) (env map[string]any, items []any, ok bool) {
	if items, ok = raw.([]any); ok {
		return map[string]any{}, items, true
	}
	root, isMap := raw.(map[string]any)
	if !isMap {
		return nil, nil, false
	}
	if items, ok = pathData.First(raw).([]any); !ok {
		return nil, nil, false
	}
	return copyMap(root), items, true
}

func raceResults(raw any) Outcome {
	env, items, ok := rowsEnvelope(raw)
	if !ok {
		return Malformed{Raw: raw, Reason: "data array missing"}
	}
	res := &Result{Kind: model.KindRaceResults}
	res.Rows = lo.Map(items, func(item any, _ int) model.ResultRow {
		r := asMap(item)
		points, ok := toFloat(r["points"])
		if !ok {
			points = 0
		}
		return model.ResultRow{
			Position:     str(r["position"]),
			Driver:       text(r["driver"]),
			DriverFull:   firstText(r["driverFull"], r["driver"]),
			Team:         text(r["team"]),
			Points:       points,
			Status:       text(r["status"]),
			GridPosition: optInt(r["gridPosition"]),
		}
	})
	env["data"] = res.Rows
	res.doc = env
	return Ok{Result: res}
}

func strategy(raw any) Outcome {
	env, items, ok := rowsEnvelope(raw)
	if !ok {
		return Malformed{Raw: raw, Reason: "data array missing"}
	}
	res := &Result{Kind: model.KindPitStrategy}
	res.Strategy = lo.Map(items, func(item any, _ int) model.DriverStints {
		d := asMap(item)
		stints, _ := d["stints"].([]any)
		return model.DriverStints{
			Driver: text(d["driver"]),
			Stints: lo.Map(stints, func(s any, _ int) model.Stint {
				m := asMap(s)
				return model.Stint{Compound: text(m["compound"]), Length: pixel(m["length"])}
			}),
		}
	})
	env["data"] = res.Strategy
	res.doc = env
	return Ok{Result: res}
}

func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func copyMap(src map[string]any) map[string]any {
	ret := make(map[string]any, len(src)+2)
	for k, v := range src {
		ret[k] = v
	}
	return ret
}
