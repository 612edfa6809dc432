package fetch

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/ohler55/ojg/oj"
	"github.com/samber/lo"

	"github.com/mpapenbr/f1viz-service-go/pkg/model"
	"github.com/mpapenbr/f1viz-service-go/pkg/sanitize"
)

// Render writes body as indented json or as table
func Render(w io.Writer, kind model.DatasetKind, body any, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(body)
	case "table":
		return renderTable(w, kind, body)
	}
	return fmt.Errorf("unknown output format %q", format)
}

func renderTable(w io.Writer, kind model.DatasetKind, body any) error {
	// the body may be a result, a placeholder or a raw document; normalize it
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	doc, err := oj.Parse(data)
	if err != nil {
		return err
	}
	ok, isOk := sanitize.Sanitize(kind, doc, 1).(sanitize.Ok)
	if !isOk {
		return fmt.Errorf("cannot render %s as table", kind)
	}
	res := ok.Result

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	if title, _ := res.Document()["title"].(string); title != "" {
		t.SetTitle("%s", title)
	}

	switch kind {
	case model.KindTrackMap:
		t.AppendHeader(table.Row{"#", "X", "Y", "Speed", "Color"})
		for i, p := range res.Points {
			t.AppendRow(table.Row{i, p.X, p.Y, optional(p.Value), p.Color})
		}
		t.AppendFooter(table.Row{"", "", "", "Corners", len(res.Corners)})
	case model.KindTelemetry:
		t.AppendHeader(table.Row{"Time", "Speed", "Throttle", "Brake", "Steering", "X", "Y"})
		for _, s := range res.Samples {
			t.AppendRow(table.Row{s.Time, s.Speed, s.Throttle, s.Brake, s.Steering, s.X, s.Y})
		}
	case model.KindRaceResults:
		t.AppendHeader(table.Row{"Pos", "Driver", "Name", "Team", "Points", "Status", "Grid"})
		for _, r := range res.Rows {
			grid := ""
			if r.GridPosition != nil {
				grid = fmt.Sprint(*r.GridPosition)
			}
			t.AppendRow(table.Row{r.Position, r.Driver, r.DriverFull, r.Team, r.Points, r.Status, grid})
		}
	case model.KindPitStrategy:
		t.AppendHeader(table.Row{"Driver", "Stints", "Laps"})
		for _, d := range res.Strategy {
			stints := lo.Map(d.Stints, func(s model.Stint, _ int) string {
				return fmt.Sprintf("%s %d", s.Compound, s.Length)
			})
			laps := lo.SumBy(d.Stints, func(s model.Stint) int { return s.Length })
			t.AppendRow(table.Row{d.Driver, strings.Join(stints, ", "), laps})
		}
	}
	if msg := res.UpstreamError(); msg != "" {
		t.SetCaption("error: %s", msg)
	}
	t.Render()
	return nil
}

func optional(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(*v)
}
