package api

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/mpapenbr/f1viz-service-go/pkg/model"
)

// query numbers are clamped to this range before the int conversion
const maxParam = math.MaxInt32

var errInvalidYear = errors.New("Invalid year") //nolint:stylecheck // part of the response

// defaults per endpoint
type defaults struct {
	ref  model.RaceRef
	step int
}

// parseRequest builds the request for kind from the query parameters.
// Only a year that is not a finite number is rejected.
func parseRequest(r *http.Request, kind model.DatasetKind, d defaults) (model.DataRequest, error) {
	q := r.URL.Query()
	req := model.DataRequest{
		Kind:     kind,
		Year:     d.ref.Year,
		Track:    stringParam(q.Get("track"), d.ref.Track),
		Session:  stringParam(q.Get("session"), d.ref.Session),
		Driver:   strings.TrimSpace(q.Get("driver")),
		Step:     stepParam(q.Get("step"), d.step),
		UseCache: boolParam(q.Get("cache")),
		Random:   boolParam(q.Get("random")),
	}
	if s := strings.TrimSpace(q.Get("year")); s != "" {
		year, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(year) || math.IsInf(year, 0) {
			return req, errInvalidYear
		}
		req.Year = clampInt(year)
	}
	return req, nil
}

func stringParam(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

// stepParam returns max(1, floor(step)); unparsable values yield def
func stepParam(v string, def int) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return max(1, clampInt(f))
}

func clampInt(f float64) int {
	return int(math.Max(-maxParam, math.Min(maxParam, math.Floor(f))))
}

func boolParam(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}
