package model

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DatasetKind names a derived data set. The values double as keys of the
// cached reference bundle.
type DatasetKind string

const (
	KindTrackMap    DatasetKind = "track_map"
	KindTelemetry   DatasetKind = "telemetry"
	KindRaceResults DatasetKind = "race_results"
	KindPitStrategy DatasetKind = "strategy"
)

var AllKinds = []DatasetKind{KindTrackMap, KindTelemetry, KindRaceResults, KindPitStrategy}

func ParseKind(s string) (DatasetKind, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	switch norm {
	case "track_map", "trackmap":
		return KindTrackMap, nil
	case "telemetry":
		return KindTelemetry, nil
	case "race_results", "results":
		return KindRaceResults, nil
	case "strategy", "pit_strategy":
		return KindPitStrategy, nil
	}
	return "", fmt.Errorf("unknown dataset kind %q", s)
}

// RaceRef identifies a session by year, track and session code (Q, R, FP1,...)
type RaceRef struct {
	Year    int    `json:"year" yaml:"year"`
	Track   string `json:"track" yaml:"track"`
	Session string `json:"session" yaml:"session"`
}

func (r RaceRef) String() string {
	return fmt.Sprintf("%d %s %s", r.Year, r.Track, r.Session)
}

// ReferenceRace is known to reliably produce data for every dataset kind.
var ReferenceRace = RaceRef{Year: 2023, Track: "Silverstone", Session: "Q"}

type DataRequest struct {
	Kind     DatasetKind `validate:"oneof=track_map telemetry race_results strategy"`
	Year     int
	Track    string `validate:"required"`
	Session  string `validate:"required"`
	Driver   string
	Step     int `validate:"gte=1"`
	UseCache bool
	Random   bool
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (r *DataRequest) Validate() error {
	return validate.Struct(r)
}

func (r *DataRequest) Ref() RaceRef {
	return RaceRef{Year: r.Year, Track: r.Track, Session: r.Session}
}

// WithRef returns a copy of the request pointing to another session
func (r DataRequest) WithRef(ref RaceRef) DataRequest {
	r.Year = ref.Year
	r.Track = ref.Track
	r.Session = ref.Session
	return r
}
