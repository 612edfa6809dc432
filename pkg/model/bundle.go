package model

// Bundle is the pre-baked reference document used in cached/demo mode.
// Each slice holds the envelope of the corresponding dataset kind.
type Bundle struct {
	TrackMap    map[string]any
	Telemetry   map[string]any
	RaceResults map[string]any
	Strategy    map[string]any
	Metadata    map[string]any
}

// Slice returns a shallow copy of the envelope for kind, so callers may add
// fields without touching the shared bundle.
func (b *Bundle) Slice(kind DatasetKind) map[string]any {
	var src map[string]any
	switch kind {
	case KindTrackMap:
		src = b.TrackMap
	case KindTelemetry:
		src = b.Telemetry
	case KindRaceResults:
		src = b.RaceResults
	case KindPitStrategy:
		src = b.Strategy
	}
	if src == nil {
		return nil
	}
	ret := make(map[string]any, len(src)+1)
	for k, v := range src {
		ret[k] = v
	}
	return ret
}
