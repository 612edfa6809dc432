package model

// default styling used by the track map component
const (
	DefaultStrokeColor     = "hsl(220, 100%, 62%)"
	DefaultStrokeWidth     = 120
	DefaultCornerColor     = "hsl(0, 0%, 40%)"
	DefaultCornerTextColor = "#ffffff"
)

type Point struct {
	X     int      `json:"x"`
	Y     int      `json:"y"`
	Value *float64 `json:"value,omitempty"` // speed at this point
	Color string   `json:"color,omitempty"`
}

//nolint:tagliatelle // wire format of the analysis script
type Corner struct {
	Number    int      `json:"number"`
	Letter    string   `json:"letter,omitempty"`
	X         int      `json:"x"`
	Y         int      `json:"y"`
	ApexSpeed *float64 `json:"apex_speed,omitempty"`
}

type TrackMapData struct {
	Points          []Point  `json:"points"`
	Corners         []Corner `json:"corners"`
	Closed          bool     `json:"closed"`
	StrokeColor     string   `json:"strokeColor"`
	StrokeWidth     float64  `json:"strokeWidth"`
	CornerColor     string   `json:"cornerColor"`
	CornerTextColor string   `json:"cornerTextColor"`
}

// EmptyTrackMapData is used for placeholder responses
func EmptyTrackMapData() TrackMapData {
	return TrackMapData{
		Points:          []Point{},
		Corners:         []Corner{},
		Closed:          false,
		StrokeColor:     DefaultStrokeColor,
		StrokeWidth:     DefaultStrokeWidth,
		CornerColor:     DefaultCornerColor,
		CornerTextColor: DefaultCornerTextColor,
	}
}
