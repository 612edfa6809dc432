package model

// Sample is one telemetry record of a lap
type Sample struct {
	Time     float64 `json:"time"` // seconds since lap start
	Speed    float64 `json:"speed"`
	Throttle float64 `json:"throttle"`
	Brake    float64 `json:"brake"`
	Steering float64 `json:"steering"`
	X        int     `json:"x"`
	Y        int     `json:"y"`
}
