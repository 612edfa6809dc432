package model

// ResultRow is one line of a session classification.
// Position is a string since classified positions may be "R", "D", ...
type ResultRow struct {
	Position     string  `json:"position"`
	Driver       string  `json:"driver"`
	DriverFull   string  `json:"driverFull"`
	Team         string  `json:"team"`
	Points       float64 `json:"points"`
	Status       string  `json:"status"`
	GridPosition *int    `json:"gridPosition,omitempty"`
}

type Stint struct {
	Compound string `json:"compound"`
	Length   int    `json:"length"` // laps
}

type DriverStints struct {
	Driver string  `json:"driver"`
	Stints []Stint `json:"stints"`
}
