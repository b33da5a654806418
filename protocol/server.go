package protocol

type Welcome struct {
	PlayerID  string `json:"playerId"`
	SessionID string `json:"sessionId"`
	Room      string `json:"room"`
	TickHz    int    `json:"tickHz"`
	Seed      uint64 `json:"seed"`
}

type State struct {
	Tick      int           `json:"tick"`
	Playing   bool          `json:"playing"`
	Pacer     PacerSnapshot `json:"pacer"`
	Score     int           `json:"score"`
	Collected int           `json:"collected"`
	Remaining int           `json:"remaining"`
	Orbs      []OrbSnapshot `json:"orbs"`
}

type PacerSnapshot struct {
	Sensing  bool    `json:"sensing"`
	Steps    int     `json:"steps"`
	Cadence  int     `json:"cadence"`
	Distance float64 `json:"distance"`
	Pace     string  `json:"pace"`
}

// OrbSnapshot is an orb inside the visibility horizon, already projected.
type OrbSnapshot struct {
	ID    int     `json:"id"`
	Tier  string  `json:"tier"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Scale float64 `json:"scale"`
	Alpha float64 `json:"alpha"`
}

type Collect struct {
	ID     int    `json:"id"`
	Tier   string `json:"tier"`
	Points int    `json:"points"`
	Score  int    `json:"score"`
}
