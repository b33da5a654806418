package coach

// Turn is one message of a coaching conversation. Role is "user" or "model".
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type CrowdLevel string

const (
	CrowdLow      CrowdLevel = "Low"
	CrowdModerate CrowdLevel = "Moderate"
	CrowdHigh     CrowdLevel = "High"
)

// Route is an indoor walking route suggestion.
type Route struct {
	Name       string     `json:"name"`
	Location   string     `json:"location"`
	Distance   string     `json:"distance"`
	Duration   string     `json:"duration"`
	CrowdLevel CrowdLevel `json:"crowdLevel"`
	Features   []string   `json:"features"`
}

type GlycemicLoad string

const (
	GlycemicLow    GlycemicLoad = "Low"
	GlycemicMedium GlycemicLoad = "Medium"
	GlycemicHigh   GlycemicLoad = "High"
)

// FoodScan is the aging-impact reading of a food photo.
type FoodScan struct {
	FoodName      string       `json:"foodName"`
	AgingScore    int          `json:"agingScore"` // 1 anti-aging .. 10 aging accelerator
	GlycemicLoad  GlycemicLoad `json:"glycemicLoad"`
	Preservatives []string     `json:"preservatives"`
	Analysis      string       `json:"analysis"`
	Suggestion    Suggestion   `json:"suggestion"`
}

// Suggestion is a local alternative to the scanned food.
type Suggestion struct {
	Name     string `json:"name"`
	Reason   string `json:"reason"`
	Location string `json:"location"`
}

const (
	FallbackEmptyReply = "I apologize, I couldn't process that request right now."
	FallbackOffline    = "I'm having trouble connecting to the health network right now. Please try again later."
)

// FallbackRoutes is served whenever route suggestion fails.
func FallbackRoutes() []Route {
	return []Route{
		{
			Name:       "Zabeel Extension Loop",
			Location:   "Dubai Mall",
			Distance:   "2.5 km",
			Duration:   "30 min",
			CrowdLevel: CrowdModerate,
			Features:   []string{"Art Installations", "AC", "Spacious"},
		},
		{
			Name:       "Ski View Morning Walk",
			Location:   "Mall of the Emirates",
			Distance:   "1.8 km",
			Duration:   "25 min",
			CrowdLevel: CrowdLow,
			Features:   []string{"Snow Views", "Coffee Spots"},
		},
	}
}
