package model

// Verdict labels returned by the judge
const (
	VerdictFit       = "적합"
	VerdictUnfit     = "부적합"
	VerdictAnomalous = "이상"
)

// Gate states
const (
	GateDraft      = "draft"
	GateSummarized = "summarized"
	GateJudged     = "judged"
	GateAccepted   = "accepted"
	GateRejected   = "rejected"
	GateSkipped    = "skipped"
)

// Itinerary is an assembled, priced day plan
type Itinerary struct {
	Destination   string         `json:"destination" binding:"required"`
	PerPersonCost float64        `json:"per_person_cost"`
	Days          []ItineraryDay `json:"days"`
}

// ItineraryDay is one day of the plan
type ItineraryDay struct {
	Day       int              `json:"day"`
	DailyCost float64          `json:"daily_cost"`
	Places    []ItineraryPlace `json:"places"`
}

// ItineraryPlace is one scheduled stop
type ItineraryPlace struct {
	PlaceID   string `json:"place_id,omitempty"`
	Name      string `json:"name"`
	Category  string `json:"category,omitempty"`
	StartTime string `json:"start_time,omitempty"` // HH:MM
}

// VerifyResult is the judgment record for one verification call
type VerifyResult struct {
	Passed    bool    `json:"passed"`
	Score     float64 `json:"score"`
	Verdict   string  `json:"verdict"`
	Reason    string  `json:"reason"`
	State     string  `json:"state"`
	RequestID string  `json:"request_id"`
}
