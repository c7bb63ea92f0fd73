package model

// Companion types
const (
	CompanionSingle = "single"
	CompanionCouple = "couple"
	CompanionFamily = "family"
	CompanionGroup  = "group"
)

// TravelerPreferences is one traveler's stated intent for a trip.
// Vibes are in priority order; only the first three are used.
type TravelerPreferences struct {
	Vibes          []string `json:"vibes"`
	CompanionType  string   `json:"companion_type"`
	CompanionCount int      `json:"companion_count"`
	TravelStyle    string   `json:"travel_style"`
}

// RankedPlace is a place with its personalized score breakdown
type RankedPlace struct {
	Place
	PersonalizedScore float64 `json:"personalized_score"`
	BaseScore         float64 `json:"base_score"`
	VibeMatch         float64 `json:"vibe_match"`
	CompanionBonus    float64 `json:"companion_bonus"`
	StyleBonus        float64 `json:"style_bonus"`
}
