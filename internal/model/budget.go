package model

// Guide options that include vehicle transport
const (
	GuideNone    = "None"
	GuideWalking = "Walking"
	GuideSedan   = "Sedan"
	GuideVIP     = "VIP"
)

// BudgetRequest describes the shape of the plan to price
type BudgetRequest struct {
	Days           int      `json:"days"`
	CompanionCount int      `json:"companion_count"`
	MealLevel      string   `json:"meal_level"`
	GuideOption    string   `json:"guide_option"`
	MobilityStyle  string   `json:"mobility_style"`
	MealsPerDay    int      `json:"meals_per_day"`
	PlaceIDs       []string `json:"place_ids,omitempty"`
	PlacesPerDay   int      `json:"places_per_day,omitempty"`
}

// DailyCostBreakdown is the cost of a single day.
// Subtotal = Transport + Meals + EntranceFees + Guide.
type DailyCostBreakdown struct {
	Day          int     `json:"day"`
	Transport    float64 `json:"transport"`
	Meals        float64 `json:"meals"`
	EntranceFees float64 `json:"entrance_fees"`
	Guide        float64 `json:"guide"`
	Subtotal     float64 `json:"subtotal"`
	PerPerson    float64 `json:"per_person"`
}

// BudgetTotals sums every field across days
type BudgetTotals struct {
	Transport    float64 `json:"transport"`
	Meals        float64 `json:"meals"`
	EntranceFees float64 `json:"entrance_fees"`
	Guide        float64 `json:"guide"`
	GrandTotal   float64 `json:"grand_total"`
	PerPerson    float64 `json:"per_person"`
}

// BudgetResult is the priced plan
type BudgetResult struct {
	DailyBreakdowns []DailyCostBreakdown `json:"daily_breakdowns"`
	Totals          BudgetTotals         `json:"totals"`
	CompanionCount  int                  `json:"companion_count"`
	Currency        string               `json:"currency"`
	Notes           []string             `json:"notes"`
}
