package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Place categories
const (
	CategoryRestaurant = "restaurant"
	CategoryAttraction = "attraction"
	CategoryCafe       = "cafe"
	CategoryHotel      = "hotel"
	CategoryLandmark   = "landmark"
)

// Place represents a candidate point of interest.
// Sub-scores are nil until an upstream collector has computed them.
type Place struct {
	PlaceID          string     `json:"place_id" db:"place_id" binding:"required"`
	Name             string     `json:"name" db:"name"`
	City             string     `json:"city" db:"city"`
	Category         string     `json:"category" db:"category"`
	VibeScore        *float64   `json:"vibe_score,omitempty" db:"vibe_score"`
	BuzzScore        *float64   `json:"buzz_score,omitempty" db:"buzz_score"`
	TasteVerifyScore *float64   `json:"taste_verify_score,omitempty" db:"taste_verify_score"`
	RealityPenalty   float64    `json:"reality_penalty" db:"reality_penalty"`
	FinalScore       *float64   `json:"final_score,omitempty" db:"final_score"`
	Tier             *int       `json:"tier,omitempty" db:"tier"`
	PriceLevel       int        `json:"price_level" db:"price_level"`
	GoodForChildren  bool       `json:"good_for_children" db:"good_for_children"`
	GoodForGroups    bool       `json:"good_for_groups" db:"good_for_groups"`
	Reservable       bool       `json:"reservable" db:"reservable"`
	VibeKeywords     JSONArray  `json:"vibe_keywords,omitempty" db:"vibe_keywords"`
	ScoredAt         *time.Time `json:"scored_at,omitempty" db:"scored_at"`
}

// IsRestaurant reports whether the place is scored on the 3-term scale
func (p *Place) IsRestaurant() bool {
	return p.Category == CategoryRestaurant
}

// ScoreResult is the output of the score aggregator for one place.
// Persisting it is a separate step owned by the caller.
type ScoreResult struct {
	PlaceID          string   `json:"place_id"`
	VibeScore        float64  `json:"vibe_score"`
	BuzzScore        float64  `json:"buzz_score"`
	TasteVerifyScore *float64 `json:"taste_verify_score,omitempty"`
	RealityPenalty   float64  `json:"reality_penalty"`
	FinalScore       float64  `json:"final_score"`
	Tier             int      `json:"tier"`
}

// Apply copies the scored fields onto the place
func (r *ScoreResult) Apply(p *Place) {
	vibe, buzz, final, tier := r.VibeScore, r.BuzzScore, r.FinalScore, r.Tier
	p.VibeScore = &vibe
	p.BuzzScore = &buzz
	p.TasteVerifyScore = r.TasteVerifyScore
	p.RealityPenalty = r.RealityPenalty
	p.FinalScore = &final
	p.Tier = &tier
}

// ScoreOutcome is the per-place result of a batch scoring run
type ScoreOutcome struct {
	PlaceID string       `json:"place_id"`
	Result  *ScoreResult `json:"result,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// BatchSummary summarises a city scoring run
type BatchSummary struct {
	RunID     string         `json:"run_id"`
	City      string         `json:"city"`
	Processed int            `json:"processed"`
	Failed    int            `json:"failed"`
	Outcomes  []ScoreOutcome `json:"outcomes"`
	Took      int64          `json:"took_ms"`
}

// JSONArray represents a JSON array field
type JSONArray []string

// Value implements driver.Valuer interface
func (j JSONArray) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONArray) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*j = nil
		return nil
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return fmt.Errorf("unsupported JSONArray source %T", value)
	}
}
