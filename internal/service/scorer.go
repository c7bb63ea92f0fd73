package service

import (
	"math"

	"tripcore/internal/model"
)

// Score aggregation constants
const (
	NeutralSubScore    = 5.0
	MaxRealityPenalty  = 5.0
	MaxAlertSeverity   = 5.0
	AlertPenaltyWeight = 2.0
	TierOneMinScore    = 24.0
	TierTwoMinScore    = 15.0
)

// ScoreAggregator folds independently computed sub-scores and live
// reality signals into a final score and tier.
type ScoreAggregator struct{}

// NewScoreAggregator creates a new score aggregator
func NewScoreAggregator() *ScoreAggregator {
	return &ScoreAggregator{}
}

// ComputeFinalScore scores a place against the city's reality context.
// It never fails: missing sub-scores fall back to the neutral midpoint.
func (a *ScoreAggregator) ComputeFinalScore(place *model.Place, reality *model.RealityContext) *model.ScoreResult {
	vibe := subScoreOrNeutral(place.VibeScore)
	buzz := subScoreOrNeutral(place.BuzzScore)
	penalty := RealityPenalty(reality)

	result := &model.ScoreResult{
		PlaceID:        place.PlaceID,
		VibeScore:      vibe,
		BuzzScore:      buzz,
		RealityPenalty: penalty,
	}

	raw := vibe + buzz - penalty
	if place.IsRestaurant() && place.TasteVerifyScore != nil {
		taste := *place.TasteVerifyScore
		result.TasteVerifyScore = &taste
		raw = vibe + buzz + taste - penalty
	}

	result.FinalScore = math.Max(0, raw)
	result.Tier = TierFor(result.FinalScore)
	return result
}

// RealityPenalty sums weather and active alert contributions, clamped to [0, 5].
// Each alert contributes (severity/5)*2 regardless of its category.
func RealityPenalty(reality *model.RealityContext) float64 {
	if reality == nil {
		return 0
	}

	total := math.Max(0, reality.WeatherPenalty)
	for _, alert := range reality.Alerts {
		if !alert.Active {
			continue
		}
		severity := clamp(alert.Severity, 0, MaxAlertSeverity)
		total += (severity / MaxAlertSeverity) * AlertPenaltyWeight
	}

	return clamp(total, 0, MaxRealityPenalty)
}

// TierFor maps a final score to its 1-3 tier.
// Thresholds are calibrated on the 3-term restaurant scale.
func TierFor(finalScore float64) int {
	switch {
	case finalScore >= TierOneMinScore:
		return 1
	case finalScore >= TierTwoMinScore:
		return 2
	default:
		return 3
	}
}

func subScoreOrNeutral(v *float64) float64 {
	if v == nil {
		return NeutralSubScore
	}
	return *v
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
