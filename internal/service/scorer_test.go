package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripcore/internal/model"
)

func f64(v float64) *float64 { return &v }

func TestComputeFinalScore(t *testing.T) {
	aggregator := NewScoreAggregator()

	tests := []struct {
		name      string
		place     model.Place
		reality   *model.RealityContext
		wantScore float64
		wantTier  int
	}{
		{
			name:      "attraction with weather penalty",
			place:     model.Place{PlaceID: "a", Category: model.CategoryAttraction, VibeScore: f64(8), BuzzScore: f64(7)},
			reality:   &model.RealityContext{WeatherPenalty: 1},
			wantScore: 14,
			wantTier:  3,
		},
		{
			name:      "attraction without penalty",
			place:     model.Place{PlaceID: "a", Category: model.CategoryAttraction, VibeScore: f64(8), BuzzScore: f64(7)},
			reality:   &model.RealityContext{},
			wantScore: 15,
			wantTier:  2,
		},
		{
			name: "restaurant with taste score",
			place: model.Place{PlaceID: "r", Category: model.CategoryRestaurant,
				VibeScore: f64(9), BuzzScore: f64(9), TasteVerifyScore: f64(9)},
			reality:   &model.RealityContext{WeatherPenalty: 2},
			wantScore: 25,
			wantTier:  1,
		},
		{
			name:      "restaurant without taste score uses two terms",
			place:     model.Place{PlaceID: "r", Category: model.CategoryRestaurant, VibeScore: f64(9), BuzzScore: f64(9)},
			reality:   nil,
			wantScore: 18,
			wantTier:  2,
		},
		{
			name:      "taste score ignored for non-restaurants",
			place:     model.Place{PlaceID: "c", Category: model.CategoryCafe, VibeScore: f64(9), BuzzScore: f64(9), TasteVerifyScore: f64(9)},
			reality:   nil,
			wantScore: 18,
			wantTier:  2,
		},
		{
			name:      "missing sub-scores are neutral",
			place:     model.Place{PlaceID: "n", Category: model.CategoryLandmark},
			reality:   nil,
			wantScore: 10,
			wantTier:  3,
		},
		{
			name:      "floored at zero",
			place:     model.Place{PlaceID: "z", Category: model.CategoryAttraction, VibeScore: f64(1), BuzzScore: f64(1)},
			reality:   &model.RealityContext{WeatherPenalty: 100},
			wantScore: 0,
			wantTier:  3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := aggregator.ComputeFinalScore(&tt.place, tt.reality)
			require.NotNil(t, result)
			assert.InDelta(t, tt.wantScore, result.FinalScore, 1e-9)
			assert.Equal(t, tt.wantTier, result.Tier)
			assert.Equal(t, tt.place.PlaceID, result.PlaceID)
		})
	}
}

func TestComputeFinalScore_DoesNotMutatePlace(t *testing.T) {
	place := model.Place{PlaceID: "p", Category: model.CategoryAttraction}
	NewScoreAggregator().ComputeFinalScore(&place, &model.RealityContext{WeatherPenalty: 3})

	assert.Nil(t, place.FinalScore)
	assert.Nil(t, place.VibeScore)
	assert.Zero(t, place.RealityPenalty)
}

func TestRealityPenalty(t *testing.T) {
	tests := []struct {
		name    string
		reality *model.RealityContext
		want    float64
	}{
		{name: "nil context", reality: nil, want: 0},
		{name: "weather only", reality: &model.RealityContext{WeatherPenalty: 1.5}, want: 1.5},
		{name: "negative weather ignored", reality: &model.RealityContext{WeatherPenalty: -3}, want: 0},
		{
			name: "alert severity scaled",
			reality: &model.RealityContext{Alerts: []model.CrisisAlert{
				{Severity: 5, Active: true, Category: "protest"},
				{Severity: 2.5, Active: true, Category: "transport"},
			}},
			want: 3,
		},
		{
			name: "inactive alerts skipped",
			reality: &model.RealityContext{Alerts: []model.CrisisAlert{
				{Severity: 5, Active: false},
			}},
			want: 0,
		},
		{
			name: "clamped to five",
			reality: &model.RealityContext{WeatherPenalty: 4, Alerts: []model.CrisisAlert{
				{Severity: 5, Active: true},
				{Severity: 5, Active: true},
			}},
			want: 5,
		},
		{
			name: "out of range severity clamped",
			reality: &model.RealityContext{Alerts: []model.CrisisAlert{
				{Severity: 50, Active: true},
			}},
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, RealityPenalty(tt.reality), 1e-9)
		})
	}
}

func TestTierFor_Monotonic(t *testing.T) {
	prev := TierFor(-1)
	for score := 0.0; score <= 40; score += 0.25 {
		tier := TierFor(score)
		assert.LessOrEqual(t, tier, prev, "score %.2f", score)
		assert.GreaterOrEqual(t, tier, 1)
		assert.LessOrEqual(t, tier, 3)
		prev = tier
	}

	assert.Equal(t, 1, TierFor(24))
	assert.Equal(t, 2, TierFor(23.99))
	assert.Equal(t, 2, TierFor(15))
	assert.Equal(t, 3, TierFor(14.99))
}
