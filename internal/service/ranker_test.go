package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripcore/internal/model"
)

func TestVibeMatchFromScore_Bounds(t *testing.T) {
	for score := -2.0; score <= 3.0; score += 0.05 {
		v := VibeMatchFromScore(score)
		assert.GreaterOrEqual(t, v, MinVibeMatch)
		assert.LessOrEqual(t, v, MaxVibeMatch)
	}

	assert.InDelta(t, 0.5, VibeMatchFromScore(0), 1e-9)
	assert.InDelta(t, 1.0, VibeMatchFromScore(0.5), 1e-9)
	assert.InDelta(t, 1.5, VibeMatchFromScore(1), 1e-9)
}

func TestScore_VibeMatch(t *testing.T) {
	ranker := NewPersonalizationRanker()

	tests := []struct {
		name  string
		tags  []string
		vibes []string
		want  float64
	}{
		{name: "no vibes selected", tags: []string{"museum"}, vibes: nil, want: 0.5},
		{name: "single vibe full match", tags: []string{"museum", "history"}, vibes: []string{"culture"}, want: 1.5},
		{name: "single vibe half match", tags: []string{"museum"}, vibes: []string{"culture"}, want: 1.0},
		{name: "two vibes weighted", tags: []string{"museum"}, vibes: []string{"culture", "foodie"}, want: 0.8},
		{name: "second vibe weighted lower", tags: []string{"museum"}, vibes: []string{"foodie", "culture"}, want: 0.7},
		{name: "unknown vibe", tags: []string{"museum"}, vibes: []string{"zen"}, want: 0.5},
		{name: "vibes beyond three ignored", tags: []string{"museum", "history"},
			vibes: []string{"foodie", "nightlife", "shopping", "culture"}, want: 0.5},
		{name: "case insensitive vibe", tags: []string{"museum", "history"}, vibes: []string{" Culture "}, want: 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			place := model.Place{PlaceID: "p", VibeKeywords: tt.tags}
			got := ranker.Score(place, model.TravelerPreferences{Vibes: tt.vibes}, 0)
			assert.InDelta(t, tt.want, got.VibeMatch, 1e-9)
		})
	}
}

func TestScore_CompanionBonus(t *testing.T) {
	ranker := NewPersonalizationRanker()

	tests := []struct {
		name      string
		place     model.Place
		companion string
		want      float64
	}{
		{
			name:      "family capped at two",
			place:     model.Place{VibeKeywords: []string{"kids playground"}, GoodForChildren: true},
			companion: model.CompanionFamily,
			want:      2.0,
		},
		{
			name:      "family without children flag",
			place:     model.Place{VibeKeywords: []string{"zoo"}},
			companion: model.CompanionFamily,
			want:      0.5,
		},
		{
			name:      "couple with two romantic matches",
			place:     model.Place{VibeKeywords: []string{"romantic sunset"}},
			companion: model.CompanionCouple,
			want:      2.0,
		},
		{
			name:      "couple with one match",
			place:     model.Place{VibeKeywords: []string{"wine bar"}},
			companion: model.CompanionCouple,
			want:      0.5,
		},
		{
			name:      "solo walk-in",
			place:     model.Place{VibeKeywords: []string{"cafe"}},
			companion: "solo",
			want:      1.0,
		},
		{
			name:      "single needs reservation",
			place:     model.Place{Reservable: true},
			companion: model.CompanionSingle,
			want:      0,
		},
		{
			name:      "group structural bonuses",
			place:     model.Place{GoodForGroups: true, Reservable: true},
			companion: model.CompanionGroup,
			want:      1.0,
		},
		{
			name:      "unknown companion type",
			place:     model.Place{VibeKeywords: []string{"family"}, GoodForChildren: true},
			companion: "pets",
			want:      0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ranker.Score(tt.place, model.TravelerPreferences{CompanionType: tt.companion}, 0)
			assert.InDelta(t, tt.want, got.CompanionBonus, 1e-9)
			assert.LessOrEqual(t, got.CompanionBonus, MaxCompanionBonus)
		})
	}
}

func TestScore_StyleBonus(t *testing.T) {
	ranker := NewPersonalizationRanker()

	tests := []struct {
		style      string
		priceLevel int
		want       float64
	}{
		{"luxury", 4, 1.0},
		{"luxury", 3, 0.5},
		{"luxury", 2, 0},
		{"economic", 0, 0.5},
		{"", 2, 1.0},
		{"backpacker", 3, 0.5},
	}

	for _, tt := range tests {
		got := ranker.Score(model.Place{PriceLevel: tt.priceLevel}, model.TravelerPreferences{TravelStyle: tt.style}, 0)
		assert.InDelta(t, tt.want, got.StyleBonus, 1e-9, "style %q price %d", tt.style, tt.priceLevel)
	}
}

func TestScore_Composite(t *testing.T) {
	place := model.Place{
		PlaceID:      "louvre",
		VibeScore:    f64(6),
		BuzzScore:    f64(6),
		VibeKeywords: []string{"museum", "history"},
	}
	prefs := model.TravelerPreferences{Vibes: []string{"culture"}, TravelStyle: "economic"}

	got := NewPersonalizationRanker().Score(place, prefs, 1)

	assert.InDelta(t, 17.0/3.0, got.BaseScore, 1e-9)
	assert.InDelta(t, 1.5, got.VibeMatch, 1e-9)
	assert.InDelta(t, 0.5, got.StyleBonus, 1e-9)
	assert.InDelta(t, 17.0/3.0*1.5+0.5-1, got.PersonalizedScore, 1e-9)
	assert.Equal(t, "louvre", got.PlaceID)
}

func TestScore_Clamped(t *testing.T) {
	ranker := NewPersonalizationRanker()

	high := model.Place{
		VibeScore: f64(10), BuzzScore: f64(10), TasteVerifyScore: f64(10),
		VibeKeywords: []string{"museum", "history"}, PriceLevel: 2,
	}
	got := ranker.Score(high, model.TravelerPreferences{Vibes: []string{"culture"}}, 0)
	assert.Equal(t, MaxPersonalizedScore, got.PersonalizedScore)

	low := model.Place{}
	got = ranker.Score(low, model.TravelerPreferences{}, 100)
	assert.Zero(t, got.PersonalizedScore)

	got = ranker.Score(low, model.TravelerPreferences{}, -100)
	assert.LessOrEqual(t, got.PersonalizedScore, MaxPersonalizedScore)
	assert.GreaterOrEqual(t, got.PersonalizedScore, 0.0)
}

func TestRank_SortedAndStable(t *testing.T) {
	places := []model.Place{
		{PlaceID: "a"},
		{PlaceID: "b"},
		{PlaceID: "top", VibeScore: f64(9), BuzzScore: f64(9), VibeKeywords: []string{"museum", "history"}},
		{PlaceID: "c"},
	}
	prefs := model.TravelerPreferences{Vibes: []string{"culture"}}

	ranked := NewPersonalizationRanker().Rank(places, prefs, 0)
	require.Len(t, ranked, 4)

	ids := make([]string, 0, len(ranked))
	for _, r := range ranked {
		ids = append(ids, r.PlaceID)
	}
	assert.Equal(t, []string{"top", "a", "b", "c"}, ids)

	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].PersonalizedScore, ranked[i].PersonalizedScore)
	}
}

func TestRank_Empty(t *testing.T) {
	ranked := NewPersonalizationRanker().Rank(nil, model.TravelerPreferences{}, 0)
	assert.NotNil(t, ranked)
	assert.Empty(t, ranked)
}
