package service

import (
	"math"
	"sort"
	"strings"

	"tripcore/internal/model"
	"tripcore/internal/utils"
)

// Personalization bounds
const (
	MinVibeMatch         = 0.5
	MaxVibeMatch         = 1.5
	MaxCompanionBonus    = 2.0
	MaxPersonalizedScore = 10.0
	MaxSelectedVibes     = 3
	fullMatchKeywords    = 2
)

// vibePriorityWeights[n] holds the weights for n selected vibes, in priority order
var vibePriorityWeights = map[int][]float64{
	1: {1.0},
	2: {0.6, 0.4},
	3: {0.5, 0.3, 0.2},
}

// VibeKeywords maps each vibe to the tags that indicate it
var VibeKeywords = map[string][]string{
	"healing":   {"healing", "relax", "spa", "quiet", "garden", "park", "lake", "nature", "힐링"},
	"foodie":    {"food", "gourmet", "local", "market", "michelin", "street food", "dessert", "맛집"},
	"adventure": {"adventure", "hiking", "trekking", "outdoor", "climbing", "kayak", "activity"},
	"culture":   {"culture", "museum", "history", "heritage", "art", "gallery", "architecture", "palace"},
	"romantic":  {"romantic", "sunset", "night view", "wine", "date", "rooftop", "candle"},
	"nightlife": {"nightlife", "bar", "club", "pub", "cocktail", "live music", "jazz"},
	"shopping":  {"shopping", "boutique", "mall", "outlet", "vintage", "souvenir"},
	"photo":     {"photo", "instagram", "photogenic", "aesthetic", "view", "colorful"},
}

// CompanionKeywords maps each companion type to the tags that suit it
var CompanionKeywords = map[string][]string{
	model.CompanionSingle: {"solo", "quiet", "counter", "cafe", "book", "self"},
	model.CompanionCouple: {"romantic", "sunset", "wine", "date", "night view", "rooftop", "cozy", "candle"},
	model.CompanionFamily: {"family", "kids", "children", "playground", "spacious", "zoo", "park"},
	model.CompanionGroup:  {"group", "lively", "party", "large table", "private room", "share"},
}

// TravelStyleTiers maps a travel style to the price level it is comfortable with
var TravelStyleTiers = map[string]int{
	"luxury":   4,
	"premium":  3,
	"moderate": 2,
	"economic": 1,
}

const defaultStyleTier = 2

// PersonalizationRanker re-weights place scores against a traveler's preferences
type PersonalizationRanker struct{}

// NewPersonalizationRanker creates a new personalization ranker
func NewPersonalizationRanker() *PersonalizationRanker {
	return &PersonalizationRanker{}
}

// Rank scores every place for the traveler and sorts descending.
// Places with equal scores keep their input order.
func (r *PersonalizationRanker) Rank(
	places []model.Place,
	prefs model.TravelerPreferences,
	realityPenalty float64,
) []model.RankedPlace {
	results := make([]model.RankedPlace, 0, len(places))
	for _, place := range places {
		results = append(results, r.Score(place, prefs, realityPenalty))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].PersonalizedScore > results[j].PersonalizedScore
	})

	return results
}

// Score computes the personalized score breakdown for a single place
func (r *PersonalizationRanker) Score(
	place model.Place,
	prefs model.TravelerPreferences,
	realityPenalty float64,
) model.RankedPlace {
	base := r.baseScore(place)
	vibeMatch := r.vibeMatch(place.VibeKeywords, prefs.Vibes)
	companion := r.companionBonus(place, prefs.CompanionType)
	style := r.styleBonus(prefs.TravelStyle, place.PriceLevel)

	score := base*vibeMatch + companion + style - clamp(realityPenalty, 0, MaxRealityPenalty)

	return model.RankedPlace{
		Place:             place,
		PersonalizedScore: clamp(score, 0, MaxPersonalizedScore),
		BaseScore:         base,
		VibeMatch:         vibeMatch,
		CompanionBonus:    companion,
		StyleBonus:        style,
	}
}

// baseScore is the mean of vibe, buzz and taste; missing values count as 5
func (r *PersonalizationRanker) baseScore(place model.Place) float64 {
	return (subScoreOrNeutral(place.VibeScore) +
		subScoreOrNeutral(place.BuzzScore) +
		subScoreOrNeutral(place.TasteVerifyScore)) / 3
}

// vibeMatch weighs each selected vibe's keyword match rate by its priority
// and maps the result into [0.5, 1.5]
func (r *PersonalizationRanker) vibeMatch(tags []string, vibes []string) float64 {
	if len(vibes) > MaxSelectedVibes {
		vibes = vibes[:MaxSelectedVibes]
	}

	weights := vibePriorityWeights[len(vibes)]
	matchScore := 0.0
	for i, vibe := range vibes {
		keywords := VibeKeywords[strings.ToLower(strings.TrimSpace(vibe))]
		matches := utils.CountKeywordMatches(tags, keywords)
		matchRate := math.Min(1, float64(matches)/fullMatchKeywords)
		matchScore += weights[i] * matchRate
	}

	return VibeMatchFromScore(matchScore)
}

// VibeMatchFromScore maps a weighted match score onto the multiplier range
func VibeMatchFromScore(matchScore float64) float64 {
	return clamp(1.0+(matchScore-0.5), MinVibeMatch, MaxVibeMatch)
}

// companionBonus rewards keyword overlap plus a structural bonus per companion type
func (r *PersonalizationRanker) companionBonus(place model.Place, companionType string) float64 {
	companion := normalizeCompanion(companionType)
	keywords, ok := CompanionKeywords[companion]
	if !ok {
		return 0
	}

	matches := utils.CountKeywordMatches(place.VibeKeywords, keywords)
	bonus := math.Min(1.0, float64(matches)*0.5)

	switch companion {
	case model.CompanionSingle:
		if !place.Reservable {
			bonus += 0.5
		}
	case model.CompanionCouple:
		if matches >= 2 {
			bonus += 1.0
		}
	case model.CompanionFamily:
		if place.GoodForChildren {
			bonus += 1.5
		}
	case model.CompanionGroup:
		if place.GoodForGroups {
			bonus += 0.5
		}
		if place.Reservable {
			bonus += 0.5
		}
	}

	return math.Min(MaxCompanionBonus, bonus)
}

// styleBonus rewards places priced at the traveler's tier
func (r *PersonalizationRanker) styleBonus(travelStyle string, priceLevel int) float64 {
	tier, ok := TravelStyleTiers[strings.ToLower(strings.TrimSpace(travelStyle))]
	if !ok {
		tier = defaultStyleTier
	}

	diff := tier - priceLevel
	if diff < 0 {
		diff = -diff
	}

	switch diff {
	case 0:
		return 1.0
	case 1:
		return 0.5
	default:
		return 0
	}
}

func normalizeCompanion(companionType string) string {
	c := strings.ToLower(strings.TrimSpace(companionType))
	if c == "solo" {
		return model.CompanionSingle
	}
	return c
}
