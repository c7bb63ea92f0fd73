package service

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"tripcore/internal/logger"
	"tripcore/internal/metrics"
	"tripcore/internal/model"
)

// PlaceStore persists places and their scores
type PlaceStore interface {
	ListPlacesByCity(ctx context.Context, city string) ([]model.Place, error)
	GetPlace(ctx context.Context, placeID string) (*model.Place, error)
	SaveScore(ctx context.Context, result *model.ScoreResult) error
	UpdateVibeEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string)
}

// RealitySource supplies live weather and alert signals for a city
type RealitySource interface {
	RealityContext(ctx context.Context, city string) (*model.RealityContext, error)
}

// RealityCache is an optional read-through cache in front of a RealitySource
type RealityCache interface {
	Get(ctx context.Context, city string) (*model.RealityContext, bool, error)
	Set(ctx context.Context, reality *model.RealityContext) error
	Invalidate(ctx context.Context, city string) error
}

// PlannerService wires scoring, ranking, pricing and verification together
type PlannerService struct {
	store      PlaceStore
	reality    RealitySource
	cache      RealityCache
	aggregator *ScoreAggregator
	ranker     *PersonalizationRanker
	budget     *BudgetCalculator
	gate       *VerificationGate
}

// NewPlannerService creates a new planner service; cache may be nil
func NewPlannerService(
	store PlaceStore,
	reality RealitySource,
	cache RealityCache,
	aggregator *ScoreAggregator,
	ranker *PersonalizationRanker,
	budget *BudgetCalculator,
	gate *VerificationGate,
) *PlannerService {
	return &PlannerService{
		store:      store,
		reality:    reality,
		cache:      cache,
		aggregator: aggregator,
		ranker:     ranker,
		budget:     budget,
		gate:       gate,
	}
}

// ScorePlace scores a single place without persisting it
func (s *PlannerService) ScorePlace(place *model.Place, reality *model.RealityContext) *model.ScoreResult {
	return s.aggregator.ComputeFinalScore(place, reality)
}

// ScoreCity scores and persists every place in a city.
// A failing place is counted and logged; the run continues.
func (s *PlannerService) ScoreCity(ctx context.Context, city string) (*model.BatchSummary, error) {
	return s.ScoreCityStream(ctx, city, "", nil)
}

// ScoreCityStream is ScoreCity with onOutcome called after each place, if set.
// An empty runID gets a generated one.
func (s *PlannerService) ScoreCityStream(
	ctx context.Context,
	city string,
	runID string,
	onOutcome func(model.ScoreOutcome),
) (*model.BatchSummary, error) {
	startTime := time.Now()

	places, err := s.store.ListPlacesByCity(ctx, city)
	if err != nil {
		return nil, fmt.Errorf("list places: %w", err)
	}

	if runID == "" {
		runID = uuid.NewString()
	}

	reality := s.realityFor(ctx, city)
	summary := &model.BatchSummary{
		RunID:    runID,
		City:     city,
		Outcomes: make([]model.ScoreOutcome, 0, len(places)),
	}
	log := logger.L().WithFields(logrus.Fields{"run_id": summary.RunID, "city": city})

	for outcome := range s.scoreOutcomes(ctx, places, reality) {
		summary.Processed++
		if outcome.Error != "" {
			summary.Failed++
			metrics.PlacesScored.WithLabelValues("failed").Inc()
			log.WithFields(logrus.Fields{
				"place_id": outcome.PlaceID,
				"error":    outcome.Error,
			}).Warn("place scoring failed")
		} else {
			metrics.PlacesScored.WithLabelValues("ok").Inc()
		}
		summary.Outcomes = append(summary.Outcomes, outcome)
		if onOutcome != nil {
			onOutcome(outcome)
		}
	}

	summary.Took = time.Since(startTime).Milliseconds()
	log.WithFields(logrus.Fields{
		"processed": summary.Processed,
		"failed":    summary.Failed,
		"took_ms":   summary.Took,
	}).Info("city scoring finished")

	return summary, nil
}

// scoreOutcomes yields one outcome per place, in input order
func (s *PlannerService) scoreOutcomes(
	ctx context.Context,
	places []model.Place,
	reality *model.RealityContext,
) iter.Seq[model.ScoreOutcome] {
	return func(yield func(model.ScoreOutcome) bool) {
		for i := range places {
			place := &places[i]
			result := s.aggregator.ComputeFinalScore(place, reality)
			outcome := model.ScoreOutcome{PlaceID: place.PlaceID, Result: result}

			if err := s.store.SaveScore(ctx, result); err != nil {
				outcome.Result = nil
				outcome.Error = err.Error()
			}

			if !yield(outcome) {
				return
			}
		}
	}
}

// RescorePlace scores one stored place against its city's reality context,
// persists the result and returns the updated place.
func (s *PlannerService) RescorePlace(ctx context.Context, placeID string) (*model.Place, error) {
	place, err := s.store.GetPlace(ctx, placeID)
	if err != nil {
		return nil, fmt.Errorf("get place %s: %w", placeID, err)
	}

	result := s.aggregator.ComputeFinalScore(place, s.realityFor(ctx, place.City))
	if err := s.store.SaveScore(ctx, result); err != nil {
		return nil, fmt.Errorf("save score %s: %w", placeID, err)
	}
	result.Apply(place)

	logger.L().WithFields(logrus.Fields{
		"place_id":    placeID,
		"final_score": result.FinalScore,
		"tier":        result.Tier,
	}).Info("place rescored")
	return place, nil
}

// RefreshReality drops a city's cached reality context and reloads it from the source
func (s *PlannerService) RefreshReality(ctx context.Context, city string) *model.RealityContext {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, city); err != nil {
			logger.L().WithError(err).WithField("city", city).Warn("reality cache invalidate failed")
		}
	}
	return s.realityFor(ctx, city)
}

// Recommend ranks a city's stored places for a traveler. limit <= 0 returns all.
func (s *PlannerService) Recommend(
	ctx context.Context,
	city string,
	prefs model.TravelerPreferences,
	limit int,
) ([]model.RankedPlace, error) {
	places, err := s.store.ListPlacesByCity(ctx, city)
	if err != nil {
		return nil, fmt.Errorf("list places: %w", err)
	}

	penalty := RealityPenalty(s.realityFor(ctx, city))
	ranked := s.ranker.Rank(places, prefs, penalty)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// Rank ranks caller-supplied places
func (s *PlannerService) Rank(places []model.Place, prefs model.TravelerPreferences, realityPenalty float64) []model.RankedPlace {
	return s.ranker.Rank(places, prefs, realityPenalty)
}

// PriceItinerary prices a plan
func (s *PlannerService) PriceItinerary(ctx context.Context, req model.BudgetRequest) *model.BudgetResult {
	return s.budget.CalculateBudget(ctx, req)
}

// VerifyItinerary runs the verification gate
func (s *PlannerService) VerifyItinerary(ctx context.Context, itinerary *model.Itinerary) (*model.VerifyResult, error) {
	return s.gate.VerifyItinerary(ctx, itinerary)
}

// UpdateVibeEmbeddings stores image-derived vibe embeddings
func (s *PlannerService) UpdateVibeEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string) {
	return s.store.UpdateVibeEmbeddings(ctx, items)
}

// realityFor loads a city's reality context: cache, then source, then cache fill.
// An unavailable source degrades to an empty context.
func (s *PlannerService) realityFor(ctx context.Context, city string) *model.RealityContext {
	log := logger.L().WithField("city", city)

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, city)
		if err != nil {
			log.WithError(err).Warn("reality cache read failed")
		} else if ok {
			return cached
		}
	}

	if s.reality == nil {
		return &model.RealityContext{City: city}
	}

	reality, err := s.reality.RealityContext(ctx, city)
	if err != nil {
		log.WithError(err).Warn("reality signals unavailable, scoring without penalty")
		return &model.RealityContext{City: city}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, reality); err != nil {
			log.WithError(err).Warn("reality cache write failed")
		}
	}
	return reality
}
