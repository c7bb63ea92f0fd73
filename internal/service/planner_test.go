package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripcore/internal/cache"
	"tripcore/internal/metrics"
	"tripcore/internal/model"
	"tripcore/internal/repository"
)

type fakeStore struct {
	places    []model.Place
	listErr   error
	saveErrs  map[string]error
	saved     []*model.ScoreResult
	embedded  []model.EmbeddingItem
	saveCalls int
}

func (f *fakeStore) ListPlacesByCity(context.Context, string) ([]model.Place, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.places, nil
}

func (f *fakeStore) GetPlace(_ context.Context, placeID string) (*model.Place, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	for _, p := range f.places {
		if p.PlaceID == placeID {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStore) SaveScore(_ context.Context, result *model.ScoreResult) error {
	f.saveCalls++
	if err := f.saveErrs[result.PlaceID]; err != nil {
		return err
	}
	f.saved = append(f.saved, result)
	return nil
}

func (f *fakeStore) UpdateVibeEmbeddings(_ context.Context, items []model.EmbeddingItem) (int, []string) {
	f.embedded = append(f.embedded, items...)
	return len(items), nil
}

type fakeReality struct {
	reality *model.RealityContext
	err     error
	calls   int
}

func (f *fakeReality) RealityContext(_ context.Context, city string) (*model.RealityContext, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	r := *f.reality
	r.City = city
	return &r, nil
}

func newTestPlanner(store PlaceStore, reality RealitySource, rc RealityCache) *PlannerService {
	return NewPlannerService(
		store,
		reality,
		rc,
		NewScoreAggregator(),
		NewPersonalizationRanker(),
		NewBudgetCalculator(nil, nil, 4),
		NewVerificationGate(nil, time.Second),
	)
}

func cityPlaces() []model.Place {
	return []model.Place{
		{PlaceID: "a", Category: model.CategoryAttraction, VibeScore: f64(8), BuzzScore: f64(7)},
		{PlaceID: "b", Category: model.CategoryAttraction, VibeScore: f64(2), BuzzScore: f64(2)},
		{PlaceID: "r", Category: model.CategoryRestaurant, VibeScore: f64(9), BuzzScore: f64(9), TasteVerifyScore: f64(9)},
	}
}

func TestScoreCity_ContinuesOnError(t *testing.T) {
	store := &fakeStore{
		places:   cityPlaces(),
		saveErrs: map[string]error{"b": errors.New("deadlock detected")},
	}
	reality := &fakeReality{reality: &model.RealityContext{WeatherPenalty: 1}}
	planner := newTestPlanner(store, reality, nil)
	failedBefore := testutil.ToFloat64(metrics.PlacesScored.WithLabelValues("failed"))

	summary, err := planner.ScoreCity(context.Background(), "paris")
	require.NoError(t, err)
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(metrics.PlacesScored.WithLabelValues("failed")))

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, "paris", summary.City)
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Outcomes, 3)

	assert.Equal(t, "a", summary.Outcomes[0].PlaceID)
	require.NotNil(t, summary.Outcomes[0].Result)
	assert.InDelta(t, 14.0, summary.Outcomes[0].Result.FinalScore, 1e-9)
	assert.Equal(t, 3, summary.Outcomes[0].Result.Tier)

	assert.Equal(t, "b", summary.Outcomes[1].PlaceID)
	assert.Nil(t, summary.Outcomes[1].Result)
	assert.Contains(t, summary.Outcomes[1].Error, "deadlock")

	assert.Equal(t, 1, summary.Outcomes[2].Result.Tier)
	assert.Len(t, store.saved, 2)
}

func TestScoreCity_ListError(t *testing.T) {
	planner := newTestPlanner(&fakeStore{listErr: errors.New("db down")}, nil, nil)

	summary, err := planner.ScoreCity(context.Background(), "paris")
	assert.Nil(t, summary)
	assert.Error(t, err)
}

func TestScoreCity_RealityUnavailable(t *testing.T) {
	store := &fakeStore{places: cityPlaces()[:1]}
	planner := newTestPlanner(store, &fakeReality{err: errors.New("timeout")}, nil)

	summary, err := planner.ScoreCity(context.Background(), "paris")
	require.NoError(t, err)
	assert.Zero(t, summary.Failed)
	assert.InDelta(t, 15.0, summary.Outcomes[0].Result.FinalScore, 1e-9)
}

func TestScoreOutcomes_StopsWhenConsumerStops(t *testing.T) {
	store := &fakeStore{}
	planner := newTestPlanner(store, nil, nil)

	for outcome := range planner.scoreOutcomes(context.Background(), cityPlaces(), nil) {
		assert.Equal(t, "a", outcome.PlaceID)
		break
	}
	assert.Equal(t, 1, store.saveCalls)
}

func TestRealityFor_ReadThroughCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	rc := cache.NewRealityCache(client, time.Minute)

	reality := &fakeReality{reality: &model.RealityContext{WeatherPenalty: 2}}
	planner := newTestPlanner(&fakeStore{}, reality, rc)
	ctx := context.Background()

	first := planner.realityFor(ctx, "paris")
	second := planner.realityFor(ctx, "paris")

	assert.Equal(t, 1, reality.calls)
	assert.Equal(t, 2.0, first.WeatherPenalty)
	assert.Equal(t, 2.0, second.WeatherPenalty)
	assert.True(t, mr.Exists("reality:paris"))
}

func TestRealityFor_CacheDownFallsThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	rc := cache.NewRealityCache(client, time.Minute)
	mr.Close()

	reality := &fakeReality{reality: &model.RealityContext{WeatherPenalty: 3}}
	planner := newTestPlanner(&fakeStore{}, reality, rc)

	got := planner.realityFor(context.Background(), "rome")
	assert.Equal(t, 3.0, got.WeatherPenalty)
	assert.Equal(t, 1, reality.calls)
}

func TestRecommend(t *testing.T) {
	store := &fakeStore{places: cityPlaces()}
	planner := newTestPlanner(store, &fakeReality{reality: &model.RealityContext{}}, nil)
	prefs := model.TravelerPreferences{CompanionType: model.CompanionCouple, TravelStyle: "moderate"}

	all, err := planner.Recommend(context.Background(), "paris", prefs, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "r", all[0].PlaceID)
	assert.Equal(t, "b", all[2].PlaceID)

	top, err := planner.Recommend(context.Background(), "paris", prefs, 2)
	require.NoError(t, err)
	assert.Len(t, top, 2)
}

func TestRecommend_AppliesCityPenalty(t *testing.T) {
	store := &fakeStore{places: cityPlaces()[:1]}
	calm := newTestPlanner(store, &fakeReality{reality: &model.RealityContext{}}, nil)
	stormy := newTestPlanner(store, &fakeReality{reality: &model.RealityContext{WeatherPenalty: 2}}, nil)
	prefs := model.TravelerPreferences{}

	a, err := calm.Recommend(context.Background(), "paris", prefs, 0)
	require.NoError(t, err)
	b, err := stormy.Recommend(context.Background(), "paris", prefs, 0)
	require.NoError(t, err)

	assert.InDelta(t, a[0].PersonalizedScore-2, b[0].PersonalizedScore, 1e-9)
}

func TestPlannerDelegates(t *testing.T) {
	store := &fakeStore{}
	planner := newTestPlanner(store, nil, nil)
	ctx := context.Background()

	budget := planner.PriceItinerary(ctx, model.BudgetRequest{Days: 1, CompanionCount: 1, MealLevel: "Local", MealsPerDay: 1})
	assert.InDelta(t, 30.0, budget.Totals.GrandTotal, 1e-9)

	verdict, err := planner.VerifyItinerary(ctx, sampleItinerary())
	require.NoError(t, err)
	assert.Equal(t, model.GateSkipped, verdict.State)

	n, errs := planner.UpdateVibeEmbeddings(ctx, []model.EmbeddingItem{{PlaceID: "a", Embedding: []float32{1}}})
	assert.Equal(t, 1, n)
	assert.Empty(t, errs)
	assert.Len(t, store.embedded, 1)
}

func TestScoreCityStream_CallsBackInOrder(t *testing.T) {
	store := &fakeStore{places: cityPlaces()}
	planner := newTestPlanner(store, nil, nil)

	var seen []string
	summary, err := planner.ScoreCityStream(context.Background(), "paris", "run-42", func(o model.ScoreOutcome) {
		seen = append(seen, o.PlaceID)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "r"}, seen)
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, "run-42", summary.RunID)
}

func TestRescorePlace(t *testing.T) {
	places := cityPlaces()
	places[2].City = "paris"
	store := &fakeStore{places: places}
	planner := newTestPlanner(store, &fakeReality{reality: &model.RealityContext{WeatherPenalty: 1}}, nil)

	place, err := planner.RescorePlace(context.Background(), "r")
	require.NoError(t, err)
	require.NotNil(t, place.FinalScore)
	assert.InDelta(t, 26.0, *place.FinalScore, 1e-9)
	assert.Equal(t, 1.0, place.RealityPenalty)
	require.NotNil(t, place.Tier)
	assert.Equal(t, 1, *place.Tier)
	require.Len(t, store.saved, 1)
	assert.Equal(t, "r", store.saved[0].PlaceID)
}

func TestRescorePlace_Errors(t *testing.T) {
	store := &fakeStore{
		places:   cityPlaces(),
		saveErrs: map[string]error{"a": errors.New("deadlock detected")},
	}
	planner := newTestPlanner(store, nil, nil)

	_, err := planner.RescorePlace(context.Background(), "ghost")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = planner.RescorePlace(context.Background(), "a")
	assert.ErrorContains(t, err, "deadlock")
}

func TestRefreshReality_InvalidatesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	rc := cache.NewRealityCache(client, time.Minute)

	reality := &fakeReality{reality: &model.RealityContext{WeatherPenalty: 1}}
	planner := newTestPlanner(&fakeStore{}, reality, rc)
	ctx := context.Background()

	assert.Equal(t, 1.0, planner.realityFor(ctx, "paris").WeatherPenalty)

	reality.reality = &model.RealityContext{WeatherPenalty: 3}
	assert.Equal(t, 1.0, planner.realityFor(ctx, "paris").WeatherPenalty, "served from cache")

	refreshed := planner.RefreshReality(ctx, "paris")
	assert.Equal(t, 3.0, refreshed.WeatherPenalty)
	assert.Equal(t, 2, reality.calls)
	assert.Equal(t, 3.0, planner.realityFor(ctx, "paris").WeatherPenalty)
}
