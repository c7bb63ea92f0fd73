package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PlacesScored counts batch scoring outcomes by result (ok, failed)
	PlacesScored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripcore_places_scored_total",
			Help: "Places processed by batch scoring, by outcome",
		},
		[]string{"outcome"},
	)

	// Verifications counts verification gate results by final state
	Verifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripcore_verifications_total",
			Help: "Itinerary verifications, by final gate state",
		},
		[]string{"state"},
	)

	// JudgeDuration observes LLM judge call latency
	JudgeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tripcore_judge_duration_seconds",
			Help:    "Latency of LLM judge calls",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		},
	)

	// PricingFallbacks counts lookups that fell back to built-in rates
	PricingFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripcore_pricing_fallbacks_total",
			Help: "Pricing lookups that fell back to default rates",
		},
		[]string{"lookup"},
	)
)
