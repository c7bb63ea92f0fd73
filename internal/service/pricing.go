package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"

	"tripcore/internal/logger"
	"tripcore/internal/metrics"
	"tripcore/internal/repository"
)

// PricingSource supplies live entrance fees and guide rates.
// Implementations may fail; the budget calculator falls back to defaults.
type PricingSource interface {
	// EntranceFee returns the per-person entrance fee for a place in EUR
	EntranceFee(ctx context.Context, placeID string) (float64, error)

	// GuideRate returns the daily rate for a guide option in EUR
	GuideRate(ctx context.Context, option string) (float64, error)
}

// BreakerPricing wraps a PricingSource with circuit breakers so an unavailable
// pricing store is skipped quickly instead of being hit on every lookup.
type BreakerPricing struct {
	source PricingSource
	fees   *gobreaker.CircuitBreaker[float64]
	guides *gobreaker.CircuitBreaker[float64]
}

// NewBreakerPricing creates a breaker-guarded pricing source.
// The breaker opens after maxFailures consecutive failures and probes again after timeout.
func NewBreakerPricing(source PricingSource, maxFailures uint32, timeout time.Duration) *BreakerPricing {
	if maxFailures == 0 {
		maxFailures = 5
	}

	settings := func(name string) gobreaker.Settings {
		return gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			IsSuccessful: func(err error) bool {
				// A missing price row is an answer, not an outage
				return err == nil || errors.Is(err, repository.ErrNotFound)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.L().WithFields(logrus.Fields{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				}).Warn("pricing circuit breaker state changed")
			},
		}
	}

	return &BreakerPricing{
		source: source,
		fees:   gobreaker.NewCircuitBreaker[float64](settings("pricing-entrance-fee")),
		guides: gobreaker.NewCircuitBreaker[float64](settings("pricing-guide-rate")),
	}
}

// EntranceFee implements PricingSource
func (b *BreakerPricing) EntranceFee(ctx context.Context, placeID string) (float64, error) {
	fee, err := b.fees.Execute(func() (float64, error) {
		return b.source.EntranceFee(ctx, placeID)
	})
	if err != nil {
		return 0, fmt.Errorf("entrance fee %s: %w", placeID, err)
	}
	return fee, nil
}

// GuideRate implements PricingSource
func (b *BreakerPricing) GuideRate(ctx context.Context, option string) (float64, error) {
	rate, err := b.guides.Execute(func() (float64, error) {
		return b.source.GuideRate(ctx, option)
	})
	if err != nil {
		return 0, fmt.Errorf("guide rate %s: %w", option, err)
	}
	return rate, nil
}

// State reports the entrance-fee breaker state, for health output
func (b *BreakerPricing) State() string {
	return b.fees.State().String()
}

func recordPricingFallback(lookup string) {
	metrics.PricingFallbacks.WithLabelValues(lookup).Inc()
}
