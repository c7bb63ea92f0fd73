package service

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"tripcore/internal/config"
	"tripcore/internal/logger"
	"tripcore/internal/model"
)

// DefaultPlacesPerDay is used when neither the request nor the calculator sets a day window
const DefaultPlacesPerDay = 4

// BudgetCalculator prices a multi-day plan
type BudgetCalculator struct {
	rates        *config.RateTable
	pricing      PricingSource
	placesPerDay int
}

// NewBudgetCalculator creates a budget calculator.
// pricing may be nil, in which case every lookup uses the rate table defaults.
func NewBudgetCalculator(rates *config.RateTable, pricing PricingSource, placesPerDay int) *BudgetCalculator {
	if rates == nil {
		rates = config.DefaultRateTable()
	}
	if placesPerDay <= 0 {
		placesPerDay = DefaultPlacesPerDay
	}
	return &BudgetCalculator{
		rates:        rates,
		pricing:      pricing,
		placesPerDay: placesPerDay,
	}
}

// pricingTally tracks where each looked-up price came from
type pricingTally struct {
	live      int
	fallbacks int
}

// CalculateBudget returns a day-by-day and total cost breakdown.
// It always returns a result; unavailable pricing data degrades to defaults.
func (c *BudgetCalculator) CalculateBudget(ctx context.Context, req model.BudgetRequest) *model.BudgetResult {
	result := &model.BudgetResult{
		DailyBreakdowns: []model.DailyCostBreakdown{},
		Currency:        "EUR",
		Notes:           []string{},
	}

	companions := req.CompanionCount
	if companions < 1 {
		result.Notes = append(result.Notes, fmt.Sprintf("Party size adjusted to 1 (was %d)", req.CompanionCount))
		companions = 1
	}
	result.CompanionCount = companions

	days := max(req.Days, 0)
	mealsPerDay := max(req.MealsPerDay, 0)
	perDay := req.PlacesPerDay
	if perDay <= 0 {
		perDay = c.placesPerDay
	}

	tally := &pricingTally{}

	guideRate, guideNote := c.guideRate(ctx, req.GuideOption, tally)
	transport, transportNote := c.dailyTransport(req.GuideOption, req.MobilityStyle)
	mealUnit, mealNote := c.mealUnitPrice(req.MealLevel, mealsPerDay, companions)

	fees := make(map[string]float64)
	for d := 0; d < days; d++ {
		dayFees := 0.0
		for _, placeID := range dayWindow(req.PlaceIDs, d, perDay) {
			fee, ok := fees[placeID]
			if !ok {
				fee = c.entranceFee(ctx, placeID, tally)
				fees[placeID] = fee
			}
			dayFees += fee
		}

		day := model.DailyCostBreakdown{
			Day:          d + 1,
			Transport:    roundCents(transport),
			Meals:        roundCents(mealUnit * float64(mealsPerDay) * float64(companions)),
			EntranceFees: roundCents(dayFees * float64(companions)),
			Guide:        roundCents(guideRate),
		}
		day.Subtotal = roundCents(day.Transport + day.Meals + day.EntranceFees + day.Guide)
		day.PerPerson = roundCents(day.Subtotal / float64(companions))

		result.DailyBreakdowns = append(result.DailyBreakdowns, day)
		result.Totals.Transport += day.Transport
		result.Totals.Meals += day.Meals
		result.Totals.EntranceFees += day.EntranceFees
		result.Totals.Guide += day.Guide
		result.Totals.GrandTotal += day.Subtotal
	}

	result.Totals.Transport = roundCents(result.Totals.Transport)
	result.Totals.Meals = roundCents(result.Totals.Meals)
	result.Totals.EntranceFees = roundCents(result.Totals.EntranceFees)
	result.Totals.Guide = roundCents(result.Totals.Guide)
	result.Totals.GrandTotal = roundCents(result.Totals.GrandTotal)
	result.Totals.PerPerson = roundCents(result.Totals.GrandTotal / float64(companions))

	if priced := days * perDay; len(req.PlaceIDs) > priced {
		result.Notes = append(result.Notes, fmt.Sprintf(
			"%d place(s) beyond the %d-day window were not priced", len(req.PlaceIDs)-priced, days))
	}
	result.Notes = append(result.Notes, transportNote, mealNote, guideNote, c.provenance(tally))

	return result
}

// dailyTransport returns the per-day transport cost; chauffeured guide options include it
func (c *BudgetCalculator) dailyTransport(guideOption, mobilityStyle string) (float64, string) {
	if guideOption == model.GuideSedan || guideOption == model.GuideVIP {
		return 0, fmt.Sprintf("Transport: included with %s guide vehicle", guideOption)
	}

	base, ok := c.rates.MobilityDailyBase[mobilityStyle]
	if !ok {
		return 0, fmt.Sprintf("Transport: unknown mobility style %q, not priced", mobilityStyle)
	}
	return base, fmt.Sprintf("Transport: %s €%.2f/day", mobilityStyle, base)
}

func (c *BudgetCalculator) mealUnitPrice(mealLevel string, mealsPerDay, companions int) (float64, string) {
	unit, ok := c.rates.MealUnitPrices[mealLevel]
	if !ok {
		return 0, fmt.Sprintf("Meals: unknown meal level %q, not priced", mealLevel)
	}
	return unit, fmt.Sprintf("Meals: %s €%.2f x %d/day x %d people", mealLevel, unit, mealsPerDay, companions)
}

// guideRate looks up the daily guide rate, preferring the live pricing source
func (c *BudgetCalculator) guideRate(ctx context.Context, option string, tally *pricingTally) (float64, string) {
	if option == "" || option == model.GuideNone {
		return 0, "Guide: None"
	}

	fallback, known := c.rates.GuideDailyRates[option]

	if c.pricing != nil {
		rate, err := c.pricing.GuideRate(ctx, option)
		if err == nil && rate >= 0 {
			tally.live++
			return rate, fmt.Sprintf("Guide: %s €%.2f/day (live rate)", option, rate)
		}
		logger.L().WithFields(logrus.Fields{
			"option": option,
			"error":  err,
		}).Warn("guide rate lookup failed, using default")
		recordPricingFallback("guide_rate")
	}
	tally.fallbacks++

	if !known {
		return 0, fmt.Sprintf("Guide: unknown option %q, not priced", option)
	}
	return fallback, fmt.Sprintf("Guide: %s €%.2f/day (default rate)", option, fallback)
}

// entranceFee looks up a per-person fee, falling back to the default fee
func (c *BudgetCalculator) entranceFee(ctx context.Context, placeID string, tally *pricingTally) float64 {
	if c.pricing != nil {
		fee, err := c.pricing.EntranceFee(ctx, placeID)
		if err == nil && fee >= 0 {
			tally.live++
			return fee
		}
		logger.L().WithFields(logrus.Fields{
			"place_id": placeID,
			"error":    err,
		}).Debug("entrance fee lookup failed, using default")
		recordPricingFallback("entrance_fee")
	}
	tally.fallbacks++
	return c.rates.DefaultEntranceFee
}

func (c *BudgetCalculator) provenance(tally *pricingTally) string {
	switch {
	case c.pricing == nil || (tally.live == 0 && tally.fallbacks > 0):
		return "Pricing data: defaults (pricing source unavailable)"
	case tally.fallbacks == 0:
		return "Pricing data: live"
	default:
		return fmt.Sprintf("Pricing data: live with %d default fallback(s)", tally.fallbacks)
	}
}

// dayWindow returns the slice of place ids scheduled on day d
func dayWindow(placeIDs []string, d, perDay int) []string {
	start := d * perDay
	if start >= len(placeIDs) {
		return nil
	}
	return placeIDs[start:min(start+perDay, len(placeIDs))]
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
