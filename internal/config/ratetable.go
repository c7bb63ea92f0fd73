package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RateTable holds the unit prices used by the budget calculator.
// Guide rates here are fallbacks; the pricing source takes precedence.
type RateTable struct {
	MealUnitPrices     map[string]float64 `yaml:"meal_unit_prices"`
	MobilityDailyBase  map[string]float64 `yaml:"mobility_daily_base"`
	GuideDailyRates    map[string]float64 `yaml:"guide_daily_rates"`
	DefaultEntranceFee float64            `yaml:"default_entrance_fee"`
}

// DefaultRateTable returns the built-in rates in EUR
func DefaultRateTable() *RateTable {
	return &RateTable{
		MealUnitPrices: map[string]float64{
			"Street": 15,
			"Local":  30,
			"Bistro": 50,
			"Fine":   100,
		},
		MobilityDailyBase: map[string]float64{
			"WalkMore": 16.10,
			"Balanced": 32.00,
			"Comfort":  75.00,
		},
		GuideDailyRates: map[string]float64{
			"None":    0,
			"Walking": 180,
			"Sedan":   450,
			"VIP":     800,
		},
		DefaultEntranceFee: 12.00,
	}
}

// LoadRateTable reads a YAML rate table and overlays it on the defaults.
// An empty path returns the defaults.
func LoadRateTable(path string) (*RateTable, error) {
	table := DefaultRateTable()
	if path == "" {
		return table, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rate table: %w", err)
	}

	var overlay RateTable
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parse rate table %s: %w", path, err)
	}

	merge(table.MealUnitPrices, overlay.MealUnitPrices)
	merge(table.MobilityDailyBase, overlay.MobilityDailyBase)
	merge(table.GuideDailyRates, overlay.GuideDailyRates)
	if overlay.DefaultEntranceFee > 0 {
		table.DefaultEntranceFee = overlay.DefaultEntranceFee
	}

	for name, rates := range map[string]map[string]float64{
		"meal_unit_prices":    table.MealUnitPrices,
		"mobility_daily_base": table.MobilityDailyBase,
		"guide_daily_rates":   table.GuideDailyRates,
	} {
		for key, v := range rates {
			if v < 0 {
				return nil, fmt.Errorf("rate table %s: %s.%s is negative", path, name, key)
			}
		}
	}

	return table, nil
}

func merge(dst, src map[string]float64) {
	for k, v := range src {
		dst[k] = v
	}
}
