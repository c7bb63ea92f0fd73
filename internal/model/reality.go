package model

import "time"

// RealityContext holds the live negative signals for a city
type RealityContext struct {
	City           string        `json:"city"`
	WeatherPenalty float64       `json:"weather_penalty"`
	Alerts         []CrisisAlert `json:"alerts,omitempty"`
}

// CrisisAlert is an operational or crisis alert, severity 1-5
type CrisisAlert struct {
	Title     string     `json:"title" db:"title"`
	Category  string     `json:"category" db:"category"`
	Severity  float64    `json:"severity" db:"severity"`
	Active    bool       `json:"active" db:"active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" db:"expires_at"`
}
