// Package weather provides current conditions, 3-hourly forecasts and
// reverse geocoding for solar estimates.
package weather

import (
	"errors"
	"strings"
	"time"
)

// Weather errors.
var (
	ErrProviderUnavailable = errors.New("weather provider unavailable")
	ErrLocationNotFound    = errors.New("location not found")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
	ErrNotConfigured       = errors.New("weather provider not configured")
)

// DefaultCloudPercent is assumed when a current-weather payload carries no cloud cover.
const DefaultCloudPercent = 40.0

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Snapshot is the current weather for a resolved location. It is fetched
// fresh for every calculation and never persisted.
type Snapshot struct {
	TemperatureC    float64
	HumidityPercent float64
	CloudPercent    float64
	Condition       Condition
	Description     string
	Coordinates     Coordinates

	// CountryCode is the ISO 3166 alpha-2 code reported by the provider.
	CountryCode string

	// ResolvedName is the provider's name for the place, e.g. "Chennai".
	ResolvedName string

	ObservedAt time.Time
	FetchedAt  time.Time
}

// IsIndia reports whether the snapshot resolved to a location in India.
func (s *Snapshot) IsIndia() bool {
	return strings.EqualFold(strings.TrimSpace(s.CountryCode), "IN")
}

// ForecastSlot is one 3-hour forecast record.
type ForecastSlot struct {
	Time            time.Time
	TimestampSec    int64
	TemperatureC    float64
	HumidityPercent float64
	CloudPercent    float64
	WindSpeed       float64
	Condition       Condition
	Description     string

	// Label is the provider's slot label in "2006-01-02 15:04:05" (UTC) form.
	Label string
}

// LabelLayout is the layout of ForecastSlot.Label.
const LabelLayout = "2006-01-02 15:04:05"

// Condition represents the general weather condition.
type Condition string

const (
	ConditionClear        Condition = "CLEAR"
	ConditionClouds       Condition = "CLOUDS"
	ConditionRain         Condition = "RAIN"
	ConditionDrizzle      Condition = "DRIZZLE"
	ConditionThunderstorm Condition = "THUNDERSTORM"
	ConditionSnow         Condition = "SNOW"
	ConditionMist         Condition = "MIST"
	ConditionFog          Condition = "FOG"
	ConditionHaze         Condition = "HAZE"
	ConditionUnknown      Condition = "UNKNOWN"
)

// DailySummary picks every eighth slot (one per day at 3-hour granularity).
func DailySummary(slots []ForecastSlot) []ForecastSlot {
	daily := make([]ForecastSlot, 0, (len(slots)+7)/8)
	for i := 0; i < len(slots); i += 8 {
		daily = append(daily, slots[i])
	}
	return daily
}
