// Package worker runs background jobs for SolarROI: recomputing recent ROI
// predictions against fresh forecasts and probing provider connectivity.
package worker

import (
	"time"

	"github.com/solarroi/solarroi/internal/history"
)

// Point is a geographic coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// RefreshConfig holds configuration for the history refresh job.
type RefreshConfig struct {
	// Concurrency is the number of concurrent recomputations.
	// Default: 3
	Concurrency int

	// Timeout bounds each recomputation.
	// Default: 30 seconds
	Timeout time.Duration

	// ScanLimit is how many recent records are scanned for inputs.
	// Default: history.MaxRecords
	ScanLimit int

	// MaxInputs caps the distinct inputs recomputed per run.
	// Default: 20
	MaxInputs int

	// ProbePoint is the coordinate used by the health check job.
	// Default: Chennai
	ProbePoint Point
}

// DefaultProbePoint is Chennai.
var DefaultProbePoint = Point{Lat: 13.0827, Lon: 80.2707}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Concurrency: 3,
		Timeout:     30 * time.Second,
		ScanLimit:   history.MaxRecords,
		MaxInputs:   20,
		ProbePoint:  DefaultProbePoint,
	}
}

// withDefaults fills zero fields from DefaultRefreshConfig.
func (c RefreshConfig) withDefaults() RefreshConfig {
	def := DefaultRefreshConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.ScanLimit <= 0 {
		c.ScanLimit = def.ScanLimit
	}
	if c.MaxInputs <= 0 {
		c.MaxInputs = def.MaxInputs
	}
	if c.ProbePoint == (Point{}) {
		c.ProbePoint = def.ProbePoint
	}
	return c
}
