// Package region infers the subsidy region for a location.
package region

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/solarroi/solarroi/internal/provider/resilience"
	"github.com/solarroi/solarroi/internal/subsidy"
	"github.com/solarroi/solarroi/internal/weather"
)

// Geocoder resolves coordinates to an administrative region name.
type Geocoder interface {
	ReverseGeocodeRegion(ctx context.Context, lat, lon float64) (string, error)
}

// ResolverConfig holds configuration for the resolver.
type ResolverConfig struct {
	// Geocoder is optional. Without it only the location text is parsed.
	Geocoder Geocoder

	// Timeout bounds the reverse geocode (default: 6 seconds).
	Timeout time.Duration

	Logger zerolog.Logger
}

// Resolver maps a location to a subsidy region key.
type Resolver struct {
	geocoder Geocoder
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewResolver creates a new region resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 6 * time.Second
	}
	return &Resolver{
		geocoder: cfg.Geocoder,
		timeout:  timeout,
		logger:   cfg.Logger,
	}
}

// Resolve returns the region key for a location. Locations outside India
// always resolve to subsidy.DefaultRegion. For India the reverse geocoded
// state wins, then the second comma segment of the query, then the default.
// It never fails; lookup errors are logged and treated as "not found".
func (r *Resolver) Resolve(ctx context.Context, query, countryCode string, coords weather.Coordinates) string {
	if !strings.EqualFold(strings.TrimSpace(countryCode), "IN") {
		return subsidy.DefaultRegion
	}

	if state := r.reverseGeocode(ctx, coords); state != "" {
		return state
	}

	if state := FromQuery(query); state != "" {
		return state
	}

	r.logger.Debug().
		Str("location", query).
		Msg("no region found, using default subsidy region")
	return subsidy.DefaultRegion
}

func (r *Resolver) reverseGeocode(ctx context.Context, coords weather.Coordinates) string {
	if r.geocoder == nil {
		return ""
	}

	call := resilience.Call[string]{
		Name:     "reverse-geocode",
		Timeout:  r.timeout,
		Fallback: func(error) string { return "" },
		Logger:   r.logger,
	}
	result := call.Run(ctx, func(ctx context.Context) (string, error) {
		return r.geocoder.ReverseGeocodeRegion(ctx, coords.Lat, coords.Lon)
	})

	return strings.TrimSpace(result.Value)
}

var countryToken = regexp.MustCompile(`(?i)\b(india|in)\b`)

// FromQuery extracts a state from "locality, state[, country]" text. The
// second comma segment is used with any standalone "india"/"in" removed.
// Returns "" when there is no usable segment.
func FromQuery(query string) string {
	parts := make([]string, 0, 3)
	for _, part := range strings.Split(query, ",") {
		if p := strings.TrimSpace(part); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(countryToken.ReplaceAllString(parts[1], ""))
}
