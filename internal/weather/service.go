package weather

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Provider defines the interface for weather data providers.
type Provider interface {
	// CurrentWeather fetches current conditions for a free-text location.
	// Returns ErrLocationNotFound when the provider cannot resolve it.
	CurrentWeather(ctx context.Context, query string) (*Snapshot, error)

	// Forecast fetches 3-hourly forecast slots in chronological order.
	Forecast(ctx context.Context, lat, lon float64) ([]ForecastSlot, error)

	// ReverseGeocodeRegion returns the administrative region (state) for the
	// coordinates, or "" when none is known.
	ReverseGeocodeRegion(ctx context.Context, lat, lon float64) (string, error)

	// Name returns the provider name for logging.
	Name() string
}

// ServiceConfig holds configuration for the weather service.
type ServiceConfig struct {
	// Provider is the weather data provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// ForecastTTL is how long to cache forecasts (default: 10 minutes).
	ForecastTTL time.Duration

	// CacheGridSize is the size of cache grid cells in degrees (default: 0.1).
	// Points within the same grid cell share cached forecasts.
	CacheGridSize float64

	// StaleIfErrorTTL allows serving stale forecasts on provider errors (default: 1 hour).
	StaleIfErrorTTL time.Duration
}

// Service wraps a Provider. Current conditions always come straight from the
// provider; forecasts are cached per grid cell.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	forecastTTL     time.Duration
	cacheGridSize   float64
	staleIfErrorTTL time.Duration

	mu              sync.RWMutex
	forecastCache   map[string]*cachedForecast
	lastCleanup     time.Time
	cleanupInterval time.Duration
}

type cachedForecast struct {
	slots     []ForecastSlot
	fetchedAt time.Time
	expiresAt time.Time
}

// NewService creates a new weather service.
func NewService(cfg ServiceConfig) *Service {
	forecastTTL := cfg.ForecastTTL
	if forecastTTL == 0 {
		forecastTTL = 10 * time.Minute
	}

	cacheGridSize := cfg.CacheGridSize
	if cacheGridSize == 0 {
		cacheGridSize = 0.1 // ~11km at equator
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = time.Hour
	}

	return &Service{
		provider:        cfg.Provider,
		logger:          cfg.Logger,
		forecastTTL:     forecastTTL,
		cacheGridSize:   cacheGridSize,
		staleIfErrorTTL: staleIfErrorTTL,
		forecastCache:   make(map[string]*cachedForecast),
		cleanupInterval: 5 * time.Minute,
	}
}

// CurrentWeather returns current conditions for a location query. Any
// provider failure other than an unknown location is reported as
// ErrProviderUnavailable.
func (s *Service) CurrentWeather(ctx context.Context, query string) (*Snapshot, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrLocationNotFound
	}

	snap, err := s.provider.CurrentWeather(ctx, query)
	if err != nil {
		if errors.Is(err, ErrLocationNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrLocationNotFound, query)
		}
		s.logger.Error().Err(err).
			Str("location", query).
			Str("provider", s.provider.Name()).
			Msg("failed to fetch current weather")
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}

	return snap, nil
}

// Forecast returns forecast slots for a location, using cached data if fresh.
func (s *Service) Forecast(ctx context.Context, lat, lon float64) ([]ForecastSlot, error) {
	if err := validateCoordinates(lat, lon); err != nil {
		return nil, err
	}

	cacheKey := s.cacheKey(lat, lon)

	s.mu.RLock()
	if cached, ok := s.forecastCache[cacheKey]; ok && time.Now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		return cached.slots, nil
	}
	s.mu.RUnlock()

	return s.fetchForecast(ctx, lat, lon, cacheKey)
}

// ReverseGeocodeRegion passes through to the provider.
func (s *Service) ReverseGeocodeRegion(ctx context.Context, lat, lon float64) (string, error) {
	if err := validateCoordinates(lat, lon); err != nil {
		return "", err
	}
	return s.provider.ReverseGeocodeRegion(ctx, lat, lon)
}

// fetchForecast fetches a forecast from the provider and updates the cache.
func (s *Service) fetchForecast(ctx context.Context, lat, lon float64, cacheKey string) ([]ForecastSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check cache
	if cached, ok := s.forecastCache[cacheKey]; ok && time.Now().Before(cached.expiresAt) {
		return cached.slots, nil
	}

	s.logger.Debug().
		Float64("lat", lat).
		Float64("lon", lon).
		Str("provider", s.provider.Name()).
		Msg("fetching forecast from provider")

	slots, err := s.provider.Forecast(ctx, lat, lon)
	if err != nil {
		s.logger.Error().Err(err).
			Float64("lat", lat).
			Float64("lon", lon).
			Msg("failed to fetch forecast")

		if cached, ok := s.forecastCache[cacheKey]; ok {
			if time.Now().Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
				s.logger.Warn().
					Time("fetched_at", cached.fetchedAt).
					Msg("serving stale forecast data due to provider error")
				return cached.slots, nil
			}
		}

		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}

	now := time.Now()
	s.forecastCache[cacheKey] = &cachedForecast{
		slots:     slots,
		fetchedAt: now,
		expiresAt: now.Add(s.forecastTTL),
	}

	s.cleanupIfNeeded()

	return slots, nil
}

// cacheKey groups nearby points into grid cells.
func (s *Service) cacheKey(lat, lon float64) string {
	gridLat := math.Floor(lat/s.cacheGridSize) * s.cacheGridSize
	gridLon := math.Floor(lon/s.cacheGridSize) * s.cacheGridSize
	return fmt.Sprintf("%.2f:%.2f", gridLat, gridLon)
}

// cleanupIfNeeded removes entries past their stale window. Callers hold s.mu.
func (s *Service) cleanupIfNeeded() {
	now := time.Now()
	if now.Sub(s.lastCleanup) < s.cleanupInterval {
		return
	}

	s.lastCleanup = now
	expired := 0

	for key, cached := range s.forecastCache {
		if now.After(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			delete(s.forecastCache, key)
			expired++
		}
	}

	if expired > 0 {
		s.logger.Debug().
			Int("expired_entries", expired).
			Msg("cleaned up expired forecast cache entries")
	}
}

// InvalidateCache clears all cached forecasts.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forecastCache = make(map[string]*cachedForecast)
}

// CacheStats contains cache statistics.
type CacheStats struct {
	ForecastEntries      int
	ForecastFreshEntries int
	Provider             string
}

// CacheStats returns cache statistics.
func (s *Service) CacheStats() CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	fresh := 0
	for _, c := range s.forecastCache {
		if now.Before(c.expiresAt) {
			fresh++
		}
	}

	return CacheStats{
		ForecastEntries:      len(s.forecastCache),
		ForecastFreshEntries: fresh,
		Provider:             s.provider.Name(),
	}
}

func validateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}
