// Package openweathermap implements weather.Provider on the OpenWeatherMap
// current weather, 5 day / 3 hour forecast and reverse geocoding APIs.
package openweathermap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/solarroi/solarroi/internal/provider/resilience"
	"github.com/solarroi/solarroi/internal/weather"
)

const (
	// ProviderName identifies this weather provider.
	ProviderName = "openweathermap"

	// DefaultBaseURL is the OpenWeatherMap data API base URL.
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

	// DefaultGeoURL is the OpenWeatherMap geocoding API base URL.
	DefaultGeoURL = "https://api.openweathermap.org/geo/1.0"
)

// ClientConfig holds configuration for the OpenWeatherMap client.
type ClientConfig struct {
	// APIKey is the OpenWeatherMap API key. Without it every call
	// returns weather.ErrNotConfigured.
	APIKey string

	// BaseURL is the data API base URL (optional).
	BaseURL string

	// GeoURL is the geocoding API base URL (optional).
	GeoURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an OpenWeatherMap API client.
type Client struct {
	apiKey     string
	baseURL    string
	geoURL     string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

var _ weather.Provider = (*Client)(nil)

// NewClient creates a new OpenWeatherMap client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	geoURL := cfg.GeoURL
	if geoURL == "" {
		geoURL = DefaultGeoURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		geoURL:     geoURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// CurrentWeather fetches current conditions for a free-text location.
func (c *Client) CurrentWeather(ctx context.Context, query string) (*weather.Snapshot, error) {
	params := url.Values{}
	params.Set("q", query)

	var owmResp currentWeatherResponse
	status, err := c.getJSON(ctx, c.baseURL+"/weather", params, &owmResp)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, weather.ErrLocationNotFound
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", status)
	}

	return toSnapshot(&owmResp), nil
}

// Forecast fetches the 5 day / 3 hour forecast for a location.
func (c *Client) Forecast(ctx context.Context, lat, lon float64) ([]weather.ForecastSlot, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))

	var owmResp forecastResponse
	status, err := c.getJSON(ctx, c.baseURL+"/forecast", params, &owmResp)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", status)
	}

	return toForecastSlots(&owmResp), nil
}

// ReverseGeocodeRegion returns the state reported for the first reverse
// geocoding match, or "" when there is none.
func (c *Client) ReverseGeocodeRegion(ctx context.Context, lat, lon float64) (string, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))
	params.Set("limit", "1")

	var places []geocodeResult
	status, err := c.getJSON(ctx, c.geoURL+"/reverse", params, &places)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", status)
	}

	if len(places) == 0 {
		return "", nil
	}
	return places[0].State, nil
}

// getJSON issues a GET with the API key and metric units, decoding a 200
// body into out. Non-200 statuses are returned without decoding.
func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out any) (int, error) {
	if c.apiKey == "" {
		return 0, weather.ErrNotConfigured
	}

	params.Set("appid", c.apiKey)
	params.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug().
			Int("status", resp.StatusCode).
			Str("endpoint", endpoint).
			Msg("openweathermap returned non-200 status")
		return resp.StatusCode, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decoding response: %w", err)
	}

	return resp.StatusCode, nil
}

// toSnapshot converts an OpenWeatherMap response to the domain model.
func toSnapshot(resp *currentWeatherResponse) *weather.Snapshot {
	snap := &weather.Snapshot{
		TemperatureC:    resp.Main.Temp,
		HumidityPercent: resp.Main.Humidity,
		CloudPercent:    weather.DefaultCloudPercent,
		Coordinates: weather.Coordinates{
			Lat: resp.Coord.Lat,
			Lon: resp.Coord.Lon,
		},
		CountryCode:  resp.Sys.Country,
		ResolvedName: resp.Name,
		ObservedAt:   time.Unix(resp.Dt, 0),
		FetchedAt:    time.Now(),
		Condition:    weather.ConditionUnknown,
	}

	if resp.Clouds != nil && resp.Clouds.All != nil {
		snap.CloudPercent = *resp.Clouds.All
	}

	if len(resp.Weather) > 0 {
		snap.Condition = mapCondition(resp.Weather[0].Main)
		snap.Description = resp.Weather[0].Description
	}

	return snap
}

// toForecastSlots converts a forecast response to domain slots.
func toForecastSlots(resp *forecastResponse) []weather.ForecastSlot {
	slots := make([]weather.ForecastSlot, 0, len(resp.List))

	for _, item := range resp.List {
		at := time.Unix(item.Dt, 0).UTC()
		slot := weather.ForecastSlot{
			Time:            at,
			TimestampSec:    item.Dt,
			TemperatureC:    item.Main.Temp,
			HumidityPercent: item.Main.Humidity,
			CloudPercent:    item.Clouds.All,
			WindSpeed:       item.Wind.Speed,
			Condition:       weather.ConditionUnknown,
			Label:           item.DtTxt,
		}
		if slot.Label == "" {
			slot.Label = at.Format(weather.LabelLayout)
		}

		if len(item.Weather) > 0 {
			slot.Condition = mapCondition(item.Weather[0].Main)
			slot.Description = item.Weather[0].Description
		}

		slots = append(slots, slot)
	}

	return slots
}

// mapCondition maps OpenWeatherMap condition to domain condition.
func mapCondition(owmCondition string) weather.Condition {
	switch owmCondition {
	case "Clear":
		return weather.ConditionClear
	case "Clouds":
		return weather.ConditionClouds
	case "Rain":
		return weather.ConditionRain
	case "Drizzle":
		return weather.ConditionDrizzle
	case "Thunderstorm":
		return weather.ConditionThunderstorm
	case "Snow":
		return weather.ConditionSnow
	case "Mist":
		return weather.ConditionMist
	case "Fog":
		return weather.ConditionFog
	case "Haze", "Dust", "Sand", "Ash", "Squall", "Tornado":
		return weather.ConditionHaze
	default:
		return weather.ConditionUnknown
	}
}

// OpenWeatherMap API response structures.

type conditionEntry struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

type currentWeatherResponse struct {
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Weather []conditionEntry `json:"weather"`
	Main    struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Clouds *struct {
		All *float64 `json:"all"`
	} `json:"clouds"`
	Sys struct {
		Country string `json:"country"`
	} `json:"sys"`
	Dt   int64  `json:"dt"`
	Name string `json:"name"`
}

type forecastResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp     float64 `json:"temp"`
			Humidity float64 `json:"humidity"`
		} `json:"main"`
		Weather []conditionEntry `json:"weather"`
		Clouds  struct {
			All float64 `json:"all"`
		} `json:"clouds"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		DtTxt string `json:"dt_txt"`
	} `json:"list"`
}

type geocodeResult struct {
	Name    string `json:"name"`
	State   string `json:"state"`
	Country string `json:"country"`
}
