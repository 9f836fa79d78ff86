// Package roi estimates residential solar return on investment from a
// location and a monthly electricity bill.
package roi

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/solarroi/solarroi/internal/generation"
	"github.com/solarroi/solarroi/internal/provider/resilience"
	"github.com/solarroi/solarroi/internal/subsidy"
	"github.com/solarroi/solarroi/internal/usagealert"
	"github.com/solarroi/solarroi/internal/weather"
)

// ErrWeatherUnavailable is returned when current weather for the location
// cannot be fetched. It wraps the underlying weather error.
var ErrWeatherUnavailable = errors.New("weather unavailable for location")

const (
	// TomorrowSlotMarker selects the midday forecast slot.
	TomorrowSlotMarker = "12:00:00"

	defaultTomorrowCloud = 50.0
	cloudyGuidanceAbove  = 65.0

	cloudyGuidance = "Cloudy/monsoon risk: run in grid-saving mode and avoid simultaneous heavy loads."
	sunnyGuidance  = "Good solar day expected: schedule heavy appliances in daylight windows."

	recommendedMessage = "Highly recommended! Great ROI potential."
	considerMessage    = "Consider solar for long-term savings and environmental benefits."
	recommendBelowYrs  = 8.0
)

// WeatherSource supplies current conditions and forecasts.
type WeatherSource interface {
	CurrentWeather(ctx context.Context, query string) (*weather.Snapshot, error)
	Forecast(ctx context.Context, lat, lon float64) ([]weather.ForecastSlot, error)
}

// RegionResolver maps a location to a subsidy region key.
type RegionResolver interface {
	Resolve(ctx context.Context, query, countryCode string, coords weather.Coordinates) string
}

// GenerationPredictor produces the weather-derived generation signal.
type GenerationPredictor interface {
	Predict(ctx context.Context, temperatureC, cloudPercent float64) generation.Prediction
}

// EngineConfig holds configuration for the engine.
type EngineConfig struct {
	Weather   WeatherSource
	Regions   RegionResolver
	Predictor GenerationPredictor
	Logger    zerolog.Logger

	// WeatherTimeout bounds the current weather fetch (default: 10 seconds).
	WeatherTimeout time.Duration

	// ForecastTimeout bounds the forecast fetch (default: 10 seconds).
	ForecastTimeout time.Duration
}

// Engine runs the estimation pipeline.
type Engine struct {
	weather         WeatherSource
	regions         RegionResolver
	predictor       GenerationPredictor
	logger          zerolog.Logger
	weatherTimeout  time.Duration
	forecastTimeout time.Duration
}

// NewEngine creates a new ROI engine.
func NewEngine(cfg EngineConfig) *Engine {
	weatherTimeout := cfg.WeatherTimeout
	if weatherTimeout == 0 {
		weatherTimeout = 10 * time.Second
	}
	forecastTimeout := cfg.ForecastTimeout
	if forecastTimeout == 0 {
		forecastTimeout = 10 * time.Second
	}
	return &Engine{
		weather:         cfg.Weather,
		regions:         cfg.Regions,
		predictor:       cfg.Predictor,
		logger:          cfg.Logger,
		weatherTimeout:  weatherTimeout,
		forecastTimeout: forecastTimeout,
	}
}

// Assumptions are the fixed model inputs shown alongside a result.
type Assumptions struct {
	CostPerKW         float64 `json:"costPerKW"`
	AvgSunHours       float64 `json:"avgSunHours"`
	TariffPerUnit     float64 `json:"tariffPerUnit"`
	SavingsFactor     float64 `json:"savingsFactor"`
	SubsidyDisclaimer string  `json:"subsidyDisclaimer"`
}

// DefaultAssumptions returns the assumptions the calculator uses.
func DefaultAssumptions() Assumptions {
	return Assumptions{
		CostPerKW:         CostPerKW,
		AvgSunHours:       AvgSunHours,
		TariffPerUnit:     TariffPerUnit,
		SavingsFactor:     SavingsFactor,
		SubsidyDisclaimer: subsidy.Disclaimer,
	}
}

// Calculation is the full result bundle of one pipeline run.
type Calculation struct {
	Input   Input
	Weather *weather.Snapshot

	// Location is the provider-resolved place name.
	Location string
	Region   string
	Subsidy  subsidy.Entry

	Prediction               generation.Prediction
	Metrics                  Metrics
	Assumptions              Assumptions
	ApplianceRecommendations []string
	Recommendation           string
}

// Compute validates the input, fetches weather, resolves the region and
// the generation signal in parallel, and runs the calculator. Only input
// validation, weather failure and degenerate metrics are errors.
func (e *Engine) Compute(ctx context.Context, in Input) (*Calculation, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	snap, err := resilience.Bounded(ctx, e.weatherTimeout, func(ctx context.Context) (*weather.Snapshot, error) {
		return e.weather.CurrentWeather(ctx, in.Location)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrWeatherUnavailable, in.Location, err)
	}

	var (
		region     string
		prediction generation.Prediction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		region = e.regions.Resolve(gctx, in.Location, snap.CountryCode, snap.Coordinates)
		return nil
	})
	g.Go(func() error {
		prediction = e.predictor.Predict(gctx, snap.TemperatureC, snap.CloudPercent)
		return nil
	})
	_ = g.Wait() // neither branch fails

	entry := subsidy.Lookup(region)
	metrics, err := Calculate(Params{
		MonthlyBill:           in.MonthlyBill,
		RequestedSystemSizeKW: in.requestedSize(),
		Subsidy:               entry,
		PredictedKw:           prediction.PredictedKw,
	})
	if err != nil {
		return nil, err
	}

	location := snap.ResolvedName
	if location == "" {
		location = in.Location
	}

	calc := &Calculation{
		Input:                    in,
		Weather:                  snap,
		Location:                 location,
		Region:                   region,
		Subsidy:                  entry,
		Prediction:               prediction,
		Metrics:                  metrics,
		Assumptions:              DefaultAssumptions(),
		ApplianceRecommendations: ApplianceRecommendations(metrics.OutputCategory),
		Recommendation:           considerMessage,
	}
	if metrics.PaybackPeriod < recommendBelowYrs {
		calc.Recommendation = recommendedMessage
	}

	e.logger.Debug().
		Str("location", location).
		Str("region", region).
		Str("prediction_source", string(prediction.Source)).
		Float64("payback_years", metrics.PaybackPeriod).
		Msg("roi computed")

	return calc, nil
}

// TomorrowForecast summarizes the next midday slot.
type TomorrowForecast struct {
	// Date is the slot date ("2006-01-02") or "N/A" without a forecast.
	Date                   string  `json:"date"`
	CloudPercent           float64 `json:"cloudPercent"`
	Temperature            float64 `json:"temperature"`
	EstimatedGenerationKwh float64 `json:"estimatedGenerationKwh"`
	MLSignalKw             float64 `json:"mlSignalKw"`
	EfficiencyGuidance     string  `json:"efficiencyGuidance"`
}

// OperationalView is the returning-user dashboard bundle.
type OperationalView struct {
	Calculation      *Calculation
	TomorrowForecast TomorrowForecast
	UsageAlerts      []usagealert.Alert
}

// OperationalView runs Compute and adds tomorrow's outlook and usage
// alerts. A forecast failure degrades to an empty forecast.
func (e *Engine) OperationalView(ctx context.Context, in Input) (*OperationalView, error) {
	calc, err := e.Compute(ctx, in)
	if err != nil {
		return nil, err
	}

	coords := calc.Weather.Coordinates
	slots, err := resilience.Bounded(ctx, e.forecastTimeout, func(ctx context.Context) ([]weather.ForecastSlot, error) {
		return e.weather.Forecast(ctx, coords.Lat, coords.Lon)
	})
	if err != nil {
		e.logger.Warn().
			Err(err).
			Str("provider", "forecast").
			Str("location", calc.Location).
			Msg("forecast unavailable, continuing without it")
		slots = nil
	}

	return &OperationalView{
		Calculation:      calc,
		TomorrowForecast: e.tomorrow(ctx, calc, slots),
		UsageAlerts:      usagealert.Build(slots),
	}, nil
}

func (e *Engine) tomorrow(ctx context.Context, calc *Calculation, slots []weather.ForecastSlot) TomorrowForecast {
	slot := TomorrowSlot(slots)

	out := TomorrowForecast{
		Date:         "N/A",
		CloudPercent: defaultTomorrowCloud,
		Temperature:  calc.Weather.TemperatureC,
	}
	if slot != nil {
		out.Date = slot.Time.Format("2006-01-02")
		out.CloudPercent = slot.CloudPercent
		out.Temperature = slot.TemperatureC
	}

	out.EstimatedGenerationKwh = round(calc.Metrics.SystemSizeKW*math.Max(3, 6-out.CloudPercent/30)*0.9, 2)
	out.MLSignalKw = e.predictor.Predict(ctx, out.Temperature, out.CloudPercent).PredictedKw

	out.EfficiencyGuidance = sunnyGuidance
	if out.CloudPercent > cloudyGuidanceAbove {
		out.EfficiencyGuidance = cloudyGuidance
	}
	return out
}

// TomorrowSlot returns the first slot labelled at midday, else the first
// slot, else nil.
func TomorrowSlot(slots []weather.ForecastSlot) *weather.ForecastSlot {
	if len(slots) == 0 {
		return nil
	}
	for i := range slots {
		if strings.Contains(slots[i].Label, TomorrowSlotMarker) {
			return &slots[i]
		}
	}
	return &slots[0]
}
