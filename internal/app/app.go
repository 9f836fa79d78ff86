// Package app builds the SolarROI service graph from configuration. The API
// server and the worker share it.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/solarroi/solarroi/internal/advisory"
	"github.com/solarroi/solarroi/internal/advisory/gemini"
	"github.com/solarroi/solarroi/internal/api/handler"
	"github.com/solarroi/solarroi/internal/auth"
	"github.com/solarroi/solarroi/internal/config"
	"github.com/solarroi/solarroi/internal/database"
	"github.com/solarroi/solarroi/internal/generation"
	"github.com/solarroi/solarroi/internal/generation/mlservice"
	"github.com/solarroi/solarroi/internal/history"
	"github.com/solarroi/solarroi/internal/provider/resilience"
	"github.com/solarroi/solarroi/internal/region"
	"github.com/solarroi/solarroi/internal/roi"
	"github.com/solarroi/solarroi/internal/telemetry"
	"github.com/solarroi/solarroi/internal/weather"
	"github.com/solarroi/solarroi/internal/weather/openweathermap"
)

// App is the wired service graph.
type App struct {
	Providers  *resilience.Registry
	Weather    *weather.Service
	Advisor    *advisory.Advisor
	ROI        *roi.Service
	Tokens     *auth.JWTService
	Subsystems []handler.Subsystem

	pool *pgxpool.Pool
}

// New wires providers, the pipeline and the history store. Metrics may be
// nil.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, metrics *telemetry.PipelineMetrics) (*App, error) {
	a := &App{Providers: resilience.NewRegistry()}

	var (
		mlDegraded       func(context.Context, error)
		advisoryDegraded func(context.Context, error)
		recorder         roi.Recorder
	)
	if metrics != nil {
		mlDegraded = metrics.DegradedHook(mlservice.ProviderName)
		advisoryDegraded = metrics.DegradedHook(gemini.ProviderName)
		recorder = metrics
	}

	// Weather
	if cfg.Weather.APIKey == "" {
		logger.Warn().Msg("OPENWEATHER_API_KEY not set - calculations will fail")
	}
	weatherHTTP := resilience.DefaultClientConfig(openweathermap.ProviderName)
	weatherHTTP.Timeout = cfg.Weather.Timeout
	weatherHTTP.Registry = a.Providers

	a.Weather = weather.NewService(weather.ServiceConfig{
		Provider: openweathermap.NewClient(openweathermap.ClientConfig{
			APIKey:     cfg.Weather.APIKey,
			BaseURL:    cfg.Weather.BaseURL,
			GeoURL:     cfg.Weather.GeoURL,
			HTTPClient: resilience.NewClient(weatherHTTP),
			Logger:     logger,
		}),
		Logger:          logger,
		ForecastTTL:     cfg.Weather.ForecastTTL,
		StaleIfErrorTTL: cfg.Weather.StaleIfErrorTTL,
	})

	regions := region.NewResolver(region.ResolverConfig{
		Geocoder: a.Weather,
		Timeout:  cfg.Weather.GeocodeTimeout,
		Logger:   logger,
	})

	// Generation model
	predictorCfg := generation.PredictorConfig{
		Timeout:    cfg.ML.Timeout,
		Logger:     logger,
		OnDegraded: mlDegraded,
	}
	if cfg.ML.Enabled {
		mlHTTP := resilience.DefaultClientConfig(mlservice.ProviderName)
		mlHTTP.Timeout = cfg.ML.Timeout
		mlHTTP.MaxRetries = 1
		mlHTTP.Registry = a.Providers

		predictorCfg.Model = mlservice.NewClient(mlservice.ClientConfig{
			URL:        cfg.ML.URL,
			HTTPClient: resilience.NewClient(mlHTTP),
			Logger:     logger,
		})
	} else {
		logger.Info().Msg("ML model disabled - using heuristic generation")
	}

	// Advisory text
	advisorCfg := advisory.AdvisorConfig{
		Timeout:    cfg.Advisory.Timeout,
		Logger:     logger,
		OnDegraded: advisoryDegraded,
	}
	geminiHTTP := resilience.DefaultClientConfig(gemini.ProviderName)
	geminiHTTP.Timeout = cfg.Advisory.Timeout
	geminiHTTP.MaxRetries = 1
	geminiHTTP.Registry = a.Providers

	generator := gemini.NewClient(gemini.ClientConfig{
		APIKey:     cfg.Advisory.GeminiAPIKey,
		Model:      cfg.Advisory.GeminiModel,
		BaseURL:    cfg.Advisory.GeminiBaseURL,
		HTTPClient: resilience.NewClient(geminiHTTP),
		Logger:     logger,
	})
	if generator.Configured() {
		advisorCfg.Generator = generator
	} else {
		logger.Warn().Msg("GEMINI_API_KEY not set - using template explanations")
	}
	a.Advisor = advisory.NewAdvisor(advisorCfg)

	// History store
	records, err := a.openHistory(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	engine := roi.NewEngine(roi.EngineConfig{
		Weather:         a.Weather,
		Regions:         regions,
		Predictor:       generation.NewPredictor(predictorCfg),
		Logger:          logger,
		WeatherTimeout:  cfg.Weather.Timeout,
		ForecastTimeout: cfg.Weather.Timeout,
	})

	a.ROI = roi.NewService(roi.ServiceConfig{
		Engine:    engine,
		Explainer: a.Advisor,
		History:   records,
		Logger:    logger,
		Metrics:   recorder,
	})

	a.Tokens = auth.NewJWTService(auth.JWTConfig{
		SigningKey: cfg.Auth.SigningKey,
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
	})
	if !a.Tokens.Configured() {
		logger.Warn().Msg("JWT_SIGNING_KEY not set - authenticated endpoints will reject every request")
	}

	return a, nil
}

func (a *App) openHistory(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (history.Repository, error) {
	if !cfg.Database.Enabled {
		logger.Info().Msg("database disabled - using in-memory prediction history")
		return history.NewInMemoryRepository(), nil
	}

	pool, err := database.Connect(ctx, cfg.Database.Config)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	a.pool = pool

	logger.Info().
		Str("host", cfg.Database.Host).
		Int("port", cfg.Database.Port).
		Str("database", cfg.Database.Database).
		Msg("database connected")

	a.Subsystems = append(a.Subsystems, handler.Subsystem{
		Name:  "postgres",
		Check: pool.Ping,
	})
	return history.NewPostgresRepository(pool), nil
}

// Close releases the database pool, if any.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}
