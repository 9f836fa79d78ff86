// Package api provides the HTTP API for SolarROI.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/solarroi/solarroi/internal/api/handler"
	"github.com/solarroi/solarroi/internal/api/middleware"
	"github.com/solarroi/solarroi/internal/api/response"
	"github.com/solarroi/solarroi/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	// Tokens validates bearer tokens for the dashboard, forecast alerts and
	// ops status.
	Tokens middleware.TokenValidator

	ROI       handler.ROIService
	History   handler.HistoryService
	Forecasts handler.ForecastService
	Advisor   handler.ChatService

	Providers  *resilience.Registry
	Subsystems []handler.Subsystem

	// RequireTLS rejects requests forwarded over plain HTTP.
	RequireTLS bool

	// CalculateRatePerMinute limits ROI calculations per client IP.
	// Zero uses middleware.ExpensiveRateLimit.
	CalculateRatePerMinute int
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "solarroi-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement
	r.Use(middleware.ContentTypeJSON)            // JSON content type

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		response.NotFound(w, req, "no such endpoint")
	})

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Providers, cfg.Subsystems...)
	roiHandler := handler.NewROIHandler(cfg.ROI, cfg.Logger)
	weatherHandler := handler.NewWeatherHandler(cfg.Forecasts, cfg.Logger)
	predictionsHandler := handler.NewPredictionsHandler(cfg.History, cfg.Logger)
	advisorHandler := handler.NewAdvisorHandler(cfg.Advisor, cfg.Logger)

	authMiddleware := middleware.Auth(cfg.Tokens)
	optionalAuth := middleware.OptionalAuth(cfg.Tokens)

	calculateLimit := middleware.PerMinute(cfg.CalculateRatePerMinute, middleware.ExpensiveRateLimit)
	expensiveRateLimit := middleware.RateLimitByIP(calculateLimit)
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)

	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public except status)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		// Calculation fans out to weather, ML and advisory providers
		r.With(expensiveRateLimit, middleware.RequireJSON).Post("/roi:calculate", roiHandler.Calculate)

		// Returning-user dashboard (authenticated) - user-based rate limiting
		r.With(authMiddleware, middleware.RateLimitByUser(calculateLimit)).Get("/dashboard", roiHandler.Dashboard)

		// Forecast is public; usage alerts need a valid token
		r.With(optionalAuth, standardRateLimit).Get("/weather/forecast", weatherHandler.Forecast)

		r.Route("/predictions", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/", predictionsHandler.List)
			r.Get("/latest", predictionsHandler.Latest)
		})

		r.With(expensiveRateLimit, middleware.RequireJSON).Post("/advisor/chat", advisorHandler.Chat)

		r.With(standardRateLimit).Get("/glossary", handler.Glossary)
	})

	return r
}
