// Package config loads service configuration from the environment.
//
// A .env file in the working directory (or the path in ENV_FILE) is loaded
// first when present. Variables already set in the environment win over the
// file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/solarroi/solarroi/internal/database"
)

// Config is the full service configuration.
type Config struct {
	Port        string
	Environment string

	Telemetry TelemetryConfig
	Weather   WeatherConfig
	ML        MLConfig
	Advisory  AdvisoryConfig
	Auth      AuthConfig
	Database  DatabaseConfig
	PubSub    PubSubConfig

	// CalculateRatePerMinute limits POST /v1/roi:calculate per client IP.
	CalculateRatePerMinute int
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	SampleRatio  float64
}

// WeatherConfig configures the OpenWeatherMap provider.
type WeatherConfig struct {
	APIKey          string
	BaseURL         string
	GeoURL          string
	Timeout         time.Duration
	GeocodeTimeout  time.Duration
	ForecastTTL     time.Duration
	StaleIfErrorTTL time.Duration
}

// MLConfig configures the generation model service.
type MLConfig struct {
	// Enabled turns the model off when false; predictions then use the
	// heuristic only.
	Enabled bool
	URL     string
	Timeout time.Duration
}

// AdvisoryConfig configures the Gemini text generator.
type AdvisoryConfig struct {
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	Timeout       time.Duration
}

// AuthConfig configures bearer token validation.
type AuthConfig struct {
	SigningKey string
	Issuer     string
	Audience   string
}

// DatabaseConfig selects and configures the history store.
type DatabaseConfig struct {
	Enabled bool
	database.Config
}

// PubSubConfig configures the worker subscription.
type PubSubConfig struct {
	ProjectID    string
	Subscription string
	Topic        string
}

// Load reads the optional .env file and then the environment.
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}
	return FromEnv()
}

// FromEnv builds the configuration from the current environment only.
func FromEnv() (*Config, error) {
	var errs parseErrors

	cfg := &Config{
		Port:        getEnvOrDefault("APP_PORT", "8080"),
		Environment: getEnvOrDefault("APP_ENV", "development"),
		Telemetry: TelemetryConfig{
			Enabled:      errs.boolVar("OTEL_ENABLED", false),
			OTLPEndpoint: getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			SampleRatio:  errs.floatVar("OTEL_SAMPLE_RATIO", 1),
		},
		Weather: WeatherConfig{
			APIKey:          os.Getenv("OPENWEATHER_API_KEY"),
			BaseURL:         getEnvOrDefault("OPENWEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5"),
			GeoURL:          getEnvOrDefault("OPENWEATHER_GEO_URL", "https://api.openweathermap.org/geo/1.0"),
			Timeout:         errs.durationVar("OPENWEATHER_TIMEOUT", 10*time.Second),
			GeocodeTimeout:  errs.durationVar("GEOCODE_TIMEOUT", 6*time.Second),
			ForecastTTL:     errs.durationVar("FORECAST_CACHE_TTL", 10*time.Minute),
			StaleIfErrorTTL: errs.durationVar("FORECAST_STALE_TTL", time.Hour),
		},
		ML: MLConfig{
			Enabled: errs.boolVar("ML_ENABLED", true),
			URL:     getEnvOrDefault("ML_SERVICE_URL", "http://127.0.0.1:5000/predict"),
			Timeout: errs.durationVar("ML_TIMEOUT", 6*time.Second),
		},
		Advisory: AdvisoryConfig{
			GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
			GeminiModel:   getEnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
			GeminiBaseURL: getEnvOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			Timeout:       errs.durationVar("ADVISORY_TIMEOUT", 12*time.Second),
		},
		Auth: AuthConfig{
			SigningKey: os.Getenv("JWT_SIGNING_KEY"),
			Issuer:     getEnvOrDefault("JWT_ISSUER", "https://accounts.solarroi.in"),
			Audience:   getEnvOrDefault("JWT_AUDIENCE", "solarroi-api"),
		},
		Database: DatabaseConfig{
			Enabled: errs.boolVar("DB_ENABLED", false),
			Config: database.Config{
				Host:            getEnvOrDefault("DB_HOST", "localhost"),
				Port:            errs.intVar("DB_PORT", 5432),
				User:            getEnvOrDefault("DB_USER", "solarroi"),
				Password:        getEnvOrDefault("DB_PASSWORD", "localdev"),
				Database:        getEnvOrDefault("DB_NAME", "solarroi"),
				SSLMode:         getEnvOrDefault("DB_SSL_MODE", "disable"),
				MaxConns:        errs.intVar("DB_MAX_CONNS", 10),
				MinConns:        errs.intVar("DB_MIN_CONNS", 2),
				ConnMaxLifetime: errs.durationVar("DB_CONN_MAX_LIFETIME", 30*time.Minute),
				ConnMaxIdleTime: errs.durationVar("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			},
		},
		PubSub: PubSubConfig{
			ProjectID:    os.Getenv("PUBSUB_PROJECT_ID"),
			Subscription: getEnvOrDefault("PUBSUB_SUBSCRIPTION", "solarroi-jobs-sub"),
			Topic:        getEnvOrDefault("PUBSUB_TOPIC", "solarroi-jobs"),
		},
		CalculateRatePerMinute: errs.intVar("CALCULATE_RATE_PER_MINUTE", 30),
	}

	if cfg.Database.Enabled {
		if err := cfg.Database.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("DB_*: %w", err))
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return cfg, nil
}

// IsProduction reports whether APP_ENV is "production".
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func loadEnvFile() error {
	path := getEnvOrDefault("ENV_FILE", ".env")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

type parseErrors []error

func (e parseErrors) Error() string {
	msg := "invalid configuration"
	for _, err := range e {
		msg += "; " + err.Error()
	}
	return msg
}

func (e *parseErrors) boolVar(key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		*e = append(*e, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (e *parseErrors) intVar(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*e = append(*e, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (e *parseErrors) floatVar(key string, def float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*e = append(*e, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (e *parseErrors) durationVar(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*e = append(*e, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}
