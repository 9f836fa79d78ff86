package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarroi/solarroi/internal/advisory"
	"github.com/solarroi/solarroi/internal/api"
	"github.com/solarroi/solarroi/internal/api/models"
	"github.com/solarroi/solarroi/internal/auth"
	"github.com/solarroi/solarroi/internal/generation"
	"github.com/solarroi/solarroi/internal/history"
	"github.com/solarroi/solarroi/internal/provider/resilience"
	"github.com/solarroi/solarroi/internal/region"
	"github.com/solarroi/solarroi/internal/roi"
	"github.com/solarroi/solarroi/internal/weather"
)

// fakeWeather resolves every location to Chennai and returns a clear
// two-day forecast.
type fakeWeather struct{}

func (fakeWeather) CurrentWeather(_ context.Context, query string) (*weather.Snapshot, error) {
	if strings.Contains(strings.ToLower(query), "atlantis") {
		return nil, weather.ErrLocationNotFound
	}
	return &weather.Snapshot{
		TemperatureC:    32,
		HumidityPercent: 70,
		CloudPercent:    20,
		Condition:       weather.ConditionClear,
		Description:     "few clouds",
		Coordinates:     weather.Coordinates{Lat: 13.08, Lon: 80.27},
		CountryCode:     "IN",
		ResolvedName:    "Chennai",
	}, nil
}

func (fakeWeather) Forecast(context.Context, float64, float64) ([]weather.ForecastSlot, error) {
	start := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	slots := make([]weather.ForecastSlot, 16)
	for i := range slots {
		ts := start.Add(time.Duration(i) * 3 * time.Hour)
		slots[i] = weather.ForecastSlot{
			Time:         ts,
			TimestampSec: ts.Unix(),
			TemperatureC: 31,
			CloudPercent: 25,
			Description:  "scattered clouds",
			Label:        ts.Format(weather.LabelLayout),
		}
	}
	return slots, nil
}

func testJWTService() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "https://accounts.solarroi.in",
		Audience:   "solarroi-api",
	})
}

type testStack struct {
	router  http.Handler
	history *history.InMemoryRepository
}

func newTestStack(t *testing.T, calculatePerMinute int) testStack {
	t.Helper()
	logger := zerolog.New(io.Discard)

	repo := history.NewInMemoryRepository()
	engine := roi.NewEngine(roi.EngineConfig{
		Weather:   fakeWeather{},
		Regions:   region.NewResolver(region.ResolverConfig{Logger: logger}),
		Predictor: generation.NewPredictor(generation.PredictorConfig{Logger: logger}),
		Logger:    logger,
	})
	advisor := advisory.NewAdvisor(advisory.AdvisorConfig{Logger: logger})
	service := roi.NewService(roi.ServiceConfig{
		Engine:    engine,
		Explainer: advisor,
		History:   repo,
		Logger:    logger,
	})

	router := api.NewRouter(api.RouterConfig{
		Version:                "test",
		BuildTime:              "2026-10-01T00:00:00Z",
		Logger:                 logger,
		Tokens:                 testJWTService(),
		ROI:                    service,
		History:                service,
		Forecasts:              fakeWeather{},
		Advisor:                advisor,
		Providers:              resilience.NewRegistry(),
		CalculateRatePerMinute: calculatePerMinute,
	})
	return testStack{router: router, history: repo}
}

func addAuthHeader(t *testing.T, req *http.Request) {
	t.Helper()
	token, _, err := testJWTService().GenerateAccessToken("usr_testuser123")
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func calculateRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/v1/roi:calculate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestRouter_HealthCheck(t *testing.T) {
	stack := newTestStack(t, 0)

	w := serve(stack.router, httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	var health models.Health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, models.HealthStatusOK, health.Status)
}

func TestRouter_ReadinessCheck(t *testing.T) {
	stack := newTestStack(t, 0)

	w := serve(stack.router, httptest.NewRequest(http.MethodGet, "/v1/ops/ready", http.NoBody))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_SystemStatus_RequiresAuth(t *testing.T) {
	stack := newTestStack(t, 0)

	w := serve(stack.router, httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody)
	addAuthHeader(t, req)
	w = serve(stack.router, req)

	require.Equal(t, http.StatusOK, w.Code)
	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, models.HealthStatusOK, status.Status)
}

func TestRouter_Calculate_PersistsAndListsPrediction(t *testing.T) {
	stack := newTestStack(t, 0)

	w := serve(stack.router, calculateRequest(`{"location":"Chennai, Tamil Nadu","monthlyBill":3000}`))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var report roi.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.InDelta(t, 3.33, report.SolarROI.RecommendedSystemSizeKW, 1e-9)
	assert.InDelta(t, 3.9, report.SolarROI.PaybackPeriod, 1e-9)
	assert.Equal(t, advisory.SourceFallback, report.AIExplanation.Source)
	assert.Equal(t, "Highly recommended! Great ROI potential.", report.Recommendation)
	require.NotEmpty(t, report.RecordID)
	assert.Equal(t, 1, stack.history.Count())

	w = serve(stack.router, httptest.NewRequest(http.MethodGet, "/v1/predictions", http.NoBody))
	require.Equal(t, http.StatusOK, w.Code)
	var list models.PredictionsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)

	w = serve(stack.router, httptest.NewRequest(http.MethodGet, "/v1/predictions/latest", http.NoBody))
	require.Equal(t, http.StatusOK, w.Code)
	var latest models.LatestPredictionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &latest))
	assert.True(t, latest.Exists)
	assert.Equal(t, report.RecordID, latest.Latest.ID)
}

func TestRouter_Calculate_Errors(t *testing.T) {
	stack := newTestStack(t, 0)

	w := serve(stack.router, calculateRequest(`{"location":"","monthlyBill":0}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(stack.router, calculateRequest(`{"location":"Atlantis","monthlyBill":3000}`))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to calculate ROI. Please check the location.")

	req := httptest.NewRequest(http.MethodPost, "/v1/roi:calculate", strings.NewReader("location=Chennai"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = serve(stack.router, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	assert.Equal(t, 0, stack.history.Count())
}

func TestRouter_Calculate_RateLimited(t *testing.T) {
	stack := newTestStack(t, 2)

	for i := 0; i < 2; i++ {
		w := serve(stack.router, calculateRequest(`{"location":"Chennai","monthlyBill":3000}`))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := serve(stack.router, calculateRequest(`{"location":"Chennai","monthlyBill":3000}`))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestRouter_Dashboard(t *testing.T) {
	stack := newTestStack(t, 0)
	target := "/v1/dashboard?location=Chennai&monthlyBill=3000"

	w := serve(stack.router, httptest.NewRequest(http.MethodGet, target, http.NoBody))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	addAuthHeader(t, req)
	w = serve(stack.router, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var dashboard roi.Dashboard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dashboard))
	assert.Equal(t, "Chennai", dashboard.Profile.Location)
	require.Len(t, dashboard.UsageAlerts, 1)
	assert.Equal(t, "high-solar-window", dashboard.UsageAlerts[0].Level)
	assert.Equal(t, 0, stack.history.Count())
}

func TestRouter_Forecast_OptionalAuth(t *testing.T) {
	stack := newTestStack(t, 0)
	target := "/v1/weather/forecast?lat=13.08&lon=80.27"

	w := serve(stack.router, httptest.NewRequest(http.MethodGet, target, http.NoBody))
	require.Equal(t, http.StatusOK, w.Code)
	var anon models.ForecastResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &anon))
	assert.Len(t, anon.Forecast, 2)
	assert.NotNil(t, anon.AuthMessage)

	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	addAuthHeader(t, req)
	w = serve(stack.router, req)
	require.Equal(t, http.StatusOK, w.Code)
	var authed models.ForecastResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &authed))
	assert.Nil(t, authed.AuthMessage)
	assert.NotEmpty(t, authed.UsageAlerts)
}

func TestRouter_AdvisorChat(t *testing.T) {
	stack := newTestStack(t, 0)

	req := httptest.NewRequest(http.MethodPost, "/v1/advisor/chat", strings.NewReader(`{"message":"What is on-grid?"}`))
	req.Header.Set("Content-Type", "application/json")
	w := serve(stack.router, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "fallback", resp.Source)
}

func TestRouter_Glossary(t *testing.T) {
	stack := newTestStack(t, 0)

	w := serve(stack.router, httptest.NewRequest(http.MethodGet, "/v1/glossary", http.NoBody))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "On-grid")
}

func TestRouter_RequestID_Generated(t *testing.T) {
	stack := newTestStack(t, 0)

	w := serve(stack.router, httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody))

	requestID := w.Header().Get("X-Request-Id")
	assert.NotEmpty(t, requestID)
	assert.Contains(t, requestID, "req_")
}

func TestRouter_RequestID_Preserved(t *testing.T) {
	stack := newTestStack(t, 0)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	req.Header.Set("X-Request-Id", "custom_request_id")
	w := serve(stack.router, req)

	assert.Equal(t, "custom_request_id", w.Header().Get("X-Request-Id"))
}

func TestRouter_NotFound(t *testing.T) {
	stack := newTestStack(t, 0)

	w := serve(stack.router, httptest.NewRequest(http.MethodGet, "/v1/nonexistent", http.NoBody))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
}
