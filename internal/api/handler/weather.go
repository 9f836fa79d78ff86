package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/solarroi/solarroi/internal/api/middleware"
	"github.com/solarroi/solarroi/internal/api/models"
	"github.com/solarroi/solarroi/internal/api/response"
	"github.com/solarroi/solarroi/internal/usagealert"
	"github.com/solarroi/solarroi/internal/weather"
)

const forecastAuthMessage = "Sign in to unlock smart appliance alerts."

// ForecastService returns 3-hourly forecast slots. *weather.Service
// implements it.
type ForecastService interface {
	Forecast(ctx context.Context, lat, lon float64) ([]weather.ForecastSlot, error)
}

// WeatherHandler handles the forecast endpoint.
type WeatherHandler struct {
	service ForecastService
	logger  zerolog.Logger
}

// NewWeatherHandler creates a new WeatherHandler.
func NewWeatherHandler(service ForecastService, logger zerolog.Logger) *WeatherHandler {
	return &WeatherHandler{service: service, logger: logger}
}

// Forecast handles GET /v1/weather/forecast?lat=&lon=.
func (h *WeatherHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)

	var fieldErrors []models.FieldError
	if latErr != nil || lat < -90 || lat > 90 {
		fieldErrors = append(fieldErrors, models.FieldError{
			Field: "lat", Message: "lat must be a number between -90 and 90", Code: "out_of_range",
		})
	}
	if lonErr != nil || lon < -180 || lon > 180 {
		fieldErrors = append(fieldErrors, models.FieldError{
			Field: "lon", Message: "lon must be a number between -180 and 180", Code: "out_of_range",
		})
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid coordinates", fieldErrors)
		return
	}

	slots, err := h.service.Forecast(r.Context(), lat, lon)
	if err != nil {
		if errors.Is(err, weather.ErrInvalidCoordinates) {
			response.BadRequest(w, r, "invalid coordinates", nil)
			return
		}
		h.logger.Warn().
			Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Msg("forecast fetch failed")
		response.BadGateway(w, r, "Failed to fetch weather forecast")
		return
	}

	daily := weather.DailySummary(slots)
	resp := models.ForecastResponse{
		Forecast:    make([]models.ForecastDay, 0, len(daily)),
		UsageAlerts: []usagealert.Alert{},
	}
	for _, slot := range daily {
		resp.Forecast = append(resp.Forecast, models.ForecastDay{
			Date:        slot.Time.UTC().Format("2006-01-02"),
			Temp:        slot.TemperatureC,
			Humidity:    slot.HumidityPercent,
			Description: slot.Description,
			Clouds:      slot.CloudPercent,
			WindSpeed:   slot.WindSpeed,
		})
	}

	if middleware.IsAuthenticated(r.Context()) {
		resp.UsageAlerts = usagealert.Build(slots)
	} else {
		msg := forecastAuthMessage
		resp.AuthMessage = &msg
	}

	w.Header().Set("Cache-Control", "private, max-age=300")
	response.JSON(w, r, http.StatusOK, resp)
}
