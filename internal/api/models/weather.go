package models

import "github.com/solarroi/solarroi/internal/usagealert"

// ForecastDay is one entry of the daily forecast summary.
type ForecastDay struct {
	Date        string  `json:"date"`
	Temp        float64 `json:"temp"`
	Humidity    float64 `json:"humidity"`
	Description string  `json:"description"`
	Clouds      float64 `json:"clouds"`
	WindSpeed   float64 `json:"windSpeed"`
}

// ForecastResponse is the body of GET /v1/weather/forecast. Usage alerts
// are only computed for authenticated callers; anonymous callers get an
// empty list and AuthMessage.
type ForecastResponse struct {
	Forecast    []ForecastDay      `json:"forecast"`
	UsageAlerts []usagealert.Alert `json:"usageAlerts"`
	AuthMessage *string            `json:"authMessage"`
}

// ChatRequest is the body of POST /v1/advisor/chat.
type ChatRequest struct {
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

// ChatResponse is the advisor's reply.
type ChatResponse struct {
	Response string `json:"response"`
	Source   string `json:"source"`
}
