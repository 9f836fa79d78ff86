// Package handler provides HTTP handlers for the SolarROI API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/solarroi/solarroi/internal/api/middleware"
	"github.com/solarroi/solarroi/internal/api/models"
	"github.com/solarroi/solarroi/internal/api/response"
	"github.com/solarroi/solarroi/internal/roi"
)

// ROIService computes reports and dashboards. *roi.Service implements it.
type ROIService interface {
	Calculate(ctx context.Context, in roi.Input) (*roi.Report, error)
	Dashboard(ctx context.Context, in roi.Input) (*roi.Dashboard, error)
}

// ROIHandler handles the calculation and dashboard endpoints.
type ROIHandler struct {
	service ROIService
	logger  zerolog.Logger
}

// NewROIHandler creates a new ROIHandler.
func NewROIHandler(service ROIService, logger zerolog.Logger) *ROIHandler {
	return &ROIHandler{service: service, logger: logger}
}

// Calculate handles POST /v1/roi:calculate.
func (h *ROIHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var input models.CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	report, err := h.service.Calculate(r.Context(), roi.Input{
		Location:              input.Location,
		MonthlyBill:           input.MonthlyBill,
		RequestedSystemSizeKW: input.SystemSizeKW,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, report)
}

// Dashboard handles GET /v1/dashboard?location=&monthlyBill=&systemSizeKW=.
func (h *ROIHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	in, fieldErrors := dashboardInput(r)
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid query parameters", fieldErrors)
		return
	}

	dashboard, err := h.service.Dashboard(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "private, no-store")
	response.JSON(w, r, http.StatusOK, dashboard)
}

// dashboardInput parses the query string. Range checks are left to
// roi.Input.Validate; only malformed numbers are reported here.
func dashboardInput(r *http.Request) (roi.Input, []models.FieldError) {
	q := r.URL.Query()
	in := roi.Input{Location: q.Get("location")}

	var fieldErrors []models.FieldError
	if raw := strings.TrimSpace(q.Get("monthlyBill")); raw != "" {
		bill, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			fieldErrors = append(fieldErrors, models.FieldError{
				Field:   "monthlyBill",
				Message: "monthlyBill must be a number",
				Code:    "invalid",
			})
		}
		in.MonthlyBill = bill
	}

	if raw := strings.TrimSpace(q.Get("systemSizeKW")); raw != "" {
		size, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			fieldErrors = append(fieldErrors, models.FieldError{
				Field:   "systemSizeKW",
				Message: "systemSizeKW must be a number",
				Code:    "invalid",
			})
		} else {
			in.RequestedSystemSizeKW = &size
		}
	}

	return in, fieldErrors
}

func (h *ROIHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *roi.ValidationError
	switch {
	case errors.As(err, &validationErr):
		response.BadRequest(w, r, "invalid calculation input", validationErr.Errors)
	case errors.Is(err, roi.ErrWeatherUnavailable):
		response.BadGateway(w, r, "Failed to calculate ROI. Please check the location.")
	case errors.Is(err, roi.ErrDegenerateCalculation):
		response.Unprocessable(w, r, "The bill and location do not produce a usable solar estimate.")
	default:
		h.logger.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Str("path", r.URL.Path).
			Msg("roi request failed")
		response.InternalError(w, r, "an unexpected error occurred")
	}
}
