package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/solarroi/solarroi/internal/api/models"
	"github.com/solarroi/solarroi/internal/api/response"
	"github.com/solarroi/solarroi/internal/history"
)

// HistoryService reads stored predictions. *roi.Service implements it.
type HistoryService interface {
	Latest(ctx context.Context) (*history.Record, error)
	History(ctx context.Context, limit int) ([]*history.Record, error)
}

// PredictionsHandler handles the prediction history endpoints.
type PredictionsHandler struct {
	service HistoryService
	logger  zerolog.Logger
}

// NewPredictionsHandler creates a new PredictionsHandler.
func NewPredictionsHandler(service HistoryService, logger zerolog.Logger) *PredictionsHandler {
	return &PredictionsHandler{service: service, logger: logger}
}

// List handles GET /v1/predictions?limit=.
func (h *PredictionsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := history.MaxRecords
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(w, r, "limit must be an integer", []models.FieldError{
				{Field: "limit", Message: "limit must be an integer", Code: "invalid"},
			})
			return
		}
		limit = history.NormalizeLimit(n)
	}

	records, err := h.service.History(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("listing predictions failed")
		response.InternalError(w, r, "failed to load predictions")
		return
	}

	response.JSON(w, r, http.StatusOK, models.PredictionsResponse{
		Count:   len(records),
		Records: records,
	})
}

// Latest handles GET /v1/predictions/latest.
func (h *PredictionsHandler) Latest(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.Latest(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("loading latest prediction failed")
		response.InternalError(w, r, "failed to load latest prediction")
		return
	}

	response.JSON(w, r, http.StatusOK, models.LatestPredictionResponse{
		Exists: record != nil,
		Latest: record,
	})
}
