package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/solarroi/solarroi/internal/advisory"
	"github.com/solarroi/solarroi/internal/api/models"
	"github.com/solarroi/solarroi/internal/api/response"
)

// ChatService answers solar questions. *advisory.Advisor implements it.
type ChatService interface {
	Chat(ctx context.Context, message string, chatContext map[string]any) (advisory.Explanation, error)
}

// AdvisorHandler handles the advisor chat endpoint.
type AdvisorHandler struct {
	service ChatService
	logger  zerolog.Logger
}

// NewAdvisorHandler creates a new AdvisorHandler.
func NewAdvisorHandler(service ChatService, logger zerolog.Logger) *AdvisorHandler {
	return &AdvisorHandler{service: service, logger: logger}
}

// Chat handles POST /v1/advisor/chat.
func (h *AdvisorHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var input models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	reply, err := h.service.Chat(r.Context(), input.Message, input.Context)
	if err != nil {
		if errors.Is(err, advisory.ErrEmptyMessage) {
			response.BadRequest(w, r, "message is required", []models.FieldError{
				{Field: "message", Message: "message is required", Code: "required"},
			})
			return
		}
		h.logger.Error().Err(err).Msg("advisor chat failed")
		response.InternalError(w, r, "Failed to get AI response")
		return
	}

	response.JSON(w, r, http.StatusOK, models.ChatResponse{
		Response: reply.Text,
		Source:   string(reply.Source),
	})
}
