package handlers

import (
	"net/http"

	"github.com/upb/gitstats/backend/utils"
	"go.uber.org/zap"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string `json:"status"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(logger *zap.Logger) *HealthHandler {
	return &HealthHandler{logger: logger}
}

// HandleHealth handles GET /api/health-check
// Always returns 200 while the process is serving
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := utils.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok"}); err != nil {
		h.logger.Error("failed to write health response", zap.Error(err))
	}
}
