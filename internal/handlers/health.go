package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jwebster45206/story-grid/internal/storage"
)

// HealthResponse reports the service status and each dependency.
type HealthResponse struct {
	Status     string         `json:"status"`
	Timestamp  time.Time      `json:"timestamp"`
	Service    string         `json:"service"`
	Components map[string]any `json:"components"`
}

// HealthHandler serves GET /health.
type HealthHandler struct {
	drafts storage.DraftStore
	logger *slog.Logger
}

func NewHealthHandler(drafts storage.DraftStore, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		drafts: drafts,
		logger: logger,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Health check requested",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	// Check draft store health
	components := make(map[string]any)
	overallStatus := "healthy"

	// Test draft store connection (Redis or the data directory)
	if err := h.drafts.Ping(ctx); err != nil {
		h.logger.Warn("Draft store health check failed", "error", err)
		components["drafts"] = "unhealthy"
		overallStatus = "degraded"
	} else {
		components["drafts"] = "healthy"
	}

	// Any unhealthy component degrades the service
	statusCode := http.StatusOK
	if overallStatus != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, h.logger, statusCode, HealthResponse{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Service:    "story-grid",
		Components: components,
	})
}
