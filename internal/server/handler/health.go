package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// FeedStatus reports the size of the signal catalog and when it was last
// assembled.
type FeedStatus interface {
	Status() (signals int, refreshedAt time.Time)
}

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	feed   FeedStatus
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler reporting on the given feed.
func NewHealthHandler(feed FeedStatus, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{feed: feed, logger: logger}
}

// HealthCheck reports liveness plus the state of the signal catalog. The
// status degrades to "warming" until the first refresh has completed so
// load balancers can hold traffic off a cold instance.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	signals, refreshedAt := h.feed.Status()

	status := "ok"
	var lastRefresh any
	if refreshedAt.IsZero() {
		status = "warming"
	} else {
		lastRefresh = refreshedAt.Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       status,
		"signals":      signals,
		"last_refresh": lastRefresh,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}
