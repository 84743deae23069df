package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	reports domain.ReportReader
	logger  *slog.Logger
	now     func() time.Time
}

// NewHealthHandler creates a HealthHandler. reports may be nil.
func NewHealthHandler(reports domain.ReportReader, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{reports: reports, logger: logger, now: time.Now}
}

// HealthCheck responds with a simple JSON status indicating the server is
// alive, plus the finish time of the last successful cycle when known.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":    "ok",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	}
	if h.reports != nil {
		if rep, err := h.reports.Latest(r.Context()); err == nil {
			body["last_cycle_id"] = rep.ID
			body["last_cycle_at"] = rep.FinishedAt.UTC().Format(time.RFC3339)
		}
	}
	writeJSON(w, http.StatusOK, body)
}
