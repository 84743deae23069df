package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// ReportHandler serves the latest cycle report and the recorded cycle
// history.
type ReportHandler struct {
	reports domain.ReportReader
	cycles  domain.CycleStore
	logger  *slog.Logger
}

// NewReportHandler creates a ReportHandler. cycles may be nil when no
// history store is configured.
func NewReportHandler(reports domain.ReportReader, cycles domain.CycleStore, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		reports: reports,
		cycles:  cycles,
		logger:  logger.With(slog.String("handler", "report")),
	}
}

// Latest returns the most recent cycle report.
// GET /api/report/latest
func (h *ReportHandler) Latest(w http.ResponseWriter, r *http.Request) {
	rep, err := h.reports.Latest(r.Context())
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no cycle has completed yet")
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "latest report failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load latest report")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// ListCycles returns the most recent cycle records, newest first.
// GET /api/cycles?limit=
func (h *ReportHandler) ListCycles(w http.ResponseWriter, r *http.Request) {
	if h.cycles == nil {
		writeError(w, http.StatusServiceUnavailable, "cycle history is not enabled")
		return
	}
	records, err := h.cycles.ListRecent(r.Context(), parseLimit(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list cycles failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list cycles")
		return
	}
	if records == nil {
		records = []domain.CycleRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"cycles": records, "count": len(records)})
}
