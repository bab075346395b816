package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/pumpbot/internal/domain"
)

// AlertHistory reads the persisted alert journal.
type AlertHistory interface {
	Recent(ctx context.Context, limit int) ([]domain.Alert, error)
}

// AlertHandler serves alert listing and acknowledgement.
type AlertHandler struct {
	bot     BotView
	history AlertHistory
	logger  *slog.Logger
}

// NewAlertHandler creates an AlertHandler. history may be nil.
func NewAlertHandler(b BotView, history AlertHistory, logger *slog.Logger) *AlertHandler {
	return &AlertHandler{bot: b, history: history, logger: logger}
}

type listAlertsResponse struct {
	Alerts []domain.Alert `json:"alerts"`
}

// ListAlerts returns the alerts raised since startup, newest first.
// GET /api/alerts?unacknowledged=true
func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	onlyOpen := r.URL.Query().Get("unacknowledged") == "true"

	all := h.bot.Alerts()
	out := make([]domain.Alert, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if onlyOpen && all[i].Acknowledged {
			continue
		}
		out = append(out, all[i])
	}
	writeJSON(w, http.StatusOK, listAlertsResponse{Alerts: out})
}

// ListHistory returns persisted alerts across restarts.
// GET /api/alerts/history?limit=50
func (h *AlertHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusServiceUnavailable, "alert journal not configured")
		return
	}
	alerts, err := h.history.Recent(r.Context(), parseListOpts(r).Limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list alert history failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list alerts")
		return
	}
	if alerts == nil {
		alerts = []domain.Alert{}
	}
	writeJSON(w, http.StatusOK, listAlertsResponse{Alerts: alerts})
}

// Acknowledge marks one alert as acknowledged.
// POST /api/alerts/{id}/ack
func (h *AlertHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "alert id required")
		return
	}
	if !h.bot.AcknowledgeAlert(r.Context(), id) {
		writeError(w, http.StatusNotFound, "alert not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "acknowledged",
		"id":     id,
	})
}
