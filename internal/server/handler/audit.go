package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/pumpbot/internal/domain"
)

// AuditHandler serves the lifecycle audit log.
type AuditHandler struct {
	store  domain.AuditStore
	logger *slog.Logger
}

// NewAuditHandler creates an AuditHandler. store may be nil.
func NewAuditHandler(store domain.AuditStore, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{store: store, logger: logger}
}

type listAuditResponse struct {
	Entries []domain.AuditEntry `json:"entries"`
}

// ListAudit returns audit entries, newest first.
// GET /api/audit?limit=50&offset=0&since=2025-01-01T00:00:00Z&event=bot_started
func (h *AuditHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "audit log not configured")
		return
	}

	opts := parseListOpts(r)
	opts.Event = r.URL.Query().Get("event")
	if v := r.URL.Query().Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		opts.Since = &since
	}

	entries, err := h.store.List(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list audit failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list audit entries")
		return
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, listAuditResponse{Entries: entries})
}
