package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/pumpbot/internal/bot"
	"github.com/alanyoungcy/pumpbot/internal/domain"
)

// BotView is the read side of the running bot plus alert acknowledgement.
type BotView interface {
	Snapshot() bot.Snapshot
	Alerts() []domain.Alert
	AcknowledgeAlert(ctx context.Context, id string) bool
	Balance(ctx context.Context) (uint64, error)
}

// StatusHandler serves the bot status and metrics.
type StatusHandler struct {
	mode   string
	bot    BotView
	logger *slog.Logger
}

// NewStatusHandler creates a StatusHandler for the given run mode.
func NewStatusHandler(mode string, b BotView, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{mode: mode, bot: b, logger: logger}
}

type statusResponse struct {
	Mode       string         `json:"mode"`
	Running    bool           `json:"running"`
	DryRun     bool           `json:"dry_run"`
	Iterations uint64         `json:"iterations"`
	LastRun    string         `json:"last_run"`
	Positions  int            `json:"positions"`
	Balance    *uint64        `json:"balance_lamports,omitempty"`
	Metrics    domain.Metrics `json:"metrics"`
}

// GetStatus responds with the run state, the latest metrics and the wallet
// balance when it can be read.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	snap := h.bot.Snapshot()
	resp := statusResponse{
		Mode:       h.mode,
		Running:    snap.Running,
		DryRun:     snap.DryRun,
		Iterations: snap.Iterations,
		LastRun:    snap.LastRun.Format(time.RFC3339),
		Positions:  len(snap.Positions),
		Metrics:    snap.Metrics,
	}
	if bal, err := h.bot.Balance(r.Context()); err == nil {
		resp.Balance = &bal
	} else {
		h.logger.DebugContext(r.Context(), "balance unavailable", slog.String("error", err.Error()))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetMetrics responds with the latest metrics only.
// GET /api/metrics
func (h *StatusHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.bot.Snapshot().Metrics)
}
