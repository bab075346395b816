package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/pumpbot/internal/strategy"
)

// StrategyStore persists the strategy list.
type StrategyStore interface {
	Save(ctx context.Context, cfgs []strategy.Config) error
}

// StrategyHandler serves the strategy list.
type StrategyHandler struct {
	active []strategy.Config
	store  StrategyStore
	logger *slog.Logger
}

// NewStrategyHandler creates a StrategyHandler reporting active. store may
// be nil, in which case updates are rejected.
func NewStrategyHandler(active []strategy.Config, store StrategyStore, logger *slog.Logger) *StrategyHandler {
	return &StrategyHandler{active: active, store: store, logger: logger}
}

type strategiesBody struct {
	Strategies []strategy.Config `json:"strategies"`
}

// GetConfig returns the strategy list the engine is running with.
// GET /api/strategies
func (h *StrategyHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfgs := h.active
	if cfgs == nil {
		cfgs = []strategy.Config{}
	}
	writeJSON(w, http.StatusOK, strategiesBody{Strategies: cfgs})
}

// UpdateConfig validates and stores a new strategy list. It takes effect on
// the next start.
// PUT /api/strategies
func (h *StrategyHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "strategy store not configured")
		return
	}

	var body strategiesBody
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(body.Strategies) == 0 {
		writeError(w, http.StatusBadRequest, "strategies must not be empty")
		return
	}
	if _, err := strategy.NewEngine(body.Strategies, h.logger); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Save(r.Context(), body.Strategies); err != nil {
		h.logger.ErrorContext(r.Context(), "handler: save strategies failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to save strategies")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "saved",
		"count":  len(body.Strategies),
	})
}
