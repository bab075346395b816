package handler

import (
	"net/http"

	"github.com/alanyoungcy/pumpbot/internal/domain"
)

// PositionHandler serves the open positions and the trade history.
type PositionHandler struct {
	bot BotView
}

// NewPositionHandler creates a PositionHandler.
func NewPositionHandler(b BotView) *PositionHandler {
	return &PositionHandler{bot: b}
}

type listPositionsResponse struct {
	Positions []domain.Position `json:"positions"`
}

type listTradesResponse struct {
	Trades []domain.Trade `json:"trades"`
	Total  int            `json:"total"`
}

// ListPositions returns every open position.
// GET /api/positions
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	positions := h.bot.Snapshot().Positions
	if positions == nil {
		positions = []domain.Position{}
	}
	writeJSON(w, http.StatusOK, listPositionsResponse{Positions: positions})
}

// ListTrades returns executed trades, newest first.
// GET /api/trades?limit=50&offset=0
func (h *PositionHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	trades := h.bot.Snapshot().Trades
	writeJSON(w, http.StatusOK, listTradesResponse{
		Trades: page(trades, parseListOpts(r)),
		Total:  len(trades),
	})
}
