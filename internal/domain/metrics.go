package domain

import "time"

// Metrics aggregates trading performance. Every field is derived from the
// trade history and the current position set.
type Metrics struct {
	TotalTrades       int       `json:"total_trades"`
	WinningTrades     int       `json:"winning_trades"`
	LosingTrades      int       `json:"losing_trades"`
	TotalProfitLoss   float64   `json:"total_profit_loss"`
	WinRate           float64   `json:"win_rate"`
	AverageProfit     float64   `json:"average_profit"`
	AverageLoss       float64   `json:"average_loss"`
	MaxDrawdown       float64   `json:"max_drawdown"`
	CurrentPositions  int       `json:"current_positions"`
	TotalVolumeTraded uint64    `json:"total_volume_traded"`
	UptimeSeconds     uint64    `json:"uptime_seconds"`
	LastUpdated       time.Time `json:"last_updated"`
}
