package domain

import "time"

// AmountScale converts raw token base units into whole-token units when
// computing realized profit and loss.
const AmountScale = 1_000_000.0

// Trade is an immutable record of an executed buy or sell.
type Trade struct {
	ID         string    `json:"id"`
	AssetID    string    `json:"asset_id"`
	Symbol     string    `json:"symbol"`
	Action     Action    `json:"action"`
	Amount     uint64    `json:"amount"`
	Price      float64   `json:"price"`
	Timestamp  time.Time `json:"timestamp"`
	Receipt    *string   `json:"receipt,omitempty"`     // transaction signature once settled
	ProfitLoss *float64  `json:"profit_loss,omitempty"` // realized, sells only
	Source     string    `json:"source"`
	Reason     string    `json:"reason"`
}

// RealizedPnL computes (exit - entry) * (amount / AmountScale).
func RealizedPnL(entryPrice, exitPrice float64, amount uint64) float64 {
	return (exitPrice - entryPrice) * (float64(amount) / AmountScale)
}
