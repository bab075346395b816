package domain

import "time"

// Position is the engine's record of a currently held amount of one asset.
// At most one Position exists per AssetID.
type Position struct {
	AssetID        string    `json:"asset_id"`
	Symbol         string    `json:"symbol"`
	HoldingAccount string    `json:"holding_account"`
	Amount         uint64    `json:"amount"`
	EntryPrice     float64   `json:"entry_price"`
	EntryTime      time.Time `json:"entry_time"`
}

// ProfitPercent returns the percentage gain of current over the entry price.
// It is negative for a loss and 0 when the entry price is unknown.
func (p Position) ProfitPercent(current float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return (current - p.EntryPrice) / p.EntryPrice * 100
}
