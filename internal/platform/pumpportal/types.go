package pumpportal

import "github.com/alanyoungcy/pumpbot/internal/domain"

// tokenListResponse is the envelope returned by the token list endpoints.
type tokenListResponse struct {
	Success bool           `json:"success"`
	Data    []domain.Asset `json:"data"`
	Message *string        `json:"message"`
}

// TokenMetrics is the short-horizon market data for one token.
type TokenMetrics struct {
	Address        string  `json:"address"`
	Price          float64 `json:"price"`
	Volume5m       uint64  `json:"volume_5m"`
	Volume1h       uint64  `json:"volume_1h"`
	Volume24h      uint64  `json:"volume_24h"`
	Holders        uint32  `json:"holders"`
	MarketCap      uint64  `json:"market_cap"`
	Liquidity      uint64  `json:"liquidity"`
	PriceChange5m  float64 `json:"price_change_5m"`
	PriceChange1h  float64 `json:"price_change_1h"`
	PriceChange24h float64 `json:"price_change_24h"`
}
