package domain

import "time"

// Asset is a point-in-time market-data snapshot for one tradable token, as
// returned by the market-data source on each poll. Strategies treat it as
// read-only.
type Asset struct {
	Address        string  `json:"address"`
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	Decimals       uint8   `json:"decimals"`
	MarketCap      uint64  `json:"market_cap"`
	Holders        uint32  `json:"holders"`
	AgeHours       uint32  `json:"age_hours"`
	Liquidity      uint64  `json:"liquidity"`
	PriceUSD       float64 `json:"price_usd"`
	PriceChange24h float64 `json:"price_change_24h"`
	Volume24h      uint64  `json:"volume_24h"`
	CreatedAt      string  `json:"created_at"`
}

// VolumeToLiquidity returns volume_24h / liquidity, or 0 when the asset
// reports no liquidity.
func (a Asset) VolumeToLiquidity() float64 {
	if a.Liquidity == 0 {
		return 0
	}
	return float64(a.Volume24h) / float64(a.Liquidity)
}

// LiquidityToMarketCap returns liquidity / market_cap, or 0 when the asset
// reports no market cap.
func (a Asset) LiquidityToMarketCap() float64 {
	if a.MarketCap == 0 {
		return 0
	}
	return float64(a.Liquidity) / float64(a.MarketCap)
}

// PricePoint records a single price observation at a point in time.
type PricePoint struct {
	Price float64   `json:"price"`
	Time  time.Time `json:"time"`
}
