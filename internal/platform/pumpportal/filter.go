package pumpportal

import "github.com/alanyoungcy/pumpbot/internal/domain"

// Criteria bounds the tokens worth evaluating.
type Criteria struct {
	MinMarketCap uint64
	MaxMarketCap uint64
	MinHolders   uint32
	MaxAgeHours  uint32
}

// Match reports whether a satisfies every bound. Bounds are inclusive.
func (c Criteria) Match(a domain.Asset) bool {
	return a.MarketCap >= c.MinMarketCap &&
		a.MarketCap <= c.MaxMarketCap &&
		a.Holders >= c.MinHolders &&
		a.AgeHours <= c.MaxAgeHours
}

// Filter returns the assets matching c, preserving order.
func Filter(assets []domain.Asset, c Criteria) []domain.Asset {
	out := make([]domain.Asset, 0, len(assets))
	for _, a := range assets {
		if c.Match(a) {
			out = append(out, a)
		}
	}
	return out
}
