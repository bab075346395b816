package bot

import (
	"context"
	"time"

	"github.com/alanyoungcy/pumpbot/internal/strategy"
	"github.com/alanyoungcy/pumpbot/internal/trading"
)

// trackerPrices serves the latest tracked price of an asset, but only
// when it was observed at or after since. Older points belong to earlier
// polls and are left to the live sources.
type trackerPrices struct {
	tracker *strategy.PriceTracker
	since   time.Time
}

func (t trackerPrices) LatestPrice(_ context.Context, assetID string) (float64, bool) {
	p, ok := t.tracker.Latest(assetID)
	if !ok || p.Price <= 0 || p.Time.Before(t.since) {
		return 0, false
	}
	return p.Price, true
}

// priceChain asks each source in turn and returns the first quote.
type priceChain []trading.PriceSource

func (c priceChain) LatestPrice(ctx context.Context, assetID string) (float64, bool) {
	for _, src := range c {
		if src == nil {
			continue
		}
		if p, ok := src.LatestPrice(ctx, assetID); ok {
			return p, true
		}
	}
	return 0, false
}
