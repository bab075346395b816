package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/alanyoungcy/pumpbot/internal/domain"
)

// PriceService mirrors observed asset prices into the shared price cache
// and announces them on the event bus.
type PriceService struct {
	priceCache domain.PriceCache
	bus        domain.EventBus
	logger     *slog.Logger
}

// NewPriceService creates a PriceService. Either dependency may be nil.
func NewPriceService(priceCache domain.PriceCache, bus domain.EventBus, logger *slog.Logger) *PriceService {
	return &PriceService{
		priceCache: priceCache,
		bus:        bus,
		logger:     logger.With(slog.String("component", "price_service")),
	}
}

// Observe records the current price of every asset. Failures are logged
// and the remaining assets are still recorded.
func (s *PriceService) Observe(ctx context.Context, assets []domain.Asset, ts time.Time) {
	for _, a := range assets {
		if a.PriceUSD <= 0 {
			continue
		}
		if s.priceCache != nil {
			if err := s.priceCache.SetPrice(ctx, a.Address, a.PriceUSD, ts); err != nil {
				s.logger.WarnContext(ctx, "set price failed",
					slog.String("asset", a.Address),
					slog.String("error", err.Error()),
				)
			}
		}
		if s.bus != nil {
			evt, _ := json.Marshal(map[string]any{
				"event":     "price_update",
				"asset_id":  a.Address,
				"symbol":    a.Symbol,
				"price":     a.PriceUSD,
				"timestamp": ts.Format(time.RFC3339Nano),
			})
			if err := s.bus.Publish(ctx, ChannelPrices, evt); err != nil {
				s.logger.WarnContext(ctx, "publish price event failed",
					slog.String("asset", a.Address),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
