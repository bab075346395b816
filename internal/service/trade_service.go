// Package service journals engine side effects (trades, positions, prices,
// alerts) to the optional persistence and messaging backends.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/pumpbot/internal/domain"
)

// Event channels and streams.
const (
	ChannelTrades = "trades"
	ChannelPrices = "prices"
	ChannelAlerts = "alerts"
	StreamTrades  = "stream:trades"
)

// TradeService journals executed trades and mirrors the open position set.
// Every dependency is optional; a nil store is skipped.
type TradeService struct {
	trades    domain.TradeStore
	positions domain.PositionStore
	bus       domain.EventBus
	audit     domain.AuditStore
	logger    *slog.Logger
}

// NewTradeService creates a TradeService.
func NewTradeService(
	trades domain.TradeStore,
	positions domain.PositionStore,
	bus domain.EventBus,
	audit domain.AuditStore,
	logger *slog.Logger,
) *TradeService {
	return &TradeService{
		trades:    trades,
		positions: positions,
		bus:       bus,
		audit:     audit,
		logger:    logger.With(slog.String("component", "trade_service")),
	}
}

// Record persists t and the post-trade position of its asset. pos is nil
// when the trade closed the position. Store failures are returned; event
// publication failures are only logged.
func (s *TradeService) Record(ctx context.Context, t domain.Trade, pos *domain.Position) error {
	var errs []error

	if s.trades != nil {
		if err := s.trades.Insert(ctx, t); err != nil {
			errs = append(errs, fmt.Errorf("trade_service: insert trade %s: %w", t.ID, err))
		}
	}

	if s.positions != nil {
		var err error
		if pos != nil {
			err = s.positions.Upsert(ctx, *pos)
		} else {
			err = s.positions.Delete(ctx, t.AssetID)
			if errors.Is(err, domain.ErrNotFound) {
				err = nil
			}
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("trade_service: persist position %s: %w", t.AssetID, err))
		}
	}

	if s.bus != nil {
		evt, _ := json.Marshal(map[string]any{
			"event":     "trade_executed",
			"trade_id":  t.ID,
			"asset_id":  t.AssetID,
			"symbol":    t.Symbol,
			"action":    t.Action,
			"amount":    t.Amount,
			"price":     t.Price,
			"pnl":       t.ProfitLoss,
			"source":    t.Source,
			"timestamp": t.Timestamp.Format(time.RFC3339),
		})
		if err := s.bus.Publish(ctx, ChannelTrades, evt); err != nil {
			s.logger.WarnContext(ctx, "publish trade event failed",
				slog.String("trade_id", t.ID),
				slog.String("error", err.Error()),
			)
		}
		if err := s.bus.StreamAppend(ctx, StreamTrades, evt); err != nil {
			s.logger.WarnContext(ctx, "append trade stream failed",
				slog.String("trade_id", t.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return errors.Join(errs...)
}

// Restore loads the persisted open positions and trade history. Without
// stores it returns empty state.
func (s *TradeService) Restore(ctx context.Context) ([]domain.Position, []domain.Trade, error) {
	var (
		positions []domain.Position
		trades    []domain.Trade
		err       error
	)
	if s.positions != nil {
		positions, err = s.positions.ListOpen(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("trade_service: list open positions: %w", err)
		}
	}
	if s.trades != nil {
		trades, err = s.trades.List(ctx, domain.ListOpts{})
		if err != nil {
			return nil, nil, fmt.Errorf("trade_service: list trades: %w", err)
		}
	}
	return positions, trades, nil
}

// Audit appends a lifecycle event to the audit log, if one is configured.
func (s *TradeService) Audit(ctx context.Context, event string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.WarnContext(ctx, "audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
