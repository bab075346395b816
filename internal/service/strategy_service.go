package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/pumpbot/internal/domain"
	"github.com/alanyoungcy/pumpbot/internal/strategy"
)

// StrategyService keeps the ordered strategy list in the database so it can
// be tuned between restarts without editing the config file.
type StrategyService struct {
	store  domain.StrategyConfigStore
	logger *slog.Logger
}

// NewStrategyService creates a StrategyService. store may be nil.
func NewStrategyService(store domain.StrategyConfigStore, logger *slog.Logger) *StrategyService {
	return &StrategyService{
		store:  store,
		logger: logger.With(slog.String("component", "strategy_service")),
	}
}

// Resolve returns the stored strategy list. When nothing is stored yet,
// fallback is saved and returned. Without a store fallback is returned as is.
func (s *StrategyService) Resolve(ctx context.Context, fallback []strategy.Config) ([]strategy.Config, error) {
	if s.store == nil {
		return fallback, nil
	}

	stored, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("strategy_service: list: %w", err)
	}
	if len(stored) == 0 {
		if err := s.Save(ctx, fallback); err != nil {
			return nil, err
		}
		s.logger.InfoContext(ctx, "seeded strategy configs", slog.Int("count", len(fallback)))
		return fallback, nil
	}

	out, err := FromStored(stored)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "loaded strategy configs", slog.Int("count", len(out)))
	return out, nil
}

// Save replaces the stored list with cfgs.
func (s *StrategyService) Save(ctx context.Context, cfgs []strategy.Config) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.ReplaceAll(ctx, ToStored(cfgs)); err != nil {
		return fmt.Errorf("strategy_service: save: %w", err)
	}
	return nil
}

// ToStored converts engine configs to their persisted form.
func ToStored(cfgs []strategy.Config) []domain.StrategyConfig {
	out := make([]domain.StrategyConfig, len(cfgs))
	for i, c := range cfgs {
		params := make(map[string]float64, len(c.Params))
		for k, v := range c.Params {
			params[k] = v
		}
		out[i] = domain.StrategyConfig{
			Position: i,
			Kind:     c.Kind.String(),
			Enabled:  c.Enabled,
			Params:   params,
		}
	}
	return out
}

// FromStored converts persisted rows back to engine configs. An unknown kind
// is an error.
func FromStored(rows []domain.StrategyConfig) ([]strategy.Config, error) {
	out := make([]strategy.Config, len(rows))
	for i, r := range rows {
		kind, err := strategy.ParseKind(r.Kind)
		if err != nil {
			return nil, fmt.Errorf("strategy_service: row %d: %w", r.Position, err)
		}
		params := make(strategy.Params, len(r.Params))
		for k, v := range r.Params {
			params[k] = v
		}
		out[i] = strategy.Config{Kind: kind, Enabled: r.Enabled, Params: params}
	}
	return out, nil
}
