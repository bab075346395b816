package strategy

import (
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/pumpbot/internal/domain"
)

// Engine evaluates asset snapshots against the configured strategy list.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	configs []Config
	logger  *slog.Logger
}

// NewEngine validates the strategy list and returns an Engine. Entries are
// evaluated in the order given.
func NewEngine(configs []Config, logger *slog.Logger) (*Engine, error) {
	out := make([]Config, 0, len(configs))
	for i, c := range configs {
		if _, ok := rules[c.Kind]; !ok {
			return nil, fmt.Errorf("strategy: entry %d: unknown kind %d", i, int(c.Kind))
		}
		params := make(Params, len(c.Params))
		for k, v := range c.Params {
			params[k] = v
		}
		c.Params = params
		out = append(out, c)
	}
	return &Engine{
		configs: out,
		logger:  logger.With(slog.String("component", "strategy_engine")),
	}, nil
}

// Configs returns a copy of the strategy list.
func (e *Engine) Configs() []Config {
	out := make([]Config, len(e.configs))
	copy(out, e.configs)
	return out
}

// Evaluate runs every enabled strategy against asset and collects the
// signals that fire. One asset may produce several signals.
func (e *Engine) Evaluate(asset domain.Asset) []domain.Signal {
	var signals []domain.Signal
	for _, c := range e.configs {
		if !c.Enabled {
			continue
		}
		sig, ok := rules[c.Kind](asset, c.Params)
		if !ok {
			continue
		}
		e.logger.Debug("strategy fired",
			slog.String("strategy", c.Kind.String()),
			slog.String("asset", asset.Address),
			slog.Float64("confidence", sig.Confidence),
		)
		signals = append(signals, sig)
	}
	return signals
}
