package trading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/pumpbot/internal/domain"
)

// ExitScannerSource is the Signal.Source of exits synthesized by
// CheckExitConditions.
const ExitScannerSource = "exit_scanner"

// Limits bounds what the engine is allowed to do.
type Limits struct {
	MaxPositions        int
	MaxBuyAmount        uint64
	MaxSellAmount       uint64
	ProfitTargetPercent float64
	StopLossPercent     float64
	Cooldown            time.Duration
}

// Backend resolves or opens the on-chain account that will hold an asset.
// Implementations return an error wrapping domain.ErrInvalidAssetID for a
// malformed asset identifier.
type Backend interface {
	ResolveHoldingAccount(ctx context.Context, assetID string) (string, error)
}

// PriceSource supplies the live price used by exit scanning.
type PriceSource interface {
	LatestPrice(ctx context.Context, assetID string) (float64, bool)
}

// SellSizer decides how much of pos a sell signal disposes of.
type SellSizer func(pos domain.Position, sig domain.Signal) uint64

// FullSell sells the whole position.
func FullSell(pos domain.Position, _ domain.Signal) uint64 { return pos.Amount }

// CappedSellSizer sells at most limit units per signal, leaving the rest of
// the position open. A zero limit sells everything.
func CappedSellSizer(limit uint64) SellSizer {
	return func(pos domain.Position, _ domain.Signal) uint64 {
		if limit == 0 || pos.Amount <= limit {
			return pos.Amount
		}
		return limit
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithSellSizer overrides the default full-position sell sizing.
func WithSellSizer(s SellSizer) Option {
	return func(e *Engine) { e.sellSizer = s }
}

// Engine owns the position set, the trade history and the cooldown map. It
// is the only writer of that state; callers serialize ExecuteSignal calls.
type Engine struct {
	limits    Limits
	backend   Backend
	positions map[string]domain.Position
	trades    []domain.Trade
	cooldown  *Cooldown
	sellSizer SellSizer
	now       func() time.Time
	logger    *slog.Logger
}

// NewEngine creates an Engine with an empty state.
func NewEngine(limits Limits, backend Backend, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		limits:    limits,
		backend:   backend,
		positions: make(map[string]domain.Position),
		sellSizer: FullSell,
		now:       time.Now,
		logger:    logger.With(slog.String("component", "trading_engine")),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.cooldown = NewCooldown(limits.Cooldown, e.now)
	return e
}

// Limits returns the engine's configured limits.
func (e *Engine) Limits() Limits { return e.limits }

// Restore loads a previously persisted state. Positions already held are
// kept; trades are appended to the history in the given order.
func (e *Engine) Restore(positions []domain.Position, trades []domain.Trade) {
	for _, p := range positions {
		if _, ok := e.positions[p.AssetID]; ok {
			continue
		}
		e.positions[p.AssetID] = p
	}
	e.trades = append(e.trades, trades...)
}

// Positions returns a copy of the open positions ordered by entry time.
func (e *Engine) Positions() []domain.Position {
	out := make([]domain.Position, 0, len(e.positions))
	for _, p := range e.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntryTime.Equal(out[j].EntryTime) {
			return out[i].AssetID < out[j].AssetID
		}
		return out[i].EntryTime.Before(out[j].EntryTime)
	})
	return out
}

// Position returns the open position for assetID.
func (e *Engine) Position(assetID string) (domain.Position, bool) {
	p, ok := e.positions[assetID]
	return p, ok
}

// Trades returns a copy of the trade history in execution order.
func (e *Engine) Trades() []domain.Trade {
	out := make([]domain.Trade, len(e.trades))
	copy(out, e.trades)
	return out
}

// InCooldown reports whether assetID traded within the cooldown window.
func (e *Engine) InCooldown(assetID string) bool {
	return e.cooldown.Active(assetID)
}

// PruneCooldowns forgets assets whose cooldown has elapsed and returns how
// many were removed.
func (e *Engine) PruneCooldowns() int {
	return e.cooldown.Cleanup()
}

// ExecuteSignal applies sig to the engine state. It returns the executed
// trade, or a nil trade and nil error when the signal was declined
// (cooldown, existing position, position cap, zero amount, nothing to sell,
// hold).
func (e *Engine) ExecuteSignal(ctx context.Context, sig domain.Signal) (*domain.Trade, error) {
	assetID := sig.Asset.Address
	if e.cooldown.Active(assetID) {
		e.logger.DebugContext(ctx, "signal declined: cooldown active",
			slog.String("asset", assetID),
			slog.String("action", string(sig.Action)),
		)
		return nil, nil
	}

	switch sig.Action {
	case domain.ActionBuy:
		return e.executeBuy(ctx, sig)
	case domain.ActionSell:
		return e.executeSell(ctx, sig)
	case domain.ActionHold:
		e.logger.InfoContext(ctx, "hold signal",
			slog.String("asset", assetID),
			slog.String("reason", sig.Reason),
		)
		return nil, nil
	default:
		return nil, fmt.Errorf("trading: unknown action %q", sig.Action)
	}
}

func (e *Engine) executeBuy(ctx context.Context, sig domain.Signal) (*domain.Trade, error) {
	assetID := sig.Asset.Address
	if _, ok := e.positions[assetID]; ok {
		e.logger.DebugContext(ctx, "buy declined: position exists", slog.String("asset", assetID))
		return nil, nil
	}
	if len(e.positions) >= e.limits.MaxPositions {
		e.logger.WarnContext(ctx, "buy declined: max positions reached",
			slog.String("asset", assetID),
			slog.Int("open", len(e.positions)),
			slog.Int("max", e.limits.MaxPositions),
		)
		return nil, nil
	}

	amount := uint64(float64(e.limits.MaxBuyAmount) * domain.ClampConfidence(sig.Confidence))
	if amount > e.limits.MaxBuyAmount {
		amount = e.limits.MaxBuyAmount
	}
	if amount == 0 {
		e.logger.DebugContext(ctx, "buy declined: zero amount", slog.String("asset", assetID))
		return nil, nil
	}

	if assetID == "" {
		return nil, fmt.Errorf("trading: buy: %w: empty address", domain.ErrInvalidAssetID)
	}
	account, err := e.backend.ResolveHoldingAccount(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("trading: resolve holding account for %s: %w", assetID, err)
	}

	now := e.now().UTC()
	trade := domain.Trade{
		ID:        uuid.New().String(),
		AssetID:   assetID,
		Symbol:    sig.Asset.Symbol,
		Action:    domain.ActionBuy,
		Amount:    amount,
		Price:     sig.Asset.PriceUSD,
		Timestamp: now,
		Source:    sig.Source,
		Reason:    sig.Reason,
	}
	e.trades = append(e.trades, trade)
	e.positions[assetID] = domain.Position{
		AssetID:        assetID,
		Symbol:         sig.Asset.Symbol,
		HoldingAccount: account,
		Amount:         amount,
		EntryPrice:     sig.Asset.PriceUSD,
		EntryTime:      now,
	}
	e.cooldown.Stamp(assetID)

	e.logger.InfoContext(ctx, "buy executed",
		slog.String("asset", assetID),
		slog.String("symbol", sig.Asset.Symbol),
		slog.Uint64("amount", amount),
		slog.Float64("price", trade.Price),
		slog.Float64("confidence", sig.Confidence),
	)
	return &trade, nil
}

func (e *Engine) executeSell(ctx context.Context, sig domain.Signal) (*domain.Trade, error) {
	assetID := sig.Asset.Address
	pos, ok := e.positions[assetID]
	if !ok {
		e.logger.DebugContext(ctx, "sell declined: no position", slog.String("asset", assetID))
		return nil, nil
	}

	amount := e.sellSizer(pos, sig)
	if amount > pos.Amount {
		amount = pos.Amount
	}
	if amount == 0 {
		e.logger.DebugContext(ctx, "sell declined: zero amount", slog.String("asset", assetID))
		return nil, nil
	}

	pnl := domain.RealizedPnL(pos.EntryPrice, sig.Asset.PriceUSD, amount)
	trade := domain.Trade{
		ID:         uuid.New().String(),
		AssetID:    assetID,
		Symbol:     pos.Symbol,
		Action:     domain.ActionSell,
		Amount:     amount,
		Price:      sig.Asset.PriceUSD,
		Timestamp:  e.now().UTC(),
		ProfitLoss: &pnl,
		Source:     sig.Source,
		Reason:     sig.Reason,
	}
	e.trades = append(e.trades, trade)

	closed := amount >= pos.Amount
	if closed {
		delete(e.positions, assetID)
	} else {
		pos.Amount -= amount
		e.positions[assetID] = pos
	}
	e.cooldown.Stamp(assetID)

	e.logger.InfoContext(ctx, "sell executed",
		slog.String("asset", assetID),
		slog.Uint64("amount", amount),
		slog.Float64("price", trade.Price),
		slog.Float64("pnl", pnl),
		slog.Bool("closed", closed),
	)
	return &trade, nil
}

// CheckExitConditions compares every open position against its live price
// and returns a confidence 1.0 sell signal for each one past the profit
// target or stop loss. Positions without a known price are skipped. The
// signals are meant to be fed back through ExecuteSignal.
func (e *Engine) CheckExitConditions(ctx context.Context, prices PriceSource) []domain.Signal {
	var exits []domain.Signal
	for _, pos := range e.Positions() {
		if pos.EntryPrice == 0 {
			continue
		}
		current, ok := prices.LatestPrice(ctx, pos.AssetID)
		if !ok {
			continue
		}
		profit := (current - pos.EntryPrice) / pos.EntryPrice * 100
		loss := (pos.EntryPrice - current) / pos.EntryPrice * 100

		var reason string
		switch {
		case profit >= e.limits.ProfitTargetPercent:
			reason = fmt.Sprintf("Profit target reached: %.2f%%", profit)
		case loss >= e.limits.StopLossPercent:
			reason = fmt.Sprintf("Stop loss triggered: %.2f%%", loss)
		default:
			continue
		}

		symbol := pos.Symbol
		if symbol == "" {
			symbol = "UNKNOWN"
		}
		asset := domain.Asset{
			Address:  pos.AssetID,
			Symbol:   symbol,
			Name:     symbol,
			Decimals: 6,
			PriceUSD: current,
		}
		expected := current
		exits = append(exits, domain.NewSignal(ExitScannerSource, asset, domain.ActionSell, 1.0, reason, &expected))
	}
	return exits
}

// IsDeclined reports whether an ExecuteSignal result means nothing happened.
func IsDeclined(trade *domain.Trade, err error) bool {
	return trade == nil && err == nil
}

// IsInvalidAsset reports whether err stems from a malformed asset identifier.
func IsInvalidAsset(err error) bool {
	return errors.Is(err, domain.ErrInvalidAssetID)
}
