// Package bot runs the polling loop: fetch candidate assets, evaluate the
// strategies, execute signals, scan open positions for exits and refresh
// the monitoring metrics.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alanyoungcy/pumpbot/internal/domain"
	"github.com/alanyoungcy/pumpbot/internal/monitor"
	"github.com/alanyoungcy/pumpbot/internal/platform/pumpportal"
	"github.com/alanyoungcy/pumpbot/internal/service"
	"github.com/alanyoungcy/pumpbot/internal/strategy"
	"github.com/alanyoungcy/pumpbot/internal/trading"
)

// Feeds accepted by Config.Feed.
const (
	FeedNew      = "new"
	FeedTrending = "trending"
	FeedBoth     = "both"
)

// MarketData lists candidate assets.
type MarketData interface {
	GetNewTokens(ctx context.Context) ([]domain.Asset, error)
	GetTrendingTokens(ctx context.Context) ([]domain.Asset, error)
}

// Notifier announces executed trades and the periodic status.
type Notifier interface {
	NotifyTrade(ctx context.Context, t domain.Trade) error
	NotifyStatus(ctx context.Context, m domain.Metrics) error
}

// Wallet reports the trading wallet's balance.
type Wallet interface {
	Balance(ctx context.Context) (uint64, error)
}

// Config holds the loop's tunables.
type Config struct {
	Feed            string
	Criteria        pumpportal.Criteria
	RefreshInterval time.Duration
	StatusInterval  time.Duration
	SaveInterval    time.Duration
	MinConfidence   float64
	DryRun          bool
	State           StateConfig
}

// Deps are the collaborators of a Bot. Market, Strategies, Tracker, Trading
// and Monitor are required; everything else is optional.
type Deps struct {
	Market     MarketData
	Strategies *strategy.Engine
	Tracker    *strategy.PriceTracker
	Trading    *trading.Engine
	Monitor    *monitor.System

	// Live price sources for exit scanning, asked after the prices observed
	// in the current poll.
	Prices   []trading.PriceSource
	Trades   *service.TradeService
	PriceLog *service.PriceService
	Alerts   *service.AlertService
	Notifier Notifier
	Wallet   Wallet
	Backup   StateUploader
	// ConfigSnapshot returns the encoded configuration for backups.
	ConfigSnapshot func() ([]byte, error)
}

// Snapshot is a read-only view of the engine state published after every
// iteration.
type Snapshot struct {
	Positions  []domain.Position `json:"positions"`
	Trades     []domain.Trade    `json:"trades"`
	Metrics    domain.Metrics    `json:"metrics"`
	Iterations uint64            `json:"iterations"`
	LastRun    time.Time         `json:"last_run"`
	DryRun     bool              `json:"dry_run"`
	Running    bool              `json:"running"`
}

// Bot drives one iteration at a time. All engine mutations happen inside
// RunOnce, which holds a mutex so at most one iteration is in flight.
type Bot struct {
	cfg    Config
	deps   Deps
	now    func() time.Time
	logger *slog.Logger

	iterMu     sync.Mutex
	iterations uint64
	lastStatus time.Time
	lastSave   time.Time

	running atomic.Bool
	snap    atomic.Pointer[Snapshot]
}

// Option configures a Bot.
type Option func(*Bot)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(b *Bot) { b.now = now }
}

// New creates a Bot.
func New(cfg Config, deps Deps, logger *slog.Logger, opts ...Option) (*Bot, error) {
	if deps.Market == nil || deps.Strategies == nil || deps.Tracker == nil || deps.Trading == nil || deps.Monitor == nil {
		return nil, errors.New("bot: market, strategies, tracker, trading and monitor are required")
	}
	if cfg.Feed == "" {
		cfg.Feed = FeedNew
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 5 * time.Second
	}

	b := &Bot{
		cfg:    cfg,
		deps:   deps,
		now:    time.Now,
		logger: logger.With(slog.String("component", "bot")),
	}
	for _, opt := range opts {
		opt(b)
	}

	start := b.now()
	b.lastStatus = start
	b.lastSave = start
	b.publish()
	return b, nil
}

// Restore reloads persisted positions and trades into the trading engine and
// the last metrics snapshot into the monitor.
func (b *Bot) Restore(ctx context.Context) error {
	b.iterMu.Lock()
	defer b.iterMu.Unlock()

	if b.deps.Trades != nil {
		positions, trades, err := b.deps.Trades.Restore(ctx)
		if err != nil {
			return fmt.Errorf("bot: restore: %w", err)
		}
		b.deps.Trading.Restore(positions, trades)
		b.logger.InfoContext(ctx, "restored engine state",
			slog.Int("positions", len(positions)),
			slog.Int("trades", len(trades)),
		)
	}
	if path := b.cfg.State.MetricsPath; path != "" {
		if err := b.deps.Monitor.LoadMetrics(path); err != nil {
			b.logger.WarnContext(ctx, "load metrics snapshot failed", slog.String("error", err.Error()))
		}
	}
	b.publish()
	return nil
}

// Run loops until ctx is cancelled or Stop is called. Per-iteration errors
// are logged and never end the loop. The state is saved on the way out.
func (b *Bot) Run(ctx context.Context) error {
	b.running.Store(true)
	defer b.running.Store(false)

	b.logger.InfoContext(ctx, "starting trading bot",
		slog.Bool("dry_run", b.cfg.DryRun),
		slog.String("feed", b.cfg.Feed),
		slog.Duration("refresh_interval", b.cfg.RefreshInterval),
	)
	if b.deps.Trades != nil {
		b.deps.Trades.Audit(ctx, "bot_started", map[string]any{"dry_run": b.cfg.DryRun})
	}

	for b.running.Load() {
		b.RunOnce(ctx)

		select {
		case <-ctx.Done():
			b.shutdown()
			return nil
		case <-time.After(b.cfg.RefreshInterval):
		}
	}

	b.shutdown()
	return nil
}

func (b *Bot) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := b.SaveState(ctx); err != nil {
		b.logger.Error("save state on shutdown failed", slog.String("error", err.Error()))
	}
	if b.deps.Trades != nil {
		b.deps.Trades.Audit(ctx, "bot_stopped", map[string]any{"iterations": b.Iterations()})
	}
	b.logger.Info("trading bot stopped")
}

// Stop asks Run to return after the current iteration.
func (b *Bot) Stop() {
	b.running.Store(false)
}

// Running reports whether Run is looping.
func (b *Bot) Running() bool { return b.running.Load() }

// Iterations returns the number of completed iterations.
func (b *Bot) Iterations() uint64 {
	if s := b.snap.Load(); s != nil {
		return s.Iterations
	}
	return 0
}

// Snapshot returns the state published after the last iteration.
func (b *Bot) Snapshot() Snapshot {
	var out Snapshot
	if s := b.snap.Load(); s != nil {
		out = *s
	}
	out.Running = b.running.Load()
	return out
}

// Alerts returns the full alert history.
func (b *Bot) Alerts() []domain.Alert {
	return b.deps.Monitor.Alerts()
}

// AcknowledgeAlert marks an alert as seen. It reports false for an unknown
// id.
func (b *Bot) AcknowledgeAlert(ctx context.Context, id string) bool {
	if !b.deps.Monitor.Acknowledge(id) {
		return false
	}
	if b.deps.Alerts != nil {
		if err := b.deps.Alerts.Acknowledge(ctx, id); err != nil {
			b.logger.WarnContext(ctx, "persist acknowledgement failed",
				slog.String("id", id),
				slog.String("error", err.Error()),
			)
		}
	}
	return true
}

// Balance returns the wallet balance in lamports.
func (b *Bot) Balance(ctx context.Context) (uint64, error) {
	if b.deps.Wallet == nil {
		return 0, errors.New("bot: no wallet configured")
	}
	return b.deps.Wallet.Balance(ctx)
}

// RunOnce performs a single iteration: prune stale prices and cooldowns,
// fetch, evaluate, execute, check exits, execute exits, update metrics.
func (b *Bot) RunOnce(ctx context.Context) {
	b.iterMu.Lock()
	defer b.iterMu.Unlock()

	now := b.now()
	if removed := b.deps.Tracker.Prune(now); removed > 0 {
		b.logger.DebugContext(ctx, "pruned price history", slog.Int("removed", removed))
	}
	if removed := b.deps.Trading.PruneCooldowns(); removed > 0 {
		b.logger.DebugContext(ctx, "pruned cooldowns", slog.Int("removed", removed))
	}

	if err := b.checkNewAssets(ctx, now); err != nil {
		b.logger.ErrorContext(ctx, "error checking new tokens", slog.String("error", err.Error()))
	}
	b.checkExits(ctx, now)
	b.updateMonitoring(ctx)

	b.iterations++
	b.publish()

	if b.cfg.StatusInterval > 0 && now.Sub(b.lastStatus) >= b.cfg.StatusInterval {
		b.logStatus(ctx)
		b.lastStatus = now
	}
	if b.cfg.SaveInterval > 0 && now.Sub(b.lastSave) >= b.cfg.SaveInterval {
		if err := b.saveState(ctx); err != nil {
			b.logger.ErrorContext(ctx, "save state failed", slog.String("error", err.Error()))
		}
		b.lastSave = now
	}
}

func (b *Bot) fetch(ctx context.Context) ([]domain.Asset, error) {
	switch b.cfg.Feed {
	case FeedTrending:
		return b.deps.Market.GetTrendingTokens(ctx)
	case FeedBoth:
		fresh, err := b.deps.Market.GetNewTokens(ctx)
		if err != nil {
			return nil, err
		}
		trending, err := b.deps.Market.GetTrendingTokens(ctx)
		if err != nil {
			b.logger.WarnContext(ctx, "trending feed failed", slog.String("error", err.Error()))
			return fresh, nil
		}
		return mergeAssets(fresh, trending), nil
	default:
		return b.deps.Market.GetNewTokens(ctx)
	}
}

// mergeAssets concatenates lists, keeping the first snapshot of each address.
func mergeAssets(lists ...[]domain.Asset) []domain.Asset {
	seen := make(map[string]bool)
	var out []domain.Asset
	for _, l := range lists {
		for _, a := range l {
			if seen[a.Address] {
				continue
			}
			seen[a.Address] = true
			out = append(out, a)
		}
	}
	return out
}

// checkNewAssets records the price of every fetched snapshot, held tokens
// that no longer match the criteria included, then trades the matches.
func (b *Bot) checkNewAssets(ctx context.Context, now time.Time) error {
	assets, err := b.fetch(ctx)
	if err != nil {
		return err
	}

	for _, a := range assets {
		if a.PriceUSD > 0 {
			b.deps.Tracker.Track(a.Address, a.PriceUSD, now)
		}
	}
	if b.deps.PriceLog != nil {
		b.deps.PriceLog.Observe(ctx, assets, now)
	}

	filtered := pumpportal.Filter(assets, b.cfg.Criteria)
	b.logger.InfoContext(ctx, "found new tokens matching criteria",
		slog.Int("fetched", len(assets)),
		slog.Int("matched", len(filtered)),
	)

	for _, a := range filtered {
		if err := b.analyzeAndTrade(ctx, a); err != nil {
			b.logger.ErrorContext(ctx, "error analyzing token",
				slog.String("asset", a.Address),
				slog.String("symbol", a.Symbol),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

func (b *Bot) analyzeAndTrade(ctx context.Context, a domain.Asset) error {
	b.logger.DebugContext(ctx, "analyzing token",
		slog.String("asset", a.Address),
		slog.String("symbol", a.Symbol),
	)

	signals := b.deps.Strategies.Evaluate(a)
	if len(signals) == 0 {
		b.logger.DebugContext(ctx, "no trading signals", slog.String("symbol", a.Symbol))
		return nil
	}

	for _, sig := range signals {
		if sig.Confidence < b.cfg.MinConfidence {
			b.logger.DebugContext(ctx, "low confidence signal",
				slog.String("symbol", a.Symbol),
				slog.Float64("confidence", sig.Confidence),
			)
			continue
		}

		b.logger.InfoContext(ctx, "executing signal",
			slog.String("action", string(sig.Action)),
			slog.String("symbol", a.Symbol),
			slog.String("source", sig.Source),
			slog.String("reason", sig.Reason),
			slog.Float64("confidence", sig.Confidence),
		)
		if err := b.execute(ctx, sig); err != nil {
			return err
		}
	}
	return nil
}

// checkExits prices open positions from this poll's observations first and
// the live sources after.
func (b *Bot) checkExits(ctx context.Context, polledAt time.Time) {
	prices := append(priceChain{trackerPrices{tracker: b.deps.Tracker, since: polledAt}}, b.deps.Prices...)
	exits := b.deps.Trading.CheckExitConditions(ctx, prices)
	for _, sig := range exits {
		b.logger.InfoContext(ctx, "exit condition triggered",
			slog.String("asset", sig.Asset.Address),
			slog.String("reason", sig.Reason),
		)
		if err := b.execute(ctx, sig); err != nil {
			b.logger.ErrorContext(ctx, "exit trade failed",
				slog.String("asset", sig.Asset.Address),
				slog.String("error", err.Error()),
			)
		}
	}
}

// execute routes a signal through the trading engine, or only logs it in
// dry-run mode.
func (b *Bot) execute(ctx context.Context, sig domain.Signal) error {
	if b.cfg.DryRun {
		b.logger.InfoContext(ctx, "dry run: would execute trade",
			slog.String("action", string(sig.Action)),
			slog.String("asset", sig.Asset.Address),
		)
		return nil
	}

	trade, err := b.deps.Trading.ExecuteSignal(ctx, sig)
	if err != nil {
		return err
	}
	if trade == nil {
		return nil
	}
	b.logger.InfoContext(ctx, "trade executed",
		slog.String("trade_id", trade.ID),
		slog.String("action", string(trade.Action)),
		slog.String("symbol", trade.Symbol),
		slog.Uint64("amount", trade.Amount),
		slog.Float64("price", trade.Price),
	)
	b.afterTrade(ctx, *trade)
	return nil
}

// afterTrade runs the best-effort side effects of a trade.
func (b *Bot) afterTrade(ctx context.Context, t domain.Trade) {
	if b.deps.Trades != nil {
		var pos *domain.Position
		if p, ok := b.deps.Trading.Position(t.AssetID); ok {
			pos = &p
		}
		if err := b.deps.Trades.Record(ctx, t, pos); err != nil {
			b.logger.WarnContext(ctx, "journal trade failed",
				slog.String("trade_id", t.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	if b.deps.Notifier != nil {
		if err := b.deps.Notifier.NotifyTrade(ctx, t); err != nil {
			b.logger.WarnContext(ctx, "trade notification failed",
				slog.String("trade_id", t.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (b *Bot) updateMonitoring(ctx context.Context) {
	raised := b.deps.Monitor.Update(ctx, b.deps.Trading.Trades(), b.deps.Trading.Positions())
	if b.deps.Alerts != nil && len(raised) > 0 {
		b.deps.Alerts.Record(ctx, raised)
	}

	for _, a := range b.deps.Monitor.Unacknowledged() {
		b.logger.Log(ctx, alertLogLevel(a.Level), strings.ToUpper(a.Level.String())+" alert",
			slog.String("id", a.ID),
			slog.String("message", a.Message),
		)
	}
}

func alertLogLevel(l domain.AlertLevel) slog.Level {
	switch l {
	case domain.AlertCritical, domain.AlertError:
		return slog.LevelError
	case domain.AlertWarning:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

func (b *Bot) logStatus(ctx context.Context) {
	m := b.deps.Monitor.Metrics()
	positions := b.deps.Trading.Positions()

	b.logger.InfoContext(ctx, "status",
		slog.Int("trades", m.TotalTrades),
		slog.Float64("win_rate", m.WinRate),
		slog.Float64("pnl", m.TotalProfitLoss),
		slog.Int("positions", len(positions)),
		slog.Int("tracked_assets", b.deps.Tracker.Len()),
		slog.Uint64("uptime_seconds", m.UptimeSeconds),
	)
	for _, p := range positions {
		b.logger.InfoContext(ctx, "open position",
			slog.String("asset", p.AssetID),
			slog.String("symbol", p.Symbol),
			slog.Uint64("amount", p.Amount),
			slog.Float64("entry_price", p.EntryPrice),
			slog.Float64("avg_price", b.deps.Tracker.Average(p.AssetID)),
			slog.Float64("volatility", b.deps.Tracker.Volatility(p.AssetID)),
		)
	}

	if b.deps.Notifier != nil {
		if err := b.deps.Notifier.NotifyStatus(ctx, m); err != nil {
			b.logger.WarnContext(ctx, "status notification failed", slog.String("error", err.Error()))
		}
	}
}

func (b *Bot) publish() {
	b.snap.Store(&Snapshot{
		Positions:  b.deps.Trading.Positions(),
		Trades:     b.deps.Trading.Trades(),
		Metrics:    b.deps.Monitor.Metrics(),
		Iterations: b.iterations,
		LastRun:    b.now().UTC(),
		DryRun:     b.cfg.DryRun,
	})
}
