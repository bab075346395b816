package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/sync/errgroup"

	s3blob "github.com/alanyoungcy/pumpbot/internal/blob/s3"
	"github.com/alanyoungcy/pumpbot/internal/bot"
	"github.com/alanyoungcy/pumpbot/internal/config"
	"github.com/alanyoungcy/pumpbot/internal/domain"
	"github.com/alanyoungcy/pumpbot/internal/monitor"
	"github.com/alanyoungcy/pumpbot/internal/platform/pumpportal"
	platsolana "github.com/alanyoungcy/pumpbot/internal/platform/solana"
	"github.com/alanyoungcy/pumpbot/internal/server"
	"github.com/alanyoungcy/pumpbot/internal/server/handler"
	"github.com/alanyoungcy/pumpbot/internal/server/ws"
	"github.com/alanyoungcy/pumpbot/internal/service"
	"github.com/alanyoungcy/pumpbot/internal/strategy"
	"github.com/alanyoungcy/pumpbot/internal/trading"
)

// executionBackend is what the trade and paper modes run the engine on.
type executionBackend interface {
	trading.Backend
	Balance(ctx context.Context) (uint64, error)
	Wallet() solana.PublicKey
}

// TradeMode runs the loop against the live Solana backend.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode")

	key, err := loadWallet(a.cfg.Wallet, a.logger)
	if err != nil {
		return err
	}
	backend := platsolana.NewBackend(a.cfg.Wallet.RPCURL, key, a.cfg.Wallet.Commitment, a.logger)
	return a.runBot(ctx, deps, backend)
}

// PaperMode runs the loop with simulated fills: positions are tracked in
// memory and no transaction is sent.
func (a *App) PaperMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting paper mode")

	var owner solana.PublicKey
	key, err := loadWallet(a.cfg.Wallet, a.logger)
	if err != nil {
		owner = solana.NewWallet().PublicKey()
		a.logger.WarnContext(ctx, "paper mode: no wallet, using an ephemeral address",
			slog.String("pubkey", owner.String()),
			slog.String("error", err.Error()),
		)
	} else {
		owner = key.PublicKey()
	}
	backend := platsolana.NewPaperBackend(owner, a.cfg.Wallet.PaperBalance)
	return a.runBot(ctx, deps, backend)
}

// MonitorMode restores the persisted state and serves it over HTTP without
// running the trading loop.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	backend := platsolana.NewPaperBackend(solana.PublicKey{}, 0)
	parts, err := a.buildBot(ctx, deps, backend, nil)
	if err != nil {
		return err
	}
	a.restore(ctx, deps, parts)

	g, ctx := errgroup.WithContext(ctx)
	if !a.startHTTPServer(ctx, g, deps, parts) {
		a.logger.WarnContext(ctx, "monitor mode with the server disabled has nothing to do")
	}
	g.Go(func() error {
		<-ctx.Done()
		return nil
	})
	return g.Wait()
}

// runBot holds the wallet lock (when redis is configured), restores state
// and runs the loop, the HTTP server and the lock refresher together.
func (a *App) runBot(ctx context.Context, deps *Dependencies, backend executionBackend) error {
	lockKey := "wallet:" + backend.Wallet().String()
	lockTTL := a.cfg.Redis.LockTTL.Duration
	if deps.LockManager != nil {
		unlock, err := deps.LockManager.Acquire(ctx, lockKey, lockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				return fmt.Errorf("app: another instance is trading wallet %s: %w", backend.Wallet(), err)
			}
			return fmt.Errorf("app: acquire wallet lock: %w", err)
		}
		a.closers = append(a.closers, unlock)
		a.logger.InfoContext(ctx, "wallet lock acquired", slog.String("key", lockKey))
	}

	parts, err := a.buildBot(ctx, deps, backend, backend)
	if err != nil {
		return err
	}
	a.restore(ctx, deps, parts)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return parts.bot.Run(ctx)
	})
	if deps.LockManager != nil {
		g.Go(func() error {
			return refreshLock(ctx, deps.LockManager, lockKey, lockTTL, a.logger)
		})
	}
	a.startHTTPServer(ctx, g, deps, parts)

	return g.Wait()
}

// refreshLock extends the lock every third of its TTL until ctx ends. Losing
// the lock is fatal: another instance may have taken over the wallet.
func refreshLock(ctx context.Context, lm domain.LockManager, key string, ttl time.Duration, logger *slog.Logger) error {
	interval := ttl / 3
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := lm.Refresh(ctx, key, ttl); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.ErrorContext(ctx, "wallet lock refresh failed",
					slog.String("key", key),
					slog.String("error", err.Error()),
				)
				return fmt.Errorf("app: lost wallet lock: %w", err)
			}
		}
	}
}

// botParts are the pieces of a built loop the modes need access to.
type botParts struct {
	bot        *bot.Bot
	monitor    *monitor.System
	active     []strategy.Config
	strategies *service.StrategyService
	alerts     *service.AlertService
}

func (a *App) buildBot(ctx context.Context, deps *Dependencies, backend trading.Backend, wallet bot.Wallet) (*botParts, error) {
	cfg := a.cfg
	logger := a.logger

	strategySvc := service.NewStrategyService(deps.StratCfgStore, logger)
	active, err := strategySvc.Resolve(ctx, cfg.Strategies)
	if err != nil {
		return nil, fmt.Errorf("app: resolve strategies: %w", err)
	}
	strategies, err := strategy.NewEngine(active, logger)
	if err != nil {
		return nil, fmt.Errorf("app: strategy engine: %w", err)
	}

	var tradingOpts []trading.Option
	if cfg.Trading.CapSells {
		tradingOpts = append(tradingOpts, trading.WithSellSizer(trading.CappedSellSizer(cfg.Trading.MaxSellAmount)))
	}
	engine := trading.NewEngine(trading.Limits{
		MaxPositions:        cfg.Trading.MaxPositions,
		MaxBuyAmount:        cfg.Trading.MaxBuyAmount,
		MaxSellAmount:       cfg.Trading.MaxSellAmount,
		ProfitTargetPercent: cfg.Trading.ProfitTargetPercent,
		StopLossPercent:     cfg.Trading.StopLossPercent,
		Cooldown:            cfg.Trading.Cooldown.Duration,
	}, backend, logger, tradingOpts...)

	var monOpts []monitor.Option
	if deps.Notifier != nil && deps.Notifier.Enabled() {
		monOpts = append(monOpts, monitor.WithSink(deps.Notifier))
	}
	mon := monitor.NewSystem(monitor.Thresholds{
		MaxDrawdownPercent:    cfg.Monitoring.AlertThresholds.MaxDrawdownPercent,
		MinDailyProfitPercent: cfg.Monitoring.AlertThresholds.MinDailyProfitPercent,
		MaxDailyLossPercent:   cfg.Monitoring.AlertThresholds.MaxDailyLossPercent,
	}, logger, monOpts...)

	market := pumpportal.NewClient(cfg.PumpPortal.APIURL, cfg.PumpPortal.APIKey, cfg.PumpPortal.Timeout.Duration)

	botDeps := bot.Deps{
		Market:     market,
		Strategies: strategies,
		Tracker:    strategy.NewPriceTracker(cfg.PriceHistory.Window.Duration, cfg.PriceHistory.MaxPoints),
		Trading:    engine,
		Monitor:    mon,
		Wallet:     wallet,
		ConfigSnapshot: func() ([]byte, error) {
			return config.Marshal(cfg)
		},
	}
	if deps.PriceCache != nil {
		botDeps.Prices = append(botDeps.Prices, deps.PriceCache)
		botDeps.PriceLog = service.NewPriceService(deps.PriceCache, deps.EventBus, logger)
	}
	botDeps.Prices = append(botDeps.Prices, market)

	if cfg.Monitoring.SaveTrades || deps.EventBus != nil {
		var trades domain.TradeStore
		var positions domain.PositionStore
		if cfg.Monitoring.SaveTrades {
			trades, positions = deps.TradeStore, deps.PositionStore
		}
		botDeps.Trades = service.NewTradeService(trades, positions, deps.EventBus, deps.AuditStore, logger)
	}
	alertSvc := service.NewAlertService(deps.AlertStore, deps.EventBus, logger)
	botDeps.Alerts = alertSvc
	if deps.Notifier != nil && deps.Notifier.Enabled() {
		botDeps.Notifier = deps.Notifier
	}
	if deps.Backup != nil {
		botDeps.Backup = deps.Backup
	}

	b, err := bot.New(bot.Config{
		Feed: cfg.PumpPortal.Feed,
		Criteria: pumpportal.Criteria{
			MinMarketCap: cfg.PumpPortal.MinMarketCap,
			MaxMarketCap: cfg.PumpPortal.MaxMarketCap,
			MinHolders:   cfg.PumpPortal.MinHolders,
			MaxAgeHours:  cfg.PumpPortal.MaxAgeHours,
		},
		RefreshInterval: cfg.PumpPortal.RefreshInterval.Duration,
		StatusInterval:  cfg.Monitoring.StatusInterval.Duration,
		SaveInterval:    cfg.State.SaveInterval.Duration,
		MinConfidence:   cfg.Trading.MinConfidence,
		DryRun:          cfg.DryRun,
		State: bot.StateConfig{
			MetricsPath:      cfg.State.MetricsPath,
			ConfigBackupPath: cfg.State.ConfigBackupPath,
			ArchiveAfter:     cfg.State.ArchiveAfter.Duration,
		},
	}, botDeps, logger)
	if err != nil {
		return nil, fmt.Errorf("app: build bot: %w", err)
	}

	logger.InfoContext(ctx, "bot built",
		slog.Int("strategies", len(active)),
		slog.String("feed", cfg.PumpPortal.Feed),
		slog.Bool("dry_run", cfg.DryRun),
		slog.Bool("notifications", botDeps.Notifier != nil),
	)
	return &botParts{bot: b, monitor: mon, active: strategies.Configs(), strategies: strategySvc, alerts: alertSvc}, nil
}

// restore seeds the monitor from the blob backup, then lets the bot reload
// persisted positions, trades and the local metrics file. Failures leave
// the bot starting from empty state.
func (a *App) restore(ctx context.Context, deps *Dependencies, parts *botParts) {
	if deps.BlobReader != nil && deps.Backup != nil {
		m, err := s3blob.LoadMetrics(ctx, deps.BlobReader, deps.Backup.MetricsPath())
		switch {
		case err == nil:
			parts.monitor.SetMetrics(m)
		case errors.Is(err, domain.ErrNotFound):
		default:
			a.logger.WarnContext(ctx, "load metrics backup failed", slog.String("error", err.Error()))
		}
	}
	if err := parts.bot.Restore(ctx); err != nil {
		a.logger.WarnContext(ctx, "restore state failed, starting empty", slog.String("error", err.Error()))
	}
}

// startHTTPServer registers the API server with g when it is enabled and
// reports whether it did.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, parts *botParts) bool {
	if !a.cfg.Server.Enabled {
		return false
	}
	logger := a.logger

	var history handler.AlertHistory
	if deps.AlertStore != nil {
		history = parts.alerts
	}
	var strategyStore handler.StrategyStore
	if deps.StratCfgStore != nil {
		strategyStore = parts.strategies
	}

	var stream http.HandlerFunc
	if sub, ok := deps.EventBus.(domain.EventSubscriber); ok {
		hub := ws.NewHub(sub, parts.bot, ws.Config{
			Mode:    a.cfg.Mode,
			Origins: a.cfg.Server.CORSOrigins,
		}, logger)
		g.Go(func() error { return hub.Run(ctx) })
		stream = hub.HandleWS
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		Limiter:     deps.RateLimiter,
	}, server.Handlers{
		Health:     handler.NewHealthHandler(deps.HealthChecks, logger),
		Status:     handler.NewStatusHandler(a.cfg.Mode, parts.bot, logger),
		Positions:  handler.NewPositionHandler(parts.bot),
		Alerts:     handler.NewAlertHandler(parts.bot, history, logger),
		Strategies: handler.NewStrategyHandler(parts.active, strategyStore, logger),
		Audit:      handler.NewAuditHandler(deps.AuditStore, logger),
		WS:         stream,
	}, logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
	return true
}
