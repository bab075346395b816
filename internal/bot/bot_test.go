package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pumpbot/internal/domain"
	"github.com/alanyoungcy/pumpbot/internal/monitor"
	"github.com/alanyoungcy/pumpbot/internal/platform/pumpportal"
	"github.com/alanyoungcy/pumpbot/internal/strategy"
	"github.com/alanyoungcy/pumpbot/internal/trading"
)

type fakeMarket struct {
	fresh    []domain.Asset
	trending []domain.Asset
	err      error
	calls    int
}

func (m *fakeMarket) GetNewTokens(context.Context) ([]domain.Asset, error) {
	m.calls++
	return m.fresh, m.err
}

func (m *fakeMarket) GetTrendingTokens(context.Context) ([]domain.Asset, error) {
	m.calls++
	return m.trending, m.err
}

type fakeBackend struct{ invalid map[string]bool }

func (b fakeBackend) ResolveHoldingAccount(_ context.Context, assetID string) (string, error) {
	if b.invalid[assetID] {
		return "", fmt.Errorf("parse mint: %w", domain.ErrInvalidAssetID)
	}
	return "ata-" + assetID, nil
}

type fakeNotifier struct {
	trades   []domain.Trade
	statuses []domain.Metrics
}

func (n *fakeNotifier) NotifyTrade(_ context.Context, t domain.Trade) error {
	n.trades = append(n.trades, t)
	return errors.New("delivery failed")
}

func (n *fakeNotifier) NotifyStatus(_ context.Context, m domain.Metrics) error {
	n.statuses = append(n.statuses, m)
	return nil
}

type fakeUploader struct {
	metrics  []domain.Metrics
	config   [][]byte
	archived int
}

func (u *fakeUploader) SaveState(_ context.Context, m domain.Metrics, cfg []byte) error {
	u.metrics = append(u.metrics, m)
	u.config = append(u.config, cfg)
	return nil
}

func (u *fakeUploader) ArchiveTrades(_ context.Context, trades []domain.Trade, before time.Time) (int64, error) {
	var n int64
	for _, t := range trades {
		if t.Timestamp.Before(before) {
			n++
		}
	}
	u.archived += int(n)
	return n, nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	bot      *Bot
	market   *fakeMarket
	trading  *trading.Engine
	monitor  *monitor.System
	notifier *fakeNotifier
	clock    *clock
}

func momentumAsset(addr string, change, price float64) domain.Asset {
	return domain.Asset{
		Address:        addr,
		Symbol:         "SYM" + addr,
		MarketCap:      2_000_000,
		Holders:        500,
		AgeHours:       2,
		Liquidity:      100,
		Volume24h:      300,
		PriceUSD:       price,
		PriceChange24h: change,
	}
}

func newFixture(t *testing.T, cfg Config, mutate ...func(*Deps)) *fixture {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	clk := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}

	strategies, err := strategy.NewEngine([]strategy.Config{
		{Kind: strategy.KindMomentum, Enabled: true},
	}, logger)
	require.NoError(t, err)

	eng := trading.NewEngine(trading.Limits{
		MaxPositions:        5,
		MaxBuyAmount:        1_000_000_000,
		MaxSellAmount:       1_000_000_000,
		ProfitTargetPercent: 20,
		StopLossPercent:     10,
		Cooldown:            time.Minute,
	}, fakeBackend{invalid: map[string]bool{"bad": true}}, logger, trading.WithClock(clk.now))

	mon := monitor.NewSystem(monitor.Thresholds{
		MaxDrawdownPercent:    20,
		MinDailyProfitPercent: 5,
		MaxDailyLossPercent:   15,
	}, logger, monitor.WithClock(clk.now))

	market := &fakeMarket{}
	notifier := &fakeNotifier{}
	deps := Deps{
		Market:     market,
		Strategies: strategies,
		Tracker:    strategy.NewPriceTracker(time.Hour, 100),
		Trading:    eng,
		Monitor:    mon,
		Notifier:   notifier,
	}
	for _, m := range mutate {
		m(&deps)
	}

	if cfg.Criteria == (pumpportal.Criteria{}) {
		cfg.Criteria = pumpportal.Criteria{
			MinMarketCap: 1_000_000,
			MaxMarketCap: 10_000_000,
			MinHolders:   100,
			MaxAgeHours:  24,
		}
	}
	if cfg.MinConfidence == 0 {
		cfg.MinConfidence = 0.5
	}

	b, err := New(cfg, deps, logger, WithClock(clk.now))
	require.NoError(t, err)
	return &fixture{bot: b, market: market, trading: eng, monitor: mon, notifier: notifier, clock: clk}
}

func TestNewRequiresCoreDeps(t *testing.T) {
	_, err := New(Config{}, Deps{}, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	require.Error(t, err)
}

func TestRunOnceBuysMatchingAsset(t *testing.T) {
	f := newFixture(t, Config{})
	f.market.fresh = []domain.Asset{momentumAsset("a", 80, 1.0)}

	f.bot.RunOnce(t.Context())

	pos, ok := f.trading.Position("a")
	require.True(t, ok)
	assert.Equal(t, uint64(800_000_000), pos.Amount)
	require.Len(t, f.notifier.trades, 1)
	assert.Equal(t, domain.ActionBuy, f.notifier.trades[0].Action)

	snap := f.bot.Snapshot()
	assert.Equal(t, uint64(1), snap.Iterations)
	assert.Len(t, snap.Positions, 1)
	assert.Len(t, snap.Trades, 1)
	assert.Equal(t, 1, snap.Metrics.TotalTrades)
	assert.Equal(t, 1, snap.Metrics.CurrentPositions)
}

func TestRunOnceSkipsFilteredAsset(t *testing.T) {
	f := newFixture(t, Config{})
	tooBig := momentumAsset("a", 80, 1.0)
	tooBig.MarketCap = 50_000_000
	f.market.fresh = []domain.Asset{tooBig}

	f.bot.RunOnce(t.Context())

	assert.Empty(t, f.trading.Positions())
}

func TestRunOnceConfidenceGate(t *testing.T) {
	f := newFixture(t, Config{})
	// Momentum confidence is change/100, so 10% yields 0.1.
	f.market.fresh = []domain.Asset{momentumAsset("a", 10, 1.0)}

	f.bot.RunOnce(t.Context())

	assert.Empty(t, f.trading.Positions())
	assert.Empty(t, f.trading.Trades())
}

func TestRunOnceDryRun(t *testing.T) {
	f := newFixture(t, Config{DryRun: true})
	f.market.fresh = []domain.Asset{momentumAsset("a", 80, 1.0)}

	f.bot.RunOnce(t.Context())

	assert.Empty(t, f.trading.Trades())
	assert.Empty(t, f.notifier.trades)
	assert.True(t, f.bot.Snapshot().DryRun)
}

func TestRunOnceIsolatesAssetFailures(t *testing.T) {
	f := newFixture(t, Config{})
	f.market.fresh = []domain.Asset{
		momentumAsset("bad", 80, 1.0),
		momentumAsset("good", 80, 1.0),
	}

	f.bot.RunOnce(t.Context())

	_, ok := f.trading.Position("bad")
	assert.False(t, ok)
	_, ok = f.trading.Position("good")
	assert.True(t, ok)
}

func TestRunOnceSurvivesMarketError(t *testing.T) {
	f := newFixture(t, Config{})
	f.market.err = errors.New("feed down")

	f.bot.RunOnce(t.Context())
	f.bot.RunOnce(t.Context())

	assert.Equal(t, uint64(2), f.bot.Iterations())
	assert.Equal(t, 2, f.market.calls)
}

func TestRunOnceExitsOnProfitTarget(t *testing.T) {
	f := newFixture(t, Config{})
	f.market.fresh = []domain.Asset{momentumAsset("a", 80, 1.0)}
	f.bot.RunOnce(t.Context())
	require.Len(t, f.trading.Positions(), 1)

	f.clock.advance(2 * time.Minute)
	f.market.fresh = []domain.Asset{momentumAsset("a", 80, 1.5)}
	f.bot.RunOnce(t.Context())

	assert.Empty(t, f.trading.Positions())
	trades := f.trading.Trades()
	require.Len(t, trades, 2)
	sell := trades[1]
	assert.Equal(t, domain.ActionSell, sell.Action)
	assert.Equal(t, trading.ExitScannerSource, sell.Source)
	require.NotNil(t, sell.ProfitLoss)
	assert.InDelta(t, 0.5*800, *sell.ProfitLoss, 1e-9)
	assert.Len(t, f.notifier.trades, 2)
}

func TestRunOnceExitUsesFallbackPrice(t *testing.T) {
	f := newFixture(t, Config{}, func(d *Deps) {
		d.Prices = []trading.PriceSource{staticPrices{"a": 0.8}}
	})
	f.market.fresh = []domain.Asset{momentumAsset("a", 80, 1.0)}
	f.bot.RunOnce(t.Context())

	// Past the tracker window the tracked price is gone and the fallback
	// quote triggers the stop loss.
	f.clock.advance(2 * time.Hour)
	f.market.fresh = nil
	f.bot.RunOnce(t.Context())

	assert.Empty(t, f.trading.Positions())
	trades := f.trading.Trades()
	require.Len(t, trades, 2)
	assert.Contains(t, trades[1].Reason, "Stop loss")
}

func TestRunOnceExitsWhenHeldAssetLeavesFilter(t *testing.T) {
	f := newFixture(t, Config{}, func(d *Deps) {
		d.Prices = []trading.PriceSource{staticPrices{"a": 0.5}}
	})
	f.market.fresh = []domain.Asset{momentumAsset("a", 80, 1.0)}
	f.bot.RunOnce(t.Context())
	require.Len(t, f.trading.Positions(), 1)

	// The crash pushes the market cap below the criteria.
	f.clock.advance(2 * time.Minute)
	crashed := momentumAsset("a", -50, 0.5)
	crashed.MarketCap = 500_000
	f.market.fresh = []domain.Asset{crashed}
	f.bot.RunOnce(t.Context())

	assert.Empty(t, f.trading.Positions())
	trades := f.trading.Trades()
	require.Len(t, trades, 2)
	assert.Contains(t, trades[1].Reason, "Stop loss")
	assert.Equal(t, 0.5, trades[1].Price)
}

func TestRunOnceIgnoresPriceFromEarlierPoll(t *testing.T) {
	f := newFixture(t, Config{}, func(d *Deps) {
		d.Prices = []trading.PriceSource{staticPrices{"a": 0.8}}
	})
	f.market.fresh = []domain.Asset{momentumAsset("a", 80, 1.0)}
	f.bot.RunOnce(t.Context())

	// Still inside the tracker window, but "a" is no longer in the feed.
	f.clock.advance(2 * time.Minute)
	f.market.fresh = nil
	f.bot.RunOnce(t.Context())

	assert.Empty(t, f.trading.Positions())
	trades := f.trading.Trades()
	require.Len(t, trades, 2)
	assert.Contains(t, trades[1].Reason, "Stop loss")
}

func TestTrackerPricesOnlyCurrentPoll(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker := strategy.NewPriceTracker(time.Hour, 10)
	tracker.Track("old", 1.0, now.Add(-time.Minute))
	tracker.Track("fresh", 2.0, now)
	tracker.Track("zero", 0, now)
	src := trackerPrices{tracker: tracker, since: now}

	_, ok := src.LatestPrice(t.Context(), "old")
	assert.False(t, ok)
	p, ok := src.LatestPrice(t.Context(), "fresh")
	require.True(t, ok)
	assert.Equal(t, 2.0, p)
	_, ok = src.LatestPrice(t.Context(), "zero")
	assert.False(t, ok)
	_, ok = src.LatestPrice(t.Context(), "missing")
	assert.False(t, ok)
}

func TestRunOnceSendsStatusOnInterval(t *testing.T) {
	f := newFixture(t, Config{StatusInterval: time.Minute})
	f.bot.RunOnce(t.Context())
	assert.Empty(t, f.notifier.statuses)

	f.clock.advance(time.Minute)
	f.bot.RunOnce(t.Context())
	require.Len(t, f.notifier.statuses, 1)

	f.clock.advance(10 * time.Second)
	f.bot.RunOnce(t.Context())
	assert.Len(t, f.notifier.statuses, 1)
}

type staticPrices map[string]float64

func (p staticPrices) LatestPrice(_ context.Context, assetID string) (float64, bool) {
	v, ok := p[assetID]
	return v, ok
}

func TestPriceChainOrder(t *testing.T) {
	chain := priceChain{nil, staticPrices{"a": 1}, staticPrices{"a": 2, "b": 3}}

	p, ok := chain.LatestPrice(t.Context(), "a")
	require.True(t, ok)
	assert.Equal(t, 1.0, p)

	p, ok = chain.LatestPrice(t.Context(), "b")
	require.True(t, ok)
	assert.Equal(t, 3.0, p)

	_, ok = chain.LatestPrice(t.Context(), "c")
	assert.False(t, ok)
}

func TestFetchBothFeedsDeduplicates(t *testing.T) {
	f := newFixture(t, Config{Feed: FeedBoth})
	f.market.fresh = []domain.Asset{momentumAsset("a", 80, 1.0)}
	f.market.trending = []domain.Asset{momentumAsset("a", 90, 2.0), momentumAsset("b", 80, 1.0)}

	assets, err := f.bot.fetch(t.Context())
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, 1.0, assets[0].PriceUSD)
	assert.Equal(t, "b", assets[1].Address)
}

func TestAcknowledgeAlert(t *testing.T) {
	f := newFixture(t, Config{})
	assert.False(t, f.bot.AcknowledgeAlert(t.Context(), "missing"))

	loss := -20.0
	f.trading.Restore(nil, []domain.Trade{{ID: "t1", AssetID: "a", Action: domain.ActionSell, ProfitLoss: &loss, Timestamp: f.clock.now()}})
	f.bot.RunOnce(t.Context())

	alerts := f.bot.Alerts()
	require.NotEmpty(t, alerts)
	assert.True(t, f.bot.AcknowledgeAlert(t.Context(), alerts[0].ID))
	assert.True(t, f.bot.Alerts()[0].Acknowledged)
}

func TestSaveStateWritesFilesAndUploads(t *testing.T) {
	dir := t.TempDir()
	uploader := &fakeUploader{}
	cfg := Config{State: StateConfig{
		MetricsPath:      filepath.Join(dir, "state", "metrics.json"),
		ConfigBackupPath: filepath.Join(dir, "state", "config_backup.toml"),
		ArchiveAfter:     time.Hour,
	}}
	f := newFixture(t, cfg, func(d *Deps) {
		d.Backup = uploader
		d.ConfigSnapshot = func() ([]byte, error) { return []byte("mode = \"paper\"\n"), nil }
	})
	f.market.fresh = []domain.Asset{momentumAsset("a", 80, 1.0)}
	f.bot.RunOnce(t.Context())
	f.clock.advance(2 * time.Hour)

	require.NoError(t, f.bot.SaveState(t.Context()))

	data, err := os.ReadFile(cfg.State.MetricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"total_trades": 1`)

	backup, err := os.ReadFile(cfg.State.ConfigBackupPath)
	require.NoError(t, err)
	assert.Equal(t, "mode = \"paper\"\n", string(backup))

	require.Len(t, uploader.metrics, 1)
	assert.Equal(t, 1, uploader.metrics[0].TotalTrades)
	assert.Equal(t, 1, uploader.archived)
}

func TestRestoreReloadsMetrics(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metrics.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"total_trades": 7, "win_rate": 42.5}`), 0o600))

	f := newFixture(t, Config{State: StateConfig{MetricsPath: path}})
	require.NoError(t, f.bot.Restore(t.Context()))

	m := f.bot.Snapshot().Metrics
	assert.Equal(t, 7, m.TotalTrades)
	assert.Equal(t, 42.5, m.WinRate)
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture(t, Config{RefreshInterval: 5 * time.Millisecond})
	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, f.bot.Run(ctx))
	assert.False(t, f.bot.Running())
	assert.GreaterOrEqual(t, f.bot.Iterations(), uint64(1))
}

func TestStopEndsRun(t *testing.T) {
	f := newFixture(t, Config{RefreshInterval: 5 * time.Millisecond})
	done := make(chan error, 1)
	go func() { done <- f.bot.Run(t.Context()) }()

	require.Eventually(t, func() bool { return f.bot.Iterations() > 0 }, time.Second, time.Millisecond)
	f.bot.Stop()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestAlertLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelError, alertLogLevel(domain.AlertCritical))
	assert.Equal(t, slog.LevelError, alertLogLevel(domain.AlertError))
	assert.Equal(t, slog.LevelWarn, alertLogLevel(domain.AlertWarning))
	assert.Equal(t, slog.LevelInfo, alertLogLevel(domain.AlertInfo))
}
