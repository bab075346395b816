package monitor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pumpbot/internal/domain"
)

func pl(v float64) *float64 { return &v }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type recordingSink struct {
	alerts []domain.Alert
	err    error
}

func (r *recordingSink) DeliverAlert(_ context.Context, a domain.Alert, _ domain.Metrics) error {
	r.alerts = append(r.alerts, a)
	return r.err
}

var t0 = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

func TestComputeMetricsEmpty(t *testing.T) {
	m := ComputeMetrics(nil, nil, t0, t0.Add(90*time.Second))
	assert.Equal(t, 0, m.TotalTrades)
	assert.Equal(t, 0.0, m.WinRate)
	assert.Equal(t, 0.0, m.MaxDrawdown)
	assert.Equal(t, uint64(90), m.UptimeSeconds)
}

func TestComputeMetrics(t *testing.T) {
	trades := []domain.Trade{
		{Action: domain.ActionBuy, Amount: 100},
		{Action: domain.ActionSell, Amount: 100, ProfitLoss: pl(10)},
		{Action: domain.ActionSell, Amount: 50, ProfitLoss: pl(-4)},
		{Action: domain.ActionSell, Amount: 50, ProfitLoss: pl(-8)},
		{Action: domain.ActionSell, Amount: 25, ProfitLoss: pl(6)},
		{Action: domain.ActionSell, Amount: 25, ProfitLoss: pl(0)},
	}
	positions := []domain.Position{{AssetID: "a"}}

	m := ComputeMetrics(trades, positions, t0, t0)
	assert.Equal(t, 6, m.TotalTrades)
	assert.Equal(t, 2, m.WinningTrades)
	assert.Equal(t, 2, m.LosingTrades)
	assert.Equal(t, 1, m.CurrentPositions)
	assert.Equal(t, uint64(350), m.TotalVolumeTraded)
	assert.InDelta(t, 4.0, m.TotalProfitLoss, 1e-9)
	assert.InDelta(t, 2.0/6.0*100, m.WinRate, 1e-9)
	assert.InDelta(t, 8.0, m.AverageProfit, 1e-9)
	assert.InDelta(t, 6.0, m.AverageLoss, 1e-9)
	// running: 10, 6, -2, 4, 4 with peak 10
	assert.InDelta(t, 12.0, m.MaxDrawdown, 1e-9)
}

func TestMaxDrawdownStartsAtZeroPeak(t *testing.T) {
	trades := []domain.Trade{{ProfitLoss: pl(-3)}, {ProfitLoss: pl(-2)}, {ProfitLoss: pl(1)}}
	assert.InDelta(t, 5.0, MaxDrawdown(trades), 1e-9)
}

func TestUpdateIdempotent(t *testing.T) {
	sys := NewSystem(Thresholds{MaxDrawdownPercent: 100, MaxDailyLossPercent: 100}, discardLogger(),
		WithClock(func() time.Time { return t0 }))
	trades := []domain.Trade{{Amount: 1, ProfitLoss: pl(5)}, {Amount: 1, ProfitLoss: pl(-7)}}

	sys.Update(context.Background(), trades, nil)
	first := sys.Metrics()
	sys.Update(context.Background(), trades, nil)
	assert.Equal(t, first, sys.Metrics())
	assert.Equal(t, len(trades), sys.Metrics().TotalTrades)
}

func TestAlertRules(t *testing.T) {
	sink := &recordingSink{}
	sys := NewSystem(Thresholds{MaxDrawdownPercent: 20, MaxDailyLossPercent: 15}, discardLogger(),
		WithClock(func() time.Time { return t0 }), WithSink(sink))

	var trades []domain.Trade
	for i := 0; i < 11; i++ {
		trades = append(trades, domain.Trade{Amount: 1, ProfitLoss: pl(-3)})
	}
	raised := sys.Update(context.Background(), trades, nil)
	require.Len(t, raised, 3)

	assert.Equal(t, domain.AlertWarning, raised[0].Level)
	assert.Equal(t, "Max drawdown exceeded: 33.00% (threshold: 20.00%)", raised[0].Message)
	assert.Equal(t, domain.AlertError, raised[1].Level)
	assert.Equal(t, "Daily loss exceeded: 33.00% (threshold: 15.00%)", raised[1].Message)
	assert.Equal(t, domain.AlertWarning, raised[2].Level)
	assert.Equal(t, "Low win rate: 0.00%", raised[2].Message)
	assert.Len(t, sink.alerts, 3)

	sys.Update(context.Background(), trades, nil)
	assert.Len(t, sys.Alerts(), 6)
}

func TestNoAlertsWhenHealthy(t *testing.T) {
	sys := NewSystem(Thresholds{MaxDrawdownPercent: 20, MaxDailyLossPercent: 15}, discardLogger())
	trades := []domain.Trade{{ProfitLoss: pl(2)}, {ProfitLoss: pl(-1)}}
	assert.Empty(t, sys.Update(context.Background(), trades, nil))
}

func TestSinkFailureSwallowed(t *testing.T) {
	sink := &recordingSink{err: errors.New("boom")}
	sys := NewSystem(Thresholds{MaxDrawdownPercent: 1, MaxDailyLossPercent: 100}, discardLogger(), WithSink(sink))
	raised := sys.Update(context.Background(), []domain.Trade{{ProfitLoss: pl(5)}, {ProfitLoss: pl(-5)}}, nil)
	require.Len(t, raised, 1)
	assert.Len(t, sys.Alerts(), 1)
}

func TestAcknowledge(t *testing.T) {
	sys := NewSystem(Thresholds{MaxDrawdownPercent: 1, MaxDailyLossPercent: 100}, discardLogger())
	raised := sys.Update(context.Background(), []domain.Trade{{ProfitLoss: pl(5)}, {ProfitLoss: pl(-5)}}, nil)
	require.Len(t, raised, 1)

	assert.Len(t, sys.Unacknowledged(), 1)
	assert.True(t, sys.Acknowledge(raised[0].ID))
	assert.Empty(t, sys.Unacknowledged())
	assert.Len(t, sys.Alerts(), 1)
	assert.True(t, sys.Alerts()[0].Acknowledged)
	assert.False(t, sys.Acknowledge("missing"))
}

func TestSaveLoadMetrics(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metrics.json")

	sys := NewSystem(Thresholds{MaxDrawdownPercent: 100, MaxDailyLossPercent: 100}, discardLogger(),
		WithClock(func() time.Time { return t0 }))
	sys.Update(context.Background(), []domain.Trade{{Amount: 7, ProfitLoss: pl(1.5)}}, nil)
	require.NoError(t, sys.SaveMetrics(path))

	other := NewSystem(Thresholds{}, discardLogger())
	require.NoError(t, other.LoadMetrics(path))
	assert.Equal(t, sys.Metrics().TotalVolumeTraded, other.Metrics().TotalVolumeTraded)
	assert.True(t, sys.Metrics().LastUpdated.Equal(other.Metrics().LastUpdated))

	before := other.Metrics()
	require.NoError(t, other.LoadMetrics(filepath.Join(dir, "missing.json")))
	assert.Equal(t, before, other.Metrics())

	var buf bytes.Buffer
	require.NoError(t, sys.WriteMetrics(&buf))
	assert.Contains(t, buf.String(), `"total_trades": 1`)
}
