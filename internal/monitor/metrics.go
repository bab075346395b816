package monitor

import (
	"math"
	"time"

	"github.com/alanyoungcy/pumpbot/internal/domain"
)

// ComputeMetrics derives Metrics from the full trade history and the open
// position set. Trades without a realized P&L count toward totals and volume
// but are neither wins nor losses.
func ComputeMetrics(trades []domain.Trade, positions []domain.Position, start, now time.Time) domain.Metrics {
	m := domain.Metrics{
		TotalTrades:      len(trades),
		CurrentPositions: len(positions),
		LastUpdated:      now,
	}
	if up := now.Sub(start); up > 0 {
		m.UptimeSeconds = uint64(up / time.Second)
	}

	var wins, losses float64
	for _, t := range trades {
		m.TotalVolumeTraded += t.Amount
		if t.ProfitLoss == nil {
			continue
		}
		pl := *t.ProfitLoss
		m.TotalProfitLoss += pl
		switch {
		case pl > 0:
			m.WinningTrades++
			wins += pl
		case pl < 0:
			m.LosingTrades++
			losses += pl
		}
	}

	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100
	}
	if m.WinningTrades > 0 {
		m.AverageProfit = wins / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AverageLoss = math.Abs(losses) / float64(m.LosingTrades)
	}
	m.MaxDrawdown = MaxDrawdown(trades)
	return m
}

// MaxDrawdown walks the cumulative realized P&L in history order and returns
// the largest gap between a running peak (starting at 0) and the current
// cumulative value.
func MaxDrawdown(trades []domain.Trade) float64 {
	var peak, running, maxDD float64
	for _, t := range trades {
		if t.ProfitLoss == nil {
			continue
		}
		running += *t.ProfitLoss
		if running > peak {
			peak = running
		}
		if dd := peak - running; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
