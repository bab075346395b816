// Package monitor recomputes trading metrics from engine state, raises
// threshold alerts and hands them to a notification sink.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/pumpbot/internal/domain"
)

const (
	lowWinRateMinTrades = 10
	lowWinRatePercent   = 30.0
)

// AlertSink receives every raised alert together with the metrics that
// triggered it.
type AlertSink interface {
	DeliverAlert(ctx context.Context, alert domain.Alert, metrics domain.Metrics) error
}

// Thresholds configures the alert rules.
type Thresholds struct {
	MaxDrawdownPercent    float64
	MinDailyProfitPercent float64
	MaxDailyLossPercent   float64
}

// Option configures a System.
type Option func(*System)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *System) { s.now = now }
}

// WithSink sets the alert sink. Without one, alerts are only recorded.
func WithSink(sink AlertSink) Option {
	return func(s *System) { s.sink = sink }
}

// System holds the latest Metrics and the append-only alert history. It is
// safe for concurrent use: the loop calls Update while readers query
// metrics and acknowledge alerts.
type System struct {
	thresholds Thresholds
	sink       AlertSink
	start      time.Time
	now        func() time.Time
	logger     *slog.Logger

	mu      sync.RWMutex
	metrics domain.Metrics
	alerts  []domain.Alert
}

// NewSystem creates a System whose uptime counts from construction.
func NewSystem(thresholds Thresholds, logger *slog.Logger, opts ...Option) *System {
	s := &System{
		thresholds: thresholds,
		now:        time.Now,
		logger:     logger.With(slog.String("component", "monitor")),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.start = s.now().UTC()
	s.metrics.LastUpdated = s.start
	return s
}

// Update recomputes Metrics from scratch, evaluates the alert rules and
// delivers any raised alerts. It returns the alerts raised by this call.
func (s *System) Update(ctx context.Context, trades []domain.Trade, positions []domain.Position) []domain.Alert {
	now := s.now().UTC()
	m := ComputeMetrics(trades, positions, s.start, now)
	raised := s.evaluate(m, now)

	s.mu.Lock()
	s.metrics = m
	s.alerts = append(s.alerts, raised...)
	s.mu.Unlock()

	for _, a := range raised {
		s.logger.WarnContext(ctx, "alert raised",
			slog.String("id", a.ID),
			slog.String("level", a.Level.String()),
			slog.String("message", a.Message),
		)
		if s.sink == nil {
			continue
		}
		if err := s.sink.DeliverAlert(ctx, a, m); err != nil {
			s.logger.ErrorContext(ctx, "alert delivery failed",
				slog.String("id", a.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	return raised
}

func (s *System) evaluate(m domain.Metrics, now time.Time) []domain.Alert {
	var raised []domain.Alert
	add := func(level domain.AlertLevel, msg string) {
		raised = append(raised, domain.Alert{
			ID:        uuid.New().String(),
			Level:     level,
			Message:   msg,
			Timestamp: now,
		})
	}

	if m.MaxDrawdown > s.thresholds.MaxDrawdownPercent {
		add(domain.AlertWarning, fmt.Sprintf("Max drawdown exceeded: %.2f%% (threshold: %.2f%%)",
			m.MaxDrawdown, s.thresholds.MaxDrawdownPercent))
	}
	// The daily loss rule compares all-time cumulative P&L.
	if m.TotalProfitLoss < -s.thresholds.MaxDailyLossPercent {
		add(domain.AlertError, fmt.Sprintf("Daily loss exceeded: %.2f%% (threshold: %.2f%%)",
			math.Abs(m.TotalProfitLoss), s.thresholds.MaxDailyLossPercent))
	}
	if m.TotalTrades > lowWinRateMinTrades && m.WinRate < lowWinRatePercent {
		add(domain.AlertWarning, fmt.Sprintf("Low win rate: %.2f%%", m.WinRate))
	}
	return raised
}

// Metrics returns the most recently computed Metrics.
func (s *System) Metrics() domain.Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metrics
}

// SetMetrics replaces the current Metrics, for restoring a saved snapshot.
func (s *System) SetMetrics(m domain.Metrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m
}

// Alerts returns a copy of the full alert history.
func (s *System) Alerts() []domain.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Alert, len(s.alerts))
	copy(out, s.alerts)
	return out
}

// Unacknowledged returns the alerts not yet acknowledged.
func (s *System) Unacknowledged() []domain.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Alert
	for _, a := range s.alerts {
		if !a.Acknowledged {
			out = append(out, a)
		}
	}
	return out
}

// Acknowledge marks the alert with id as acknowledged. It reports whether
// the alert exists.
func (s *System) Acknowledge(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.alerts {
		if s.alerts[i].ID == id {
			s.alerts[i].Acknowledged = true
			return true
		}
	}
	return false
}
