package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/pumpbot/internal/domain"
)

// AlertService journals raised alerts and their acknowledgement.
type AlertService struct {
	alerts domain.AlertStore
	bus    domain.EventBus
	logger *slog.Logger
}

// NewAlertService creates an AlertService. Either dependency may be nil.
func NewAlertService(alerts domain.AlertStore, bus domain.EventBus, logger *slog.Logger) *AlertService {
	return &AlertService{
		alerts: alerts,
		bus:    bus,
		logger: logger.With(slog.String("component", "alert_service")),
	}
}

// Record persists and publishes each alert. Failures are logged.
func (s *AlertService) Record(ctx context.Context, alerts []domain.Alert) {
	for _, a := range alerts {
		if s.alerts != nil {
			if err := s.alerts.Insert(ctx, a); err != nil {
				s.logger.WarnContext(ctx, "insert alert failed",
					slog.String("id", a.ID),
					slog.String("error", err.Error()),
				)
			}
		}
		if s.bus != nil {
			evt, _ := json.Marshal(a)
			if err := s.bus.Publish(ctx, ChannelAlerts, evt); err != nil {
				s.logger.WarnContext(ctx, "publish alert failed",
					slog.String("id", a.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// Acknowledge marks the stored alert as acknowledged.
func (s *AlertService) Acknowledge(ctx context.Context, id string) error {
	if s.alerts == nil {
		return nil
	}
	if err := s.alerts.Acknowledge(ctx, id); err != nil {
		return fmt.Errorf("alert_service: acknowledge %s: %w", id, err)
	}
	return nil
}

// Recent returns the newest stored alerts, or nil without a store.
func (s *AlertService) Recent(ctx context.Context, limit int) ([]domain.Alert, error) {
	if s.alerts == nil {
		return nil, nil
	}
	out, err := s.alerts.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("alert_service: list recent: %w", err)
	}
	return out, nil
}
