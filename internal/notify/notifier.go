// Package notify fans bot events out to operator channels (Telegram,
// Discord, generic webhooks). Events can be filtered by type so operators
// receive only what they care about.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/pumpbot/internal/domain"
)

// Event types accepted by the filter.
const (
	EventTrade  = "trade"
	EventAlert  = "alert"
	EventStatus = "status"
)

// Sender is implemented by every notification channel.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// AlertSender is implemented by senders with a richer alert format.
type AlertSender interface {
	SendAlert(ctx context.Context, alert domain.Alert, metrics domain.Metrics) error
}

// Notifier dispatches notifications to one or more Senders. Only event types
// in the allowed set are forwarded; an empty set allows everything.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier for senders, filtered by events.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Enabled reports whether any sender is configured.
func (n *Notifier) Enabled() bool { return len(n.senders) > 0 }

func (n *Notifier) allowed(ctx context.Context, event string) bool {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out", slog.String("event", event))
		return false
	}
	return true
}

// Notify sends a plain notification for event.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if !n.allowed(ctx, event) {
		return nil
	}
	return n.dispatch(ctx, title, func(s Sender) error {
		return s.Send(ctx, title, message)
	})
}

// NotifyTrade announces an executed trade.
func (n *Notifier) NotifyTrade(ctx context.Context, t domain.Trade) error {
	title := fmt.Sprintf("%s %s", strings.ToUpper(string(t.Action)), t.Symbol)
	msg := fmt.Sprintf("asset %s amount %d at $%.8f", t.AssetID, t.Amount, t.Price)
	if t.ProfitLoss != nil {
		msg += fmt.Sprintf(" (P&L %.4f)", *t.ProfitLoss)
	}
	if t.Reason != "" {
		msg += "\n" + t.Reason
	}
	return n.Notify(ctx, EventTrade, title, msg)
}

// NotifyStatus sends the periodic status summary.
func (n *Notifier) NotifyStatus(ctx context.Context, m domain.Metrics) error {
	msg := fmt.Sprintf("trades %d, win rate %.2f%%, P&L %.4f, open positions %d, uptime %ds",
		m.TotalTrades, m.WinRate, m.TotalProfitLoss, m.CurrentPositions, m.UptimeSeconds)
	return n.Notify(ctx, EventStatus, "Status", msg)
}

// DeliverAlert sends alert to every sender, using the richer alert format
// where a sender supports it.
func (n *Notifier) DeliverAlert(ctx context.Context, alert domain.Alert, metrics domain.Metrics) error {
	if !n.allowed(ctx, EventAlert) {
		return nil
	}
	title := fmt.Sprintf("[%s] alert", alert.Level)
	return n.dispatch(ctx, title, func(s Sender) error {
		if as, ok := s.(AlertSender); ok {
			return as.SendAlert(ctx, alert, metrics)
		}
		return s.Send(ctx, title, alert.Message)
	})
}

// dispatch calls send for every sender. A failing sender does not stop
// delivery to the rest; failures are combined into one error.
func (n *Notifier) dispatch(ctx context.Context, title string, send func(Sender) error) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := send(s); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
