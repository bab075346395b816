package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/alanyoungcy/pumpbot/internal/domain"
)

var discordLevelColors = map[domain.AlertLevel]int{
	domain.AlertInfo:     0x3498db,
	domain.AlertWarning:  0xf1c40f,
	domain.AlertError:    0xe67e22,
	domain.AlertCritical: 0xe74c3c,
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordEmbed struct {
	Title     string              `json:"title"`
	Color     int                 `json:"color"`
	Timestamp string              `json:"timestamp"`
	Fields    []discordEmbedField `json:"fields,omitempty"`
}

// DiscordSender delivers notifications via a Discord webhook.
type DiscordSender struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordSender creates a DiscordSender for the given webhook URL.
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{webhookURL: webhookURL, client: newHTTPClient()}
}

// Send posts a plain message with the title in bold.
func (d *DiscordSender) Send(ctx context.Context, title, message string) error {
	return postJSON(ctx, d.client, d.Name(), d.webhookURL, map[string]string{
		"content": fmt.Sprintf("**%s**\n%s", title, message),
	})
}

// SendAlert posts the alert as an embed colored by level, with the headline
// metrics attached as fields.
func (d *DiscordSender) SendAlert(ctx context.Context, alert domain.Alert, m domain.Metrics) error {
	embed := discordEmbed{
		Title:     fmt.Sprintf("[%s] %s", alert.Level, alert.Message),
		Color:     discordLevelColors[alert.Level],
		Timestamp: alert.Timestamp.Format(timeLayout),
		Fields: []discordEmbedField{
			{Name: "Total P&L", Value: fmt.Sprintf("%.4f", m.TotalProfitLoss), Inline: true},
			{Name: "Win rate", Value: fmt.Sprintf("%.2f%%", m.WinRate), Inline: true},
			{Name: "Max drawdown", Value: fmt.Sprintf("%.4f", m.MaxDrawdown), Inline: true},
			{Name: "Trades", Value: fmt.Sprintf("%d", m.TotalTrades), Inline: true},
			{Name: "Positions", Value: fmt.Sprintf("%d", m.CurrentPositions), Inline: true},
		},
	}
	return postJSON(ctx, d.client, d.Name(), d.webhookURL, map[string]any{
		"embeds": []discordEmbed{embed},
	})
}

// Name returns the sender identifier.
func (d *DiscordSender) Name() string { return "discord" }
