package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/alanyoungcy/pumpbot/internal/domain"
)

const telegramAPI = "https://api.telegram.org"

// TelegramSender delivers notifications via the Telegram Bot API.
type TelegramSender struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
}

// NewTelegramSender creates a TelegramSender for the given bot token and chat
// ID.
func NewTelegramSender(token, chatID string) *TelegramSender {
	return &TelegramSender{
		token:   token,
		chatID:  chatID,
		baseURL: telegramAPI,
		client:  newHTTPClient(),
	}
}

// Send posts a Markdown message with the title in bold.
func (t *TelegramSender) Send(ctx context.Context, title, message string) error {
	return t.sendMessage(ctx, fmt.Sprintf("*%s*\n%s", title, message))
}

// SendAlert posts the alert followed by a one-line metrics summary.
func (t *TelegramSender) SendAlert(ctx context.Context, alert domain.Alert, m domain.Metrics) error {
	text := fmt.Sprintf("*[%s]* %s\nP&L %.4f | win %.2f%% | dd %.4f | trades %d | open %d",
		alert.Level, alert.Message, m.TotalProfitLoss, m.WinRate, m.MaxDrawdown, m.TotalTrades, m.CurrentPositions)
	return t.sendMessage(ctx, text)
}

func (t *TelegramSender) sendMessage(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	return postJSON(ctx, t.client, t.Name(), url, map[string]string{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	})
}

// Name returns the sender identifier.
func (t *TelegramSender) Name() string { return "telegram" }
