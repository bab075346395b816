package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/alanyoungcy/pumpbot/internal/crypto"
	"github.com/alanyoungcy/pumpbot/internal/domain"
)

const timeLayout = time.RFC3339

// WebhookPayload is the body posted to a generic alert webhook.
type WebhookPayload struct {
	Text       string          `json:"text"`
	Timestamp  string          `json:"timestamp"`
	BotMetrics *domain.Metrics `json:"bot_metrics,omitempty"`
}

// WebhookSender posts alerts to an arbitrary HTTP endpoint.
type WebhookSender struct {
	url    string
	client *http.Client
	signer *crypto.PayloadSigner
	now    func() time.Time
}

// NewWebhookSender creates a WebhookSender posting to url. A non-empty
// secret adds HMAC signature headers to every request.
func NewWebhookSender(url, secret string) *WebhookSender {
	w := &WebhookSender{url: url, client: newHTTPClient(), now: time.Now}
	if secret != "" {
		w.signer = crypto.NewPayloadSigner(secret)
	}
	return w
}

func (w *WebhookSender) post(ctx context.Context, payload WebhookPayload) error {
	if w.signer == nil {
		return postJSON(ctx, w.client, w.Name(), w.url, payload)
	}
	return postJSON(ctx, w.client, w.Name(), w.url, payload, w.signer.Headers)
}

// Send posts a non-alert message. bot_metrics is omitted.
func (w *WebhookSender) Send(ctx context.Context, title, message string) error {
	return w.post(ctx, WebhookPayload{
		Text:      fmt.Sprintf("%s: %s", title, message),
		Timestamp: w.now().UTC().Format(timeLayout),
	})
}

// SendAlert posts {text, timestamp, bot_metrics} with text "[Level] message".
func (w *WebhookSender) SendAlert(ctx context.Context, alert domain.Alert, m domain.Metrics) error {
	return w.post(ctx, WebhookPayload{
		Text:       fmt.Sprintf("[%s] %s", alert.Level, alert.Message),
		Timestamp:  alert.Timestamp.UTC().Format(timeLayout),
		BotMetrics: &m,
	})
}

// Name returns the sender identifier.
func (w *WebhookSender) Name() string { return "webhook" }
