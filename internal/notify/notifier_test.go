package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pumpbot/internal/crypto"
	"github.com/alanyoungcy/pumpbot/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestWebhookSenderAlertPayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ts := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)
	alert := domain.Alert{ID: "a1", Level: domain.AlertWarning, Message: "Low win rate: 20.00%", Timestamp: ts}
	metrics := domain.Metrics{TotalTrades: 12, WinRate: 20}

	n := NewNotifier([]Sender{NewWebhookSender(srv.URL, "")}, nil, discardLogger())
	require.NoError(t, n.DeliverAlert(context.Background(), alert, metrics))

	assert.Equal(t, "[Warning] Low win rate: 20.00%", got["text"])
	assert.Equal(t, "2025-06-01T10:30:00Z", got["timestamp"])
	bm, ok := got["bot_metrics"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 12, bm["total_trades"])
}

func TestDispatchCollectsFailures(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ok.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer bad.Close()

	n := NewNotifier([]Sender{NewDiscordSender(ok.URL), NewWebhookSender(bad.URL, "")}, nil, discardLogger())
	err := n.Notify(context.Background(), EventStatus, "status", "running")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 sender(s) failed")
	assert.Contains(t, err.Error(), "webhook")
}

func TestEventFilter(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier([]Sender{NewWebhookSender(srv.URL, "")}, []string{EventAlert}, discardLogger())
	pnl := 1.5
	require.NoError(t, n.NotifyTrade(context.Background(), domain.Trade{Action: domain.ActionSell, ProfitLoss: &pnl}))
	assert.Equal(t, int32(0), hits.Load())

	require.NoError(t, n.DeliverAlert(context.Background(), domain.Alert{Level: domain.AlertError}, domain.Metrics{}))
	assert.Equal(t, int32(1), hits.Load())
}

func TestDiscordAlertEmbed(t *testing.T) {
	var body struct {
		Embeds []discordEmbed `json:"embeds"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDiscordSender(srv.URL)
	alert := domain.Alert{Level: domain.AlertCritical, Message: "down", Timestamp: time.Now()}
	require.NoError(t, d.SendAlert(context.Background(), alert, domain.Metrics{TotalTrades: 3}))
	require.Len(t, body.Embeds, 1)
	assert.Equal(t, "[Critical] down", body.Embeds[0].Title)
	assert.Equal(t, 0xe74c3c, body.Embeds[0].Color)
}

func TestTelegramSendMessage(t *testing.T) {
	var path string
	var payload map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tg := NewTelegramSender("tok", "42")
	tg.baseURL = srv.URL
	require.NoError(t, tg.Send(context.Background(), "Hello", "world"))
	assert.Equal(t, "/bottok/sendMessage", path)
	assert.Equal(t, "42", payload["chat_id"])
	assert.True(t, strings.HasPrefix(payload["text"], "*Hello*"))
}

func TestNoSendersIsNoop(t *testing.T) {
	n := NewNotifier(nil, nil, discardLogger())
	assert.False(t, n.Enabled())
	assert.NoError(t, n.DeliverAlert(context.Background(), domain.Alert{}, domain.Metrics{}))
}

func TestWebhookSignature(t *testing.T) {
	var sig, ts string
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sig = r.Header.Get(crypto.SignatureHeader)
		ts = r.Header.Get(crypto.TimestampHeader)
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, NewWebhookSender(srv.URL, "k").Send(context.Background(), "t", "m"))
	require.NotEmpty(t, sig)
	assert.True(t, crypto.NewPayloadSigner("k").Verify(ts, body, sig))
}

func TestNotifyStatus(t *testing.T) {
	var got WebhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier([]Sender{NewWebhookSender(srv.URL, "")}, []string{EventStatus}, discardLogger())
	m := domain.Metrics{TotalTrades: 4, WinRate: 50, TotalProfitLoss: 1.25, CurrentPositions: 2, UptimeSeconds: 90}
	require.NoError(t, n.NotifyStatus(context.Background(), m))

	assert.Equal(t, "Status: trades 4, win rate 50.00%, P&L 1.2500, open positions 2, uptime 90s", got.Text)
}
