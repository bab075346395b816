package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pumpbot/internal/bot"
	"github.com/alanyoungcy/pumpbot/internal/domain"
)

type fakeBus struct {
	chans map[string]chan []byte
	fail  map[string]bool
}

func newFakeBus() *fakeBus {
	b := &fakeBus{chans: make(map[string]chan []byte), fail: make(map[string]bool)}
	for _, ch := range Channels {
		b.chans[ch] = make(chan []byte, 8)
	}
	return b
}

func (b *fakeBus) Subscribe(_ context.Context, channel string) (<-chan []byte, error) {
	if b.fail[channel] {
		return nil, errors.New("subscribe refused")
	}
	return b.chans[channel], nil
}

type fakeStatus struct{ snap bot.Snapshot }

func (f fakeStatus) Snapshot() bot.Snapshot { return f.snap }

func startHub(t *testing.T, bus *fakeBus, cfg Config) (*Hub, string) {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	hub := NewHub(bus, fakeStatus{snap: bot.Snapshot{
		Running:    true,
		Iterations: 7,
		Positions:  []domain.Position{{AssetID: "mint-a"}},
	}}, cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		_ = hub.Run(ctx)
	}()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(func() {
		cancel()
		<-stopped
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	typ, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, typ)
	var f Frame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

func TestHubSendsStatusOnConnect(t *testing.T) {
	_, url := startHub(t, newFakeBus(), Config{Mode: "paper"})
	conn := dial(t, url)

	f := readFrame(t, conn)
	assert.Equal(t, "bot_status", f.Type)
	var status map[string]any
	require.NoError(t, json.Unmarshal(f.Data, &status))
	assert.Equal(t, "paper", status["mode"])
	assert.Equal(t, true, status["running"])
	assert.EqualValues(t, 7, status["iterations"])
	assert.EqualValues(t, 1, status["positions"])
}

func TestHubRelaysEventsAsJSON(t *testing.T) {
	bus := newFakeBus()
	_, url := startHub(t, bus, Config{})
	conn := dial(t, url)
	readFrame(t, conn) // bot_status

	bus.chans["trades"] <- []byte(`{"event":"trade","symbol":"PUMP"}`)
	f := readFrame(t, conn)
	assert.Equal(t, "event", f.Type)
	assert.Equal(t, "trades", f.Channel)
	assert.JSONEq(t, `{"event":"trade","symbol":"PUMP"}`, string(f.Data))

	bus.chans["alerts"] <- []byte("plain text")
	f = readFrame(t, conn)
	assert.Equal(t, "alerts", f.Channel)
	assert.JSONEq(t, `"plain text"`, string(f.Data))
}

func TestHubSkipsFailedSubscription(t *testing.T) {
	bus := newFakeBus()
	bus.fail["prices"] = true
	_, url := startHub(t, bus, Config{})
	conn := dial(t, url)
	readFrame(t, conn)

	bus.chans["trades"] <- []byte(`{"n":1}`)
	assert.Equal(t, "trades", readFrame(t, conn).Channel)
}

func TestHubRejectsUnknownOrigin(t *testing.T) {
	_, url := startHub(t, newFakeBus(), Config{Origins: []string{"https://app.example.com/"}})

	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "https://APP.example.com")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	conn.Close()
}

func TestClientSubscriptionMessages(t *testing.T) {
	c := &client{subs: map[string]bool{"trades": true, "alerts": true, "prices": true}}

	c.apply(subscribeMsg{Action: "unsubscribe", Channels: []string{"prices", "alerts"}})
	assert.True(t, c.subscribed("trades"))
	assert.False(t, c.subscribed("prices"))
	assert.False(t, c.subscribed("alerts"))

	c.apply(subscribeMsg{Action: "subscribe", Channels: []string{"prices"}})
	assert.True(t, c.subscribed("prices"))

	c.apply(subscribeMsg{Action: "bogus", Channels: []string{"trades"}})
	assert.True(t, c.subscribed("trades"))
}

func TestBroadcastHonoursSubscriptions(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	hub := NewHub(newFakeBus(), fakeStatus{}, Config{}, logger)
	tradesOnly := &client{send: make(chan []byte, 1), subs: map[string]bool{"trades": true}}
	everything := &client{send: make(chan []byte, 2), subs: map[string]bool{"trades": true, "prices": true}}
	hub.clients[tradesOnly] = struct{}{}
	hub.clients[everything] = struct{}{}

	hub.broadcast(event{channel: "prices", data: []byte(`{"price":1.5}`)})
	hub.broadcast(event{channel: "trades", data: []byte(`{"id":"t1"}`)})

	assert.Len(t, tradesOnly.send, 1)
	assert.Len(t, everything.send, 2)

	var f Frame
	require.NoError(t, json.Unmarshal(<-tradesOnly.send, &f))
	assert.Equal(t, "trades", f.Channel)
}
