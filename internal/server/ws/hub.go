// Package ws streams bot events to WebSocket clients as JSON text frames.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/pumpbot/internal/bot"
	"github.com/alanyoungcy/pumpbot/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must stay below pongWait
	maxMessageSize = 4096
	sendBufferSize = 256
)

// Event channels relayed to clients. They match the channels the services
// publish on.
var Channels = []string{"trades", "alerts", "prices"}

// StatusSource reports the bot state sent to each client on connect.
type StatusSource interface {
	Snapshot() bot.Snapshot
}

// Config holds the hub settings.
type Config struct {
	Mode string
	// Origins lists the browser origins allowed to connect. Empty or "*"
	// admits every origin.
	Origins []string
}

// Frame is the envelope of every message written to a client.
type Frame struct {
	Type    string          `json:"type"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data"`
}

// subscribeMsg is the JSON message a client sends to change its channels.
type subscribeMsg struct {
	Action   string   `json:"action"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

type event struct {
	channel string
	data    []byte
}

// Hub fans events from the event bus out to connected clients.
type Hub struct {
	bus      domain.EventSubscriber
	status   StatusSource
	mode     string
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}

	events     chan event
	register   chan *client
	unregister chan *client
	done       chan struct{} // closed when Run returns
}

// NewHub creates a Hub relaying events from bus.
func NewHub(bus domain.EventSubscriber, status StatusSource, cfg Config, logger *slog.Logger) *Hub {
	h := &Hub{
		bus:        bus,
		status:     status,
		mode:       cfg.Mode,
		logger:     logger.With(slog.String("component", "ws")),
		clients:    make(map[*client]struct{}),
		events:     make(chan event, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.Origins),
	}
	return h
}

// originChecker admits requests without an Origin header (non-browser
// clients) and browser requests from the configured origins.
func originChecker(origins []string) func(*http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		o = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(o)), "/")
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			allowed[o] = struct{}{}
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		_, ok := allowed[strings.TrimSuffix(strings.ToLower(origin), "/")]
		return ok
	}
}

// Run subscribes to every event channel and serves clients until ctx is
// done. Channels that fail to subscribe are logged and skipped.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for _, ch := range Channels {
		msgs, err := h.bus.Subscribe(ctx, ch)
		if err != nil {
			h.logger.ErrorContext(ctx, "subscribe failed",
				slog.String("channel", ch),
				slog.String("error", err.Error()),
			)
			continue
		}
		go h.relay(ctx, ch, msgs)
	}

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return nil

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client connected", slog.Int("clients", n))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client disconnected", slog.Int("clients", n))

		case e := <-h.events:
			h.broadcast(e)
		}
	}
}

func (h *Hub) relay(ctx context.Context, channel string, msgs <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-msgs:
			if !ok {
				h.logger.Warn("subscription closed", slog.String("channel", channel))
				return
			}
			select {
			case h.events <- event{channel: channel, data: data}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (h *Hub) broadcast(e event) {
	frame, err := encodeFrame("event", e.channel, e.data)
	if err != nil {
		h.logger.Warn("drop malformed event",
			slog.String("channel", e.channel),
			slog.String("error", err.Error()),
		)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.subscribed(e.channel) {
			continue
		}
		select {
		case c.send <- frame:
		default:
			h.logger.Warn("dropping event for slow client", slog.String("channel", e.channel))
		}
	}
}

// encodeFrame wraps a JSON payload in a Frame. Payloads that are not valid
// JSON are sent as a JSON string.
func encodeFrame(typ, channel string, data []byte) ([]byte, error) {
	raw := json.RawMessage(data)
	if !json.Valid(data) {
		quoted, err := json.Marshal(string(data))
		if err != nil {
			return nil, err
		}
		raw = quoted
	}
	return json.Marshal(Frame{Type: typ, Channel: channel, Data: raw})
}

// HandleWS upgrades the request and registers the client. Clients start
// subscribed to every channel.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		subs: make(map[string]bool, len(Channels)),
	}
	for _, ch := range Channels {
		c.subs[ch] = true
	}
	c.send <- h.statusFrame()

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// statusFrame describes the bot at connect time.
func (h *Hub) statusFrame() []byte {
	s := h.status.Snapshot()
	data, _ := json.Marshal(map[string]any{
		"mode":       h.mode,
		"running":    s.Running,
		"dry_run":    s.DryRun,
		"iterations": s.Iterations,
		"positions":  len(s.Positions),
		"win_rate":   s.Metrics.WinRate,
		"total_pnl":  s.Metrics.TotalProfitLoss,
	})
	frame, _ := encodeFrame("bot_status", "", data)
	return frame
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu   sync.RWMutex
	subs map[string]bool
}

func (c *client) subscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subs[channel]
}

func (c *client) apply(msg subscribeMsg) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range msg.Channels {
		switch msg.Action {
		case "subscribe":
			c.subs[ch] = true
		case "unsubscribe":
			delete(c.subs, ch)
		}
	}
}

// readPump handles subscription messages and pong frames until the
// connection fails.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("unexpected close", slog.String("error", err.Error()))
			}
			return
		}
		var msg subscribeMsg
		if err := json.Unmarshal(message, &msg); err == nil && msg.Action != "" {
			c.apply(msg)
		}
	}
}

// writePump writes queued frames as text messages and pings the client
// every pingPeriod.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
