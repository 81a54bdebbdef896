package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/louisbranch/bloomy/internal/platform/timeouts"
	"github.com/louisbranch/bloomy/internal/services/notifications/domain"
	"go.uber.org/zap"
)

const (
	defaultClientBuffer = 16
	maxInboundMessage   = 512
)

// ErrHubClosed is returned when delivering to a closed hub.
var ErrHubClosed = errors.New("websocket hub closed")

// Event is the frame pushed to websocket subscribers.
type Event struct {
	Type         string              `json:"type"`
	Notification domain.Notification `json:"notification"`
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub pushes notifications to connected websocket clients. Each client has
// one writer goroutine draining a buffered channel; a client whose buffer
// is full is disconnected instead of blocking delivery.
type Hub struct {
	upgrader websocket.Upgrader
	buffer   int
	logger   *zap.Logger

	mu      sync.Mutex
	clients map[*hubClient]struct{}
	closed  bool
	conns   sync.WaitGroup
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithHubLogger sets the hub logger.
func WithHubLogger(logger *zap.Logger) HubOption {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithOriginCheck replaces the upgrader origin check.
func WithOriginCheck(check func(*http.Request) bool) HubOption {
	return func(h *Hub) {
		if check != nil {
			h.upgrader.CheckOrigin = check
		}
	}
}

// WithClientBuffer sets how many frames may queue per client.
func WithClientBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// NewHub builds an empty hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		buffer:  defaultClientBuffer,
		logger:  zap.NewNop(),
		clients: make(map[*hubClient]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name implements Sink.
func (*Hub) Name() string { return "websocket" }

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams notifications until the client
// disconnects or the hub closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &hubClient{conn: conn, send: make(chan []byte, h.buffer)}
	if !h.add(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(timeouts.WebsocketWrite))
		_ = conn.Close()
		return
	}
	defer h.conns.Done()

	written := make(chan struct{})
	go func() {
		defer close(written)
		h.writeLoop(c)
	}()
	h.readLoop(c)
	h.remove(c)
	<-written
}

// Deliver implements Sink by broadcasting n to every client.
func (h *Hub) Deliver(_ context.Context, n domain.Notification) error {
	frame, err := json.Marshal(Event{Type: "notification", Notification: n})
	if err != nil {
		return fmt.Errorf("encode websocket event: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	for c := range h.clients {
		select {
		case c.send <- frame:
		default:
			h.logger.Warn("websocket client too slow, disconnecting")
			h.removeLocked(c)
		}
	}
	return nil
}

// Close disconnects every client and waits for their handlers to return.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
	h.mu.Unlock()
	h.conns.Wait()
}

func (h *Hub) add(c *hubClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.conns.Add(1)
	return true
}

func (h *Hub) remove(c *hubClient) {
	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

// removeLocked closes the client's queue; its writer then sends a close
// frame and drops the connection.
func (h *Hub) removeLocked(c *hubClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) writeLoop(c *hubClient) {
	defer c.conn.Close()
	for frame := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(timeouts.WebsocketWrite))
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			h.logger.Debug("websocket write failed", zap.Error(err))
			h.remove(c)
			for range c.send {
			}
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(timeouts.WebsocketWrite))
}

// readLoop discards inbound frames; it exists to observe disconnects.
func (h *Hub) readLoop(c *hubClient) {
	c.conn.SetReadLimit(maxInboundMessage)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket closed unexpectedly", zap.Error(err))
			}
			return
		}
	}
}
