package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"event-booking-backend/internal/model"
)

// Message is the envelope written to websocket clients.
type Message struct {
	Type         string              `json:"type"` // "notification" or "state"
	Event        EventKind           `json:"event,omitempty"`
	Notification *model.Notification `json:"notification,omitempty"`
	State        *model.BookingState `json:"state,omitempty"`
}

const (
	// writeWait bounds a single write to a client.
	writeWait = 10 * time.Second
	// sendBuffer is how many messages may queue up for one client before it
	// is considered too slow and dropped.
	sendBuffer = 32
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// writePump drains the client's queue. It owns every write to conn.
func (c *client) writePump() {
	defer c.conn.Close()
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// Hub fans booking updates out to connected websocket clients. Broadcasts
// never wait on the network: each client has its own queue and writer.
type Hub struct {
	upgrader websocket.Upgrader
	log      *zap.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub creates a hub. checkOrigin may be nil to accept every origin.
func NewHub(log *zap.Logger, checkOrigin func(r *http.Request) bool) *Hub {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
		log:      log.Named("ws"),
		clients:  make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the connection and keeps it registered until the client
// goes away. Incoming messages are ignored.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.Debug("client connected", zap.String("remote", conn.RemoteAddr().String()))

	go c.writePump()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	h.drop(c)
	h.mu.Unlock()
	conn.Close()
}

// drop unregisters c and stops its writer. It must be called with h.mu held.
func (h *Hub) drop(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues msg for every client. Clients whose queue is full are
// disconnected instead of being waited on.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to encode websocket message", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.log.Warn("client too slow, disconnecting", zap.String("remote", c.conn.RemoteAddr().String()))
			h.drop(c)
			c.conn.Close()
		}
	}
}

// BroadcastState sends a state update.
func (h *Hub) BroadcastState(state model.BookingState) {
	h.Broadcast(Message{Type: "state", State: &state})
}

// Run forwards queue events to clients until ctx is done or events closes.
func (h *Hub) Run(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			n := ev.Notification
			h.Broadcast(Message{Type: "notification", Event: ev.Kind, Notification: &n})
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.drop(c)
		c.conn.Close()
	}
}
