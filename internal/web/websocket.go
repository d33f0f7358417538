package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gofiber/websocket/v2"
)

// Message is one frame on the stream.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Message types.
const (
	MessageSnapshot     = "snapshot"
	MessageNotification = "notification"
)

// conn is the part of a websocket connection the hub writes to.
type conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Hub fans stream messages out to every connected websocket client.
type Hub struct {
	clients   map[conn]bool
	broadcast chan Message
	mu        sync.Mutex
	log       *slog.Logger
}

// NewHub creates a hub with an empty client set.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients:   make(map[conn]bool),
		broadcast: make(chan Message, 256),
		log:       log,
	}
}

// Run delivers queued messages until ctx is done, then closes every client.
// A client whose write fails is dropped.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		case msg := <-h.broadcast:
			data, err := json.Marshal(msg)
			if err != nil {
				h.log.Error("encode stream message", "type", msg.Type, "error", err)
				continue
			}

			h.mu.Lock()
			for client := range h.clients {
				if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
					client.Close()
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues msg for every client. Messages are dropped while
// nobody is connected.
func (h *Hub) Broadcast(msg Message) {
	if h.ClientCount() == 0 {
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn("websocket broadcast channel full, dropping message", "type", msg.Type)
	}
}

// Register adds a client to the broadcast set.
func (h *Hub) Register(c conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

// Unregister removes a client. Unknown clients are ignored.
func (h *Hub) Unregister(c conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// handleWebSocket sends the current snapshot, then streams until the client
// goes away.
func (s *Server) handleWebSocket(c *websocket.Conn) {
	data, err := json.Marshal(Message{Type: MessageSnapshot, Payload: s.fleet.Snapshot()})
	if err != nil {
		s.log.Error("encode initial snapshot", "error", err)
		return
	}
	if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
		return
	}

	s.hub.Register(c)
	defer func() {
		s.hub.Unregister(c)
		c.Close()
	}()

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
}
