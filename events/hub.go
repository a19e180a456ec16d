// Package events broadcasts catalog changes to websocket clients.
package events

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"beststore/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	ProductCreated = "product.created"
	ProductUpdated = "product.updated"
	ProductDeleted = "product.deleted"
)

type Event struct {
	Type      string    `json:"type"`
	ProductID uint      `json:"product_id"`
	Name      string    `json:"name"`
	Image     string    `json:"image,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewProductEvent(kind string, p models.Product) Event {
	return Event{
		Type:      kind,
		ProductID: p.ID,
		Name:      p.Name,
		Image:     p.ImageFileName,
		Timestamp: time.Now().UTC(),
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const defaultWriteTimeout = 10 * time.Second

// Hub keeps the connected clients and fans events out to them.
type Hub struct {
	mu           sync.Mutex
	clients      map[*websocket.Conn]bool
	broadcast    chan []byte
	writeTimeout time.Duration
}

func NewHub() *Hub {
	return &Hub{
		clients:      make(map[*websocket.Conn]bool),
		broadcast:    make(chan []byte, 100), // buffered so publishers rarely block
		writeTimeout: defaultWriteTimeout,
	}
}

// Publish queues an event. It drops the event when the queue is full.
func (h *Hub) Publish(event Event) {
	msg, err := json.Marshal(event)
	if err != nil {
		zap.L().Error("failed to encode event", zap.String("type", event.Type), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		zap.L().Warn("event queue full, dropping event", zap.String("type", event.Type), zap.Uint("product_id", event.ProductID))
	}
}

// Run writes queued events to every client until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case message := <-h.broadcast:
			h.send(message)
		}
	}
}

// send writes one message to every client. Writes happen outside the lock so
// a stalled client cannot block registration; each one is bounded by
// writeTimeout and a failing client is dropped.
func (h *Hub) send(message []byte) {
	h.mu.Lock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		_ = client.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
			zap.L().Warn("websocket write error", zap.Stringer("remote", client.RemoteAddr()), zap.Error(err))
			client.Close()
			h.mu.Lock()
			delete(h.clients, client)
			h.mu.Unlock()
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and keeps the connection registered until
// the client goes away. Incoming messages are ignored.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
	zap.L().Debug("client connected", zap.Stringer("remote", conn.RemoteAddr()))

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				zap.L().Warn("websocket read error", zap.Error(err))
			}
			h.mu.Lock()
			delete(h.clients, conn)
			h.mu.Unlock()
			zap.L().Debug("client disconnected", zap.Stringer("remote", conn.RemoteAddr()))
			return
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
}
