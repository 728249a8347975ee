// Package events pushes session-change notifications to connected UI tabs
// over WebSocket so open panels re-render after a mutation.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// frame is the wire format of one pushed event.
type frame struct {
	Type string `json:"type"`
}

// Hub tracks active WebSocket connections per user and broadcasts events to
// them. Writes are fire-and-forget: a dead connection is dropped on the next
// failed write or read.
type Hub struct {
	mu     sync.RWMutex
	active map[string]map[*websocket.Conn]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		active: make(map[string]map[*websocket.Conn]struct{}),
	}
}

func (h *Hub) register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.active[userID]; !ok {
		h.active[userID] = make(map[*websocket.Conn]struct{})
	}
	h.active[userID][conn] = struct{}{}
	slog.Debug("Events connection registered", "user_id", userID)
}

func (h *Hub) unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.active[userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.active, userID)
		}
	}
}

// Connections returns the number of open connections for a user.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.active[userID])
}

// Publish broadcasts an event to every open tab of a user. Never blocks the
// caller beyond a short write timeout per connection.
func (h *Hub) Publish(userID, event string) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.active[userID]))
	for conn := range h.active[userID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	if len(conns) == 0 {
		return
	}

	payload, err := json.Marshal(frame{Type: event})
	if err != nil {
		slog.Error("Failed to encode event frame", "error", err)
		return
	}

	for _, conn := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
			slog.Debug("Events write failed, dropping connection", "user_id", userID, "error", err)
			h.unregister(userID, conn)
			_ = conn.Close(websocket.StatusNormalClosure, "write failed")
		}
		cancel()
	}
}
