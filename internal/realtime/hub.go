package realtime

import (
	"log"
	"sync"
)

// Event is the envelope pushed to clients.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Conn is the connection surface the hub needs. *websocket.Conn satisfies it.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Hub owns the per-user connection registry. A user may hold several
// connections at once (multiple tabs); they all share the same room.
// Broadcast and SendToUser are the only emission entry points and are called
// by the workflow services after a persistence operation commits. Delivery
// is fire-and-forget: a failed write evicts the connection, nothing retries.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[Conn]struct{})}
}

func (h *Hub) Register(userID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[userID] == nil {
		h.rooms[userID] = make(map[Conn]struct{})
	}
	h.rooms[userID][conn] = struct{}{}
}

func (h *Hub) Unregister(userID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, userID)
		}
	}
	_ = conn.Close()
}

// ConnCount reports how many connections a user currently holds.
func (h *Hub) ConnCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}

// Broadcast pushes an event to every connected client regardless of
// relevance; clients filter locally.
func (h *Hub) Broadcast(event string, payload interface{}) {
	h.mu.RLock()
	conns := make([]target, 0)
	for userID, room := range h.rooms {
		for conn := range room {
			conns = append(conns, target{userID, conn})
		}
	}
	h.mu.RUnlock()

	h.send(conns, Event{Event: event, Data: payload})
}

// SendToUser pushes an event to the per-user room only.
func (h *Hub) SendToUser(userID, event string, payload interface{}) {
	h.mu.RLock()
	conns := make([]target, 0, len(h.rooms[userID]))
	for conn := range h.rooms[userID] {
		conns = append(conns, target{userID, conn})
	}
	h.mu.RUnlock()

	h.send(conns, Event{Event: event, Data: payload})
}

type target struct {
	userID string
	conn   Conn
}

func (h *Hub) send(targets []target, ev Event) {
	for _, t := range targets {
		if err := t.conn.WriteJSON(ev); err != nil {
			log.Printf("[realtime][send][err] user=%s event=%s: %v", t.userID, ev.Event, err)
			h.Unregister(t.userID, t.conn)
		}
	}
}
