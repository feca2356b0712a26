package ws

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sawariz0r/3d-voice-room/internal/domain"
)

var (
	ErrConnNotFound = errors.New("connection not found")
	ErrSlowConsumer = errors.New("connection send queue is full")
	ErrConnClosed   = errors.New("connection closed")
)

// Hub tracks live connections and which rooms they listen to. It never
// blocks on a connection: voice levels are dropped once a queue is half full,
// and a state change that does not fit evicts the connection.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]Conn
	rooms map[string]map[string]struct{} // roomID -> set of connection ids
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]Conn),
		rooms: make(map[string]map[string]struct{}),
	}
}

func (h *Hub) Register(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c.ID()] = c
}

// Unregister forgets the connection and drops it from every room.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.conns, id)
	for roomID, members := range h.rooms {
		delete(members, id)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func (h *Hub) Subscribe(roomID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[string]struct{})
		h.rooms[roomID] = members
	}
	members[connID] = struct{}{}
}

func (h *Hub) Unsubscribe(roomID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[roomID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func (h *Hub) Broadcast(roomID, event string, payload any, exceptID string) {
	frame, err := encode(event, payload)
	if err != nil {
		slog.Error("ws encode failed", "room", roomID, "event", event, "err", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for id := range h.rooms[roomID] {
		if id == exceptID {
			continue
		}
		if c, ok := h.conns[id]; ok {
			h.deliver(c, event, frame)
		}
	}
}

func (h *Hub) Send(connID, event string, payload any) error {
	frame, err := encode(event, payload)
	if err != nil {
		return err
	}

	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%s: %w", connID, ErrConnNotFound)
	}
	if err := h.deliver(c, event, frame); err != nil {
		return fmt.Errorf("%s: %w", connID, err)
	}
	return nil
}

func (h *Hub) deliver(c Conn, event string, frame []byte) error {
	droppable := event == domain.EventUserVoiceActivity
	err := c.Enqueue(frame, droppable)
	switch {
	case err == nil:
	case errors.Is(err, ErrConnClosed):
		slog.Debug("ws frame for closed connection", "conn", c.ID(), "event", event)
	case droppable:
		slog.Debug("ws voice activity dropped", "conn", c.ID())
	default:
		slog.Warn("ws evicting slow connection", "conn", c.ID(), "event", event)
		_ = c.Close()
	}
	return err
}

// Members returns the connection ids subscribed to a room.
func (h *Hub) Members(roomID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]string, 0, len(h.rooms[roomID]))
	for id := range h.rooms[roomID] {
		out = append(out, id)
	}
	return out
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// CloseAll sends a going-away frame to every connection and closes it.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	conns := make([]Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if wc, ok := c.(*wsConn); ok {
			wc.shutdown("server shutting down")
			continue
		}
		_ = c.Close()
	}
}
