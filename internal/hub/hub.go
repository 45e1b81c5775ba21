// ABOUTME: Websocket room hub fanning out conversation events to joined clients.
// ABOUTME: Slow clients are dropped rather than allowed to stall a room.

package hub

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Event is a frame pushed to every client joined to a room.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// PushMessage is the payload of a message:new event. Field names follow the
// wire contract the widget's socket subscriber expects.
type PushMessage struct {
	ID             string `json:"_id"`
	Text           string `json:"text"`
	Sender         string `json:"sender"`
	CreatedAt      string `json:"createdAt"`
	ConversationID string `json:"conversationId"`
}

// sendBuffer is the per-client outbound queue depth. A client that falls
// this far behind is disconnected.
const sendBuffer = 32

type client struct {
	conn *websocket.Conn
	send chan Event
}

// Hub tracks which clients are joined to which rooms and fans events out to
// them. The zero value is not usable; call New.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu     sync.Mutex
	rooms  map[string]map[*client]struct{}
	closed bool
}

// New creates an empty hub.
func New(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			// The widget is embedded on arbitrary customer pages.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger.With("component", "hub"),
		rooms:  make(map[string]map[*client]struct{}),
	}
}

// joinFrame is the first frame each client must send.
type joinFrame struct {
	Event string `json:"event"`
	Room  string `json:"room"`
}

// ServeHTTP upgrades the request and services the connection until the
// client disconnects or the hub shuts down.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	var join joinFrame
	if err := conn.ReadJSON(&join); err != nil || join.Event != "join" || join.Room == "" {
		h.logger.Warn("client sent no valid join frame")
		conn.Close()
		return
	}

	c := &client{conn: conn, send: make(chan Event, sendBuffer)}
	if !h.add(join.Room, c) {
		conn.Close()
		return
	}
	h.logger.Debug("client joined room", "room", join.Room)

	go h.writePump(c)

	// Read loop exists to detect disconnects; inbound frames after the
	// join are ignored.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(join.Room, c)
}

// Publish delivers a message:new event to every client in the conversation's
// room. Clients whose queues are full are dropped.
func (h *Hub) Publish(conversationID string, msg PushMessage) {
	h.broadcast(conversationID, Event{Event: "message:new", Data: msg})
}

func (h *Hub) broadcast(room string, ev Event) {
	h.mu.Lock()
	var slow []*client
	for c := range h.rooms[room] {
		select {
		case c.send <- ev:
		default:
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		delete(h.rooms[room], c)
		close(c.send)
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow client", "room", room)
		c.conn.Close()
	}
}

// RoomSize reports how many clients are joined to a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[room])
}

// Close disconnects every client and rejects future joins.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	var conns []*websocket.Conn
	for room, clients := range h.rooms {
		for c := range clients {
			close(c.send)
			conns = append(conns, c.conn)
		}
		delete(h.rooms, room)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
}

func (h *Hub) add(room string, c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*client]struct{})
	}
	h.rooms[room][c] = struct{}{}
	return true
}

func (h *Hub) remove(room string, c *client) {
	h.mu.Lock()
	if _, ok := h.rooms[room][c]; ok {
		delete(h.rooms[room], c)
		if len(h.rooms[room]) == 0 {
			delete(h.rooms, room)
		}
		close(c.send)
	}
	h.mu.Unlock()
	c.conn.Close()
}

// writePump serializes outbound frames for one client. It exits when the
// send channel is closed by remove, broadcast, or Close.
func (h *Hub) writePump(c *client) {
	for ev := range c.send {
		raw, err := json.Marshal(ev)
		if err != nil {
			h.logger.Error("encoding event failed", "error", err)
			continue
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			return
		}
	}
}
