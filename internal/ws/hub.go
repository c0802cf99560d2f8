package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"bookmarket/internal/models"
	"bookmarket/internal/observability"
)

// Bridge fans a broadcast out to other instances of the service. The hub
// works without one; a single instance then owns every fan-out group.
type Bridge interface {
	Publish(ctx context.Context, roomID int64, payload []byte) error
}

// Client is one live websocket connection joined to a room's group.
type Client struct {
	conn *websocket.Conn
	info ConnInfo

	// gorilla/websocket allows at most one concurrent writer; broadcasts
	// arrive from other connections' read loops, so writes are serialized.
	writeMu sync.Mutex
}

func (c *Client) write(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Send marshals v and writes it to this connection only.
func (c *Client) Send(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.write(payload)
}

// Hub maintains the fan-out group of each room: the set of connections that
// joined it and are still alive. Membership is ephemeral; it is rebuilt from
// session identity on every connection.
type Hub struct {
	rooms  map[int64]map[*Client]struct{}
	mu     sync.RWMutex
	bridge Bridge
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[int64]map[*Client]struct{})}
}

// SetBridge attaches a cross-instance bridge. Must be called before any
// client joins.
func (h *Hub) SetBridge(bridge Bridge) {
	h.bridge = bridge
}

// AddClient joins a connection to a room's group and returns its handle.
func (h *Hub) AddClient(roomID int64, conn *websocket.Conn, info ConnInfo) *Client {
	client := &Client{conn: conn, info: info}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*Client]struct{})
	}
	h.rooms[roomID][client] = struct{}{}
	return client
}

// RemoveClient leaves the room's group. Safe to call twice.
func (h *Hub) RemoveClient(roomID int64, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.rooms[roomID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// RoomSize reports how many connections are joined to a room.
func (h *Hub) RoomSize(roomID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// BroadcastFrame sends a chat frame to every connection joined to the room,
// including the sender's own, and forwards it across the bridge when one is
// attached.
func (h *Hub) BroadcastFrame(roomID int64, frame models.ChatFrame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		log.Printf("ws: marshal broadcast frame: %v", err)
		return
	}

	h.DeliverLocal(roomID, payload)

	if h.bridge != nil {
		if err := h.bridge.Publish(context.Background(), roomID, payload); err != nil {
			log.Printf("ws: bridge publish room=%d: %v", roomID, err)
		}
	}
}

// DeliverLocal writes a payload to the room's local connections. Dead
// connections are dropped from the group on write failure.
func (h *Hub) DeliverLocal(roomID int64, payload []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[roomID]))
	for client := range h.rooms[roomID] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if err := client.write(payload); err != nil {
			log.Printf("websocket write error: %v", err)
			client.conn.Close()
			h.RemoveClient(roomID, client)
			h.publishWSError(roomID, client, err)
		}
	}
}

func (h *Hub) publishWSError(roomID int64, client *Client, err error) {
	info := client.info
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"room_id":     roomID,
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id": info.UserID,
			"ip":      info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), observability.RoutingKeyRoomEvents, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent("ws_error")
}
