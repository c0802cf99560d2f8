package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"bookmarket/internal/middleware"
	"bookmarket/internal/models"
	"bookmarket/internal/observability"
	"bookmarket/internal/repositories"
)

// CloseNotParticipant is the application close code sent when an
// authenticated user who is neither the room's buyer nor its seller tries to
// connect. Distinguishable from a normal close so clients can tell policy
// rejection from a dropped connection.
const CloseNotParticipant = 4403

// RoomSocketHandler serves the realtime endpoint of a chat room.
type RoomSocketHandler struct {
	hub       *Hub
	roomRepo  repositories.RoomRepository
	msgRepo   repositories.MessageRepository
	jwtSecret string
}

// NewRoomSocketHandler constructs a RoomSocketHandler.
func NewRoomSocketHandler(hub *Hub, roomRepo repositories.RoomRepository, msgRepo repositories.MessageRepository, jwtSecret string) *RoomSocketHandler {
	return &RoomSocketHandler{hub: hub, roomRepo: roomRepo, msgRepo: msgRepo, jwtSecret: jwtSecret}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle runs one connection through its lifecycle: resolve the room,
// authorize the identity, join the group, then process inbound frames until
// the transport closes.
func (h *RoomSocketHandler) Handle(c *gin.Context) {
	roomID, err := strconv.ParseInt(c.Param("chatroom_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chatroom id"})
		return
	}

	ctx, span := otel.Tracer("bookmarket/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	// Browsers cannot set headers on websocket dials, so the token may come
	// in as a query parameter instead.
	token := c.GetHeader("Authorization")
	if token == "" {
		if raw := c.Query("token"); raw != "" {
			token = "Bearer " + raw
		}
	}
	userID, err := h.validateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	room, err := h.roomRepo.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRoomNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "chatroom not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	if !room.IsParticipant(userID) {
		observability.IncWSEvent("ws_rejected")
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(CloseNotParticipant, "not a room participant"), deadline)
		conn.Close()
		return
	}

	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	client := h.hub.AddClient(roomID, conn, info)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	_ = observability.PublishEvent(ctx, observability.RoutingKeyRoomEvents, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_connect",
		Payload:   wsEventPayload(roomID, "ws_connect", info, 0, ""),
	}, observability.BuildHeaders(requestID, traceID))

	go h.readLoop(conn, client, room, info)
}

// readLoop processes inbound frames strictly in arrival order. Persistence
// runs on a background context: a disconnect mid-write does not cancel the
// write, and a completed write stands even if the broadcast never reaches the
// closed connection.
func (h *RoomSocketHandler) readLoop(conn *websocket.Conn, client *Client, room models.ChatRoom, info ConnInfo) {
	roomID := room.ID
	var closeReason string
	defer func() {
		h.hub.RemoveClient(roomID, client)
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		// The handshake context died with the HTTP handler; the disconnect
		// event must still go out.
		_ = observability.PublishEvent(context.Background(), observability.RoutingKeyRoomEvents, observability.EventEnvelope{
			EventType: "ws_events",
			EventName: "ws_disconnect",
			Payload:   wsEventPayload(roomID, "ws_disconnect", info, time.Since(info.ConnectedAt).Milliseconds(), closeReason),
		}, observability.BuildHeaders(info.RequestID, info.TraceID))
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
			}
			return
		}

		var frame models.InboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			_ = client.Send(models.ErrorFrame{Error: "invalid message payload"})
			continue
		}
		if strings.TrimSpace(frame.Message) == "" {
			_ = client.Send(models.ErrorFrame{Error: "message is required"})
			continue
		}

		msg, err := h.msgRepo.CreateMessage(context.Background(), roomID, info.UserID, frame.Message)
		if err != nil {
			observability.IncWSEvent("message_save_failed")
			_ = client.Send(models.ErrorFrame{Error: "message saving failed"})
			continue
		}

		observability.IncWSEvent("message")
		h.hub.BroadcastFrame(roomID, models.ChatFrame{
			SenderID: msg.SenderID,
			Message:  msg.Content,
			Time:     msg.CreatedAt.Format(models.TimeLayout),
		})
	}
}

func (h *RoomSocketHandler) validateToken(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", errInvalidAuth
	}
	return middleware.ValidateToken(parts[1], h.jwtSecret)
}

var errInvalidAuth = errors.New("invalid authorization")

func wsEventPayload(roomID int64, event string, info ConnInfo, durationMS int64, reason string) map[string]interface{} {
	return map[string]interface{}{
		"ws": map[string]interface{}{
			"room_id":     roomID,
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": durationMS,
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id": info.UserID,
			"ip":      info.IP,
		},
	}
}
