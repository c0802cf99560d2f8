package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"bookmarket/internal/models"
)

func TestHubAddAndRemoveClient(t *testing.T) {
	hub := NewHub()

	client := hub.AddClient(1, nil, ConnInfo{})
	if len(hub.rooms) != 1 {
		t.Fatalf("expected room to be created")
	}
	if hub.RoomSize(1) != 1 {
		t.Fatalf("expected one client in room")
	}

	hub.RemoveClient(1, client)
	if len(hub.rooms) != 0 {
		t.Fatalf("expected room to be removed")
	}
}

func TestHubRemoveClientTwice(t *testing.T) {
	hub := NewHub()

	client := hub.AddClient(1, nil, ConnInfo{})
	hub.RemoveClient(1, client)
	hub.RemoveClient(1, client)
	if hub.RoomSize(1) != 0 {
		t.Fatalf("expected empty room")
	}
}

// dialTestSocket upgrades one server-side connection and dials it, returning
// both ends.
func dialTestSocket(t *testing.T) (*websocket.Conn, *websocket.Conn) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	serverSide := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		serverSide <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { clientConn.Close() })

	serverConn := <-serverSide
	t.Cleanup(func() { serverConn.Close() })
	return serverConn, clientConn
}

func TestHubBroadcastReachesRoomMembers(t *testing.T) {
	hub := NewHub()
	serverConn, clientConn := dialTestSocket(t)
	hub.AddClient(5, serverConn, ConnInfo{ConnID: "c1", UserID: "u1"})

	hub.BroadcastFrame(5, models.ChatFrame{
		SenderID: "u1",
		Message:  "hello",
		Time:     "2026-03-01 09:30:00",
	})

	require.NoError(t, clientConn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := clientConn.ReadMessage()
	require.NoError(t, err)

	var frame models.ChatFrame
	require.NoError(t, json.Unmarshal(payload, &frame))
	require.Equal(t, "u1", frame.SenderID)
	require.Equal(t, "hello", frame.Message)
}

func TestHubDropsDeadConnections(t *testing.T) {
	hub := NewHub()
	serverConn, clientConn := dialTestSocket(t)
	hub.AddClient(5, serverConn, ConnInfo{ConnID: "c1"})

	clientConn.Close()
	serverConn.Close()

	hub.BroadcastFrame(5, models.ChatFrame{SenderID: "u1", Message: "hi"})
	if hub.RoomSize(5) != 0 {
		t.Fatalf("expected dead connection to be dropped")
	}
}
