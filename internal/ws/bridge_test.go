package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisBridgePublishEnvelope(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	bridge, err := NewRedisBridge(ctx, mr.Addr(), "")
	require.NoError(t, err)
	defer bridge.Close()

	sub := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer sub.Close()
	pubsub := sub.Subscribe(ctx, bridgeChannel)
	defer pubsub.Close()
	_, err = pubsub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, bridge.Publish(ctx, 5, []byte(`{"message":"hi"}`)))

	select {
	case msg := <-pubsub.Channel():
		var envelope bridgeEnvelope
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &envelope))
		require.Equal(t, int64(5), envelope.RoomID)
		require.JSONEq(t, `{"message":"hi"}`, string(envelope.Payload))
		require.NotEmpty(t, envelope.Instance)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for bridge frame")
	}
}

func TestRedisBridgeDeliversRemoteFrames(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sender, err := NewRedisBridge(ctx, mr.Addr(), "")
	require.NoError(t, err)
	defer sender.Close()

	receiver, err := NewRedisBridge(ctx, mr.Addr(), "")
	require.NoError(t, err)
	defer receiver.Close()

	hub := NewHub()
	serverConn, clientConn := dialTestSocket(t)
	hub.AddClient(5, serverConn, ConnInfo{ConnID: "c1"})

	go receiver.Run(ctx, hub)
	time.Sleep(100 * time.Millisecond) // let the subscription attach

	require.NoError(t, sender.Publish(ctx, 5, []byte(`{"message":"hi"}`)))

	require.NoError(t, clientConn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := clientConn.ReadMessage()
	require.NoError(t, err)
	require.JSONEq(t, `{"message":"hi"}`, string(payload))
}

func TestRedisBridgeConnectFailure(t *testing.T) {
	_, err := NewRedisBridge(context.Background(), "127.0.0.1:1", "")
	require.Error(t, err)
}
