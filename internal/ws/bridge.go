package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

const bridgeChannel = "bookmarket.chat.broadcast"

// RedisBridge relays broadcast frames between service instances over a Redis
// pub/sub channel, so a room's fan-out group spans every instance. Frames
// published by this instance are tagged and skipped on receipt.
type RedisBridge struct {
	client     *redis.Client
	instanceID string
}

type bridgeEnvelope struct {
	Instance string          `json:"instance"`
	RoomID   int64           `json:"room_id"`
	Payload  json.RawMessage `json:"payload"`
}

// NewRedisBridge connects to Redis and verifies the connection.
func NewRedisBridge(ctx context.Context, addr, password string) (*RedisBridge, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisBridge{client: client, instanceID: newConnID()}, nil
}

// Publish sends a frame to the other instances.
func (b *RedisBridge) Publish(ctx context.Context, roomID int64, payload []byte) error {
	envelope, err := json.Marshal(bridgeEnvelope{
		Instance: b.instanceID,
		RoomID:   roomID,
		Payload:  payload,
	})
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, bridgeChannel, envelope).Err()
}

// Run subscribes to the bridge channel and delivers remote frames to the
// hub's local connections until ctx is cancelled.
func (b *RedisBridge) Run(ctx context.Context, hub *Hub) {
	pubsub := b.client.Subscribe(ctx, bridgeChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var envelope bridgeEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
				log.Printf("ws bridge: bad envelope: %v", err)
				continue
			}
			if envelope.Instance == b.instanceID {
				continue
			}
			hub.DeliverLocal(envelope.RoomID, envelope.Payload)
		}
	}
}

// Close releases the Redis connection.
func (b *RedisBridge) Close() error {
	return b.client.Close()
}
