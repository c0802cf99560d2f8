package observability

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends one JSON payload with per-message correlation headers.
// Marketplace events (ws lifecycle, broadcast failures) leave the service
// through it.
type Publisher interface {
	PublishJSON(ctx context.Context, routingKey string, payload interface{}, headers map[string]string) error
}

// AMQPPublisher is the broker-backed Publisher. It owns a single channel;
// the marketplace publishes rarely enough that channel pooling is not worth
// carrying.
type AMQPPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// NewAMQPPublisher dials the broker and declares the topic exchange that
// marketplace events are routed through.
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	if url == "" {
		return nil, errors.New("amqp url is empty")
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &AMQPPublisher{conn: conn, channel: ch, exchange: exchange}, nil
}

// PublishJSON marshals payload and publishes it persistently under
// routingKey.
func (p *AMQPPublisher) PublishJSON(ctx context.Context, routingKey string, payload interface{}, headers map[string]string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	table := make(amqp.Table, len(headers))
	for key, value := range headers {
		table[key] = value
	}

	return p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Headers:      table,
	})
}

// Close shuts down the channel, then the connection.
func (p *AMQPPublisher) Close() error {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// The publisher sits behind a package global so the ws and handler layers
// can emit events without threading it through every constructor, the same
// way the metrics in this package are reached. Unset means events are
// silently dropped, which is the development default.
var eventPublisher Publisher

// SetPublisher installs the process-wide event publisher. Call once during
// wiring, before traffic.
func SetPublisher(publisher Publisher) {
	eventPublisher = publisher
}

// PublishEvent emits through the installed publisher. Failures bump
// bookmarket_amqp_publish_errors_total and are otherwise swallowed: listings
// and chat must not depend on the broker being up.
func PublishEvent(ctx context.Context, routingKey string, payload interface{}, headers map[string]string) error {
	if eventPublisher == nil {
		return nil
	}

	err := eventPublisher.PublishJSON(ctx, routingKey, payload, headers)
	if err != nil {
		IncAMQPPublishError()
	}
	return err
}
