package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"resto-be/internal/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPBus publishes envelopes to a topic exchange, routed by event name.
type AMQPBus struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	pub      publisher
	exchange string
	timeout  time.Duration
}

func DialAMQP(url, exchange string) (*AMQPBus, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return &AMQPBus{
		conn:     conn,
		ch:       ch,
		pub:      ch,
		exchange: exchange,
		timeout:  defaultPublishLimit,
	}, nil
}

func (b *AMQPBus) Publish(ctx context.Context, name string, payload any) error {
	env := NewEnvelope(name, payload)

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	err = b.pub.PublishWithContext(ctx, b.exchange, name, false, false, amqp.Publishing{
		ContentType:  contentTypeJSON,
		MessageId:    env.ID,
		Type:         name,
		Timestamp:    env.OccurredAt,
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish event %s: %w", name, err)
	}

	logger.FromCtx(ctx).Debug("event published",
		zap.String("event", name),
		zap.String("event_id", env.ID),
	)
	return nil
}

func (b *AMQPBus) Close() error {
	if b.ch != nil {
		b.ch.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}
