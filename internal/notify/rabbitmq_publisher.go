package notify

import (
	"context"
	"fmt"
	"time"

	"auction-house/utils"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	dialAttempts = 10
	dialBackoff  = 2 * time.Second
)

// RabbitMQPublisher publishes notification events to a durable queue
type RabbitMQPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

// NewRabbitMQPublisher dials the broker, retrying while it starts up, and declares the queue
func NewRabbitMQPublisher(url string, queueName string) (*RabbitMQPublisher, error) {
	var conn *amqp.Connection
	var err error

	for i := 0; i < dialAttempts; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		utils.Warn("failed to connect to RabbitMQ, retrying", map[string]any{
			"attempt": i + 1,
			"of":      dialAttempts,
			"error":   err.Error(),
		})
		time.Sleep(dialBackoff)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare a queue: %w", err)
	}

	return &RabbitMQPublisher{
		conn:    conn,
		channel: ch,
		queue:   queueName,
	}, nil
}

// Publish implements Publisher. The event kind travels as the message type.
func (p *RabbitMQPublisher) Publish(ctx context.Context, id string, topic string, payload []byte) error {
	err := p.channel.PublishWithContext(ctx,
		"",      // exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			MessageId:    id,
			Type:         topic,
			ContentType:  "application/json",
			Body:         payload,
			Timestamp:    time.Now().UTC(),
			DeliveryMode: amqp.Persistent,
		})
	if err != nil {
		return fmt.Errorf("failed to publish message %s: %w", id, err)
	}
	return nil
}

// Close releases the channel and connection
func (p *RabbitMQPublisher) Close() {
	p.channel.Close()
	p.conn.Close()
}
