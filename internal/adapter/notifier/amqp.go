// Package notifier delivers budget alerts and monthly reports.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iho/welth/internal/domain"
)

const publishTimeout = 5 * time.Second

// Channel is the subset of *amqp.Channel the notifier uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Message is the body published for every notification.
type Message struct {
	ID        string    `json:"id"`
	Template  string    `json:"template"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Payload   any       `json:"payload"`
	CreatedAt time.Time `json:"createdAt"`
}

// AMQP publishes notifications to a durable direct exchange. A mail worker
// consumes the bound queue.
type AMQP struct {
	conn     *amqp.Connection
	channel  Channel
	exchange string
	queue    string
	logger   zerolog.Logger
	now      func() time.Time
}

// DialAMQP connects to the broker and declares the exchange and queue.
func DialAMQP(url, exchange, queue string, logger zerolog.Logger) (*AMQP, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	n, err := NewAMQP(ch, exchange, queue, logger)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	n.conn = conn
	return n, nil
}

// NewAMQP declares the topology on ch and returns a notifier publishing to it.
func NewAMQP(ch Channel, exchange, queue string, logger zerolog.Logger) (*AMQP, error) {
	n := &AMQP{
		channel:  ch,
		exchange: exchange,
		queue:    queue,
		logger:   logger,
		now:      time.Now,
	}
	if err := n.setup(); err != nil {
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return n, nil
}

func (n *AMQP) setup() error {
	if err := n.channel.ExchangeDeclare(n.exchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := n.channel.QueueDeclare(n.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	// Direct exchange: the routing key is the queue name.
	if err := n.channel.QueueBind(n.queue, n.queue, n.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Notify publishes n as a persistent JSON message.
func (n *AMQP) Notify(ctx context.Context, notification domain.Notification) error {
	msg := Message{
		ID:        uuid.NewString(),
		Template:  notification.Template,
		Recipient: notification.Recipient,
		Subject:   notification.Subject,
		Payload:   notification.Payload,
		CreatedAt: n.now().UTC(),
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return domain.NotificationError(notification.Recipient, fmt.Errorf("marshal message: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = n.channel.PublishWithContext(ctx, n.exchange, n.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Type:         msg.Template,
		Timestamp:    msg.CreatedAt,
		Body:         body,
	})
	if err != nil {
		return domain.NotificationError(notification.Recipient, fmt.Errorf("publish message: %w", err))
	}

	n.logger.Info().
		Str("message_id", msg.ID).
		Str("template", msg.Template).
		Str("exchange", n.exchange).
		Str("queue", n.queue).
		Msg("notification published")

	return nil
}

// Close closes the channel and, when dialed, the connection.
func (n *AMQP) Close() error {
	if n.channel != nil {
		n.channel.Close()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}
