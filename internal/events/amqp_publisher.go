package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AMQPPublisher mirrors complaint events onto a durable RabbitMQ queue.
// A connection is opened per message so broker restarts need no reconnect
// logic; event volume is one message per complaint write.
type AMQPPublisher struct {
	url    string
	queue  string
	logger *zap.Logger
}

// NewAMQPPublisher constructs a publisher for the given broker URL and queue.
func NewAMQPPublisher(url, queue string, logger *zap.Logger) *AMQPPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AMQPPublisher{url: url, queue: queue, logger: logger}
}

// Register subscribes the publisher to every complaint event.
func (p *AMQPPublisher) Register(dispatcher Dispatcher) {
	dispatcher.Subscribe(EventComplaintCreated, p.Handle)
	dispatcher.Subscribe(EventComplaintStatusChanged, p.Handle)
}

// Handle publishes event as a persistent JSON message.
func (p *AMQPPublisher) Handle(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	dialer := amqp.Config{Dial: amqp.DefaultDial(5 * time.Second)}
	conn, err := amqp.DialConfig(p.url, dialer)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("amqp queue declare: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Type:         string(event.Type),
		Timestamp:    event.Timestamp.UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}

	p.logger.Debug("event mirrored",
		zap.String("queue", p.queue),
		zap.String("event_type", string(event.Type)),
		zap.String("event_id", event.ID))
	return nil
}
