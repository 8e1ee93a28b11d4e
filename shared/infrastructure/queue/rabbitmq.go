package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"pgmirror/shared/application/ports"
	"pgmirror/shared/infrastructure/config"
)

// publisher is the part of *amqp.Channel the queue uses
type publisher interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type RabbitMQQueue struct {
	conn    *amqp.Connection
	channel publisher
	logger  ports.Logger
	metrics ports.Metrics

	mu       sync.Mutex
	declared map[string]bool
}

func NewRabbitMQQueue(cfg *config.RabbitMQConfig, obs ports.Observability) (*RabbitMQQueue, error) {
	logger, metrics, err := obs.ComponentsScoped("queue.rabbitmq")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		logger.Error("failed to create channel", "error", err)
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	logger.Info("RabbitMQ queue initialized successfully")

	q := newRabbitMQQueue(channel, logger, metrics)
	q.conn = conn
	return q, nil
}

func newRabbitMQQueue(channel publisher, logger ports.Logger, metrics ports.Metrics) *RabbitMQQueue {
	return &RabbitMQQueue{
		channel:  channel,
		logger:   logger,
		metrics:  metrics,
		declared: make(map[string]bool),
	}
}

func (q *RabbitMQQueue) Publish(ctx context.Context, message *ports.QueueMessage) error {
	startTime := time.Now()
	tags := map[string]string{"target": message.Target}
	defer func() {
		q.metrics.RecordHistogram("queue.publish.duration_ms", float64(time.Since(startTime).Milliseconds()), tags)
	}()

	body, err := json.Marshal(message.Body)
	if err != nil {
		q.logger.Error("failed to marshal message", "error", err)
		q.metrics.IncrementCounter("queue.publish.errors", map[string]string{"target": message.Target, "error": "marshal"})
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := q.declare(message.Target); err != nil {
		q.logger.Error("failed to declare queue", "error", err, "queue", message.Target)
		q.metrics.IncrementCounter("queue.publish.errors", map[string]string{"target": message.Target, "error": "declare"})
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	publishing := amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Body:         body,
		Timestamp:    time.Now(),
		Headers:      headers(message.Attributes),
	}
	if t, ok := message.Attributes["type"]; ok {
		publishing.Type = t
	}

	// default exchange, routed by queue name
	if err := q.channel.PublishWithContext(ctx, "", message.Target, false, false, publishing); err != nil {
		q.logger.Error("failed to publish message", "error", err, "target", message.Target)
		q.metrics.IncrementCounter("queue.publish.errors", map[string]string{"target": message.Target, "error": "publish"})
		return fmt.Errorf("failed to publish message: %w", err)
	}

	q.logger.Info("message published", "target", message.Target, "size", len(body))
	q.metrics.IncrementCounter("queue.publish.success", tags)
	return nil
}

func (q *RabbitMQQueue) PublishBatch(ctx context.Context, messages []*ports.QueueMessage) error {
	for _, msg := range messages {
		if err := q.Publish(ctx, msg); err != nil {
			return fmt.Errorf("failed to publish message in batch: %w", err)
		}
	}
	return nil
}

func (q *RabbitMQQueue) Close() error {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

func (q *RabbitMQQueue) declare(name string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.declared[name] {
		return nil
	}
	if _, err := q.channel.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return err
	}
	q.declared[name] = true
	return nil
}

func headers(attributes map[string]string) amqp.Table {
	if len(attributes) == 0 {
		return nil
	}
	table := make(amqp.Table, len(attributes))
	for k, v := range attributes {
		table[k] = v
	}
	return table
}
