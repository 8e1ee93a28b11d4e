package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"pgmirror/shared/application/ports"
	"pgmirror/shared/infrastructure/config"
)

// rabbitmqRuntime consumes RuntimeRequest payloads from a durable queue
type rabbitmqRuntime struct {
	handler ports.Handler
	logger  ports.Logger
	metrics ports.Metrics
	config  *config.RabbitMQConfig
}

func NewRabbitMQRuntime(cfg *config.RabbitMQConfig, handler ports.Handler, obs ports.Observability) (ports.Runtime, error) {
	if handler == nil {
		return nil, errors.New("failed to create runtime: handler is required")
	}
	logger, metrics, err := obs.ComponentsScoped("runtime.rabbitmq")
	if err != nil {
		return nil, fmt.Errorf("failed to create runtime: %w", err)
	}

	return &rabbitmqRuntime{
		handler: handler,
		logger:  logger,
		metrics: metrics,
		config:  cfg,
	}, nil
}

// Start consumes until ctx is done or the broker closes the channel
func (r *rabbitmqRuntime) Start(ctx context.Context) error {
	conn, err := amqp.Dial(r.config.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if r.config.PrefetchCount > 0 {
		if err := ch.Qos(r.config.PrefetchCount, 0, false); err != nil {
			return fmt.Errorf("failed to set QoS: %w", err)
		}
	}

	q, err := ch.QueueDeclare(r.config.Queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	// manual acks
	msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume: %w", err)
	}

	r.logger.Info("RabbitMQ consumer started", "queue", q.Name, "prefetch", r.config.PrefetchCount)
	r.metrics.IncrementCounter("rabbitmq.starts", nil)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("RabbitMQ consumer stopped")
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			r.processMessage(ctx, msg)
		}
	}
}

// processMessage acks on success. Failures are requeued once, then dropped.
func (r *rabbitmqRuntime) processMessage(ctx context.Context, msg amqp.Delivery) {
	start := time.Now()

	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	req := toRabbitRequest(msg)
	r.metrics.IncrementCounter("rabbitmq.messages", nil)

	resp, err := r.handler.Handle(ctx, req)
	if err == nil && resp.Success {
		if ackErr := msg.Ack(false); ackErr != nil {
			r.logger.Error("Failed to ack message", "message_id", req.ID, "error", ackErr)
		}
		r.metrics.IncrementCounter("rabbitmq.success", nil)
	} else {
		requeue := err != nil && !msg.Redelivered
		if nackErr := msg.Nack(false, requeue); nackErr != nil {
			r.logger.Error("Failed to nack message", "message_id", req.ID, "error", nackErr)
		}
		r.logger.Error("Message processing failed",
			"message_id", req.ID,
			"error", err,
			"response_error", resp.Error,
			"requeued", requeue)
		r.metrics.IncrementCounter("rabbitmq.failure", nil)
	}

	r.metrics.RecordHistogram("rabbitmq.duration_ms", float64(time.Since(start).Milliseconds()), nil)
}

func toRabbitRequest(msg amqp.Delivery) ports.RuntimeRequest {
	meta := make(map[string]string, len(msg.Headers)+3)
	for k, v := range msg.Headers {
		meta[k] = fmt.Sprintf("%v", v)
	}
	if msg.RoutingKey != "" {
		meta["routing_key"] = msg.RoutingKey
	}
	if msg.CorrelationId != "" {
		meta["correlation_id"] = msg.CorrelationId
	}
	meta["redelivered"] = fmt.Sprintf("%v", msg.Redelivered)

	req := ports.RuntimeRequest{
		ID:        msg.MessageId,
		Source:    "rabbitmq",
		Type:      msg.Type,
		Payload:   json.RawMessage(msg.Body),
		Metadata:  meta,
		Timestamp: msg.Timestamp,
	}
	if req.ID == "" {
		req.ID = fmt.Sprintf("rmq-%d", msg.DeliveryTag)
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now().UTC()
	}
	return req
}
