package ports

import (
	"context"
)

// QueueMessage is published to a queue
type QueueMessage struct {
	// Target is the queue name
	Target string
	// Body is JSON encoded by the adapter
	Body interface{}
	// Attributes travel as message headers or SQS message attributes
	Attributes map[string]string
}

// Queue publishes messages
type Queue interface {
	Publish(ctx context.Context, message *QueueMessage) error

	// PublishBatch sends messages in order; adapters may split the batch
	PublishBatch(ctx context.Context, messages []*QueueMessage) error

	Close() error
}
