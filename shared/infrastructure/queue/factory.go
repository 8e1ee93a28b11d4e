package queue

import (
	"context"
	"fmt"

	"pgmirror/shared/application/ports"
	"pgmirror/shared/infrastructure/config"
)

// CreateQueue returns the adapter selected by ADAPTER_QUEUE, or nil when no
// queue is configured.
func CreateQueue(ctx context.Context, cfg *config.Config, obs ports.Observability) (ports.Queue, error) {
	logger, err := obs.LoggerScoped("queue.factory")
	if err != nil {
		return nil, fmt.Errorf("failed to get logger from observability: %w", err)
	}

	switch cfg.Adapters.Queue {
	case "":
		logger.Info("No queue adapter configured, resolutions will not be published")
		return nil, nil

	case "rabbitmq":
		logger.Info("Creating RabbitMQ queue adapter")
		q, err := NewRabbitMQQueue(&cfg.Queue.RabbitMQ, obs)
		if err != nil {
			return nil, err
		}
		return q, nil

	case "sqs":
		logger.Info("Creating SQS queue adapter", "region", cfg.Queue.SQS.Region)
		q, err := NewSQSQueue(ctx, &cfg.Queue.SQS, obs)
		if err != nil {
			return nil, err
		}
		return q, nil

	default:
		return nil, fmt.Errorf("unsupported queue adapter: %s", cfg.Adapters.Queue)
	}
}
