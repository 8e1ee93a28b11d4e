package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"pgmirror/shared/application/ports"
	"pgmirror/shared/infrastructure/config"
)

// SQS accepts at most ten entries per SendMessageBatch call
const maxBatchSize = 10

type sqsAPI interface {
	GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	SendMessageBatch(ctx context.Context, params *sqs.SendMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageBatchOutput, error)
}

type SQSQueue struct {
	client  sqsAPI
	logger  ports.Logger
	metrics ports.Metrics

	mu        sync.Mutex
	queueURLs map[string]string
}

func NewSQSQueue(ctx context.Context, cfg *config.SQSConfig, obs ports.Observability) (*SQSQueue, error) {
	logger, metrics, err := obs.ComponentsScoped("queue.sqs")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	logger.Info("SQS queue initialized successfully", "region", cfg.Region)
	return newSQSQueue(client, logger, metrics), nil
}

func newSQSQueue(client sqsAPI, logger ports.Logger, metrics ports.Metrics) *SQSQueue {
	return &SQSQueue{
		client:    client,
		logger:    logger,
		metrics:   metrics,
		queueURLs: make(map[string]string),
	}
}

func (q *SQSQueue) getQueueURL(ctx context.Context, queueName string) (string, error) {
	q.mu.Lock()
	url, ok := q.queueURLs[queueName]
	q.mu.Unlock()
	if ok {
		return url, nil
	}

	result, err := q.client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(queueName)})
	if err != nil {
		return "", fmt.Errorf("failed to get queue URL for %s: %w", queueName, err)
	}

	url = aws.ToString(result.QueueUrl)
	q.mu.Lock()
	q.queueURLs[queueName] = url
	q.mu.Unlock()
	return url, nil
}

func (q *SQSQueue) Publish(ctx context.Context, message *ports.QueueMessage) error {
	startTime := time.Now()
	tags := map[string]string{"target": message.Target}
	defer func() {
		q.metrics.RecordHistogram("queue.publish.duration_ms", float64(time.Since(startTime).Milliseconds()), tags)
	}()

	queueURL, err := q.getQueueURL(ctx, message.Target)
	if err != nil {
		q.logger.Error("failed to get queue URL", "error", err, "queue", message.Target)
		q.metrics.IncrementCounter("queue.publish.errors", map[string]string{"target": message.Target, "error": "queue_url"})
		return err
	}

	body, err := json.Marshal(message.Body)
	if err != nil {
		q.metrics.IncrementCounter("queue.publish.errors", map[string]string{"target": message.Target, "error": "marshal"})
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(queueURL),
		MessageBody:       aws.String(string(body)),
		MessageAttributes: attributes(message.Attributes),
	})
	if err != nil {
		q.logger.Error("failed to send message", "error", err, "target", message.Target)
		q.metrics.IncrementCounter("queue.publish.errors", map[string]string{"target": message.Target, "error": "send"})
		return fmt.Errorf("failed to send message: %w", err)
	}

	q.logger.Info("message sent", "target", message.Target, "size", len(body))
	q.metrics.IncrementCounter("queue.publish.success", tags)
	return nil
}

// PublishBatch groups messages by target, keeping their relative order,
// and sends each group in chunks of ten.
func (q *SQSQueue) PublishBatch(ctx context.Context, messages []*ports.QueueMessage) error {
	var targets []string
	batches := make(map[string][]*ports.QueueMessage)
	for _, msg := range messages {
		if _, ok := batches[msg.Target]; !ok {
			targets = append(targets, msg.Target)
		}
		batches[msg.Target] = append(batches[msg.Target], msg)
	}

	for _, target := range targets {
		if err := q.publishBatchToQueue(ctx, target, batches[target]); err != nil {
			return err
		}
	}
	return nil
}

func (q *SQSQueue) publishBatchToQueue(ctx context.Context, target string, messages []*ports.QueueMessage) error {
	queueURL, err := q.getQueueURL(ctx, target)
	if err != nil {
		return err
	}

	for i := 0; i < len(messages); i += maxBatchSize {
		end := min(i+maxBatchSize, len(messages))

		batch := messages[i:end]
		entries := make([]types.SendMessageBatchRequestEntry, len(batch))
		for j, msg := range batch {
			body, err := json.Marshal(msg.Body)
			if err != nil {
				return fmt.Errorf("failed to marshal message: %w", err)
			}
			entries[j] = types.SendMessageBatchRequestEntry{
				Id:                aws.String(strconv.Itoa(j)),
				MessageBody:       aws.String(string(body)),
				MessageAttributes: attributes(msg.Attributes),
			}
		}

		out, err := q.client.SendMessageBatch(ctx, &sqs.SendMessageBatchInput{
			QueueUrl: aws.String(queueURL),
			Entries:  entries,
		})
		if err != nil {
			q.metrics.IncrementCounter("queue.publish.errors", map[string]string{"target": target, "error": "send_batch"})
			return fmt.Errorf("failed to send batch: %w", err)
		}
		if len(out.Failed) > 0 {
			q.metrics.IncrementCounter("queue.publish.errors", map[string]string{"target": target, "error": "batch_entry"})
			return fmt.Errorf("failed to send %d of %d messages to %s: %s",
				len(out.Failed), len(entries), target, aws.ToString(out.Failed[0].Message))
		}
		q.metrics.IncrementCounter("queue.publish.success", map[string]string{"target": target})
	}

	q.logger.Info("batch sent", "target", target, "messages", len(messages))
	return nil
}

func (q *SQSQueue) Close() error {
	return nil
}

func attributes(attrs map[string]string) map[string]types.MessageAttributeValue {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]types.MessageAttributeValue, len(attrs))
	for k, v := range attrs {
		out[k] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(v),
		}
	}
	return out
}
