package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"pgmirror/shared/application/ports"
	"pgmirror/shared/infrastructure/config"
)

var errUnsupportedEvent = errors.New("unsupported event type")

// lambdaRuntime accepts SQS batches and direct RuntimeRequest invocations
type lambdaRuntime struct {
	handler ports.Handler
	logger  ports.Logger
	metrics ports.Metrics
	config  *config.LambdaConfig
}

func NewLambdaRuntime(cfg *config.LambdaConfig, handler ports.Handler, obs ports.Observability) (ports.Runtime, error) {
	if handler == nil {
		return nil, errors.New("failed to create runtime: handler is required")
	}
	logger, metrics, err := obs.ComponentsScoped("runtime.lambda")
	if err != nil {
		return nil, fmt.Errorf("failed to create runtime: %w", err)
	}

	return &lambdaRuntime{
		handler: handler,
		logger:  logger,
		metrics: metrics,
		config:  cfg,
	}, nil
}

// Start hands control to the Lambda runtime API; it does not return
// while the function is alive.
func (l *lambdaRuntime) Start(ctx context.Context) error {
	l.logger.Info("Starting Lambda runtime", "partial_batch_failure", l.config.EnablePartialBatchFailure)
	l.metrics.IncrementCounter("lambda.starts", nil)
	lambda.StartWithOptions(l.handleEvent, lambda.WithContext(ctx))
	return nil
}

func (l *lambdaRuntime) handleEvent(ctx context.Context, event json.RawMessage) (interface{}, error) {
	start := time.Now()
	l.metrics.IncrementCounter("lambda.invocations", nil)
	defer func() {
		l.metrics.RecordHistogram("lambda.duration_ms", float64(time.Since(start).Milliseconds()), nil)
	}()

	if sqsEvent, ok := parseSQSEvent(event); ok {
		return l.processSQSEvent(ctx, sqsEvent)
	}
	if req, ok := parseDirectRequest(event); ok {
		l.logger.Info("Processing direct request", "request_id", req.ID)
		l.metrics.IncrementCounter("lambda.invocations.direct", nil)
		return l.handler.Handle(ctx, req)
	}

	l.logger.Error("Unsupported event type", "event_size", len(event))
	l.metrics.IncrementCounter("lambda.invocations.unsupported", nil)
	return nil, errUnsupportedEvent
}

// processSQSEvent handles records one by one. With partial batch failure
// enabled the failed message ids are reported back to SQS; otherwise any
// failure fails the whole batch.
func (l *lambdaRuntime) processSQSEvent(ctx context.Context, event events.SQSEvent) (interface{}, error) {
	l.logger.Info("Processing SQS batch", "batch_size", len(event.Records))
	l.metrics.RecordHistogram("lambda.batch_size", float64(len(event.Records)), nil)

	response := events.SQSEventResponse{BatchItemFailures: []events.SQSBatchItemFailure{}}
	failed := 0

	for _, record := range event.Records {
		resp, err := l.handler.Handle(ctx, toRequest(record))
		if err == nil && resp.Success {
			continue
		}

		failed++
		l.logger.Error("Message processing failed",
			"message_id", record.MessageId,
			"error", err,
			"response_error", resp.Error)
		response.BatchItemFailures = append(response.BatchItemFailures,
			events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
	}

	l.logger.Info("SQS batch processing complete",
		"total_messages", len(event.Records),
		"failure_count", failed)

	switch {
	case failed == 0:
		l.metrics.IncrementCounter("lambda.batch.complete_success", nil)
	case failed == len(event.Records):
		l.metrics.IncrementCounter("lambda.batch.complete_failure", nil)
	default:
		l.metrics.IncrementCounter("lambda.batch.partial_failure", nil)
	}

	if l.config.EnablePartialBatchFailure {
		return response, nil
	}
	if failed > 0 {
		return nil, fmt.Errorf("batch processing failed: %d/%d messages failed", failed, len(event.Records))
	}
	return response, nil
}

func parseSQSEvent(event json.RawMessage) (events.SQSEvent, bool) {
	var sqsEvent events.SQSEvent
	err := json.Unmarshal(event, &sqsEvent)
	return sqsEvent, err == nil && len(sqsEvent.Records) > 0
}

func parseDirectRequest(event json.RawMessage) (ports.RuntimeRequest, bool) {
	var req ports.RuntimeRequest
	err := json.Unmarshal(event, &req)
	return req, err == nil && req.ID != ""
}

func toRequest(record events.SQSMessage) ports.RuntimeRequest {
	metadata := make(map[string]string, len(record.MessageAttributes)+1)
	for key, attr := range record.MessageAttributes {
		if attr.StringValue != nil {
			metadata[key] = *attr.StringValue
		}
	}
	metadata["sqs_message_id"] = record.MessageId

	return ports.RuntimeRequest{
		ID:        record.MessageId,
		Source:    "sqs",
		Type:      metadata["type"],
		Payload:   messageBody(record.Body),
		Metadata:  metadata,
		Timestamp: time.Now().UTC(),
	}
}

// messageBody keeps JSON bodies as they are and quotes anything else
func messageBody(body string) json.RawMessage {
	if json.Valid([]byte(body)) {
		return json.RawMessage(body)
	}
	quoted, _ := json.Marshal(body)
	return quoted
}
