package cloudwatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"pgmirror/shared/application/ports"
	"pgmirror/shared/infrastructure/config"
)

type logsAPI interface {
	CreateLogGroup(ctx context.Context, in *cloudwatchlogs.CreateLogGroupInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error)
	CreateLogStream(ctx context.Context, in *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
	PutLogEvents(ctx context.Context, in *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
}

// stream is the destination shared by every Logger derived through
// WithFields. Events are written one call at a time.
type stream struct {
	client logsAPI
	group  string
	name   string
	mu     sync.Mutex
}

// Logger implements ports.Logger using AWS CloudWatch Logs.
type Logger struct {
	stream    *stream
	fields    map[string]interface{}
	errorOnly bool
}

// NewLogger creates the log group and stream when missing and returns a
// logger writing JSON events to them.
func NewLogger(ctx context.Context, cfg *config.Config) (*Logger, error) {
	group := cfg.Observability.CloudWatchLogGroup
	if group == "" {
		group = "/pgmirror/" + cfg.ServiceName
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Observability.CloudWatchRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s := &stream{
		client: cloudwatchlogs.NewFromConfig(awsCfg),
		group:  group,
		name:   fmt.Sprintf("%s-%s-%d", cfg.ServiceName, cfg.Environment, time.Now().Unix()),
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.ensure(initCtx); err != nil {
		return nil, err
	}

	return &Logger{
		stream: s,
		fields: map[string]interface{}{
			"service":     cfg.ServiceName,
			"environment": cfg.Environment,
		},
		errorOnly: strings.EqualFold(cfg.LogLevel, "error"),
	}, nil
}

func (l *Logger) Info(msg string, fields ...interface{}) {
	if l.errorOnly {
		return
	}
	l.log("INFO", msg, fields)
}

func (l *Logger) Error(msg string, fields ...interface{}) {
	l.log("ERROR", msg, fields)
}

func (l *Logger) WithFields(fields map[string]interface{}) ports.Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{stream: l.stream, fields: merged, errorOnly: l.errorOnly}
}

func (l *Logger) log(level, msg string, fields []interface{}) {
	entry := make(map[string]interface{}, len(l.fields)+len(fields)/2+3)
	for k, v := range l.fields {
		entry[k] = v
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		if err, ok := fields[i+1].(error); ok {
			entry[key] = err.Error()
			entry["error_type"] = fmt.Sprintf("%T", err)
			continue
		}
		entry[key] = fields[i+1]
	}
	entry["level"] = level
	entry["message"] = msg
	entry["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(entry)
	if err != nil {
		data = []byte(fmt.Sprintf(`{"level":%q,"message":%q,"error":"failed to marshal log"}`, level, msg))
	}

	go l.stream.put(string(data))
}

func (s *stream) put(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, _ = s.client.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
		LogGroupName:  aws.String(s.group),
		LogStreamName: aws.String(s.name),
		LogEvents: []types.InputLogEvent{{
			Message:   aws.String(message),
			Timestamp: aws.Int64(time.Now().UnixMilli()),
		}},
	})
}

func (s *stream) ensure(ctx context.Context) error {
	var exists *types.ResourceAlreadyExistsException

	_, err := s.client.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{LogGroupName: aws.String(s.group)})
	if err != nil && !errors.As(err, &exists) {
		return fmt.Errorf("failed to create log group: %w", err)
	}

	_, err = s.client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(s.group),
		LogStreamName: aws.String(s.name),
	})
	if err != nil && !errors.As(err, &exists) {
		return fmt.Errorf("failed to create log stream: %w", err)
	}
	return nil
}
