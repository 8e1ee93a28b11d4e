package cloudwatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"pgmirror/shared/application/ports"
	"pgmirror/shared/infrastructure/config"
)

const (
	maxDatumsPerPut = 20
	flushInterval   = 10 * time.Second
)

// putMetricDataAPI is the part of the CloudWatch client the adapter uses.
type putMetricDataAPI interface {
	PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// sink buffers datums and ships them in batches. Shared by every Metrics
// derived through WithTags.
type sink struct {
	client    putMetricDataAPI
	namespace string
	mu        sync.Mutex
	buffer    []types.MetricDatum
}

// Metrics implements ports.Metrics using AWS CloudWatch custom metrics.
type Metrics struct {
	sink *sink
	tags map[string]string
}

// NewMetrics creates CloudWatch metrics and starts the periodic flusher,
// which stops with ctx.
func NewMetrics(ctx context.Context, cfg *config.Config) (*Metrics, error) {
	namespace := cfg.Observability.CloudWatchNamespace
	if namespace == "" {
		namespace = fmt.Sprintf("%s/%s", cfg.ServiceName, cfg.Environment)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Observability.CloudWatchRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for metrics: %w", err)
	}

	m := newMetrics(cloudwatch.NewFromConfig(awsCfg), namespace)
	go m.flushEvery(ctx, flushInterval)
	return m, nil
}

func newMetrics(client putMetricDataAPI, namespace string) *Metrics {
	return &Metrics{
		sink: &sink{client: client, namespace: namespace},
		tags: map[string]string{},
	}
}

func (m *Metrics) IncrementCounter(name string, tags map[string]string) {
	m.record(name, 1, types.StandardUnitCount, tags)
}

func (m *Metrics) RecordHistogram(name string, value float64, tags map[string]string) {
	m.record(name, value, types.StandardUnitNone, tags)
}

func (m *Metrics) RecordGauge(name string, value float64, tags map[string]string) {
	m.record(name, value, types.StandardUnitNone, tags)
}

// WithTags returns a Metrics adding tags as dimensions.
func (m *Metrics) WithTags(tags map[string]string) ports.Metrics {
	return &Metrics{sink: m.sink, tags: m.merge(tags)}
}

// Flush sends everything buffered so far.
func (m *Metrics) Flush(ctx context.Context) error {
	m.sink.mu.Lock()
	pending := m.sink.buffer
	m.sink.buffer = nil
	m.sink.mu.Unlock()

	for len(pending) > 0 {
		n := min(len(pending), maxDatumsPerPut)
		_, err := m.sink.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(m.sink.namespace),
			MetricData: pending[:n],
		})
		if err != nil {
			return fmt.Errorf("put metric data: %w", err)
		}
		pending = pending[n:]
	}
	return nil
}

func (m *Metrics) record(name string, value float64, unit types.StandardUnit, tags map[string]string) {
	all := m.merge(tags)
	if component := all["component"]; component != "" {
		name = component + "." + name
	}

	dims := make([]types.Dimension, 0, len(all))
	for k, v := range all {
		dims = append(dims, types.Dimension{Name: aws.String(k), Value: aws.String(v)})
	}

	datum := types.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(time.Now()),
		Dimensions: dims,
	}

	m.sink.mu.Lock()
	m.sink.buffer = append(m.sink.buffer, datum)
	full := len(m.sink.buffer) >= maxDatumsPerPut
	m.sink.mu.Unlock()

	if full {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = m.Flush(ctx)
		}()
	}
}

func (m *Metrics) flushEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = m.Flush(flushCtx)
			cancel()
			return
		case <-ticker.C:
			_ = m.Flush(ctx)
		}
	}
}

func (m *Metrics) merge(tags map[string]string) map[string]string {
	all := make(map[string]string, len(m.tags)+len(tags))
	for k, v := range m.tags {
		all[k] = v
	}
	for k, v := range tags {
		all[k] = v
	}
	return all
}
