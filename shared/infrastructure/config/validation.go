package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate validates the entire configuration
func (c *Config) Validate() error {
	var errors []string

	if c.ServiceName == "" {
		errors = append(errors, "SERVICE_NAME is required")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid LOG_FORMAT: %s (must be text or json)", c.LogFormat))
	}

	if err := c.Adapters.Validate(); err != nil {
		errors = append(errors, err.Error())
	}
	if err := c.Runtime.Validate(); err != nil {
		errors = append(errors, err.Error())
	}

	switch c.Adapters.Runtime {
	case "http":
		if err := c.HTTP.Validate(); err != nil {
			errors = append(errors, err.Error())
		}
	case "lambda":
		if err := c.Lambda.Validate(); err != nil {
			errors = append(errors, err.Error())
		}
	case "rabbitmq":
		if err := c.Queue.RabbitMQ.Validate(); err != nil {
			errors = append(errors, err.Error())
		}
	}

	if c.Adapters.Queue != "" && c.Queue.Fetch == "" {
		errors = append(errors, "QUEUE_FETCH is required when a queue adapter is selected")
	}

	if err := c.Storage.Validate(c.Adapters); err != nil {
		errors = append(errors, err.Error())
	}

	if c.Adapters.Logger == "cloudwatch" || c.Adapters.Metrics == "cloudwatch" {
		if err := c.Observability.Validate(c.Adapters); err != nil {
			errors = append(errors, err.Error())
		}
	}

	if c.Adapters.Database != "" {
		if err := c.Database.Validate(); err != nil {
			errors = append(errors, err.Error())
		}
	}

	if err := c.Mirror.Validate(); err != nil {
		errors = append(errors, err.Error())
	}
	if c.Index.PipelineBuffer < 0 {
		errors = append(errors, "INDEX_PIPELINE_BUFFER cannot be negative")
	}
	if c.Resolver.Concurrency <= 0 {
		errors = append(errors, "RESOLVER_CONCURRENCY must be positive")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// Validate validates adapter configuration
func (a *AdapterConfig) Validate() error {
	validRuntimes := map[string]bool{"lambda": true, "http": true, "rabbitmq": true}
	if !validRuntimes[a.Runtime] {
		return fmt.Errorf("invalid runtime adapter: %s (must be lambda, http, or rabbitmq)", a.Runtime)
	}

	validStorage := map[string]bool{"s3": true, "filesystem": true}
	if !validStorage[a.Storage] {
		return fmt.Errorf("invalid storage adapter: %s (must be s3 or filesystem)", a.Storage)
	}

	validLogger := map[string]bool{"cloudwatch": true, "stdout": true}
	if !validLogger[a.Logger] {
		return fmt.Errorf("invalid logger adapter: %s (must be cloudwatch or stdout)", a.Logger)
	}

	validMetrics := map[string]bool{"cloudwatch": true, "stdout": true, "prometheus": true}
	if !validMetrics[a.Metrics] {
		return fmt.Errorf("invalid metrics adapter: %s (must be cloudwatch, stdout, or prometheus)", a.Metrics)
	}

	validQueue := map[string]bool{"": true, "rabbitmq": true, "sqs": true}
	if !validQueue[a.Queue] {
		return fmt.Errorf("invalid queue adapter: %s (must be rabbitmq, sqs, or empty)", a.Queue)
	}

	if a.Database != "" && a.Database != "postgres" {
		return fmt.Errorf("invalid database adapter: %s", a.Database)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Addr == "" {
		return fmt.Errorf("HTTP_ADDR is required for HTTP runtime")
	}
	if h.ReadTimeout <= 0 || h.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP_READ_TIMEOUT and HTTP_WRITE_TIMEOUT must be positive")
	}
	if h.MetricsPath != "" && !strings.HasPrefix(h.MetricsPath, "/") {
		return fmt.Errorf("HTTP_METRICS_PATH must start with /")
	}
	return nil
}

// Validate validates Lambda configuration
func (l *LambdaConfig) Validate() error {
	if l.Timeout <= 0 {
		return fmt.Errorf("LAMBDA_TIMEOUT must be positive")
	}
	return nil
}

// Validate validates runtime configuration
func (r *RuntimeConfig) Validate() error {
	if r.Timeout <= 0 {
		return fmt.Errorf("RUNTIME_TIMEOUT must be positive")
	}
	if r.MaxRequestSize <= 0 {
		return fmt.Errorf("RUNTIME_MAX_REQUEST_SIZE must be positive")
	}
	return nil
}

// Validate validates RabbitMQ configuration
func (r *RabbitMQConfig) Validate() error {
	if r.URL == "" {
		return fmt.Errorf("RABBITMQ_URL is required for RabbitMQ runtime")
	}
	if r.Queue == "" {
		return fmt.Errorf("RABBITMQ_QUEUE is required for RabbitMQ runtime")
	}
	if r.PrefetchCount < 0 {
		return fmt.Errorf("RABBITMQ_PREFETCH_COUNT cannot be negative")
	}
	if r.Timeout <= 0 {
		return fmt.Errorf("RABBITMQ_TIMEOUT must be positive")
	}
	return nil
}

// Validate validates Storage configuration
func (s *StorageConfig) Validate(adapters AdapterConfig) error {
	if s.Timeout <= 0 {
		return fmt.Errorf("STORAGE_TIMEOUT must be positive")
	}

	switch adapters.Storage {
	case "s3":
		if s.BucketOrPath == "" {
			return fmt.Errorf("STORAGE_BUCKET_OR_PATH (bucket) is required for S3 storage")
		}
		if s.S3.Region == "" {
			return fmt.Errorf("AWS_REGION is required for S3 storage")
		}
	case "filesystem":
		if s.BucketOrPath == "" {
			return fmt.Errorf("STORAGE_BUCKET_OR_PATH (path) is required for filesystem storage")
		}
	}

	return nil
}

// Validate validates Observability configuration
func (o *ObservabilityConfig) Validate(adapters AdapterConfig) error {
	if o.CloudWatchRegion == "" {
		return fmt.Errorf("CLOUDWATCH_REGION is required for CloudWatch")
	}
	if adapters.Logger == "cloudwatch" && o.CloudWatchLogGroup == "" {
		return fmt.Errorf("CLOUDWATCH_LOG_GROUP is required for CloudWatch logging")
	}
	if adapters.Metrics == "cloudwatch" && o.CloudWatchNamespace == "" {
		return fmt.Errorf("CLOUDWATCH_NAMESPACE is required for CloudWatch metrics")
	}
	return nil
}

// Validate validates Database configuration
func (d *DatabaseConfig) Validate() error {
	var errors []string

	if d.Host == "" {
		errors = append(errors, "DB_HOST is required")
	}
	if d.Port <= 0 || d.Port > 65535 {
		errors = append(errors, "DB_PORT must be between 1 and 65535")
	}
	if d.Database == "" {
		errors = append(errors, "DB_NAME is required")
	}
	if d.Username == "" {
		errors = append(errors, "DB_USER is required")
	}
	if d.MaxOpenConns < 0 {
		errors = append(errors, "DB_MAX_OPEN_CONNS cannot be negative")
	}
	if d.MaxIdleConns < 0 {
		errors = append(errors, "DB_MAX_IDLE_CONNS cannot be negative")
	}
	if d.MaxOpenConns > 0 && d.MaxIdleConns > d.MaxOpenConns {
		errors = append(errors, "DB_MAX_IDLE_CONNS cannot be greater than DB_MAX_OPEN_CONNS")
	}

	if len(errors) > 0 {
		return fmt.Errorf("database configuration errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// Validate validates the mirror location
func (m *MirrorConfig) Validate() error {
	u, err := url.Parse(m.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("MIRROR_URL must be an absolute URL, got %q", m.URL)
	}
	if m.RsyncURL == "" {
		return fmt.Errorf("MIRROR_RSYNC_URL is required")
	}
	if m.Name == "" {
		return fmt.Errorf("MIRROR_NAME is required")
	}
	if m.IndexMarker == "" {
		return fmt.Errorf("MIRROR_INDEX_MARKER is required")
	}
	return nil
}
