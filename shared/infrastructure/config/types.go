package config

import (
	"time"
)

// Config holds all application configuration
type Config struct {
	// Core settings
	Environment string
	ServiceName string
	LogLevel    string
	LogFormat   string // "text", "json"
	LogFile     string // optional rotating file sink for the stdout logger
	Version     string

	// Adapter selection
	Adapters AdapterConfig

	// Component configurations
	HTTP          HTTPConfig
	Lambda        LambdaConfig
	Runtime       RuntimeConfig
	Storage       StorageConfig
	Database      DatabaseConfig
	Observability ObservabilityConfig
	Queue         QueueConfig

	// Resolver worker
	Mirror   MirrorConfig
	Index    IndexConfig
	Resolver ResolverConfig
}

// AdapterConfig specifies which implementations to use
type AdapterConfig struct {
	Runtime  string // "lambda", "http", "rabbitmq"
	Storage  string // "s3", "filesystem"
	Database string // "postgres"
	Logger   string // "cloudwatch", "stdout"
	Metrics  string // "cloudwatch", "stdout", "prometheus"
	Queue    string // "rabbitmq", "sqs" or empty to skip publishing
}

// DatabaseConfig holds the catalog database configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	Database     string
	Username     string
	Password     string
	MaxOpenConns int
	MaxIdleConns int
	SSLMode      string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MetricsPath  string // empty disables the metrics endpoint
}

// LambdaConfig holds Lambda-specific configuration
type LambdaConfig struct {
	Timeout                   time.Duration
	EnablePartialBatchFailure bool
}

// RuntimeConfig applies to every runtime adapter
type RuntimeConfig struct {
	Timeout        time.Duration
	MaxRequestSize int64
	EnableHealth   bool
}

type StorageConfig struct {
	// Bucket name for S3, working directory for the filesystem adapter
	BucketOrPath string
	Timeout      time.Duration

	S3 S3Config
}

// S3Config holds S3-specific configuration
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // MinIO or other S3-compatible services
	UsePathStyle    bool
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	CloudWatchRegion    string
	CloudWatchLogGroup  string
	CloudWatchNamespace string
	PrometheusNamespace string
}

// QueueConfig holds queue names and connection settings
type QueueConfig struct {
	Fetch string // resolutions are published here

	RabbitMQ RabbitMQConfig
	SQS      SQSConfig
}

// RabbitMQConfig holds RabbitMQ connection settings. Queue is the queue the
// rabbitmq runtime consumes from.
type RabbitMQConfig struct {
	URL           string
	Queue         string
	Timeout       time.Duration
	PrefetchCount int
}

// SQSConfig holds SQS settings
type SQSConfig struct {
	Region   string
	Endpoint string
}

// MirrorConfig describes the Gutenberg mirror being resolved against
type MirrorConfig struct {
	URL         string
	RsyncURL    string
	Name        string
	IndexMarker string
	RsyncBinary string
}

// IndexConfig tunes listing index construction
type IndexConfig struct {
	ForceRebuild   bool
	PipelineBuffer int
}

// ResolverConfig tunes URL resolution
type ResolverConfig struct {
	Concurrency int
	Exclusions  string // "id:format,..." added to the built-in exclusions
}
