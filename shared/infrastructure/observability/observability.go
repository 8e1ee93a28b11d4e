package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"pgmirror/shared/application/ports"
	"pgmirror/shared/infrastructure/config"
	"pgmirror/shared/infrastructure/observability/adapters/cloudwatch"
	promadapter "pgmirror/shared/infrastructure/observability/adapters/prometheus"
	"pgmirror/shared/infrastructure/observability/adapters/stdout"
)

type observability struct {
	config  *config.Config
	logger  ports.Logger
	metrics ports.Metrics
}

// CreateObservability builds the logger and metrics selected by
// ADAPTER_LOGGER and ADAPTER_METRICS.
func CreateObservability(ctx context.Context, cfg *config.Config) (ports.Observability, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	logger, err := createLogger(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create observability: %w", err)
	}
	metrics, err := createMetrics(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create observability: %w", err)
	}

	return New(cfg, logger, metrics), nil
}

// New wraps existing adapters, mostly for tests and tools.
func New(cfg *config.Config, logger ports.Logger, metrics ports.Metrics) ports.Observability {
	return &observability{config: cfg, logger: logger, metrics: metrics}
}

func createLogger(ctx context.Context, cfg *config.Config) (ports.Logger, error) {
	switch cfg.Adapters.Logger {
	case "cloudwatch":
		return cloudwatch.NewLogger(ctx, cfg)
	case "stdout", "":
		return stdout.NewLogger(stdout.LoggerOptions{
			JSON:  cfg.LogFormat == "json",
			Level: cfg.LogLevel,
			File:  cfg.LogFile,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported logger adapter: %s", cfg.Adapters.Logger)
	}
}

func createMetrics(ctx context.Context, cfg *config.Config) (ports.Metrics, error) {
	switch cfg.Adapters.Metrics {
	case "cloudwatch":
		return cloudwatch.NewMetrics(ctx, cfg)
	case "prometheus":
		return promadapter.New(prometheus.DefaultRegisterer, cfg.Observability.PrometheusNamespace), nil
	case "stdout", "":
		return stdout.NewMetrics(nil, cfg.LogFormat == "json"), nil
	default:
		return nil, fmt.Errorf("unsupported metrics adapter: %s", cfg.Adapters.Metrics)
	}
}

// Components returns logger and metrics without any scoping
func (obs *observability) Components() (ports.Logger, ports.Metrics, error) {
	if obs.logger == nil || obs.metrics == nil {
		return nil, nil, fmt.Errorf("observability not initialized")
	}
	return obs.logger, obs.metrics, nil
}

// ComponentsScoped returns logger and metrics scoped to a specific component
func (obs *observability) ComponentsScoped(component string) (ports.Logger, ports.Metrics, error) {
	if obs.logger == nil || obs.metrics == nil {
		return nil, nil, fmt.Errorf("observability not initialized")
	}
	return obs.scopedLogger(component), obs.scopedMetrics(component), nil
}

func (obs *observability) Logger() (ports.Logger, error) {
	if obs.logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	return obs.logger, nil
}

func (obs *observability) LoggerScoped(component string) (ports.Logger, error) {
	if obs.logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	return obs.scopedLogger(component), nil
}

func (obs *observability) Metrics() (ports.Metrics, error) {
	if obs.metrics == nil {
		return nil, fmt.Errorf("metrics not initialized")
	}
	return obs.metrics, nil
}

func (obs *observability) MetricsScoped(component string) (ports.Metrics, error) {
	if obs.metrics == nil {
		return nil, fmt.Errorf("metrics not initialized")
	}
	return obs.scopedMetrics(component), nil
}

func (obs *observability) scopedLogger(component string) ports.Logger {
	return obs.logger.WithFields(map[string]interface{}{
		"service":   obs.config.ServiceName,
		"version":   obs.config.Version,
		"env":       obs.config.Environment,
		"component": component,
	})
}

// Metrics only carry the component tag; the service identity is already the
// namespace of the metrics backend.
func (obs *observability) scopedMetrics(component string) ports.Metrics {
	return obs.metrics.WithTags(map[string]string{
		"component": component,
	})
}
