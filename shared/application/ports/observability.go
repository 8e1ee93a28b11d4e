package ports

// Observability hands out loggers and metrics, optionally scoped to a
// component of the service.
type Observability interface {
	Components() (Logger, Metrics, error)
	ComponentsScoped(component string) (Logger, Metrics, error)
	Logger() (Logger, error)
	LoggerScoped(component string) (Logger, error)
	Metrics() (Metrics, error)
	MetricsScoped(component string) (Metrics, error)
}

// Logger is a structured logger. Fields are alternating keys and values:
//
//	logger.Info("index loaded", "paths", idx.Len(), "source", "snapshot")
//
// An error value is rendered with its message.
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})

	// WithFields returns a logger adding fields to every entry, such as
	// run_id or component.
	WithFields(fields map[string]interface{}) Logger
}

// Metrics records application metrics. Names are dotted, lower case
// ("index.load.success"); tags become dimensions or labels.
type Metrics interface {
	IncrementCounter(name string, tags map[string]string)

	// RecordHistogram records a value where the distribution matters,
	// such as durations or sizes.
	RecordHistogram(name string, value float64, tags map[string]string)

	RecordGauge(name string, value float64, tags map[string]string)

	// WithTags returns a Metrics adding tags to every observation.
	WithTags(tags map[string]string) Metrics
}
