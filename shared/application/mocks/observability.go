// Package mocks provides testify mocks for the application ports
package mocks

import (
	"github.com/stretchr/testify/mock"

	"pgmirror/shared/application/ports"
)

// MockLogger is a mock implementation of ports.Logger
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Info(msg string, fields ...interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) Error(msg string, fields ...interface{}) {
	m.Called(msg, fields)
}

// WithFields returns the configured logger, or the mock itself when the
// expectation returns nothing usable
func (m *MockLogger) WithFields(fields map[string]interface{}) ports.Logger {
	args := m.Called(fields)
	if logger, ok := args.Get(0).(ports.Logger); ok {
		return logger
	}
	return m
}

// NewNopLogger returns a MockLogger accepting any call
func NewNopLogger() *MockLogger {
	m := new(MockLogger)
	m.On("Info", mock.Anything, mock.Anything).Maybe()
	m.On("Error", mock.Anything, mock.Anything).Maybe()
	m.On("WithFields", mock.Anything).Return(nil).Maybe()
	return m
}

// MockMetrics is a mock implementation of ports.Metrics
type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) IncrementCounter(name string, tags map[string]string) {
	m.Called(name, tags)
}

func (m *MockMetrics) RecordHistogram(name string, value float64, tags map[string]string) {
	m.Called(name, value, tags)
}

func (m *MockMetrics) RecordGauge(name string, value float64, tags map[string]string) {
	m.Called(name, value, tags)
}

func (m *MockMetrics) WithTags(tags map[string]string) ports.Metrics {
	args := m.Called(tags)
	if metrics, ok := args.Get(0).(ports.Metrics); ok {
		return metrics
	}
	return m
}

// NewNopMetrics returns a MockMetrics accepting any call
func NewNopMetrics() *MockMetrics {
	m := new(MockMetrics)
	m.On("IncrementCounter", mock.Anything, mock.Anything).Maybe()
	m.On("RecordHistogram", mock.Anything, mock.Anything, mock.Anything).Maybe()
	m.On("RecordGauge", mock.Anything, mock.Anything, mock.Anything).Maybe()
	m.On("WithTags", mock.Anything).Return(nil).Maybe()
	return m
}

// Observability hands out the same logger and metrics for every component
type Observability struct {
	Log ports.Logger
	Met ports.Metrics
}

// NewNopObservability returns an Observability backed by nop mocks
func NewNopObservability() *Observability {
	return &Observability{Log: NewNopLogger(), Met: NewNopMetrics()}
}

func (o *Observability) Components() (ports.Logger, ports.Metrics, error) {
	return o.Log, o.Met, nil
}

func (o *Observability) ComponentsScoped(string) (ports.Logger, ports.Metrics, error) {
	return o.Log, o.Met, nil
}

func (o *Observability) Logger() (ports.Logger, error) { return o.Log, nil }

func (o *Observability) LoggerScoped(string) (ports.Logger, error) { return o.Log, nil }

func (o *Observability) Metrics() (ports.Metrics, error) { return o.Met, nil }

func (o *Observability) MetricsScoped(string) (ports.Metrics, error) { return o.Met, nil }
