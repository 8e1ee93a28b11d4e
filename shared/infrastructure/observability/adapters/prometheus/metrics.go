// Package prometheus exposes ports.Metrics observations as Prometheus
// collectors, so the HTTP runtime can serve them on its metrics endpoint.
package prometheus

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"pgmirror/shared/application/ports"
)

// registry holds the collectors created on demand. It is shared by every
// Metrics derived through WithTags.
type registry struct {
	mu         sync.Mutex
	reg        prometheus.Registerer
	namespace  string
	counters   map[string]*vec[*prometheus.CounterVec]
	histograms map[string]*vec[*prometheus.HistogramVec]
	gauges     map[string]*vec[*prometheus.GaugeVec]
}

// vec remembers the label names a collector was created with. Prometheus
// requires the same label set on every observation of one metric.
type vec[T any] struct {
	collector T
	labels    []string
}

// Metrics implements ports.Metrics on top of the Prometheus client library.
//
// Metric names use the dotted style of the rest of the code base
// ("index.load.success") and are converted to Prometheus names
// ("<namespace>_index_load_success_total"). The label names of a metric are
// fixed by its first observation: later observations fill absent labels
// with an empty value and drop labels the metric was not created with.
type Metrics struct {
	reg  *registry
	tags map[string]string
}

// New creates a Metrics registering its collectors with reg. A nil reg
// means prometheus.DefaultRegisterer.
//
// Parameters:
//   - reg: where collectors are registered; tests pass prometheus.NewRegistry()
//   - namespace: prefix of every metric name (e.g. "pgmirror")
func New(reg prometheus.Registerer, namespace string) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Metrics{
		reg: &registry{
			reg:        reg,
			namespace:  sanitize(namespace),
			counters:   make(map[string]*vec[*prometheus.CounterVec]),
			histograms: make(map[string]*vec[*prometheus.HistogramVec]),
			gauges:     make(map[string]*vec[*prometheus.GaugeVec]),
		},
		tags: map[string]string{},
	}
}

// IncrementCounter increments the "<name>_total" counter by one.
func (m *Metrics) IncrementCounter(name string, tags map[string]string) {
	all := m.merge(tags)

	m.reg.mu.Lock()
	v, ok := m.reg.counters[name]
	if !ok {
		labels := labelNames(all)
		c := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.reg.namespace,
			Name:      sanitize(name) + "_total",
			Help:      "Count of " + name + " events.",
		}, labels)
		v = &vec[*prometheus.CounterVec]{collector: register(m.reg.reg, c), labels: labels}
		m.reg.counters[name] = v
	}
	m.reg.mu.Unlock()

	v.collector.WithLabelValues(labelValues(v.labels, all)...).Inc()
}

// RecordHistogram observes value with the default Prometheus buckets.
func (m *Metrics) RecordHistogram(name string, value float64, tags map[string]string) {
	all := m.merge(tags)

	m.reg.mu.Lock()
	v, ok := m.reg.histograms[name]
	if !ok {
		labels := labelNames(all)
		h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: m.reg.namespace,
			Name:      sanitize(name),
			Help:      "Distribution of " + name + ".",
			Buckets:   prometheus.DefBuckets,
		}, labels)
		v = &vec[*prometheus.HistogramVec]{collector: register(m.reg.reg, h), labels: labels}
		m.reg.histograms[name] = v
	}
	m.reg.mu.Unlock()

	v.collector.WithLabelValues(labelValues(v.labels, all)...).Observe(value)
}

// RecordGauge sets the gauge to value.
func (m *Metrics) RecordGauge(name string, value float64, tags map[string]string) {
	all := m.merge(tags)

	m.reg.mu.Lock()
	v, ok := m.reg.gauges[name]
	if !ok {
		labels := labelNames(all)
		g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: m.reg.namespace,
			Name:      sanitize(name),
			Help:      "Current value of " + name + ".",
		}, labels)
		v = &vec[*prometheus.GaugeVec]{collector: register(m.reg.reg, g), labels: labels}
		m.reg.gauges[name] = v
	}
	m.reg.mu.Unlock()

	v.collector.WithLabelValues(labelValues(v.labels, all)...).Set(value)
}

// WithTags returns a Metrics that adds tags as labels to every observation.
// Collectors are shared with the parent.
func (m *Metrics) WithTags(tags map[string]string) ports.Metrics {
	return &Metrics{reg: m.reg, tags: m.merge(tags)}
}

func (m *Metrics) merge(tags map[string]string) map[string]string {
	all := make(map[string]string, len(m.tags)+len(tags))
	for k, v := range m.tags {
		all[sanitize(k)] = v
	}
	for k, v := range tags {
		all[sanitize(k)] = v
	}
	return all
}

// register adds c to reg, or returns the collector already registered under
// the same descriptor.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func labelNames(tags map[string]string) []string {
	names := make([]string, 0, len(tags))
	for k := range tags {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func labelValues(names []string, tags map[string]string) []string {
	values := make([]string, len(names))
	for i, n := range names {
		values[i] = tags[n]
	}
	return values
}

// sanitize maps a dotted or dashed name to the Prometheus charset.
func sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
