package stdout

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"pgmirror/shared/application/ports"
)

// store is shared by every Metrics derived through WithTags.
type store struct {
	mu         sync.Mutex
	counters   map[string]int64
	histograms map[string][]float64
	gauges     map[string]float64
}

// Metrics implements ports.Metrics by keeping values in memory and writing
// one line per observation.
type Metrics struct {
	tags   map[string]string
	logger *log.Logger
	json   bool
	store  *store
}

// NewMetrics creates a stdout metrics sink. A nil output means os.Stdout.
func NewMetrics(out io.Writer, jsonOutput bool) *Metrics {
	if out == nil {
		out = os.Stdout
	}
	return &Metrics{
		tags:   map[string]string{},
		logger: log.New(out, "", 0),
		json:   jsonOutput,
		store: &store{
			counters:   make(map[string]int64),
			histograms: make(map[string][]float64),
			gauges:     make(map[string]float64),
		},
	}
}

func (m *Metrics) IncrementCounter(name string, tags map[string]string) {
	all := m.merge(tags)
	key := metricKey(name, all)

	m.store.mu.Lock()
	m.store.counters[key]++
	value := m.store.counters[key]
	m.store.mu.Unlock()

	m.emit("COUNTER", name, float64(value), all)
}

func (m *Metrics) RecordHistogram(name string, value float64, tags map[string]string) {
	all := m.merge(tags)
	key := metricKey(name, all)

	m.store.mu.Lock()
	m.store.histograms[key] = append(m.store.histograms[key], value)
	m.store.mu.Unlock()

	m.emit("HISTOGRAM", name, value, all)
}

func (m *Metrics) RecordGauge(name string, value float64, tags map[string]string) {
	all := m.merge(tags)
	key := metricKey(name, all)

	m.store.mu.Lock()
	m.store.gauges[key] = value
	m.store.mu.Unlock()

	m.emit("GAUGE", name, value, all)
}

// WithTags returns a Metrics adding tags to every observation. Values are
// shared with the parent.
func (m *Metrics) WithTags(tags map[string]string) ports.Metrics {
	return &Metrics{
		tags:   m.merge(tags),
		logger: m.logger,
		json:   m.json,
		store:  m.store,
	}
}

// Counter returns the current value of a counter including default tags.
func (m *Metrics) Counter(name string, tags map[string]string) int64 {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return m.store.counters[metricKey(name, m.merge(tags))]
}

// Histogram returns a copy of the recorded values.
func (m *Metrics) Histogram(name string, tags map[string]string) []float64 {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return append([]float64(nil), m.store.histograms[metricKey(name, m.merge(tags))]...)
}

// Gauge returns the last recorded gauge value.
func (m *Metrics) Gauge(name string, tags map[string]string) float64 {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return m.store.gauges[metricKey(name, m.merge(tags))]
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

func (m *Metrics) emit(kind, name string, value float64, tags map[string]string) {
	timestamp := time.Now().UTC().Format(time.RFC3339)
	if m.json {
		b, err := json.Marshal(map[string]interface{}{
			"timestamp": timestamp,
			"type":      "metric",
			"metric":    kind,
			"name":      name,
			"value":     value,
			"tags":      tags,
		})
		if err != nil {
			return
		}
		m.logger.Println(string(b))
		return
	}

	line := fmt.Sprintf("%s [METRIC] %s %s=%g", timestamp, kind, name, value)
	if pairs := sortedPairs(tags, "="); len(pairs) > 0 {
		line += " " + strings.Join(pairs, " ")
	}
	m.logger.Println(line)
}

func metricKey(name string, tags map[string]string) string {
	pairs := sortedPairs(tags, ":")
	if len(pairs) == 0 {
		return name
	}
	return name + "{" + strings.Join(pairs, ",") + "}"
}

func sortedPairs(tags map[string]string, sep string) []string {
	pairs := make([]string, 0, len(tags))
	for k, v := range tags {
		pairs = append(pairs, k+sep+v)
	}
	sort.Strings(pairs)
	return pairs
}
