// Package monitoring keeps in-process counters and latency summaries for the
// inference server.
package monitoring

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// MetricType is the exported Prometheus type of a series.
type MetricType string

const (
	MetricTypeCounter MetricType = "counter"
	MetricTypeSummary MetricType = "summary"
)

// Sample is the current value of one counter series.
type Sample struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels,omitempty"`
	Value  float64           `json:"value"`
}

// SummarySample aggregates the observations of one summary series.
type SummarySample struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels,omitempty"`
	Count  int64             `json:"count"`
	Sum    float64           `json:"sum"`
	Min    float64           `json:"min"`
	Max    float64           `json:"max"`
}

// Average returns Sum/Count, or 0 without observations.
func (s SummarySample) Average() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.Sum / float64(s.Count)
}

// SystemStats are runtime figures sampled at snapshot time.
type SystemStats struct {
	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heap_alloc"`
	HeapSys    uint64 `json:"heap_sys"`
	GCCount    uint32 `json:"gc_count"`
	NumCPU     int    `json:"num_cpu"`
}

// Snapshot is a point-in-time copy of every series, sorted by series key.
type Snapshot struct {
	Uptime    string          `json:"uptime"`
	Counters  []Sample        `json:"counters"`
	Summaries []SummarySample `json:"summaries"`
	System    SystemStats     `json:"system"`
}

// Collector holds counter and summary series keyed by name and labels.
// Safe for concurrent use.
type Collector struct {
	mu        sync.RWMutex
	counters  map[string]*Sample
	summaries map[string]*SummarySample
	help      map[string]string

	startTime time.Time
}

func NewCollector() *Collector {
	return &Collector{
		counters:  make(map[string]*Sample),
		summaries: make(map[string]*SummarySample),
		help:      make(map[string]string),
		startTime: time.Now(),
	}
}

// Describe sets the help text exported for metric name.
func (c *Collector) Describe(name, help string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.help[name] = help
}

// IncrCounter adds one to the counter series name{labels}.
func (c *Collector) IncrCounter(name string, labels map[string]string) {
	c.AddCounter(name, 1, labels)
}

// AddCounter adds delta to the counter series name{labels}.
func (c *Collector) AddCounter(name string, delta float64, labels map[string]string) {
	key := seriesKey(name, labels)

	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.counters[key]
	if !ok {
		s = &Sample{Name: name, Labels: copyLabels(labels)}
		c.counters[key] = s
	}
	s.Value += delta
}

// Counter returns the value of one counter series, 0 when it was never
// incremented.
func (c *Collector) Counter(name string, labels map[string]string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if s, ok := c.counters[seriesKey(name, labels)]; ok {
		return s.Value
	}
	return 0
}

// Observe records value in the summary series name{labels}.
func (c *Collector) Observe(name string, value float64, labels map[string]string) {
	key := seriesKey(name, labels)

	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.summaries[key]
	if !ok {
		s = &SummarySample{Name: name, Labels: copyLabels(labels), Min: value, Max: value}
		c.summaries[key] = s
	}
	s.Count++
	s.Sum += value
	if value < s.Min {
		s.Min = value
	}
	if value > s.Max {
		s.Max = value
	}
}

// Snapshot copies every series.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		Uptime:    time.Since(c.startTime).Round(time.Second).String(),
		Counters:  make([]Sample, 0, len(c.counters)),
		Summaries: make([]SummarySample, 0, len(c.summaries)),
		System:    systemStats(),
	}
	for _, key := range sortedKeys(c.counters) {
		s := *c.counters[key]
		s.Labels = copyLabels(s.Labels)
		snap.Counters = append(snap.Counters, s)
	}
	for _, key := range sortedKeys(c.summaries) {
		s := *c.summaries[key]
		s.Labels = copyLabels(s.Labels)
		snap.Summaries = append(snap.Summaries, s)
	}
	return snap
}

// ExportPrometheus renders the series in the Prometheus text format.
// Summaries are exported as their _count and _sum series.
func (c *Collector) ExportPrometheus() string {
	snap := c.Snapshot()

	c.mu.RLock()
	help := make(map[string]string, len(c.help))
	for k, v := range c.help {
		help[k] = v
	}
	c.mu.RUnlock()

	var b strings.Builder
	header := func(name string, typ MetricType, seen map[string]bool) {
		if seen[name] {
			return
		}
		seen[name] = true
		if h, ok := help[name]; ok {
			fmt.Fprintf(&b, "# HELP %s %s\n", name, h)
		}
		fmt.Fprintf(&b, "# TYPE %s %s\n", name, typ)
	}

	seen := make(map[string]bool)
	for _, s := range snap.Counters {
		header(s.Name, MetricTypeCounter, seen)
		fmt.Fprintf(&b, "%s %g\n", seriesKey(s.Name, s.Labels), s.Value)
	}
	for _, s := range snap.Summaries {
		header(s.Name, MetricTypeSummary, seen)
		fmt.Fprintf(&b, "%s %d\n", seriesKey(s.Name+"_count", s.Labels), s.Count)
		fmt.Fprintf(&b, "%s %g\n", seriesKey(s.Name+"_sum", s.Labels), s.Sum)
	}
	return b.String()
}

func systemStats() SystemStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return SystemStats{
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  m.HeapAlloc,
		HeapSys:    m.HeapSys,
		GCCount:    m.NumGC,
		NumCPU:     runtime.NumCPU(),
	}
}

// seriesKey formats name{k="v",...} with labels in key order.
func seriesKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s=%q", k, labels[k])
	}
	b.WriteByte('}')
	return b.String()
}

func copyLabels(labels map[string]string) map[string]string {
	if len(labels) == 0 {
		return nil
	}
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
