package histogram

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"
)

// Stats is a snapshot of latency statistics for one named operation.
type Stats struct {
	Operation      string
	TotalOps       int64
	MinNanos       uint64
	MaxNanos       uint64
	MeanNanos      float64
	MedianNanos    uint64
	P95Nanos       uint64
	P99Nanos       uint64
	StdDevNanos    float64
	ThroughputOps  float64 // ops/sec over the window the samples were recorded in
}

// Monitor tracks latency for named operations concurrently, the
// replacement for a PerformanceMonitor: callers call Start before an
// operation and the returned stop function records its duration.
type Monitor struct {
	mu        sync.Mutex
	trees     map[string]*LatencyTree
	windowLo  map[string]time.Time
	windowHi  map[string]time.Time
}

// NewMonitor creates an empty Monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		trees:    make(map[string]*LatencyTree),
		windowLo: make(map[string]time.Time),
		windowHi: make(map[string]time.Time),
	}
}

// Start begins timing an operation and returns a function that, when
// called, records the elapsed duration under that operation's name. This
// mirrors a scoped RAII timer: defer mon.Start("submit")().
func (m *Monitor) Start(operation string) func() {
	begin := time.Now()
	return func() {
		m.Record(operation, time.Since(begin))
	}
}

// Record adds one latency sample for operation.
func (m *Monitor) Record(operation string, d time.Duration) {
	now := time.Now()
	ns := uint64(d.Nanoseconds())

	m.mu.Lock()
	defer m.mu.Unlock()

	tree, ok := m.trees[operation]
	if !ok {
		tree = NewLatencyTree(256)
		m.trees[operation] = tree
		m.windowLo[operation] = now
	}
	tree.Record(ns)
	m.windowHi[operation] = now
}

// GetStats returns the current statistics for operation, or false if no
// samples have been recorded for it.
func (m *Monitor) GetStats(operation string) (Stats, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tree, ok := m.trees[operation]
	if !ok || tree.SampleCount() == 0 {
		return Stats{}, false
	}

	min, _ := tree.Min()
	max, _ := tree.Max()
	median, _ := tree.Percentile(0.50)
	p95, _ := tree.Percentile(0.95)
	p99, _ := tree.Percentile(0.99)

	elapsed := m.windowHi[operation].Sub(m.windowLo[operation]).Seconds()
	throughput := 0.0
	if elapsed > 0 {
		throughput = float64(tree.SampleCount()) / elapsed
	}

	return Stats{
		Operation:     operation,
		TotalOps:      tree.SampleCount(),
		MinNanos:      min,
		MaxNanos:      max,
		MeanNanos:     tree.Mean(),
		MedianNanos:   median,
		P95Nanos:      p95,
		P99Nanos:      p99,
		StdDevNanos:   tree.StdDev(),
		ThroughputOps: throughput,
	}, true
}

// Operations lists every operation name with at least one recorded
// sample.
func (m *Monitor) Operations() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.trees))
	for name := range m.trees {
		names = append(names, name)
	}
	return names
}

// PrintStats writes a human-readable stats report for operation to w.
func (m *Monitor) PrintStats(w io.Writer, operation string) {
	stats, ok := m.GetStats(operation)
	if !ok {
		fmt.Fprintf(w, "no samples recorded for %q\n", operation)
		return
	}

	fmt.Fprintf(w, "=== Performance Stats: %s ===\n", stats.Operation)
	fmt.Fprintf(w, "Total Operations: %d\n", stats.TotalOps)
	fmt.Fprintf(w, "Min Latency: %d ns\n", stats.MinNanos)
	fmt.Fprintf(w, "Max Latency: %d ns\n", stats.MaxNanos)
	fmt.Fprintf(w, "Mean Latency: %.2f ns\n", stats.MeanNanos)
	fmt.Fprintf(w, "Median Latency: %d ns\n", stats.MedianNanos)
	fmt.Fprintf(w, "P95 Latency: %d ns\n", stats.P95Nanos)
	fmt.Fprintf(w, "P99 Latency: %d ns\n", stats.P99Nanos)
	fmt.Fprintf(w, "Std Deviation: %.2f ns\n", stats.StdDevNanos)
	fmt.Fprintf(w, "Throughput: %.2f ops/sec\n", stats.ThroughputOps)
	fmt.Fprintln(w, "==============================")
}

// ExportCSV writes every operation's current stats to w as CSV, one row
// per operation.
func (m *Monitor) ExportCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{
		"operation", "total_ops", "min_ns", "max_ns", "mean_ns",
		"median_ns", "p95_ns", "p99_ns", "stddev_ns", "throughput_ops",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, name := range m.Operations() {
		stats, ok := m.GetStats(name)
		if !ok {
			continue
		}
		row := []string{
			stats.Operation,
			strconv.FormatInt(stats.TotalOps, 10),
			strconv.FormatUint(stats.MinNanos, 10),
			strconv.FormatUint(stats.MaxNanos, 10),
			strconv.FormatFloat(stats.MeanNanos, 'f', 2, 64),
			strconv.FormatUint(stats.MedianNanos, 10),
			strconv.FormatUint(stats.P95Nanos, 10),
			strconv.FormatUint(stats.P99Nanos, 10),
			strconv.FormatFloat(stats.StdDevNanos, 'f', 2, 64),
			strconv.FormatFloat(stats.ThroughputOps, 'f', 2, 64),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return writer.Error()
}
