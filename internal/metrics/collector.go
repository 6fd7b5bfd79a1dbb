package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// RunMetadata carries per-run context for breakdowns. Command groups the
// run under its command string; ExitCode is the child's exit code, with
// -1 standing in for signal-terminated children.
type RunMetadata struct {
	Command  string
	ExitCode int
}

// Collector records per-run metrics in a thread-safe manner. It feeds the
// live progress line, the dashboard, and the verbose report; the three-line
// summary is computed from the result slots instead (see Summarize).
type Collector struct {
	mu           sync.Mutex
	overall      *bucket
	commands     map[string]*bucket
	errorsByType map[string]int64
	start        time.Time
}

// bucket accumulates one stream of run measurements. The collector keeps
// one for the whole run and one per command string.
type bucket struct {
	hist       *hdrhistogram.Histogram
	successes  int64
	failures   int64
	minLatency time.Duration
	maxLatency time.Duration
	sumLatency time.Duration
	exitCounts map[string]int64
}

// RunStats represents aggregated metrics for one stream of runs.
type RunStats struct {
	Total       int64         `json:"total"`
	Successes   int64         `json:"successes"`
	Failures    int64         `json:"failures"`
	MinLatency  time.Duration `json:"-"`
	MaxLatency  time.Duration `json:"-"`
	MeanLatency time.Duration `json:"-"`
	P50Latency  time.Duration `json:"-"`
	P90Latency  time.Duration `json:"-"`
	P99Latency  time.Duration `json:"-"`
	RunsPerSec  float64       `json:"runs_per_sec"`

	// JSON-friendly millisecond fields.
	MinLatencyMs  float64 `json:"min_latency_ms"`
	MaxLatencyMs  float64 `json:"max_latency_ms"`
	MeanLatencyMs float64 `json:"mean_latency_ms"`
	P50LatencyMs  float64 `json:"p50_latency_ms"`
	P90LatencyMs  float64 `json:"p90_latency_ms"`
	P99LatencyMs  float64 `json:"p99_latency_ms"`

	ExitCounts map[string]int `json:"exit_counts,omitempty"`
}

// Stats represents the full aggregated picture of a run.
type Stats struct {
	RunStats

	Duration   time.Duration `json:"-"`
	DurationMs float64       `json:"duration_ms"`

	RunID    string              `json:"run_id,omitempty"`
	Commands map[string]RunStats `json:"commands,omitempty"`
	Errors   map[string]int      `json:"errors,omitempty"`
}

func NewCollector() *Collector {
	return &Collector{
		overall:      newBucket(),
		commands:     make(map[string]*bucket),
		errorsByType: make(map[string]int64),
		start:        time.Now(),
	}
}

func newBucket() *bucket {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	// Exact min/max/mean live outside the histogram, so clamping only
	// affects percentiles.
	return &bucket{
		hist:       hdrhistogram.New(1, 60_000_000, 3),
		exitCounts: make(map[string]int64),
	}
}

// Start marks the beginning of dispatch for runs-per-second calculations.
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start = time.Now()
}

// Elapsed reports the time since Start.
func (c *Collector) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.start)
}

// RecordRun records a single run's latency and outcome. A nil err means the
// child ran to completion, whatever its exit code; err carries spawn and
// cancellation failures. meta may be nil.
func (c *Collector) RecordRun(latency time.Duration, err error, meta *RunMetadata) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.overall.record(latency, err, meta)
	if meta != nil && meta.Command != "" {
		b, ok := c.commands[meta.Command]
		if !ok {
			b = newBucket()
			c.commands[meta.Command] = b
		}
		b.record(latency, err, meta)
	}

	if err != nil {
		errorType := fmt.Sprintf("%T", err)
		if len(errorType) > 30 {
			errorType = errorType[len(errorType)-30:]
		}
		c.errorsByType[errorType]++
	}
}

func (b *bucket) record(latency time.Duration, err error, meta *RunMetadata) {
	if latency > 0 {
		us := latency.Microseconds()
		if us < b.hist.LowestTrackableValue() {
			us = b.hist.LowestTrackableValue()
		}
		if us > b.hist.HighestTrackableValue() {
			us = b.hist.HighestTrackableValue()
		}
		_ = b.hist.RecordValue(us)
	}
	b.sumLatency += latency

	if b.minLatency == 0 || latency < b.minLatency {
		b.minLatency = latency
	}
	if latency > b.maxLatency {
		b.maxLatency = latency
	}

	if err == nil {
		b.successes++
		if meta != nil {
			b.exitCounts[ExitLabel(meta.ExitCode)]++
		}
	} else {
		b.failures++
	}
}

// Stats computes and returns current aggregated statistics.
func (c *Collector) Stats(elapsed time.Duration) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{RunStats: c.overall.stats(elapsed)}

	stats.Duration = elapsed
	stats.DurationMs = float64(elapsed) / float64(time.Millisecond)

	if len(c.commands) > 0 {
		stats.Commands = make(map[string]RunStats, len(c.commands))
		for command, b := range c.commands {
			stats.Commands[command] = b.stats(elapsed)
		}
	}

	if len(c.errorsByType) > 0 {
		stats.Errors = make(map[string]int, len(c.errorsByType))
		for k, v := range c.errorsByType {
			stats.Errors[k] = int(v)
		}
	}

	return stats
}

func (b *bucket) stats(elapsed time.Duration) RunStats {
	total := b.successes + b.failures
	stats := RunStats{
		Total:      total,
		Successes:  b.successes,
		Failures:   b.failures,
		MinLatency: b.minLatency,
		MaxLatency: b.maxLatency,
	}

	if total > 0 {
		stats.MeanLatency = time.Duration(int64(b.sumLatency) / total)
	}

	if b.hist.TotalCount() > 0 {
		stats.P50Latency = time.Duration(b.hist.ValueAtQuantile(50)) * time.Microsecond
		stats.P90Latency = time.Duration(b.hist.ValueAtQuantile(90)) * time.Microsecond
		stats.P99Latency = time.Duration(b.hist.ValueAtQuantile(99)) * time.Microsecond
	}

	stats.MinLatencyMs = float64(stats.MinLatency) / float64(time.Millisecond)
	stats.MaxLatencyMs = float64(stats.MaxLatency) / float64(time.Millisecond)
	stats.MeanLatencyMs = float64(stats.MeanLatency) / float64(time.Millisecond)
	stats.P50LatencyMs = float64(stats.P50Latency) / float64(time.Millisecond)
	stats.P90LatencyMs = float64(stats.P90Latency) / float64(time.Millisecond)
	stats.P99LatencyMs = float64(stats.P99Latency) / float64(time.Millisecond)

	if elapsed > 0 && total > 0 {
		stats.RunsPerSec = float64(total) / elapsed.Seconds()
	}

	if len(b.exitCounts) > 0 {
		stats.ExitCounts = make(map[string]int, len(b.exitCounts))
		for k, v := range b.exitCounts {
			stats.ExitCounts[k] = int(v)
		}
	}

	return stats
}
