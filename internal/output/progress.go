package output

import (
	"fmt"
	"io"
	"sort"
	"sync/atomic"
	"time"

	"github.com/torosent/forkfire/internal/metrics"
)

// ProgressReporter displays real-time progress updates.
type ProgressReporter struct {
	collector *metrics.Collector
	ticker    *time.Ticker
	done      chan struct{}
	finished  chan struct{}
	writer    io.Writer
	active    int32
	start     time.Time
}

// NewProgressReporter creates a progress reporter that updates at the given interval.
func NewProgressReporter(collector *metrics.Collector, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		collector: collector,
		ticker:    time.NewTicker(interval),
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
		writer:    writer,
		start:     time.Now(),
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts progress updates.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			elapsed := time.Since(p.start)
			stats := p.collector.Stats(elapsed)
			line := fmt.Sprintf("\rRuns: %d | Successes: %d | Failures: %d | Runs/sec: %.1f",
				stats.Total, stats.Successes, stats.Failures, stats.RunsPerSec)
			if name, cmd, ok := slowestCommandSnapshot(stats); ok {
				line += fmt.Sprintf(" | Slowest: %s (P99 %.1fms)", trimCommand(name, 32), cmd.P99LatencyMs)
			}
			fmt.Fprint(p.writer, line)
		case <-p.done:
			return
		}
	}
}

// slowestCommandSnapshot picks the command with the highest observed P99.
// Only meaningful when several commands run side by side.
func slowestCommandSnapshot(stats metrics.Stats) (string, metrics.RunStats, bool) {
	if len(stats.Commands) < 2 {
		return "", metrics.RunStats{}, false
	}
	names := make([]string, 0, len(stats.Commands))
	for name := range stats.Commands {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		left, right := stats.Commands[names[i]], stats.Commands[names[j]]
		if left.P99Latency != right.P99Latency {
			return left.P99Latency > right.P99Latency
		}
		return names[i] < names[j]
	})
	name := names[0]
	return name, stats.Commands[name], true
}

// trimCommand shortens long command strings so the status line stays on one row.
func trimCommand(command string, limit int) string {
	if len(command) <= limit {
		return command
	}
	return command[:limit-3] + "..."
}
