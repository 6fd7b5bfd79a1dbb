package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/torosent/forkfire/internal/metrics"
)

func TestProgressReporterBasic(t *testing.T) {
	collector := metrics.NewCollector()
	collector.Start()

	for i := 0; i < 5; i++ {
		collector.RecordRun(30*time.Millisecond, nil, nil)
	}

	var buf bytes.Buffer
	reporter := NewProgressReporter(collector, 100*time.Millisecond, &buf)

	if reporter == nil {
		t.Fatal("Expected non-nil reporter")
	}

	reporter.Stop()
}

func TestProgressReporterFormatting(t *testing.T) {
	collector := metrics.NewCollector()
	collector.Start()

	collector.RecordRun(50*time.Millisecond, nil, &metrics.RunMetadata{
		Command: "sleep 0.05",
	})

	var buf bytes.Buffer
	reporter := NewProgressReporter(collector, 50*time.Millisecond, &buf)
	reporter.Start()

	time.Sleep(100 * time.Millisecond)
	reporter.Stop()

	output := buf.String()
	// Should contain basic progress info
	if !strings.Contains(output, "Runs:") {
		t.Error("Expected 'Runs:' in progress output")
	}
}

func TestSlowestCommandSnapshot(t *testing.T) {
	stats := metrics.Stats{
		Commands: map[string]metrics.RunStats{
			"fast": {Total: 10, P99Latency: 10 * time.Millisecond, P99LatencyMs: 10},
			"slow": {Total: 10, P99Latency: 90 * time.Millisecond, P99LatencyMs: 90},
		},
	}

	name, cmd, ok := slowestCommandSnapshot(stats)
	if !ok {
		t.Fatal("Expected a slowest command")
	}
	if name != "slow" {
		t.Errorf("Expected 'slow' to be picked, got %q", name)
	}
	if cmd.P99LatencyMs != 90 {
		t.Errorf("Expected P99 90ms, got %.1f", cmd.P99LatencyMs)
	}
}

func TestSlowestCommandSnapshotSingleCommand(t *testing.T) {
	stats := metrics.Stats{
		Commands: map[string]metrics.RunStats{
			"only": {Total: 10, P99Latency: 10 * time.Millisecond},
		},
	}

	if _, _, ok := slowestCommandSnapshot(stats); ok {
		t.Error("Did not expect a slowest command for a single-command run")
	}
}

func TestTrimCommand(t *testing.T) {
	tests := []struct {
		name  string
		input string
		limit int
		want  string
	}{
		{"short passes through", "echo hi", 32, "echo hi"},
		{"exact limit passes through", "0123456789", 10, "0123456789"},
		{"long gets ellipsis", "0123456789abcdef", 10, "0123456..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := trimCommand(tt.input, tt.limit)
			if got != tt.want {
				t.Errorf("trimCommand(%q, %d) = %q, want %q", tt.input, tt.limit, got, tt.want)
			}
			if len(got) > tt.limit {
				t.Errorf("trimmed command exceeds limit: %d > %d", len(got), tt.limit)
			}
		})
	}
}
