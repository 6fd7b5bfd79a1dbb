package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/torosent/forkfire/internal/metrics"
)

func TestPrintReportBasic(t *testing.T) {
	stats := metrics.Stats{
		RunStats: metrics.RunStats{
			Total:      100,
			Successes:  95,
			Failures:   5,
			RunsPerSec: 50.0,
		},
		Duration: 2 * time.Second,
	}

	var buf bytes.Buffer
	PrintReport(&buf, stats)

	output := buf.String()
	if !strings.Contains(output, "Total Runs") {
		t.Errorf("Expected total runs in output")
	}
	if !strings.Contains(output, "95") {
		t.Errorf("Expected successes in output")
	}
}

func TestPrintReportIncludesExitCodes(t *testing.T) {
	stats := metrics.Stats{
		RunStats: metrics.RunStats{
			Total:     10,
			Successes: 10,
			ExitCounts: map[string]int{
				"exit 0": 8,
				"exit 3": 2,
			},
		},
		Duration: time.Second,
	}

	var buf bytes.Buffer
	PrintReport(&buf, stats)

	output := buf.String()
	if !strings.Contains(output, "Exit Codes:") {
		t.Errorf("Expected Exit Codes section in output")
	}
	if !strings.Contains(output, "exit 0: 8") {
		t.Errorf("Expected exit 0 bucket in output, got:\n%s", output)
	}
	if !strings.Contains(output, "exit 3: 2") {
		t.Errorf("Expected exit 3 bucket in output, got:\n%s", output)
	}
}

func TestPrintReportIncludesCommandBreakdown(t *testing.T) {
	stats := metrics.Stats{
		RunStats: metrics.RunStats{
			Total:     20,
			Successes: 18,
			Failures:  2,
		},
		Duration: 2 * time.Second,
		Commands: map[string]metrics.RunStats{
			"sleep 0.1": {
				Total:      10,
				Successes:  10,
				P99Latency: 120 * time.Millisecond,
			},
			"curl example.com": {
				Total:     10,
				Successes: 8,
				Failures:  2,
			},
		},
	}

	var buf bytes.Buffer
	PrintReport(&buf, stats)

	output := buf.String()
	if !strings.Contains(output, "Command Breakdown:") {
		t.Errorf("Expected Command Breakdown section in output")
	}
	if !strings.Contains(output, "sleep 0.1") {
		t.Errorf("Expected sleep command in output")
	}
	if !strings.Contains(output, "curl example.com") {
		t.Errorf("Expected curl command in output")
	}
	if !strings.Contains(output, "(50.0%)") {
		t.Errorf("Expected share percentage in output, got:\n%s", output)
	}
}

func TestPrintReportSingleCommandOmitsBreakdown(t *testing.T) {
	stats := metrics.Stats{
		RunStats: metrics.RunStats{Total: 5, Successes: 5},
		Duration: time.Second,
		Commands: map[string]metrics.RunStats{
			"echo hi": {Total: 5, Successes: 5},
		},
	}

	var buf bytes.Buffer
	PrintReport(&buf, stats)

	if strings.Contains(buf.String(), "Command Breakdown:") {
		t.Errorf("Did not expect breakdown for a single command")
	}
}

func TestPrintReportFailureReasons(t *testing.T) {
	stats := metrics.Stats{
		RunStats: metrics.RunStats{
			Total:     10,
			Successes: 6,
			Failures:  4,
		},
		Duration: time.Second,
		Errors: map[string]int{
			"*proc.SpawnError":    3,
			"*errors.errorString": 1,
		},
	}

	var buf bytes.Buffer
	PrintReport(&buf, stats)

	output := buf.String()
	if !strings.Contains(output, "Failure Reasons:") {
		t.Errorf("Expected Failure Reasons section in output")
	}
	if !strings.Contains(output, "Spawn failure: 3") {
		t.Errorf("Expected friendly spawn failure label, got:\n%s", output)
	}
	if !strings.Contains(output, "Run canceled: 1") {
		t.Errorf("Expected friendly cancellation label, got:\n%s", output)
	}
}

func TestPrintReportIncludesRunID(t *testing.T) {
	stats := metrics.Stats{
		RunStats: metrics.RunStats{Total: 1, Successes: 1},
		Duration: time.Second,
		RunID:    "01JDEADBEEFDEADBEEFDEADBEE",
	}

	var buf bytes.Buffer
	PrintReport(&buf, stats)

	if !strings.Contains(buf.String(), "01JDEADBEEFDEADBEEFDEADBEE") {
		t.Errorf("Expected run ID in output")
	}
}

func TestPrintJSONReport(t *testing.T) {
	stats := metrics.Stats{
		RunStats: metrics.RunStats{
			Total:      100,
			Successes:  100,
			RunsPerSec: 50.0,
			ExitCounts: map[string]int{"exit 0": 100},
		},
		DurationMs: 2000.0,
	}

	var buf bytes.Buffer
	err := PrintJSONReport(&buf, stats)
	if err != nil {
		t.Fatalf("PrintJSONReport failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, `"exit_counts"`) {
		t.Errorf("Expected exit_counts in JSON output")
	}
	if !strings.Contains(output, `"runs_per_sec"`) {
		t.Errorf("Expected runs_per_sec in JSON output")
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("JSON output does not parse: %v", err)
	}
	if decoded["total"] != float64(100) {
		t.Errorf("Expected total 100 in JSON output, got %v", decoded["total"])
	}
}
