package output

import (
	"bytes"
	"testing"
	"time"

	"github.com/torosent/forkfire/internal/metrics"
)

func TestPrintSummaryFormat(t *testing.T) {
	summary := metrics.Summary{
		Total:     3,
		Successes: 3,
		Min:       1234 * time.Microsecond,
		Avg:       5 * time.Millisecond,
		Max:       12500 * time.Microsecond,
	}

	var buf bytes.Buffer
	PrintSummary(&buf, summary)

	want := "Min: 1.234ms\nAvg: 5.000ms\nMax: 12.500ms\n"
	if got := buf.String(); got != want {
		t.Errorf("PrintSummary output = %q, want %q", got, want)
	}
}

func TestPrintSummarySubMillisecond(t *testing.T) {
	summary := metrics.Summary{
		Total:     1,
		Successes: 1,
		Min:       500 * time.Microsecond,
		Avg:       500 * time.Microsecond,
		Max:       500 * time.Microsecond,
	}

	var buf bytes.Buffer
	PrintSummary(&buf, summary)

	want := "Min: 0.500ms\nAvg: 0.500ms\nMax: 0.500ms\n"
	if got := buf.String(); got != want {
		t.Errorf("PrintSummary output = %q, want %q", got, want)
	}
}

func TestPrintSummaryZeroSuccesses(t *testing.T) {
	summary := metrics.Summary{Total: 4}

	var buf bytes.Buffer
	PrintSummary(&buf, summary)

	want := "Min: 0.000ms\nAvg: 0.000ms\nMax: 0.000ms\n"
	if got := buf.String(); got != want {
		t.Errorf("PrintSummary output = %q, want %q", got, want)
	}
}
