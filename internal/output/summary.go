package output

import (
	"fmt"
	"io"
	"time"

	"github.com/torosent/forkfire/internal/metrics"
)

// PrintSummary writes the three-line latency summary. This is the default
// output of a run: minimum, average, and maximum elapsed time across all
// successful invocations, in milliseconds with microsecond precision. When
// no invocation succeeded every line reports zero.
func PrintSummary(w io.Writer, s metrics.Summary) {
	fmt.Fprintf(w, "Min: %sms\n", formatMs(s.Min))
	fmt.Fprintf(w, "Avg: %sms\n", formatMs(s.Avg))
	fmt.Fprintf(w, "Max: %sms\n", formatMs(s.Max))
}

func formatMs(d time.Duration) string {
	return fmt.Sprintf("%.3f", float64(d.Microseconds())/1000)
}
