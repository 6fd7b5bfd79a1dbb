package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/torosent/forkfire/internal/metrics"
)

// PrintReport outputs a human-readable report of the full run.
func PrintReport(w io.Writer, stats metrics.Stats) {
	fmt.Fprintln(w, "\n--- Run Results ---")
	if stats.RunID != "" {
		fmt.Fprintf(w, "Run ID:            %s\n", stats.RunID)
	}
	fmt.Fprintf(w, "Total Runs:        %d\n", stats.Total)
	fmt.Fprintf(w, "Successful:        %d\n", stats.Successes)
	fmt.Fprintf(w, "Failed:            %d\n", stats.Failures)
	fmt.Fprintf(w, "Duration:          %s\n", stats.Duration)
	fmt.Fprintf(w, "Runs/sec:          %.2f\n", stats.RunsPerSec)
	fmt.Fprintln(w, "\nLatency:")
	fmt.Fprintf(w, "  Min:             %s\n", stats.MinLatency)
	fmt.Fprintf(w, "  Max:             %s\n", stats.MaxLatency)
	fmt.Fprintf(w, "  Mean:            %s\n", stats.MeanLatency)
	fmt.Fprintf(w, "  P50:             %s\n", stats.P50Latency)
	fmt.Fprintf(w, "  P90:             %s\n", stats.P90Latency)
	fmt.Fprintf(w, "  P99:             %s\n", stats.P99Latency)
	if len(stats.ExitCounts) > 0 {
		fmt.Fprintln(w, "\nExit Codes:")
		writeExitCounts(w, stats.ExitCounts, "  ")
	}

	if len(stats.Commands) > 1 {
		fmt.Fprintln(w, "\nCommand Breakdown:")
		names := make([]string, 0, len(stats.Commands))
		for name := range stats.Commands {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			left, right := stats.Commands[names[i]], stats.Commands[names[j]]
			if left.Total != right.Total {
				return left.Total > right.Total
			}
			return names[i] < names[j]
		})
		for _, name := range names {
			command := stats.Commands[name]
			share := 0.0
			if stats.Total > 0 {
				share = (float64(command.Total) / float64(stats.Total)) * 100
			}

			fmt.Fprintf(
				w,
				"  - %s: total=%d (%.1f%%), successes=%d, failures=%d, rps=%.2f, p99=%s\n",
				name,
				command.Total,
				share,
				command.Successes,
				command.Failures,
				command.RunsPerSec,
				command.P99Latency,
			)
			if len(command.ExitCounts) > 0 {
				fmt.Fprintln(w, "    Exit Codes:")
				writeExitCounts(w, command.ExitCounts, "      ")
			}
		}
	}

	if len(stats.Errors) > 0 {
		fmt.Fprintln(w, "\nFailure Reasons:")
		types := make([]string, 0, len(stats.Errors))
		for errType := range stats.Errors {
			types = append(types, errType)
		}
		sort.Slice(types, func(i, j int) bool {
			if stats.Errors[types[i]] != stats.Errors[types[j]] {
				return stats.Errors[types[i]] > stats.Errors[types[j]]
			}
			return types[i] < types[j]
		})
		for _, errType := range types {
			fmt.Fprintf(w, "  %s: %d\n", metrics.FriendlyErrorName(errType), stats.Errors[errType])
		}
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, stats metrics.Stats) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}

func writeExitCounts(w io.Writer, counts map[string]int, indent string) {
	rows := metrics.FlattenExitCounts(counts)
	if len(rows) == 0 {
		fmt.Fprintf(w, "%sNone\n", indent)
		return
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%s%s: %d\n", indent, row.Label, row.Count)
	}
}
