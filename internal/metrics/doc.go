// Package metrics aggregates latency and outcome data for command runs.
//
// Two views of a run live here. The [Collector] accumulates measurements as
// invocations finish and serves the progress line, the dashboard, and the
// verbose report. [Summarize] computes the final min/avg/max figures from
// the result slots once every invocation has been joined; it is the
// authoritative source for the summary because it sees exactly one record
// per planned invocation.
//
// # Collector
//
//	collector := metrics.NewCollector()
//	collector.Start() // mark dispatch start for runs-per-second
//
//	collector.RecordRun(latency, err, &metrics.RunMetadata{
//		Command:  "sleep 0.1",
//		ExitCode: 0,
//	})
//
//	stats := collector.Stats(collector.Elapsed())
//
// A nil error means the child process ran to completion, whatever its exit
// code; errors cover spawn failures and cancellations only. Exit codes are
// bucketed per label (see [ExitLabel]) rather than treated as failures.
//
// # Statistics
//
// The [Stats] type provides:
//   - Run counts (total, successes, failures)
//   - Latency extremes and percentiles (P50, P90, P99)
//   - Runs per second
//   - Per-command breakdowns
//   - Exit-code buckets and failure reasons by error type
//
// Percentiles come from an HDR histogram with microsecond resolution;
// min, max and mean are tracked exactly outside it.
//
// # Thread Safety
//
// The Collector is safe for concurrent use. Every invocation goroutine may
// call RecordRun while readers poll Stats.
package metrics
