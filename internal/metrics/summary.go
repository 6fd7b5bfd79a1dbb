package metrics

import (
	"time"

	"github.com/torosent/forkfire/internal/runner"
)

// Summary is the latency aggregate printed when a run finishes. Min, Avg
// and Max cover successful runs only; a run with zero successes reports
// zero durations rather than dividing by zero.
type Summary struct {
	Total     int
	Successes int
	Min       time.Duration
	Avg       time.Duration
	Max       time.Duration
}

// Summarize folds the result slots into a Summary. It is the authoritative
// source for the final numbers: unlike the live Collector, it sees exactly
// one record per planned invocation, failed slots included.
func Summarize(records []runner.Record) Summary {
	s := Summary{Total: len(records)}

	var sum time.Duration
	for _, rec := range records {
		if !rec.Success {
			continue
		}
		if s.Successes == 0 || rec.Elapsed < s.Min {
			s.Min = rec.Elapsed
		}
		if rec.Elapsed > s.Max {
			s.Max = rec.Elapsed
		}
		sum += rec.Elapsed
		s.Successes++
	}

	if s.Successes > 0 {
		s.Avg = sum / time.Duration(s.Successes)
	}
	return s
}
