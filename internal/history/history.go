// Package history persists one JSON line per run so consecutive runs can be
// compared. The file is shared between concurrent forkfire processes through
// an advisory lock.
package history

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/oklog/ulid/v2"
	"github.com/tidwall/gjson"

	"github.com/torosent/forkfire/internal/metrics"
)

// Entry is one recorded run.
type Entry struct {
	RunID       string    `json:"run_id"`
	Timestamp   time.Time `json:"timestamp"`
	Commands    []string  `json:"commands"`
	Parallelism int       `json:"parallelism"`
	Total       int       `json:"total"`
	Successes   int       `json:"successes"`
	MinMs       float64   `json:"min_ms"`
	AvgMs       float64   `json:"avg_ms"`
	MaxMs       float64   `json:"max_ms"`
}

// NewRunID returns a fresh lexicographically sortable run identifier.
func NewRunID() string {
	return ulid.Make().String()
}

// NewEntry builds a history entry from the run's configuration and summary.
func NewEntry(runID string, commands []string, parallelism int, summary metrics.Summary) Entry {
	return Entry{
		RunID:       runID,
		Timestamp:   time.Now().UTC().Truncate(time.Millisecond),
		Commands:    commands,
		Parallelism: parallelism,
		Total:       summary.Total,
		Successes:   summary.Successes,
		MinMs:       ms(summary.Min),
		AvgMs:       ms(summary.Avg),
		MaxMs:       ms(summary.Max),
	}
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

// Append writes entry as one JSON line at the end of the history file,
// creating the file if needed. It returns the entry that was last in the
// file before the append, or nil for a fresh file. The whole read-then-append
// happens under an advisory file lock so concurrent processes interleave
// whole lines.
func Append(path string, entry Entry) (*Entry, error) {
	lock := flock.New(path)
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("failed to lock history file: %w", err)
	}
	defer lock.Unlock()

	previous := lastEntry(path)

	line, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal history entry: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return nil, fmt.Errorf("failed to append history entry: %w", err)
	}
	return previous, nil
}

// lastEntry reads the final well-formed line of the history file. A missing
// or corrupt file yields nil rather than an error: history is advisory and
// must never block a run.
func lastEntry(path string) *Entry {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" || !gjson.Valid(line) {
			continue
		}
		id := gjson.Get(line, "run_id")
		if !id.Exists() {
			continue
		}
		entry := &Entry{
			RunID:       id.String(),
			Parallelism: int(gjson.Get(line, "parallelism").Int()),
			Total:       int(gjson.Get(line, "total").Int()),
			Successes:   int(gjson.Get(line, "successes").Int()),
			MinMs:       gjson.Get(line, "min_ms").Float(),
			AvgMs:       gjson.Get(line, "avg_ms").Float(),
			MaxMs:       gjson.Get(line, "max_ms").Float(),
			Timestamp:   gjson.Get(line, "timestamp").Time(),
		}
		for _, command := range gjson.Get(line, "commands").Array() {
			entry.Commands = append(entry.Commands, command.String())
		}
		return entry
	}
	return nil
}

// WriteComparison prints the current latencies next to the previous run's.
// No output is produced when there is no previous run.
func WriteComparison(w io.Writer, current Entry, previous *Entry) {
	if previous == nil {
		return
	}
	fmt.Fprintf(w, "\nPrevious run %s (%s):\n", previous.RunID, previous.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(w, "  Min: %.3fms (was %.3fms)\n", current.MinMs, previous.MinMs)
	fmt.Fprintf(w, "  Avg: %.3fms (was %.3fms)\n", current.AvgMs, previous.AvgMs)
	fmt.Fprintf(w, "  Max: %.3fms (was %.3fms)\n", current.MaxMs, previous.MaxMs)
}
