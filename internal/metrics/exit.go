package metrics

import (
	"sort"
	"strconv"
	"strings"
)

// ExitLabel names the bucket a completed run's exit code falls into.
// Signal-terminated children report -1 from the runtime and share one
// bucket, since the code carries no signal number.
func ExitLabel(code int) string {
	if code < 0 {
		return "signal"
	}
	return "exit " + strconv.Itoa(code)
}

// ExitBucket represents the aggregated run count for one exit label.
type ExitBucket struct {
	Label string
	Count int
}

// FlattenExitCounts converts an exit-label map into a sorted slice of
// ExitBucket rows. Rows are sorted by descending count, then by exit code
// for stability, with the signal bucket last among ties.
func FlattenExitCounts(counts map[string]int) []ExitBucket {
	if len(counts) == 0 {
		return nil
	}
	rows := make([]ExitBucket, 0, len(counts))
	for label, count := range counts {
		rows = append(rows, ExitBucket{Label: label, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		ci, iok := exitCode(rows[i].Label)
		cj, jok := exitCode(rows[j].Label)
		if iok && jok {
			return ci < cj
		}
		if iok != jok {
			return iok
		}
		return rows[i].Label < rows[j].Label
	})
	return rows
}

func exitCode(label string) (int, bool) {
	rest, ok := strings.CutPrefix(label, "exit ")
	if !ok {
		return 0, false
	}
	code, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return code, true
}
