package statistics

import (
	"sort"
	"strings"

	"github.com/thread-dump-analysis/pkg/model"
)

// MethodToken extracts the method from a frame line: the text between "at "
// and the first "(", or the whole line when there is no "(".
func MethodToken(line string) string {
	open := strings.Index(line, "(")
	if open < 0 {
		return line
	}
	start := strings.Index(line, "at ")
	if start < 0 {
		start = 0
	} else {
		start += len("at ")
	}
	if open < start {
		return line
	}
	return line[start:open]
}

// MethodCount is a method token with its frame occurrence count and the
// names of the threads whose stacks contain it.
type MethodCount struct {
	Method      string
	Occurrences int
	Threads     []string
}

// CountMethods counts method tokens over every "at " frame of records whose
// state equals state. Results are ordered by occurrences descending, ties by
// first appearance.
func CountMethods(records []model.ThreadRecord, state model.ThreadState) []MethodCount {
	index := make(map[string]int)
	var counts []MethodCount

	for _, r := range records {
		if r.State != state {
			continue
		}
		seen := make(map[string]bool)
		for _, line := range r.StackTrace {
			if !strings.Contains(line, "at ") {
				continue
			}
			token := MethodToken(line)
			i, ok := index[token]
			if !ok {
				i = len(counts)
				index[token] = i
				counts = append(counts, MethodCount{Method: token})
			}
			counts[i].Occurrences++
			if !seen[token] {
				seen[token] = true
				counts[i].Threads = append(counts[i].Threads, r.Name)
			}
		}
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Occurrences > counts[j].Occurrences
	})
	return counts
}
