package statistics

import (
	"sort"

	"github.com/thread-dump-analysis/pkg/model"
)

// Aggregate computes statistics for records. It is pure and never fails.
func Aggregate(records []model.ThreadRecord) *model.Statistics {
	stats := model.NewStatistics()
	stats.TotalThreads = len(records)

	for i := range records {
		r := &records[i]
		state := model.ParseThreadState(string(r.State))
		stats.ThreadsByState[state]++

		switch {
		case state == model.ThreadStateBlocked:
			stats.BlockedThreads++
		case state == model.ThreadStateRunnable:
			stats.RunnableThreads++
		case state.IsWaiting():
			stats.WaitingThreads++
		}
		if r.Daemon {
			stats.DaemonThreads++
		}

		stats.ThreadGroups[Categorize(r.Name)]++
	}

	return stats
}

// GroupCount is one category with its thread count.
type GroupCount struct {
	Category string
	Count    int
}

// TopGroups returns up to n categories ordered by count descending,
// ties broken by category priority order. n <= 0 returns all.
func TopGroups(stats *model.Statistics, n int) []GroupCount {
	if stats == nil {
		return nil
	}
	groups := make([]GroupCount, 0, len(stats.ThreadGroups))
	for category, count := range stats.ThreadGroups {
		if count > 0 {
			groups = append(groups, GroupCount{Category: category, Count: count})
		}
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return categoryRank(groups[i].Category) < categoryRank(groups[j].Category)
	})
	if n > 0 && len(groups) > n {
		groups = groups[:n]
	}
	return groups
}

// GroupRecords partitions records by category, preserving input order within each group.
func GroupRecords(records []model.ThreadRecord) map[string][]model.ThreadRecord {
	groups := make(map[string][]model.ThreadRecord)
	for _, r := range records {
		c := Categorize(r.Name)
		groups[c] = append(groups[c], r)
	}
	return groups
}
