package detector

import (
	"fmt"
	"sort"
	"strings"

	"github.com/thread-dump-analysis/internal/statistics"
	"github.com/thread-dump-analysis/pkg/model"
)

// Thresholds. Every comparison is strict (>), except the deadlock and
// identical-stack minimums.
const (
	MaxThreads             = 1000
	MaxBlockedThreads      = 10
	HighBlockedThreads     = 50
	MaxWaitingThreads      = 50
	HighWaitingThreads     = 200
	CPUHotspotMinCount     = 3
	CPUHotspotHighCount    = 10
	CPUHotspotLimit        = 5
	LockHotspotMinCount    = 2
	LockHotspotLimit       = 3
	MaxHTTPThreads         = 200
	MaxBlockedDBThreads    = 5
	StarvationRunnableMin  = 2
	BlockingPercentLimit   = 30
	IdenticalStackMinGroup = 3
	StackSignatureDepth    = 5

	sampleNameLimit     = 10
	starvationNameLimit = 5
	topLockLimit        = 3
	topWaitPatternLimit = 3
	clusterDetailFrames = 3
	unknownWaitPattern  = "Unknown wait"
)

func filterState(records []model.ThreadRecord, keep func(model.ThreadState) bool) []model.ThreadRecord {
	var out []model.ThreadRecord
	for _, r := range records {
		if keep(r.State) {
			out = append(out, r)
		}
	}
	return out
}

func isBlocked(s model.ThreadState) bool  { return s == model.ThreadStateBlocked }
func isRunnable(s model.ThreadState) bool { return s == model.ThreadStateRunnable }

func names(records []model.ThreadRecord, limit int) []string {
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Name)
	}
	return out
}

// lockWaiters groups records by lock name in first-encountered order.
// Records without a lock are skipped.
func lockWaiters(records []model.ThreadRecord) []model.LockCount {
	index := make(map[string]int)
	var locks []model.LockCount
	for _, r := range records {
		if r.LockName == nil {
			continue
		}
		i, ok := index[*r.LockName]
		if !ok {
			i = len(locks)
			index[*r.LockName] = i
			locks = append(locks, model.LockCount{Lock: *r.LockName})
		}
		locks[i].Waiters++
	}
	return locks
}

// topLocks returns the n most contended locks, ties kept in encounter order.
func topLocks(locks []model.LockCount, n int) []model.LockCount {
	sorted := append([]model.LockCount(nil), locks...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Waiters > sorted[j].Waiters
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func checkPotentialDeadlock(in *Input) []model.Finding {
	var candidates []model.ThreadRecord
	for _, r := range in.Records {
		if r.State == model.ThreadStateBlocked && r.LockName != nil {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) < 2 {
		return nil
	}

	locks := lockWaiters(candidates)
	shared := make(map[string]bool)
	for _, lc := range locks {
		if lc.Waiters >= 2 {
			shared[lc.Lock] = true
		}
	}

	severity := model.SeverityHigh
	involved := candidates
	if len(shared) > 0 {
		severity = model.SeverityCritical
		involved = nil
		for _, r := range candidates {
			if shared[*r.LockName] {
				involved = append(involved, r)
			}
		}
	}

	return []model.Finding{{
		Type:            model.FindingPotentialDeadlock,
		Description:     fmt.Sprintf("Multiple threads are blocked waiting for locks. %d threads involved.", len(candidates)),
		Severity:        severity,
		AffectedThreads: names(involved, 0),
		Recommendation:  "Implement consistent lock ordering across all threads and consider using timeout-based locking",
		Details: model.DeadlockDetails{
			BlockedThreadCount: len(candidates),
			LockContention:     locks,
		},
	}}
}

func checkThreadCount(in *Input) []model.Finding {
	total := len(in.Records)
	if total <= MaxThreads {
		return nil
	}
	return []model.Finding{{
		Type:           model.FindingHighThreadCount,
		Description:    fmt.Sprintf("High number of threads detected: %d", total),
		Severity:       model.SeverityMedium,
		Recommendation: "Consider using thread pools and reducing thread creation",
	}}
}

func checkBlockedThreads(in *Input) []model.Finding {
	blocked := filterState(in.Records, isBlocked)
	if len(blocked) <= MaxBlockedThreads {
		return nil
	}

	locks := lockWaiters(blocked)
	top := topLocks(locks, topLockLimit)
	parts := make([]string, 0, len(top))
	for _, lc := range top {
		parts = append(parts, fmt.Sprintf("%s(%d threads)", lc.Lock, lc.Waiters))
	}

	severity := model.SeverityMedium
	if len(blocked) > HighBlockedThreads {
		severity = model.SeverityHigh
	}

	return []model.Finding{{
		Type: model.FindingHighBlockedThreads,
		Description: fmt.Sprintf("High number of blocked threads: %d. Top contended locks: %s",
			len(blocked), strings.Join(parts, ", ")),
		Severity:        severity,
		AffectedThreads: names(blocked, sampleNameLimit),
		Recommendation:  "Review synchronization logic and reduce lock contention. Consider lock-free alternatives or finer-grained locking.",
		Details: model.BlockedThreadsDetails{
			BlockedCount:   len(blocked),
			LockContention: locks,
			TopLocks:       top,
		},
	}}
}

// waitPattern names what a waiting thread waits on, judged by its top frame.
func waitPattern(r model.ThreadRecord) string {
	top := r.TopFrame()
	if strings.Contains(top, "Object.wait") || strings.Contains(top, "Thread.sleep") {
		if i := strings.Index(top, "at "); i >= 0 {
			return top[i+len("at "):]
		}
		return top
	}
	return unknownWaitPattern
}

func checkWaitingThreads(in *Input) []model.Finding {
	waiting := filterState(in.Records, model.ThreadState.IsWaiting)
	if len(waiting) <= MaxWaitingThreads {
		return nil
	}

	index := make(map[string]int)
	var patterns []model.WaitPattern
	for _, r := range waiting {
		p := waitPattern(r)
		i, ok := index[p]
		if !ok {
			i = len(patterns)
			index[p] = i
			patterns = append(patterns, model.WaitPattern{Pattern: p})
		}
		patterns[i].Count++
	}

	sorted := append([]model.WaitPattern(nil), patterns...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Count > sorted[j].Count
	})
	if len(sorted) > topWaitPatternLimit {
		sorted = sorted[:topWaitPatternLimit]
	}
	parts := make([]string, 0, len(sorted))
	for _, p := range sorted {
		parts = append(parts, fmt.Sprintf("%s(%d)", p.Pattern, p.Count))
	}

	severity := model.SeverityLow
	if len(waiting) > HighWaitingThreads {
		severity = model.SeverityMedium
	}

	return []model.Finding{{
		Type: model.FindingHighWaitingThreads,
		Description: fmt.Sprintf("High number of waiting threads: %d. Common wait patterns: %s",
			len(waiting), strings.Join(parts, ", ")),
		Severity:        severity,
		AffectedThreads: names(waiting, sampleNameLimit),
		Recommendation:  "Review thread coordination and consider reducing wait times. Check if waiting is necessary or can be optimized.",
		Details: model.WaitingThreadsDetails{
			WaitingCount:    len(waiting),
			WaitingPatterns: patterns,
		},
	}}
}

func checkCPUHotspots(in *Input) []model.Finding {
	var findings []model.Finding
	for _, mc := range statistics.CountMethods(in.Records, model.ThreadStateRunnable) {
		if len(findings) == CPUHotspotLimit || mc.Occurrences <= CPUHotspotMinCount {
			break
		}
		severity := model.SeverityMedium
		if mc.Occurrences > CPUHotspotHighCount {
			severity = model.SeverityHigh
		}
		findings = append(findings, model.Finding{
			Type: model.FindingCPUHotspot,
			Description: fmt.Sprintf("Method frequently appears in runnable thread stack traces: %s (%d occurrences)",
				mc.Method, mc.Occurrences),
			Severity:        severity,
			AffectedThreads: mc.Threads,
			Recommendation:  "Profile and optimize this frequently executed method. Consider caching or algorithm improvements.",
			Details: model.HotspotDetails{
				Method:      mc.Method,
				Occurrences: mc.Occurrences,
				ThreadCount: len(mc.Threads),
			},
		})
	}
	return findings
}

func checkLockContentionHotspots(in *Input) []model.Finding {
	var findings []model.Finding
	for _, mc := range statistics.CountMethods(in.Records, model.ThreadStateBlocked) {
		if len(findings) == LockHotspotLimit || mc.Occurrences <= LockHotspotMinCount {
			break
		}
		findings = append(findings, model.Finding{
			Type: model.FindingLockContentionHotspot,
			Description: fmt.Sprintf("Method frequently causes thread blocking: %s (%d blocked threads)",
				mc.Method, mc.Occurrences),
			Severity:        model.SeverityHigh,
			AffectedThreads: mc.Threads,
			Recommendation:  "Review synchronization in this method. Consider reducing lock scope or using lock-free alternatives.",
			Details: model.HotspotDetails{
				Method:      mc.Method,
				Occurrences: mc.Occurrences,
				ThreadCount: len(mc.Threads),
				Blocking:    true,
			},
		})
	}
	return findings
}

func checkThreadGroups(in *Input) []model.Finding {
	var findings []model.Finding
	groups := statistics.GroupRecords(in.Records)

	if http := groups[model.CategoryHTTP]; len(http) > MaxHTTPThreads {
		findings = append(findings, model.Finding{
			Type:            model.FindingExcessiveHTTPThreads,
			Description:     fmt.Sprintf("High number of HTTP/Web threads: %d", len(http)),
			Severity:        model.SeverityMedium,
			AffectedThreads: names(http, sampleNameLimit),
			Recommendation:  "Review HTTP thread pool configuration and connection handling",
			Details:         model.HTTPThreadsDetails{ThreadCount: len(http)},
		})
	}

	db := groups[model.CategoryDatabase]
	if blocked := filterState(db, isBlocked); len(blocked) > MaxBlockedDBThreads {
		findings = append(findings, model.Finding{
			Type:            model.FindingDatabaseConnectionContention,
			Description:     fmt.Sprintf("Multiple database threads are blocked: %d out of %d", len(blocked), len(db)),
			Severity:        model.SeverityHigh,
			AffectedThreads: names(blocked, 0),
			Recommendation:  "Check database connection pool configuration and query performance",
			Details:         model.DatabaseContentionDetails{BlockedThreads: len(blocked), TotalDBThreads: len(db)},
		})
	}

	return findings
}

func checkSuspiciousPatterns(in *Input) []model.Finding {
	var findings []model.Finding
	total := len(in.Records)
	blocked := filterState(in.Records, isBlocked)
	runnable := len(filterState(in.Records, isRunnable))

	if len(blocked) > 0 && runnable < StarvationRunnableMin {
		findings = append(findings, model.Finding{
			Type: model.FindingThreadStarvation,
			Description: fmt.Sprintf("Potential thread starvation: %d blocked threads with only %d runnable",
				len(blocked), runnable),
			Severity:        model.SeverityCritical,
			AffectedThreads: names(blocked, starvationNameLimit),
			Recommendation:  "Investigate lock contention and consider increasing thread pool sizes",
			Details: model.StarvationDetails{
				BlockedThreads:  len(blocked),
				RunnableThreads: runnable,
			},
		})
	}

	if total > 0 && len(blocked)*100 > BlockingPercentLimit*total {
		pct := float64(len(blocked)) * 100.0 / float64(total)
		findings = append(findings, model.Finding{
			Type: model.FindingExcessiveBlocking,
			Description: fmt.Sprintf("High percentage of blocked threads: %.1f%% (%d out of %d)",
				pct, len(blocked), total),
			Severity:        model.SeverityHigh,
			AffectedThreads: names(blocked, sampleNameLimit),
			Recommendation:  "Review synchronization mechanisms and reduce lock contention",
			Details:         model.BlockingDetails{BlockingPercentage: pct},
		})
	}

	return findings
}

func checkIdenticalStacks(in *Input) []model.Finding {
	index := make(map[string]int)
	var clusters [][]model.ThreadRecord
	for _, r := range in.Records {
		if len(r.StackTrace) == 0 {
			continue
		}
		key := r.StackSignature(StackSignatureDepth)
		i, ok := index[key]
		if !ok {
			i = len(clusters)
			index[key] = i
			clusters = append(clusters, nil)
		}
		clusters[i] = append(clusters[i], r)
	}

	var findings []model.Finding
	for _, members := range clusters {
		if len(members) < IdenticalStackMinGroup {
			continue
		}
		frames := members[0].StackTrace
		if len(frames) > clusterDetailFrames {
			frames = frames[:clusterDetailFrames]
		}
		findings = append(findings, model.Finding{
			Type:            model.FindingIdenticalStackTraces,
			Description:     fmt.Sprintf("Multiple threads with identical stack traces: %d threads", len(members)),
			Severity:        model.SeverityMedium,
			AffectedThreads: names(members, 0),
			Recommendation:  "Investigate potential resource contention or inefficient synchronization",
			Details: model.StackClusterDetails{
				ThreadCount: len(members),
				StackTrace:  append([]string(nil), frames...),
			},
		})
	}
	return findings
}
