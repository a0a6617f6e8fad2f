// Package advisor turns statistics and findings into suggested fixes and a
// one-paragraph summary.
package advisor

import (
	"fmt"
	"strings"

	"github.com/thread-dump-analysis/internal/statistics"
	"github.com/thread-dump-analysis/pkg/model"
)

// Thresholds for the statistics-driven fixes. Comparisons are strict.
const (
	MaxThreads        = 1000
	MaxBlockedThreads = 10
	MaxWaitingThreads = 50
	MaxGroupThreads   = 100

	topGroupCount = 3
)

// Advisor generates suggested fixes from analysis results.
type Advisor struct {
	rules []Rule
}

// Rule produces fixes for one concern.
type Rule struct {
	Name        string
	Description string
	Fixes       RuleFixFunc
}

// RuleFixFunc returns the fixes a rule contributes, or nil.
type RuleFixFunc func(ctx *RuleContext) []string

// RuleContext provides context for rule checking.
type RuleContext struct {
	Statistics *model.Statistics
	Findings   []model.Finding
}

// NewAdvisor creates a new Advisor with default rules.
func NewAdvisor() *Advisor {
	return &Advisor{
		rules: defaultRules(),
	}
}

// NewAdvisorWithRules creates a new Advisor with custom rules.
func NewAdvisorWithRules(rules []Rule) *Advisor {
	return &Advisor{
		rules: rules,
	}
}

// SuggestedFixes returns the ordered fix list. It is never empty: when no
// rule contributes, the healthy-dump fixes are returned.
func (a *Advisor) SuggestedFixes(stats *model.Statistics, findings []model.Finding) []string {
	if stats == nil {
		stats = model.NewStatistics()
	}
	ctx := &RuleContext{Statistics: stats, Findings: findings}

	fixes := make([]string, 0)
	for _, rule := range a.rules {
		if rule.Fixes != nil {
			fixes = append(fixes, rule.Fixes(ctx)...)
		}
	}

	if len(fixes) == 0 {
		fixes = append(fixes, HealthyFixes...)
	}
	return fixes
}

// HealthyFixes are suggested when nothing else applies.
var HealthyFixes = []string{
	"Thread dump appears healthy. Continue monitoring for performance trends.",
	"Consider implementing thread dump collection automation for trend analysis.",
}

// findingFixes maps finding types to canned fixes. Types without an entry contribute nothing.
var findingFixes = map[model.FindingType][]string{
	model.FindingPotentialDeadlock: {
		"Implement consistent lock ordering across all threads",
		"Use timeout-based locking mechanisms (tryLock with timeout)",
		"Consider using higher-level concurrency utilities like java.util.concurrent",
		"Review lock acquisition patterns and minimize lock holding time",
	},
	model.FindingHighThreadCount: {
		"Implement thread pooling with appropriate pool sizes",
		"Review thread lifecycle management and ensure proper cleanup",
		"Consider using virtual threads (Project Loom) if available",
	},
	model.FindingCPUHotspot: {
		"Profile and optimize frequently called methods",
		"Consider caching results for expensive operations",
		"Review algorithms for performance improvements",
		"Consider parallel processing for CPU-intensive tasks",
	},
	model.FindingLockContentionHotspot: {
		"Reduce synchronization scope and use finer-grained locking",
		"Consider lock-free data structures and algorithms",
		"Use concurrent collections instead of synchronized collections",
		"Implement read-write locks where appropriate",
	},
	model.FindingHighBlockedThreads: {
		"Analyze lock contention and reduce synchronization overhead",
		"Consider using non-blocking algorithms and data structures",
		"Review critical sections and minimize lock holding time",
	},
	model.FindingThreadStarvation: {
		"Increase thread pool sizes or use adaptive sizing",
		"Review thread priorities and scheduling",
		"Implement fair locking mechanisms",
		"Consider using separate thread pools for different task types",
	},
	model.FindingExcessiveHTTPThreads: {
		"Tune HTTP connector thread pool configuration",
		"Implement connection pooling and keep-alive optimization",
		"Review request processing efficiency",
	},
	model.FindingDatabaseConnectionContention: {
		"Increase database connection pool size",
		"Optimize database queries and reduce query execution time",
		"Implement connection leak detection and prevention",
		"Consider using read replicas for read-heavy workloads",
	},
	model.FindingExcessiveBlocking: {
		"Review synchronization patterns and reduce lock usage",
		"Implement asynchronous processing where possible",
		"Use message queues for decoupling components",
	},
	model.FindingIdenticalStackTraces: {
		"Investigate shared resource bottlenecks",
		"Consider load balancing or partitioning strategies",
		"Review serialization points in the application",
	},
}

// FixesFor returns the canned fixes for a finding type.
func FixesFor(t model.FindingType) []string {
	return append([]string(nil), findingFixes[t]...)
}

// defaultRules returns the default set of fix rules, in output order.
func defaultRules() []Rule {
	return []Rule{
		{
			Name:        "thread_count",
			Description: "Suggest pooling when the dump holds too many threads",
			Fixes:       fixThreadCount,
		},
		{
			Name:        "blocked_threads",
			Description: "Suggest synchronization review when many threads are blocked",
			Fixes:       fixBlockedThreads,
		},
		{
			Name:        "waiting_threads",
			Description: "Suggest coordination review when many threads are waiting",
			Fixes:       fixWaitingThreads,
		},
		{
			Name:        "findings",
			Description: "Canned fixes per finding type",
			Fixes:       fixFindings,
		},
		{
			Name:        "thread_groups",
			Description: "Flag oversized thread categories",
			Fixes:       fixThreadGroups,
		},
	}
}

func fixThreadCount(ctx *RuleContext) []string {
	if ctx.Statistics.TotalThreads <= MaxThreads {
		return nil
	}
	return []string{"Consider implementing thread pooling to reduce the total number of threads"}
}

func fixBlockedThreads(ctx *RuleContext) []string {
	if ctx.Statistics.BlockedThreads <= MaxBlockedThreads {
		return nil
	}
	return []string{
		"Review synchronization mechanisms to reduce thread blocking",
		"Consider using lock-free data structures or reducing lock scope",
	}
}

func fixWaitingThreads(ctx *RuleContext) []string {
	if ctx.Statistics.WaitingThreads <= MaxWaitingThreads {
		return nil
	}
	return []string{
		"Optimize thread coordination and reduce unnecessary waiting",
		"Review timeout values for blocking operations",
	}
}

func fixFindings(ctx *RuleContext) []string {
	var fixes []string
	for _, f := range ctx.Findings {
		fixes = append(fixes, findingFixes[f.Type]...)
	}
	return fixes
}

func fixThreadGroups(ctx *RuleContext) []string {
	var fixes []string
	for _, category := range model.Categories() {
		if n := ctx.Statistics.GroupCount(category); n > MaxGroupThreads {
			fixes = append(fixes, fmt.Sprintf("Review %s thread group usage - %d threads may be excessive", category, n))
		}
	}
	return fixes
}

// Summary renders the human-readable summary paragraph.
func Summary(stats *model.Statistics, findings []model.Finding) string {
	if stats == nil {
		stats = model.NewStatistics()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyzed %d threads. ", stats.TotalThreads)
	if stats.BlockedThreads > 0 {
		fmt.Fprintf(&sb, "%d blocked, ", stats.BlockedThreads)
	}
	if stats.WaitingThreads > 0 {
		fmt.Fprintf(&sb, "%d waiting, ", stats.WaitingThreads)
	}
	fmt.Fprintf(&sb, "%d runnable. ", stats.RunnableThreads)

	if top := statistics.TopGroups(stats, topGroupCount); len(top) > 0 {
		parts := make([]string, 0, len(top))
		for _, g := range top {
			parts = append(parts, fmt.Sprintf("%s(%d)", g.Category, g.Count))
		}
		fmt.Fprintf(&sb, "Top groups: %s. ", strings.Join(parts, ", "))
	}

	sb.WriteString(findingClause(findings))
	return sb.String()
}

func findingClause(findings []model.Finding) string {
	if len(findings) == 0 {
		return "No significant issues detected."
	}

	counts := make(map[model.Severity]int)
	for _, f := range findings {
		counts[f.Severity]++
	}

	var tiers []string
	for _, sev := range []model.Severity{model.SeverityCritical, model.SeverityHigh, model.SeverityMedium} {
		if n := counts[sev]; n > 0 {
			tiers = append(tiers, fmt.Sprintf("%d %s", n, strings.ToLower(string(sev))))
		}
	}
	if len(tiers) == 0 {
		return fmt.Sprintf("Found %d issues (all low severity).", len(findings))
	}
	return fmt.Sprintf("Found %d issues (%s).", len(findings), strings.Join(tiers, ", "))
}
