// Package detector implements the diagnostic rule engine: a fixed, ordered
// battery of rules, each turning thread records into zero or more findings.
package detector

import (
	"github.com/thread-dump-analysis/internal/statistics"
	"github.com/thread-dump-analysis/pkg/model"
)

// Input is what every rule sees. Rules must not modify it.
type Input struct {
	Records    []model.ThreadRecord
	Statistics *model.Statistics
}

// RuleCheckFunc inspects the input and returns the findings it produces.
// A rule that does not apply returns nil.
type RuleCheckFunc func(in *Input) []model.Finding

// Rule is one detector.
type Rule struct {
	Name        string
	Description string
	Check       RuleCheckFunc
}

// Engine runs rules in order and concatenates their findings.
type Engine struct {
	rules []Rule
}

// NewEngine creates an engine with the default rule battery.
func NewEngine() *Engine {
	return &Engine{rules: DefaultRules()}
}

// NewEngineWithRules creates an engine with custom rules.
func NewEngineWithRules(rules []Rule) *Engine {
	return &Engine{rules: rules}
}

// Rules returns the engine's rules in execution order.
func (e *Engine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// Detect runs every rule. stats may be nil, in which case it is computed from records.
// The result is never nil.
func (e *Engine) Detect(records []model.ThreadRecord, stats *model.Statistics) []model.Finding {
	if stats == nil {
		stats = statistics.Aggregate(records)
	}
	in := &Input{Records: records, Statistics: stats}

	findings := make([]model.Finding, 0)
	for _, rule := range e.rules {
		if rule.Check == nil {
			continue
		}
		findings = append(findings, rule.Check(in)...)
	}
	return findings
}

// DefaultRules returns the built-in detectors in their fixed execution order.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:        "potential_deadlock",
			Description: "Blocked threads waiting on locks, flagged as deadlock candidates",
			Check:       checkPotentialDeadlock,
		},
		{
			Name:        "high_thread_count",
			Description: "More than 1000 threads in the dump",
			Check:       checkThreadCount,
		},
		{
			Name:        "high_blocked_threads",
			Description: "More than 10 blocked threads",
			Check:       checkBlockedThreads,
		},
		{
			Name:        "high_waiting_threads",
			Description: "More than 50 waiting or timed-waiting threads",
			Check:       checkWaitingThreads,
		},
		{
			Name:        "cpu_hotspot",
			Description: "Methods recurring across runnable stacks",
			Check:       checkCPUHotspots,
		},
		{
			Name:        "lock_contention_hotspot",
			Description: "Methods recurring across blocked stacks",
			Check:       checkLockContentionHotspots,
		},
		{
			Name:        "thread_groups",
			Description: "Oversized HTTP pools and blocked database threads",
			Check:       checkThreadGroups,
		},
		{
			Name:        "suspicious_patterns",
			Description: "Thread starvation and excessive blocking",
			Check:       checkSuspiciousPatterns,
		},
		{
			Name:        "identical_stack_traces",
			Description: "Three or more threads sharing the same leading frames",
			Check:       checkIdenticalStacks,
		},
	}
}
