package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Severity is the impact level of a finding. Severities are totally ordered.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Rank returns the position of the severity in the LOW < MEDIUM < HIGH < CRITICAL order.
// Unknown severities rank below LOW.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// AtLeast reports whether s is at least as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// ParseSeverity parses a severity name case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToUpper(strings.TrimSpace(s)))
	if sev.Rank() == 0 {
		return "", fmt.Errorf("unknown severity: %q", s)
	}
	return sev, nil
}

// FindingType is the closed vocabulary of diagnostic finding tags.
type FindingType string

const (
	FindingPotentialDeadlock            FindingType = "POTENTIAL_DEADLOCK"
	FindingHighThreadCount              FindingType = "HIGH_THREAD_COUNT"
	FindingHighBlockedThreads           FindingType = "HIGH_BLOCKED_THREADS"
	FindingHighWaitingThreads           FindingType = "HIGH_WAITING_THREADS"
	FindingCPUHotspot                   FindingType = "CPU_HOTSPOT"
	FindingLockContentionHotspot        FindingType = "LOCK_CONTENTION_HOTSPOT"
	FindingExcessiveHTTPThreads         FindingType = "EXCESSIVE_HTTP_THREADS"
	FindingDatabaseConnectionContention FindingType = "DATABASE_CONNECTION_CONTENTION"
	FindingThreadStarvation             FindingType = "THREAD_STARVATION"
	FindingExcessiveBlocking            FindingType = "EXCESSIVE_BLOCKING"
	FindingIdenticalStackTraces         FindingType = "IDENTICAL_STACK_TRACES"
)

// String returns the string representation of FindingType.
func (t FindingType) String() string {
	return string(t)
}

// Finding is one diagnostic observation produced by a detector.
type Finding struct {
	Type            FindingType    `json:"type"`
	Description     string         `json:"description"`
	Severity        Severity       `json:"severity"`
	AffectedThreads []string       `json:"affectedThreads"`
	Recommendation  string         `json:"recommendation"`
	Details         FindingDetails `json:"details"`
}

// DetailsMap returns the machine-readable details view, or nil.
func (f *Finding) DetailsMap() map[string]any {
	if f.Details == nil {
		return nil
	}
	return f.Details.Map()
}

type findingJSON struct {
	Type            FindingType    `json:"type"`
	Description     string         `json:"description"`
	Severity        Severity       `json:"severity"`
	AffectedThreads []string       `json:"affectedThreads,omitempty"`
	Recommendation  string         `json:"recommendation"`
	Details         map[string]any `json:"details,omitempty"`
}

// MarshalJSON renders Details through its map view.
func (f Finding) MarshalJSON() ([]byte, error) {
	return json.Marshal(findingJSON{
		Type:            f.Type,
		Description:     f.Description,
		Severity:        f.Severity,
		AffectedThreads: f.AffectedThreads,
		Recommendation:  f.Recommendation,
		Details:         f.DetailsMap(),
	})
}

// UnmarshalJSON decodes a finding; details come back as RawDetails.
func (f *Finding) UnmarshalJSON(data []byte) error {
	var aux findingJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*f = Finding{
		Type:            aux.Type,
		Description:     aux.Description,
		Severity:        aux.Severity,
		AffectedThreads: aux.AffectedThreads,
		Recommendation:  aux.Recommendation,
	}
	if aux.Details != nil {
		f.Details = RawDetails(aux.Details)
	}
	return nil
}

// FindingDetails is the typed supplementary data attached to a finding.
// Each detector has its own variant; Map exposes a serialization-friendly view.
type FindingDetails interface {
	Kind() string
	Map() map[string]any
}

// LockCount pairs a lock name with the number of threads waiting on it.
type LockCount struct {
	Lock    string
	Waiters int
}

func lockCountMap(locks []LockCount) map[string]any {
	m := make(map[string]any, len(locks))
	for _, lc := range locks {
		m[lc.Lock] = lc.Waiters
	}
	return m
}

// DeadlockDetails accompanies POTENTIAL_DEADLOCK findings.
type DeadlockDetails struct {
	BlockedThreadCount int
	LockContention     []LockCount
}

func (d DeadlockDetails) Kind() string { return "deadlock" }

func (d DeadlockDetails) Map() map[string]any {
	return map[string]any{
		"blockedThreadCount": d.BlockedThreadCount,
		"lockContention":     lockCountMap(d.LockContention),
	}
}

// BlockedThreadsDetails accompanies HIGH_BLOCKED_THREADS findings.
type BlockedThreadsDetails struct {
	BlockedCount   int
	LockContention []LockCount
	TopLocks       []LockCount
}

func (d BlockedThreadsDetails) Kind() string { return "blockedThreads" }

func (d BlockedThreadsDetails) Map() map[string]any {
	top := make([]string, 0, len(d.TopLocks))
	for _, lc := range d.TopLocks {
		top = append(top, lc.Lock)
	}
	return map[string]any{
		"blockedCount":   d.BlockedCount,
		"lockContention": lockCountMap(d.LockContention),
		"topLocks":       top,
	}
}

// WaitPattern counts waiting threads sharing a wait site.
type WaitPattern struct {
	Pattern string
	Count   int
}

// WaitingThreadsDetails accompanies HIGH_WAITING_THREADS findings.
type WaitingThreadsDetails struct {
	WaitingCount    int
	WaitingPatterns []WaitPattern
}

func (d WaitingThreadsDetails) Kind() string { return "waitingThreads" }

func (d WaitingThreadsDetails) Map() map[string]any {
	patterns := make(map[string]any, len(d.WaitingPatterns))
	for _, p := range d.WaitingPatterns {
		patterns[p.Pattern] = p.Count
	}
	return map[string]any{
		"waitingCount":    d.WaitingCount,
		"waitingPatterns": patterns,
	}
}

// HotspotDetails accompanies CPU_HOTSPOT and LOCK_CONTENTION_HOTSPOT findings.
// Blocking hotspots report their count under "blockedCount".
type HotspotDetails struct {
	Method      string
	Occurrences int
	ThreadCount int
	Blocking    bool
}

func (d HotspotDetails) Kind() string { return "hotspot" }

func (d HotspotDetails) Map() map[string]any {
	countKey := "occurrences"
	if d.Blocking {
		countKey = "blockedCount"
	}
	return map[string]any{
		"method":      d.Method,
		countKey:      d.Occurrences,
		"threadCount": d.ThreadCount,
	}
}

// HTTPThreadsDetails accompanies EXCESSIVE_HTTP_THREADS findings.
type HTTPThreadsDetails struct {
	ThreadCount int
}

func (d HTTPThreadsDetails) Kind() string { return "httpThreads" }

func (d HTTPThreadsDetails) Map() map[string]any {
	return map[string]any{
		"threadCount": d.ThreadCount,
		"category":    CategoryHTTP,
	}
}

// DatabaseContentionDetails accompanies DATABASE_CONNECTION_CONTENTION findings.
type DatabaseContentionDetails struct {
	BlockedThreads int
	TotalDBThreads int
}

func (d DatabaseContentionDetails) Kind() string { return "databaseContention" }

func (d DatabaseContentionDetails) Map() map[string]any {
	return map[string]any{
		"blockedThreads": d.BlockedThreads,
		"totalDbThreads": d.TotalDBThreads,
	}
}

// StarvationDetails accompanies THREAD_STARVATION findings.
type StarvationDetails struct {
	BlockedThreads  int
	RunnableThreads int
}

func (d StarvationDetails) Kind() string { return "starvation" }

func (d StarvationDetails) Map() map[string]any {
	return map[string]any{
		"blockedThreads":  d.BlockedThreads,
		"runnableThreads": d.RunnableThreads,
	}
}

// BlockingDetails accompanies EXCESSIVE_BLOCKING findings.
type BlockingDetails struct {
	BlockingPercentage float64
}

func (d BlockingDetails) Kind() string { return "blocking" }

func (d BlockingDetails) Map() map[string]any {
	return map[string]any{
		"blockingPercentage": d.BlockingPercentage,
	}
}

// StackClusterDetails accompanies IDENTICAL_STACK_TRACES findings.
type StackClusterDetails struct {
	ThreadCount int
	StackTrace  []string
}

func (d StackClusterDetails) Kind() string { return "stackCluster" }

func (d StackClusterDetails) Map() map[string]any {
	return map[string]any{
		"threadCount": d.ThreadCount,
		"stackTrace":  d.StackTrace,
	}
}

// RawDetails holds details decoded from a serialized report, where the
// originating variant is no longer known.
type RawDetails map[string]any

func (d RawDetails) Kind() string { return "raw" }

func (d RawDetails) Map() map[string]any { return d }
