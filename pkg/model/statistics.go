package model

// Thread category labels, listed in classification priority order.
const (
	CategoryGC          = "GC"
	CategoryHTTP        = "HTTP/Web"
	CategoryDatabase    = "Database"
	CategoryThreadPool  = "Thread Pool"
	CategoryJVMInternal = "JVM Internal"
	CategoryApplication = "Application"
	CategoryOther       = "Other"
)

// Categories returns the category labels in classification priority order.
func Categories() []string {
	return []string{
		CategoryGC,
		CategoryHTTP,
		CategoryDatabase,
		CategoryThreadPool,
		CategoryJVMInternal,
		CategoryApplication,
		CategoryOther,
	}
}

// Statistics holds count-based aggregates over a set of thread records.
type Statistics struct {
	TotalThreads    int                 `json:"totalThreads"`
	ThreadsByState  map[ThreadState]int `json:"threadsByState"`
	DaemonThreads   int                 `json:"daemonThreads"`
	BlockedThreads  int                 `json:"blockedThreads"`
	WaitingThreads  int                 `json:"waitingThreads"`
	RunnableThreads int                 `json:"runnableThreads"`
	ThreadGroups    map[string]int      `json:"threadGroups"`
}

// NewStatistics returns zeroed statistics with every thread state present.
func NewStatistics() *Statistics {
	byState := make(map[ThreadState]int, len(AllThreadStates()))
	for _, s := range AllThreadStates() {
		byState[s] = 0
	}
	return &Statistics{
		ThreadsByState: byState,
		ThreadGroups:   make(map[string]int),
	}
}

// GroupCount returns the thread count of a category, zero when absent.
func (s *Statistics) GroupCount(category string) int {
	if s == nil || s.ThreadGroups == nil {
		return 0
	}
	return s.ThreadGroups[category]
}
