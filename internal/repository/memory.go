package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/thread-dump-analysis/pkg/model"
)

type memoryEntry struct {
	report *model.Report
	seq    uint64
}

// MemoryReportStore keeps reports in a mutex-guarded map.
type MemoryReportStore struct {
	mu         sync.RWMutex
	reports    map[string]memoryEntry
	maxReports int
	nextSeq    uint64
}

// NewMemoryReportStore creates a store holding at most maxReports reports;
// the oldest inserted report is evicted first. maxReports <= 0 means unbounded.
func NewMemoryReportStore(maxReports int) *MemoryReportStore {
	return &MemoryReportStore{
		reports:    make(map[string]memoryEntry),
		maxReports: maxReports,
	}
}

// Save implements ReportStore.
func (s *MemoryReportStore) Save(ctx context.Context, report *model.Report) error {
	if report == nil || report.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidReport)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSeq++
	s.reports[report.ID] = memoryEntry{report: report, seq: s.nextSeq}
	s.evictLocked()
	return nil
}

func (s *MemoryReportStore) evictLocked() {
	for s.maxReports > 0 && len(s.reports) > s.maxReports {
		var oldestID string
		var oldestSeq uint64
		for id, e := range s.reports {
			if oldestID == "" || e.seq < oldestSeq {
				oldestID, oldestSeq = id, e.seq
			}
		}
		delete(s.reports, oldestID)
	}
}

// Get implements ReportStore.
func (s *MemoryReportStore) Get(ctx context.Context, id string) (*model.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.reports[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrReportNotFound, id)
	}
	return e.report, nil
}

// List implements ReportStore.
func (s *MemoryReportStore) List(ctx context.Context, limit int) ([]model.ReportSummary, error) {
	s.mu.RLock()
	entries := make([]memoryEntry, 0, len(s.reports))
	for _, e := range s.reports {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		ti, tj := entries[i].report.Timestamp, entries[j].report.Timestamp
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return entries[i].seq > entries[j].seq
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	summaries := make([]model.ReportSummary, 0, len(entries))
	for _, e := range entries {
		summaries = append(summaries, e.report.Brief())
	}
	return summaries, nil
}

// Delete implements ReportStore.
func (s *MemoryReportStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reports[id]; !ok {
		return fmt.Errorf("%w: %s", ErrReportNotFound, id)
	}
	delete(s.reports, id)
	return nil
}

// Count implements ReportStore.
func (s *MemoryReportStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports), nil
}

// Close implements ReportStore.
func (s *MemoryReportStore) Close() error {
	return nil
}
