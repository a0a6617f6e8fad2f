package utils

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// StageTimer records the duration of sequential pipeline stages.
// It is safe for concurrent use, although a single analysis drives it serially.
type StageTimer struct {
	mu     sync.Mutex
	clock  Clock
	start  time.Time
	order  []string
	stages map[string]time.Duration
}

// NewStageTimer creates a timer that starts counting immediately.
func NewStageTimer(clock Clock) *StageTimer {
	if clock == nil {
		clock = NewRealClock()
	}
	return &StageTimer{
		clock:  clock,
		start:  clock.Now(),
		stages: make(map[string]time.Duration),
	}
}

// Track starts a stage and returns the function that ends it.
//
//	defer timer.Track("parse")()
func (t *StageTimer) Track(stage string) func() {
	begin := t.clock.Now()
	return func() {
		elapsed := t.clock.Since(begin)
		t.mu.Lock()
		defer t.mu.Unlock()
		if _, seen := t.stages[stage]; !seen {
			t.order = append(t.order, stage)
		}
		t.stages[stage] += elapsed
	}
}

// Duration returns the accumulated duration of a stage.
func (t *StageTimer) Duration(stage string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stages[stage]
}

// Total returns the time elapsed since the timer was created.
func (t *StageTimer) Total() time.Duration {
	return t.clock.Since(t.start)
}

// Stages returns the recorded stage names in completion order.
func (t *StageTimer) Stages() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.order...)
}

// String renders "stage=dur stage=dur total=dur".
func (t *StageTimer) String() string {
	t.mu.Lock()
	parts := make([]string, 0, len(t.order)+1)
	for _, name := range t.order {
		parts = append(parts, fmt.Sprintf("%s=%s", name, t.stages[name]))
	}
	t.mu.Unlock()
	parts = append(parts, fmt.Sprintf("total=%s", t.Total()))
	return strings.Join(parts, " ")
}
