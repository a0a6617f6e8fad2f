package testutil

import (
	"fmt"

	"github.com/thread-dump-analysis/pkg/model"
)

// RecordOption customises a record built by Record.
type RecordOption func(*model.ThreadRecord)

// Record builds a thread record for tests.
func Record(name string, state model.ThreadState, opts ...RecordOption) model.ThreadRecord {
	r := model.ThreadRecord{
		Name:       name,
		State:      state,
		Priority:   5,
		StackTrace: []string{},
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// WithLock sets the awaited lock and, when non-empty, its owner.
func WithLock(lock, owner string) RecordOption {
	return func(r *model.ThreadRecord) {
		r.LockName = model.StringPtr(lock)
		if owner != "" {
			r.LockOwner = model.StringPtr(owner)
		}
	}
}

// WithStack sets the stack frames.
func WithStack(frames ...string) RecordOption {
	return func(r *model.ThreadRecord) {
		r.StackTrace = append([]string(nil), frames...)
	}
}

// WithID sets the thread id.
func WithID(id int64) RecordOption {
	return func(r *model.ThreadRecord) { r.ID = id }
}

// Daemon marks the record as a daemon thread.
func Daemon() RecordOption {
	return func(r *model.ThreadRecord) { r.Daemon = true }
}

// Records builds n records named fmt.Sprintf(pattern, i) for i in [0, n).
func Records(n int, pattern string, state model.ThreadState, opts ...RecordOption) []model.ThreadRecord {
	out := make([]model.ThreadRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Record(fmt.Sprintf(pattern, i), state, opts...))
	}
	return out
}

// Concat joins record slices.
func Concat(groups ...[]model.ThreadRecord) []model.ThreadRecord {
	var out []model.ThreadRecord
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// Names returns the record names in order.
func Names(records []model.ThreadRecord) []string {
	names := make([]string, 0, len(records))
	for _, r := range records {
		names = append(names, r.Name)
	}
	return names
}
