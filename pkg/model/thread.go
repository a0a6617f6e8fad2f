// Package model defines the core data structures used throughout the application.
package model

import "strings"

// ThreadState represents the state of a JVM thread as reported in a thread dump.
type ThreadState string

const (
	ThreadStateNew          ThreadState = "NEW"
	ThreadStateRunnable     ThreadState = "RUNNABLE"
	ThreadStateBlocked      ThreadState = "BLOCKED"
	ThreadStateWaiting      ThreadState = "WAITING"
	ThreadStateTimedWaiting ThreadState = "TIMED_WAITING"
	ThreadStateTerminated   ThreadState = "TERMINATED"
	ThreadStateUnknown      ThreadState = "UNKNOWN"
)

// AllThreadStates returns every defined thread state in declaration order.
func AllThreadStates() []ThreadState {
	return []ThreadState{
		ThreadStateNew,
		ThreadStateRunnable,
		ThreadStateBlocked,
		ThreadStateWaiting,
		ThreadStateTimedWaiting,
		ThreadStateTerminated,
		ThreadStateUnknown,
	}
}

// ParseThreadState maps a raw state word to a ThreadState.
// The match is exact (case-sensitive); unmapped words yield ThreadStateUnknown.
func ParseThreadState(word string) ThreadState {
	switch ThreadState(word) {
	case ThreadStateNew, ThreadStateRunnable, ThreadStateBlocked, ThreadStateWaiting,
		ThreadStateTimedWaiting, ThreadStateTerminated, ThreadStateUnknown:
		return ThreadState(word)
	default:
		return ThreadStateUnknown
	}
}

// String returns the string representation of ThreadState.
func (s ThreadState) String() string {
	return string(s)
}

// IsWaiting reports whether the state is WAITING or TIMED_WAITING.
func (s ThreadState) IsWaiting() bool {
	return s == ThreadStateWaiting || s == ThreadStateTimedWaiting
}

// ThreadRecord is one parsed or introspected thread snapshot.
// Records are immutable once built; a record lives for a single analysis call.
type ThreadRecord struct {
	Name       string      `json:"name"`
	ID         int64       `json:"id"`
	State      ThreadState `json:"state"`
	Priority   int         `json:"priority"`
	Daemon     bool        `json:"daemon"`
	LockName   *string     `json:"lockName,omitempty"`
	LockOwner  *string     `json:"lockOwner,omitempty"`
	StackTrace []string    `json:"stackTrace"`
	Group      *string     `json:"group,omitempty"`
}

// HasLock reports whether the record carries a lock name.
func (r *ThreadRecord) HasLock() bool {
	return r.LockName != nil
}

// LockNameOr returns the lock name, or fallback when none is set.
func (r *ThreadRecord) LockNameOr(fallback string) string {
	if r.LockName == nil {
		return fallback
	}
	return *r.LockName
}

// TopFrame returns the first stack line, or "" for an empty stack.
func (r *ThreadRecord) TopFrame() string {
	if len(r.StackTrace) == 0 {
		return ""
	}
	return r.StackTrace[0]
}

// StackSignature joins up to depth leading stack lines with "|".
func (r *ThreadRecord) StackSignature(depth int) string {
	n := min(depth, len(r.StackTrace))
	return strings.Join(r.StackTrace[:n], "|")
}

// StringPtr returns a pointer to s. Handy when building records from structured sources.
func StringPtr(s string) *string {
	return &s
}

// JavaProcess describes a running JVM discovered on the host.
type JavaProcess struct {
	PID                  int64  `json:"pid"`
	MainClass            string `json:"mainClass"`
	DisplayName          string `json:"displayName"`
	JVMArguments         string `json:"jvmArguments"`
	ApplicationArguments string `json:"applicationArguments"`
}
