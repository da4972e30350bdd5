// Package store provides checkpoint persistence for workflow executions.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested thread or checkpoint id does not
// exist. A missing thread is not an error condition in itself; callers
// distinguish it with errors.Is.
var ErrNotFound = errors.New("not found")

// DefaultMaxSnapshots is the per-thread history cap applied when a store is
// constructed without an explicit limit. Once exceeded, the oldest snapshots
// are evicted (ring-buffer semantics).
const DefaultMaxSnapshots = 100

// Snapshot is an immutable record of workflow state at one point in
// execution. Snapshots are owned by the store and referenced by thread id.
//
// Type parameter S is the state type being persisted.
type Snapshot[S any] struct {
	// ID uniquely identifies this snapshot within its thread.
	ID string `json:"id"`

	// ThreadID is the logical execution lineage this snapshot belongs to.
	ThreadID string `json:"thread_id"`

	// Values is the workflow state at snapshot time.
	Values S `json:"values"`

	// Next names the node(s) about to run when the snapshot was taken;
	// empty for a completed run.
	Next []string `json:"next"`

	// Metadata carries run bookkeeping: iteration count, current node,
	// status ("running", "interrupted", "completed"), interrupt id if any.
	Metadata map[string]any `json:"metadata"`

	// Config is the caller-provided invocation configuration, including
	// the thread id.
	Config map[string]any `json:"config"`

	// CreatedAt records when the snapshot was taken.
	CreatedAt time.Time `json:"created_at"`
}

// Stats summarizes a store's contents.
type Stats struct {
	// Threads is the number of distinct thread lineages held.
	Threads int

	// Snapshots is the total snapshot count across all threads.
	Snapshots int

	// PerThread maps thread id to its snapshot count.
	PerThread map[string]int

	// MaxPerThread is the configured per-thread history cap.
	MaxPerThread int
}

// Store persists per-thread snapshot history.
//
// Implementations enforce a maximum snapshot count per thread by dropping
// the oldest entries, reject empty thread ids with *CheckpointError, and
// must tolerate concurrent writers across distinct thread ids.
//
// Type parameter S is the state type to persist.
type Store[S any] interface {
	// Save appends a snapshot to the thread's history, evicting the oldest
	// entry if the per-thread cap is exceeded.
	Save(ctx context.Context, threadID string, snap Snapshot[S]) error

	// Get retrieves a snapshot. An empty checkpointID returns the latest
	// snapshot for the thread. Returns ErrNotFound for an unknown thread
	// or checkpoint id.
	Get(ctx context.Context, threadID, checkpointID string) (Snapshot[S], error)

	// List returns the thread's snapshots oldest-first. An unknown thread
	// yields an empty list.
	List(ctx context.Context, threadID string) ([]Snapshot[S], error)

	// Clear removes all snapshots for the thread.
	Clear(ctx context.Context, threadID string) error

	// Stats reports the store's current contents.
	Stats(ctx context.Context) (Stats, error)
}

// CheckpointError reports a failed store operation.
type CheckpointError struct {
	// Op is the operation that failed ("save", "get", "list", "clear", "stats").
	Op string

	// ThreadID is the thread the operation targeted, if any.
	ThreadID string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *CheckpointError) Error() string {
	msg := "checkpoint " + e.Op
	if e.ThreadID != "" {
		msg += " (thread " + e.ThreadID + ")"
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg + " failed"
}

func (e *CheckpointError) Unwrap() error { return e.Cause }

// errEmptyThread builds the CheckpointError every operation returns for an
// empty thread id.
func errEmptyThread(op string) error {
	return &CheckpointError{Op: op, Cause: errors.New("thread id cannot be empty")}
}
