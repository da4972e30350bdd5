package store

import (
	"context"
	"sync"
)

// MemStore is an in-memory implementation of Store[S].
//
// It keeps a bounded per-thread snapshot history in maps. Designed for:
//   - Testing and development
//   - Single-process workflows
//   - Short-lived workflows where durability isn't required
//
// MemStore is thread-safe; writers on distinct thread ids do not interfere.
// For durable history use SQLiteStore or MySQLStore.
//
// Type parameter S is the state type to persist.
type MemStore[S any] struct {
	mu        sync.RWMutex
	snapshots map[string][]Snapshot[S] // threadID -> oldest-first history
	max       int
}

// NewMemStore creates an in-memory store with the default per-thread cap.
//
// Example:
//
//	st := store.NewMemStore[graph.State]()
//	compiled, err := g.Compile(graph.WithStore(st))
func NewMemStore[S any]() *MemStore[S] {
	return NewMemStoreWithLimit[S](DefaultMaxSnapshots)
}

// NewMemStoreWithLimit creates an in-memory store capping each thread's
// history at max snapshots. A max of 0 or less falls back to the default.
func NewMemStoreWithLimit[S any](max int) *MemStore[S] {
	if max <= 0 {
		max = DefaultMaxSnapshots
	}
	return &MemStore[S]{
		snapshots: make(map[string][]Snapshot[S]),
		max:       max,
	}
}

// Save appends a snapshot, evicting the oldest entry once the per-thread
// cap is exceeded.
func (m *MemStore[S]) Save(_ context.Context, threadID string, snap Snapshot[S]) error {
	if threadID == "" {
		return errEmptyThread("save")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	history := append(m.snapshots[threadID], snap)
	if len(history) > m.max {
		trimmed := make([]Snapshot[S], m.max)
		copy(trimmed, history[len(history)-m.max:])
		history = trimmed
	}
	m.snapshots[threadID] = history
	return nil
}

// Get retrieves a snapshot by id, or the latest for the thread when
// checkpointID is empty.
func (m *MemStore[S]) Get(_ context.Context, threadID, checkpointID string) (Snapshot[S], error) {
	var zero Snapshot[S]
	if threadID == "" {
		return zero, errEmptyThread("get")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	history := m.snapshots[threadID]
	if len(history) == 0 {
		return zero, ErrNotFound
	}

	if checkpointID == "" {
		return history[len(history)-1], nil
	}
	for _, snap := range history {
		if snap.ID == checkpointID {
			return snap, nil
		}
	}
	return zero, ErrNotFound
}

// List returns the thread's snapshots oldest-first.
func (m *MemStore[S]) List(_ context.Context, threadID string) ([]Snapshot[S], error) {
	if threadID == "" {
		return nil, errEmptyThread("list")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	history := m.snapshots[threadID]
	out := make([]Snapshot[S], len(history))
	copy(out, history)
	return out, nil
}

// Clear removes all snapshots for the thread.
func (m *MemStore[S]) Clear(_ context.Context, threadID string) error {
	if threadID == "" {
		return errEmptyThread("clear")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.snapshots, threadID)
	return nil
}

// Stats reports thread and snapshot counts.
func (m *MemStore[S]) Stats(_ context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{
		Threads:      len(m.snapshots),
		PerThread:    make(map[string]int, len(m.snapshots)),
		MaxPerThread: m.max,
	}
	for threadID, history := range m.snapshots {
		stats.PerThread[threadID] = len(history)
		stats.Snapshots += len(history)
	}
	return stats, nil
}
