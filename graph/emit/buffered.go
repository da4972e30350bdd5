package emit

import "sync"

// BufferedEmitter implements Emitter by storing events in memory.
//
// It captures all events and provides query capabilities for execution
// history analysis. Events are organized by thread for efficient retrieval.
//
// Use cases:
//   - Development and debugging
//   - Testing and validation
//   - Post-execution analysis
//
// Warning: BufferedEmitter stores all events in memory. For long-running
// deployments prefer a logging or tracing backend, or call Clear between
// runs.
//
// Example usage:
//
//	emitter := emit.NewBufferedEmitter()
//	compiled, _ := g.Compile(graph.WithEmitter(emitter))
//
//	compiled.Invoke(ctx, initial, graph.Config{ThreadID: "thread-001"})
//
//	all := emitter.History("thread-001")
//	errs := emitter.HistoryWithFilter("thread-001", emit.HistoryFilter{Msg: "node_error"})
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event // threadID -> events
}

// HistoryFilter specifies criteria for filtering execution history.
//
// All fields are optional. When multiple fields are set, all conditions
// must match.
type HistoryFilter struct {
	NodeID       string // Filter by node ID (empty = no filter)
	Msg          string // Filter by message (empty = no filter)
	MinIteration *int   // Minimum iteration (nil = no filter)
	MaxIteration *int   // Maximum iteration (nil = no filter)
}

// NewBufferedEmitter creates a BufferedEmitter. Safe for concurrent use.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{
		events: make(map[string][]Event),
	}
}

// Emit stores an event in the buffer.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[event.ThreadID] = append(b.events[event.ThreadID], event)
}

// History returns all stored events for a thread in emission order.
// Returns an empty slice when the thread has no events.
func (b *BufferedEmitter) History(threadID string) []Event {
	return b.HistoryWithFilter(threadID, HistoryFilter{})
}

// HistoryWithFilter returns the thread's events matching the filter,
// in emission order.
func (b *BufferedEmitter) HistoryWithFilter(threadID string, filter HistoryFilter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	events := b.events[threadID]
	result := make([]Event, 0, len(events))
	for _, event := range events {
		if !matchesFilter(event, filter) {
			continue
		}
		result = append(result, event)
	}
	return result
}

func matchesFilter(event Event, filter HistoryFilter) bool {
	if filter.NodeID != "" && event.NodeID != filter.NodeID {
		return false
	}
	if filter.Msg != "" && event.Msg != filter.Msg {
		return false
	}
	if filter.MinIteration != nil && event.Iteration < *filter.MinIteration {
		return false
	}
	if filter.MaxIteration != nil && event.Iteration > *filter.MaxIteration {
		return false
	}
	return true
}

// Clear removes stored events. A non-empty threadID clears only that
// thread; an empty threadID clears everything.
func (b *BufferedEmitter) Clear(threadID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if threadID == "" {
		b.events = make(map[string][]Event)
	} else {
		delete(b.events, threadID)
	}
}
