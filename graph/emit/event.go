package emit

// Event represents an observability event emitted during workflow execution.
//
// Events provide detailed insight into workflow behavior:
//   - Node execution start/end
//   - Routing decisions and interrupts
//   - Checkpoint writes and failures
//   - Warnings and errors
//
// Events are emitted to an Emitter which can log them, forward them to a
// tracing backend, or buffer them for inspection.
type Event struct {
	// ThreadID identifies the workflow execution that emitted this event.
	ThreadID string

	// Iteration is the loop iteration the event belongs to (0-indexed).
	// Zero for workflow-level events emitted before the first node runs.
	Iteration int

	// NodeID identifies which node the event concerns.
	// Empty string for workflow-level events.
	NodeID string

	// Msg is a short machine-matchable description of the event,
	// e.g. "node_start", "interrupt", "checkpoint_failed".
	Msg string

	// Meta contains additional structured data specific to this event.
	// Common keys:
	//   - "duration_ms": Node execution duration in milliseconds
	//   - "error": Error details
	//   - "checkpoint_id": Checkpoint identifier
	//   - "goto": Routing override target
	Meta map[string]interface{}
}
