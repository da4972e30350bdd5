package graph

import "context"

// Reserved node names marking the implicit graph boundaries. Neither may be
// used as the name of a registered node.
const (
	// Start is the implicit source of the entry edge.
	Start = "START"

	// End terminates the run when used as an edge destination or Command goto.
	End = "END"
)

// Reserved state keys the engine writes.
const (
	// KeyInterrupt carries interrupt metadata on the state returned from a
	// suspended invocation.
	KeyInterrupt = "__interrupt__"

	// KeyResume carries the externally supplied payload injected on resume.
	KeyResume = "__resume__"
)

// Node represents a processing unit in the workflow graph. It receives the
// current state, performs computation, and returns a NodeResult describing
// what happened.
//
// Node bodies may perform their own I/O and respect ctx for cancellation.
// The engine never runs two nodes of the same invocation concurrently.
type Node interface {
	Run(ctx context.Context, state State) NodeResult
}

// NodeFunc is a function adapter that implements the Node interface.
//
// Example:
//
//	increment := graph.NodeFunc(func(ctx context.Context, s graph.State) graph.NodeResult {
//	    n, _ := s["counter"].(int)
//	    return graph.Update(graph.State{"counter": n + 1})
//	})
type NodeFunc func(ctx context.Context, state State) NodeResult

// Run implements the Node interface for NodeFunc.
func (f NodeFunc) Run(ctx context.Context, state State) NodeResult {
	return f(ctx, state)
}

// Router maps the current state to a key that is looked up in a conditional
// edge's path table. An unmapped key surfaces as a *RoutingError.
type Router func(ctx context.Context, state State) (string, error)

// Command is an explicit directive a node may return instead of a plain
// update. It can carry a state update, a destination override that bypasses
// edge routing, or — on resume — externally supplied data for a pending
// interrupt.
type Command struct {
	// Update is an optional partial state update, merged via the schema's
	// reducers before routing.
	Update State

	// Goto overrides edge-based routing for this step. Goto == End
	// terminates the run immediately.
	Goto string

	// Resume is the externally supplied payload for CompiledGraph.Resume.
	Resume any

	// InterruptID names the pending interrupt being resumed.
	InterruptID string
}

// Interrupt is a suspension signal requesting external input. It aborts the
// current step without discarding state; the engine records an "interrupted"
// checkpoint and returns the state annotated under KeyInterrupt.
type Interrupt struct {
	// ID uniquely identifies this interrupt; assigned by the engine when
	// the node leaves it empty.
	ID string

	// Value is the opaque payload shown to whoever supplies the input.
	Value any

	// Node is the node that raised the interrupt.
	Node string

	// Iteration is the step count when the interrupt was raised.
	Iteration int
}

// NodeResult is the tagged outcome of a node execution. Exactly one of the
// fields should be set; the engine checks them in order Err, Interrupt,
// Command, Update. A zero NodeResult is treated as an empty update.
type NodeResult struct {
	// Update is a partial state update merged via the schema's reducers.
	Update State

	// Command is an explicit control directive (see Command).
	Command *Command

	// Interrupt suspends the run for external input.
	Interrupt *Interrupt

	// Err is a node-level failure; it halts the run wrapped in *NodeError.
	Err error
}

// Update returns a NodeResult carrying a partial state update.
func Update(delta State) NodeResult {
	return NodeResult{Update: delta}
}

// Goto returns a NodeResult that routes directly to the named node,
// bypassing edge lookup. Use End to terminate the run.
func Goto(node string) NodeResult {
	return NodeResult{Command: &Command{Goto: node}}
}

// GotoWith returns a NodeResult that applies an update and then routes
// directly to the named node.
func GotoWith(node string, delta State) NodeResult {
	return NodeResult{Command: &Command{Update: delta, Goto: node}}
}

// Suspend returns a NodeResult that interrupts the run, surfacing value as
// the interrupt payload. The engine assigns the interrupt id.
func Suspend(value any) NodeResult {
	return NodeResult{Interrupt: &Interrupt{Value: value}}
}

// Fail returns a NodeResult carrying a node-level error.
func Fail(err error) NodeResult {
	return NodeResult{Err: err}
}
