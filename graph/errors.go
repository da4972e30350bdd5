package graph

import (
	"fmt"
	"strings"
)

// ConfigError reports an invalid graph definition. It is returned from the
// builder methods and from Compile, never at run time.
type ConfigError struct {
	// Component identifies the part of the definition that is invalid
	// ("node", "edge", "conditional_edge", "entry_point", "compile", "schema").
	Component string

	// Message is the human-readable error description.
	Message string
}

func (e *ConfigError) Error() string {
	if e.Component != "" {
		return "graph config (" + e.Component + "): " + e.Message
	}
	return "graph config: " + e.Message
}

// ExecutionError reports a run-level failure: iteration ceiling exceeded,
// routing to an unknown node, or an invalid resume attempt.
type ExecutionError struct {
	Message string

	// Node is the node the engine was at when the run failed.
	Node string

	// Iteration is the step count at failure time.
	Iteration int

	// Path is the sequence of nodes executed so far, in order.
	Path []string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *ExecutionError) Error() string {
	msg := "graph execution: " + e.Message
	if e.Node != "" {
		msg += fmt.Sprintf(" (node %q, iteration %d)", e.Node, e.Iteration)
	}
	if len(e.Path) > 0 {
		msg += " [path: " + strings.Join(e.Path, " -> ") + "]"
	}
	return msg
}

func (e *ExecutionError) Unwrap() error { return e.Cause }

// NodeError wraps a failure raised by a node body. It carries the state at
// the moment of failure so callers can diagnose without replaying the run.
type NodeError struct {
	// NodeID identifies which node failed.
	NodeID string

	// Cause is the error returned by the node.
	Cause error

	// State is the workflow state passed to the node when it failed.
	State State
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %q failed: %v", e.NodeID, e.Cause)
}

func (e *NodeError) Unwrap() error { return e.Cause }

// RoutingError reports a conditional edge whose router produced a key that is
// not present in the path table. Available lists the mapped keys to aid
// debugging misconfigured branches.
type RoutingError struct {
	// Source is the node the edge routes from.
	Source string

	// Key is the value the router returned.
	Key string

	// Available lists the keys the path table does map, sorted.
	Available []string
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("routing from %q: key %q not in path map (available: %s)",
		e.Source, e.Key, strings.Join(e.Available, ", "))
}

// ValidationError reports a reducer failure while merging an update into
// state. Only the offending field is affected; updates already applied to
// other fields stand.
type ValidationError struct {
	// Field is the state field whose reducer failed.
	Field string

	// Value is the incoming value that could not be merged.
	Value any

	// Cause is the error returned by the reducer.
	Cause error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("state validation: reducer failed for field %q (value %v): %v",
		e.Field, e.Value, e.Cause)
}

func (e *ValidationError) Unwrap() error { return e.Cause }
