package graph

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// StreamMode selects what each streamed event carries.
type StreamMode string

const (
	// StreamValues yields the full accumulated state after each node.
	StreamValues StreamMode = "values"

	// StreamUpdates yields only the update each node produced.
	StreamUpdates StreamMode = "updates"

	// StreamDebug yields the state before each node runs, plus iteration
	// metadata.
	StreamDebug StreamMode = "debug"
)

// StreamEvent is one element of the lazy sequence produced by Stream.
// Exactly one of Values, Interrupt, or Err is meaningful for terminal
// events; per-step events carry Node, Iteration, and Values.
type StreamEvent struct {
	// Node is the node the event concerns. Empty for terminal events.
	Node string

	// Iteration is the loop iteration the event belongs to.
	Iteration int

	// Values is the payload selected by the stream mode: full state, the
	// node's update, or the pre-execution state for debug mode.
	Values State

	// Interrupt is set on the terminal event of a suspended run.
	Interrupt *Interrupt

	// Err is set on the terminal event of a failed run.
	Err error
}

// Stream executes the workflow like Invoke but surfaces an event per step
// on the returned channel instead of only the final state.
//
// The channel is closed when the run ends. An interrupt yields one terminal
// event carrying the Interrupt and stops the sequence; the consumer resumes
// separately via Resume. An error yields one terminal event carrying Err.
// The sequence is finite for well-formed graphs and is not restartable: a
// fresh call re-executes from the entry point.
//
// Cancelling ctx stops the run; events not yet consumed are dropped.
//
// Example:
//
//	events, err := compiled.Stream(ctx, initial, graph.Config{ThreadID: "t1"}, graph.StreamValues)
//	if err != nil {
//	    return err
//	}
//	for ev := range events {
//	    if ev.Err != nil {
//	        return ev.Err
//	    }
//	    fmt.Println(ev.Node, ev.Values)
//	}
func (c *CompiledGraph) Stream(ctx context.Context, initial State, cfg Config, mode StreamMode) (<-chan StreamEvent, error) {
	switch mode {
	case StreamValues, StreamUpdates, StreamDebug:
	default:
		return nil, &ConfigError{Component: "stream", Message: fmt.Sprintf("unknown stream mode %q", mode)}
	}

	threadID := cfg.ThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}

	state := c.schema.initial()
	for k, v := range initial {
		state[k] = v
	}

	events := make(chan StreamEvent, 1)
	go func() {
		defer close(events)
		c.streamRun(ctx, events, state, threadID, mode)
	}()
	return events, nil
}

// streamRun mirrors run but sends an event per step.
func (c *CompiledGraph) streamRun(ctx context.Context, events chan<- StreamEvent, state State, threadID string, mode StreamMode) {
	c.metrics.RunStarted()
	defer c.metrics.RunFinished()

	send := func(ev StreamEvent) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	var path []string
	current := c.entry
	for iteration := 0; iteration < c.maxIterations; iteration++ {
		if ctx.Err() != nil {
			send(StreamEvent{Node: current, Iteration: iteration, Err: &ExecutionError{
				Message: "run cancelled", Node: current, Iteration: iteration, Path: path, Cause: ctx.Err(),
			}})
			return
		}

		path = append(path, current)
		c.checkpoint(ctx, threadID, state, current, iteration, "running", nil)

		if mode == StreamDebug {
			if !send(StreamEvent{Node: current, Iteration: iteration, Values: state.Clone()}) {
				return
			}
		}

		next, done, delta, err := c.step(ctx, state, threadID, current, iteration)
		if err != nil {
			send(StreamEvent{Node: current, Iteration: iteration, Err: err})
			return
		}

		if done {
			if pending, ok := state[KeyInterrupt].([]Interrupt); ok && len(pending) > 0 {
				last := pending[len(pending)-1]
				send(StreamEvent{Node: current, Iteration: iteration, Interrupt: &last})
				return
			}
			if !c.sendStep(send, state, delta, current, iteration, mode) {
				return
			}
			c.checkpoint(ctx, threadID, state, current, iteration, "completed", nil)
			c.emit(threadID, iteration, current, "run_complete", nil)
			return
		}

		if !c.sendStep(send, state, delta, current, iteration, mode) {
			return
		}

		if next == current {
			c.warn(current, "node routes to itself; stopping run")
			c.checkpoint(ctx, threadID, state, current, iteration, "completed", nil)
			c.emit(threadID, iteration, current, "run_complete", nil)
			return
		}
		current = next
	}

	send(StreamEvent{Node: current, Iteration: c.maxIterations, Err: &ExecutionError{
		Message:   fmt.Sprintf("iteration ceiling of %d reached", c.maxIterations),
		Node:      current,
		Iteration: c.maxIterations,
		Path:      path,
	}})
}

// sendStep emits the post-execution event for values and updates modes.
// Debug mode already sent its pre-execution event.
func (c *CompiledGraph) sendStep(send func(StreamEvent) bool, state, delta State, node string, iteration int, mode StreamMode) bool {
	switch mode {
	case StreamValues:
		return send(StreamEvent{Node: node, Iteration: iteration, Values: state.Clone()})
	case StreamUpdates:
		return send(StreamEvent{Node: node, Iteration: iteration, Values: delta.Clone()})
	default:
		return true
	}
}
