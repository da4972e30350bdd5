package graph

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stategraph-go/stategraph/graph/emit"
	"github.com/stategraph-go/stategraph/graph/store"
)

// DefaultMaxIterations is the iteration ceiling applied when
// WithMaxIterations is not given. It bounds cyclic graphs that never reach
// a terminal marker.
const DefaultMaxIterations = 100

// Config carries per-invocation settings.
type Config struct {
	// ThreadID names the checkpoint lineage for this invocation. Independent
	// thread ids may run concurrently against the same CompiledGraph. A new
	// id is generated when empty.
	ThreadID string
}

// CompiledGraph is the executable form of a StateGraph. It is produced by
// Compile, is immutable, and is safe for concurrent use by independent
// threads of execution.
type CompiledGraph struct {
	schema        *Schema
	nodes         map[string]Node
	edges         map[string]edge
	entry         string
	store         store.Store[State]
	emitter       emit.Emitter
	metrics       *Metrics
	maxIterations int

	mu      sync.Mutex
	pending map[string]pendingInterrupt // interrupt id -> suspension record
}

// pendingInterrupt records a suspension awaiting Resume.
type pendingInterrupt struct {
	interrupt Interrupt
	threadID  string
	state     State
}

// Invoke runs the workflow from the entry point until a terminal marker, an
// interrupt, an error, or the iteration ceiling is reached.
//
// The initial state is the schema defaults overlaid with the caller's
// initial map. On an interrupt, Invoke returns the state so far augmented
// with KeyInterrupt holding the pending []Interrupt, and a nil error; the
// caller inspects the key and later calls Resume.
func (c *CompiledGraph) Invoke(ctx context.Context, initial State, cfg Config) (State, error) {
	threadID := cfg.ThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}

	// The caller's initial map overwrites schema defaults; reducers apply
	// only to node updates.
	state := c.schema.initial()
	for k, v := range initial {
		state[k] = v
	}

	return c.run(ctx, state, threadID, c.entry, 0)
}

// Resume continues a suspended workflow. The command's InterruptID selects
// the pending interrupt; when empty, the latest interrupted checkpoint for
// the thread supplies it. An unknown or already-resumed id fails with an
// *ExecutionError.
//
// The checkpointed state is restored, the command's Resume payload is
// injected under KeyResume, any Update is merged, and the loop re-enters at
// the node that raised the interrupt so it can consume the payload.
func (c *CompiledGraph) Resume(ctx context.Context, cmd Command, cfg Config) (State, error) {
	threadID := cfg.ThreadID
	if threadID == "" {
		return nil, &ExecutionError{Message: "resume requires a thread id"}
	}

	interruptID := cmd.InterruptID
	if interruptID == "" {
		snap, err := c.store.Get(ctx, threadID, "")
		if err != nil {
			return nil, &ExecutionError{Message: "no checkpoint to resume from", Cause: err}
		}
		id, _ := snap.Metadata["interrupt_id"].(string)
		if id == "" {
			return nil, &ExecutionError{Message: fmt.Sprintf("thread %q has no pending interrupt", threadID)}
		}
		interruptID = id
	}

	c.mu.Lock()
	rec, ok := c.pending[interruptID]
	if ok {
		delete(c.pending, interruptID)
	}
	c.mu.Unlock()
	if !ok {
		return nil, &ExecutionError{Message: fmt.Sprintf("interrupt %q not found; already resumed or unknown", interruptID)}
	}
	if rec.threadID != threadID {
		return nil, &ExecutionError{Message: fmt.Sprintf("interrupt %q belongs to thread %q", interruptID, rec.threadID)}
	}

	state := rec.state.Clone()
	delete(state, KeyInterrupt)
	state[KeyResume] = cmd.Resume
	if cmd.Update != nil {
		if err := c.schema.apply(state, cmd.Update); err != nil {
			return nil, err
		}
	}

	c.emit(threadID, rec.interrupt.Iteration, rec.interrupt.Node, "resume", map[string]interface{}{
		"interrupt_id": interruptID,
	})

	return c.run(ctx, state, threadID, rec.interrupt.Node, rec.interrupt.Iteration)
}

// run is the shared execution loop behind Invoke, Resume, and Stream.
// startIteration is nonzero only on resume, so a resumed run keeps its
// position against the iteration ceiling.
func (c *CompiledGraph) run(ctx context.Context, state State, threadID, current string, startIteration int) (State, error) {
	c.metrics.RunStarted()
	defer c.metrics.RunFinished()

	var path []string
	for iteration := startIteration; iteration < c.maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, &ExecutionError{Message: "run cancelled", Node: current, Iteration: iteration, Path: path, Cause: err}
		}

		path = append(path, current)
		c.checkpoint(ctx, threadID, state, current, iteration, "running", nil)

		next, done, _, err := c.step(ctx, state, threadID, current, iteration)
		if err != nil {
			return nil, err
		}
		if done {
			if pending, ok := state[KeyInterrupt]; ok {
				if _, isInterrupt := pending.([]Interrupt); isInterrupt {
					return state, nil
				}
			}
			c.checkpoint(ctx, threadID, state, current, iteration, "completed", nil)
			c.emit(threadID, iteration, current, "run_complete", nil)
			return state, nil
		}

		// A node routing to itself almost always means a missing exit
		// condition, which would silently burn the whole ceiling.
		if next == current {
			c.warn(current, "node routes to itself; stopping run")
			c.checkpoint(ctx, threadID, state, current, iteration, "completed", nil)
			c.emit(threadID, iteration, current, "run_complete", nil)
			return state, nil
		}
		current = next
	}

	return nil, &ExecutionError{
		Message:   fmt.Sprintf("iteration ceiling of %d reached", c.maxIterations),
		Node:      current,
		Iteration: c.maxIterations,
		Path:      path,
	}
}

// step executes one node and resolves the next one. It returns the next node
// id, or done=true when the run ends after this step (normal termination or
// interrupt; an interrupt leaves KeyInterrupt set in state). delta is the
// update the node produced, already merged into state.
func (c *CompiledGraph) step(ctx context.Context, state State, threadID, current string, iteration int) (next string, done bool, delta State, err error) {
	node, ok := c.nodes[current]
	if !ok {
		return "", false, nil, &ExecutionError{
			Message:   fmt.Sprintf("node %q is not registered", current),
			Node:      current,
			Iteration: iteration,
		}
	}

	c.emit(threadID, iteration, current, "node_start", nil)
	started := time.Now()
	result := node.Run(ctx, state)
	elapsed := time.Since(started)

	switch {
	case result.Err != nil:
		c.metrics.ObserveNode(current, "error", elapsed)
		c.emit(threadID, iteration, current, "node_error", map[string]interface{}{
			"error": result.Err.Error(),
		})
		return "", false, nil, &NodeError{NodeID: current, Cause: result.Err, State: state.Clone()}

	case result.Interrupt != nil:
		c.metrics.ObserveNode(current, "interrupt", elapsed)
		c.metrics.ObserveInterrupt()
		intr := *result.Interrupt
		if intr.ID == "" {
			intr.ID = uuid.NewString()
		}
		intr.Node = current
		intr.Iteration = iteration
		c.suspend(ctx, state, threadID, intr)
		return "", true, nil, nil

	case result.Command != nil:
		c.metrics.ObserveNode(current, "success", elapsed)
		cmd := result.Command
		if cmd.Update != nil {
			if err := c.schema.apply(state, cmd.Update); err != nil {
				return "", false, nil, err
			}
		}
		c.emit(threadID, iteration, current, "node_end", map[string]interface{}{
			"duration_ms": elapsed.Milliseconds(),
			"goto":        cmd.Goto,
		})
		if cmd.Goto != "" {
			if cmd.Goto == End {
				return "", true, cmd.Update, nil
			}
			return cmd.Goto, false, cmd.Update, nil
		}
		next, done, err = c.route(ctx, state, current, iteration)
		return next, done, cmd.Update, err

	default:
		c.metrics.ObserveNode(current, "success", elapsed)
		if result.Update != nil {
			if err := c.schema.apply(state, result.Update); err != nil {
				return "", false, nil, err
			}
		}
		c.emit(threadID, iteration, current, "node_end", map[string]interface{}{
			"duration_ms": elapsed.Milliseconds(),
		})
		next, done, err = c.route(ctx, state, current, iteration)
		return next, done, result.Update, err
	}
}

// route resolves the next node through the edge registered for current.
// A node with no registered edge ends the run.
func (c *CompiledGraph) route(ctx context.Context, state State, current string, iteration int) (string, bool, error) {
	e, ok := c.edges[current]
	if !ok {
		return "", true, nil
	}

	if e.router == nil {
		if e.to == End || e.to == "" {
			return "", true, nil
		}
		return e.to, false, nil
	}

	key, err := e.router(ctx, state)
	if err != nil {
		return "", false, &ExecutionError{
			Message:   fmt.Sprintf("router for node %q failed", current),
			Node:      current,
			Iteration: iteration,
			Cause:     err,
		}
	}

	dest, ok := e.paths[key]
	if !ok {
		available := make([]string, 0, len(e.paths))
		for k := range e.paths {
			available = append(available, k)
		}
		sort.Strings(available)
		return "", false, &RoutingError{Source: current, Key: key, Available: available}
	}
	if dest == End {
		return "", true, nil
	}
	return dest, false, nil
}

// suspend records an interrupt: state gains the pending KeyInterrupt entry,
// an "interrupted" checkpoint is written, and the suspension is registered
// for Resume.
func (c *CompiledGraph) suspend(ctx context.Context, state State, threadID string, intr Interrupt) {
	pending, _ := state[KeyInterrupt].([]Interrupt)
	state[KeyInterrupt] = append(pending, intr)

	c.checkpoint(ctx, threadID, state, intr.Node, intr.Iteration, "interrupted", map[string]interface{}{
		"interrupt_id": intr.ID,
	})

	c.mu.Lock()
	c.pending[intr.ID] = pendingInterrupt{interrupt: intr, threadID: threadID, state: state.Clone()}
	c.mu.Unlock()

	c.emit(threadID, intr.Iteration, intr.Node, "interrupt", map[string]interface{}{
		"interrupt_id": intr.ID,
	})
}

// checkpoint writes a snapshot best-effort: a store failure is emitted and
// counted but never fails the run.
func (c *CompiledGraph) checkpoint(ctx context.Context, threadID string, state State, node string, iteration int, status string, extra map[string]interface{}) {
	metadata := map[string]any{
		"node":      node,
		"iteration": iteration,
		"status":    status,
	}
	for k, v := range extra {
		metadata[k] = v
	}

	snap := store.Snapshot[State]{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		Values:    state.Clone(),
		Next:      []string{node},
		Metadata:  metadata,
		Config:    map[string]any{"thread_id": threadID},
		CreatedAt: time.Now(),
	}

	if err := c.store.Save(ctx, threadID, snap); err != nil {
		c.metrics.ObserveCheckpoint("error")
		c.emit(threadID, iteration, node, "checkpoint_failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	c.metrics.ObserveCheckpoint("success")
}

// State returns the latest snapshot for a thread, or store.ErrNotFound when
// the thread has no history.
func (c *CompiledGraph) State(ctx context.Context, threadID string) (store.Snapshot[State], error) {
	return c.store.Get(ctx, threadID, "")
}

// History returns the thread's snapshots oldest-first.
func (c *CompiledGraph) History(ctx context.Context, threadID string) ([]store.Snapshot[State], error) {
	return c.store.List(ctx, threadID)
}

// ClearThread removes all checkpoints for a thread.
func (c *CompiledGraph) ClearThread(ctx context.Context, threadID string) error {
	return c.store.Clear(ctx, threadID)
}

// StoreStats reports checkpoint store occupancy across all threads.
func (c *CompiledGraph) StoreStats(ctx context.Context) (store.Stats, error) {
	return c.store.Stats(ctx)
}

func (c *CompiledGraph) emit(threadID string, iteration int, nodeID, msg string, meta map[string]interface{}) {
	c.emitter.Emit(emit.Event{
		ThreadID:  threadID,
		Iteration: iteration,
		NodeID:    nodeID,
		Msg:       msg,
		Meta:      meta,
	})
}

func (c *CompiledGraph) warn(nodeID, message string) {
	c.emitter.Emit(emit.Event{
		NodeID: nodeID,
		Msg:    "graph_warning",
		Meta:   map[string]interface{}{"warning": message},
	})
}
