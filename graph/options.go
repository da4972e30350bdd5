// Package graph provides a resumable workflow execution engine built on a
// directed graph of named nodes sharing a mutable state.
package graph

import (
	"github.com/stategraph-go/stategraph/graph/emit"
	"github.com/stategraph-go/stategraph/graph/store"
)

// Option is a functional option for configuring a compiled graph.
//
// Options are passed to Compile:
//
//	compiled, err := g.Compile(
//	    graph.WithStore(st),
//	    graph.WithEmitter(emit.NewLogEmitter(os.Stdout, false)),
//	    graph.WithMaxIterations(50),
//	)
type Option func(*graphConfig) error

// graphConfig collects options before they are applied to a CompiledGraph.
// The indirection allows validation during Compile.
type graphConfig struct {
	store         store.Store[State]
	emitter       emit.Emitter
	metrics       *Metrics
	maxIterations int
}

func defaultConfig() graphConfig {
	return graphConfig{
		store:         store.NewMemStore[State](),
		emitter:       emit.NewNullEmitter(),
		maxIterations: DefaultMaxIterations,
	}
}

// WithStore sets the checkpoint store used for execution history and resume.
//
// Default: an in-memory store private to the compiled graph. Use a
// SQLite or MySQL store when history must survive process restarts:
//
//	st, err := store.NewSQLiteStore[graph.State]("./workflows.db")
//	compiled, err := g.Compile(graph.WithStore(st))
func WithStore(s store.Store[State]) Option {
	return func(cfg *graphConfig) error {
		if s == nil {
			return &ConfigError{Component: "store", Message: "store must not be nil"}
		}
		cfg.store = s
		return nil
	}
}

// WithEmitter sets the observability emitter receiving execution events.
//
// Default: emit.NullEmitter (events discarded).
func WithEmitter(e emit.Emitter) Option {
	return func(cfg *graphConfig) error {
		if e == nil {
			return &ConfigError{Component: "emitter", Message: "emitter must not be nil"}
		}
		cfg.emitter = e
		return nil
	}
}

// WithMetrics enables Prometheus metrics collection.
//
// Example:
//
//	registry := prometheus.NewRegistry()
//	metrics := graph.NewMetrics(registry)
//	compiled, err := g.Compile(graph.WithMetrics(metrics))
//
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
func WithMetrics(m *Metrics) Option {
	return func(cfg *graphConfig) error {
		cfg.metrics = m
		return nil
	}
}

// WithMaxIterations sets the iteration ceiling for a single Invoke, Stream,
// or Resume call, preventing unbounded loops in cyclic graphs.
//
// Default: DefaultMaxIterations (100). Values of 0 or less are rejected.
//
// When the ceiling is reached the run fails with an *ExecutionError whose
// Path records the nodes visited.
func WithMaxIterations(n int) Option {
	return func(cfg *graphConfig) error {
		if n <= 0 {
			return &ConfigError{Component: "max_iterations", Message: "max iterations must be positive"}
		}
		cfg.maxIterations = n
		return nil
	}
}
