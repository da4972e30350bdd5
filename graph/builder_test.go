package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stategraph-go/stategraph/graph/emit"
)

func passthroughNode() Node {
	return NodeFunc(func(ctx context.Context, s State) NodeResult {
		return Update(nil)
	})
}

// TestStateGraph_AddNode verifies node registration rules.
func TestStateGraph_AddNode(t *testing.T) {
	cases := []struct {
		name     string
		nodeName string
		node     Node
		wantErr  bool
	}{
		{"valid node", "worker", passthroughNode(), false},
		{"empty name", "", passthroughNode(), true},
		{"reserved START", Start, passthroughNode(), true},
		{"reserved END", End, passthroughNode(), true},
		{"nil function", "worker", nil, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := NewStateGraph(nil)
			err := g.AddNode(tc.nodeName, tc.node)
			if (err != nil) != tc.wantErr {
				t.Errorf("AddNode(%q) error = %v, wantErr %v", tc.nodeName, err, tc.wantErr)
			}
		})
	}

	t.Run("duplicate name rejected", func(t *testing.T) {
		g := NewStateGraph(nil)
		if err := g.AddNode("worker", passthroughNode()); err != nil {
			t.Fatalf("first AddNode failed: %v", err)
		}
		err := g.AddNode("worker", passthroughNode())
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("expected *ConfigError for duplicate, got %v", err)
		}
	})
}

// TestStateGraph_AddEdge verifies edge registration rules.
func TestStateGraph_AddEdge(t *testing.T) {
	newGraph := func(t *testing.T) *StateGraph {
		t.Helper()
		g := NewStateGraph(nil)
		if err := g.AddNode("a", passthroughNode()); err != nil {
			t.Fatal(err)
		}
		if err := g.AddNode("b", passthroughNode()); err != nil {
			t.Fatal(err)
		}
		return g
	}

	t.Run("valid edge", func(t *testing.T) {
		g := newGraph(t)
		if err := g.AddEdge("a", "b"); err != nil {
			t.Errorf("AddEdge failed: %v", err)
		}
	})

	t.Run("edge to END", func(t *testing.T) {
		g := newGraph(t)
		if err := g.AddEdge("a", End); err != nil {
			t.Errorf("AddEdge to END failed: %v", err)
		}
	})

	t.Run("edge from START sets entry point", func(t *testing.T) {
		g := newGraph(t)
		if err := g.AddEdge(Start, "a"); err != nil {
			t.Fatalf("AddEdge from START failed: %v", err)
		}
		if g.entry != "a" {
			t.Errorf("expected entry point a, got %q", g.entry)
		}
	})

	t.Run("unregistered source rejected", func(t *testing.T) {
		g := newGraph(t)
		if err := g.AddEdge("missing", "b"); err == nil {
			t.Error("expected error for unregistered source")
		}
	})

	t.Run("unregistered destination rejected", func(t *testing.T) {
		g := newGraph(t)
		if err := g.AddEdge("a", "missing"); err == nil {
			t.Error("expected error for unregistered destination")
		}
	})
}

// TestStateGraph_AddConditionalEdges verifies router registration rules.
func TestStateGraph_AddConditionalEdges(t *testing.T) {
	router := func(ctx context.Context, s State) (string, error) { return "done", nil }

	newGraph := func(t *testing.T) *StateGraph {
		t.Helper()
		g := NewStateGraph(nil)
		if err := g.AddNode("a", passthroughNode()); err != nil {
			t.Fatal(err)
		}
		if err := g.AddNode("b", passthroughNode()); err != nil {
			t.Fatal(err)
		}
		return g
	}

	t.Run("valid conditional edge", func(t *testing.T) {
		g := newGraph(t)
		err := g.AddConditionalEdges("a", router, map[string]string{"next": "b", "done": End})
		if err != nil {
			t.Errorf("AddConditionalEdges failed: %v", err)
		}
	})

	t.Run("nil router rejected", func(t *testing.T) {
		g := newGraph(t)
		if err := g.AddConditionalEdges("a", nil, map[string]string{"x": "b"}); err == nil {
			t.Error("expected error for nil router")
		}
	})

	t.Run("empty path table rejected", func(t *testing.T) {
		g := newGraph(t)
		if err := g.AddConditionalEdges("a", router, nil); err == nil {
			t.Error("expected error for empty path table")
		}
	})

	t.Run("unregistered path destination rejected", func(t *testing.T) {
		g := newGraph(t)
		if err := g.AddConditionalEdges("a", router, map[string]string{"x": "missing"}); err == nil {
			t.Error("expected error for unregistered destination")
		}
	})

	t.Run("path table is copied", func(t *testing.T) {
		g := newGraph(t)
		paths := map[string]string{"x": "b"}
		if err := g.AddConditionalEdges("a", router, paths); err != nil {
			t.Fatal(err)
		}
		paths["x"] = "mutated"
		if g.edges["a"].paths["x"] != "b" {
			t.Error("path table was not copied")
		}
	})
}

// TestStateGraph_Compile verifies freeze and validation behavior.
func TestStateGraph_Compile(t *testing.T) {
	t.Run("no nodes fails", func(t *testing.T) {
		g := NewStateGraph(nil)
		if _, err := g.Compile(); err == nil {
			t.Error("expected error compiling empty graph")
		}
	})

	t.Run("no entry point fails", func(t *testing.T) {
		g := NewStateGraph(nil)
		_ = g.AddNode("a", passthroughNode())
		if _, err := g.Compile(); err == nil {
			t.Error("expected error without entry point")
		}
	})

	t.Run("deferred builder error surfaces", func(t *testing.T) {
		g := NewStateGraph(nil)
		_ = g.AddNode("a", passthroughNode())
		_ = g.AddEdge("a", "missing") // invalid; error is remembered
		_ = g.SetEntryPoint("a")
		if _, err := g.Compile(); err == nil {
			t.Error("expected remembered builder error from Compile")
		}
	})

	t.Run("mutation after compile fails", func(t *testing.T) {
		g := NewStateGraph(nil)
		_ = g.AddNode("a", passthroughNode())
		_ = g.SetEntryPoint("a")
		if _, err := g.Compile(); err != nil {
			t.Fatalf("Compile failed: %v", err)
		}
		if err := g.AddNode("late", passthroughNode()); err == nil {
			t.Error("expected error adding node after compile")
		}
	})

	t.Run("invalid option fails", func(t *testing.T) {
		g := NewStateGraph(nil)
		_ = g.AddNode("a", passthroughNode())
		_ = g.SetEntryPoint("a")
		if _, err := g.Compile(WithMaxIterations(0)); err == nil {
			t.Error("expected error for non-positive iteration ceiling")
		}
	})

	t.Run("unreachable and dead-end warnings", func(t *testing.T) {
		g := NewStateGraph(nil)
		_ = g.AddNode("a", passthroughNode())
		_ = g.AddNode("island", passthroughNode())
		_ = g.AddEdge("a", End)
		_ = g.SetEntryPoint("a")

		buffered := emit.NewBufferedEmitter()
		if _, err := g.Compile(WithEmitter(buffered)); err != nil {
			t.Fatalf("Compile failed: %v", err)
		}

		warnings := buffered.HistoryWithFilter("", emit.HistoryFilter{Msg: "graph_warning"})
		if len(warnings) < 2 {
			t.Fatalf("expected warnings for unreachable and dead-end node, got %d", len(warnings))
		}

		var sawIsland bool
		for _, w := range warnings {
			if w.NodeID == "island" {
				sawIsland = true
			}
		}
		if !sawIsland {
			t.Error("expected a warning naming the island node")
		}
	})
}
