package graph

import "fmt"

// edge describes where control flows after a node. Exactly one of the two
// forms is populated: a fixed destination, or a router with its path table.
type edge struct {
	to     string
	router Router
	paths  map[string]string
}

// StateGraph accumulates nodes, edges, and an entry point, then freezes into
// a CompiledGraph. A StateGraph is mutable only until Compile is called; the
// builder methods are not safe for concurrent use, but a CompiledGraph may be
// invoked concurrently by independent threads.
//
// Example:
//
//	schema, _ := graph.NewSchema(
//	    graph.FieldSpec{Name: "counter", Default: 0},
//	    graph.FieldSpec{Name: "messages", Default: []any{}, Reducer: graph.AppendReducer},
//	)
//	g := graph.NewStateGraph(schema)
//	g.AddNode("increment", graph.NodeFunc(increment))
//	g.AddEdge(graph.Start, "increment")
//	g.AddEdge("increment", graph.End)
//	compiled, err := g.Compile()
type StateGraph struct {
	schema   *Schema
	nodes    map[string]Node
	edges    map[string]edge
	entry    string
	compiled bool
	err      error
}

// NewStateGraph creates an empty graph definition over the given schema.
// A nil schema is replaced with an empty one, meaning every state field is
// caller-supplied and merged by overwrite.
func NewStateGraph(schema *Schema) *StateGraph {
	if schema == nil {
		schema, _ = NewSchema()
	}
	return &StateGraph{
		schema: schema,
		nodes:  make(map[string]Node),
		edges:  make(map[string]edge),
	}
}

// fail records the first configuration error so construction can be written
// as an unchecked chain, with the error surfaced by Compile.
func (g *StateGraph) fail(err error) error {
	if g.err == nil {
		g.err = err
	}
	return err
}

// AddNode registers a named node. The name must be non-empty, not a reserved
// marker, and not already registered.
func (g *StateGraph) AddNode(name string, node Node) error {
	if g.compiled {
		return g.fail(&ConfigError{Component: "node", Message: "graph is already compiled"})
	}
	if name == "" {
		return g.fail(&ConfigError{Component: "node", Message: "node name must not be empty"})
	}
	if name == Start || name == End {
		return g.fail(&ConfigError{Component: "node", Message: fmt.Sprintf("node name %q is reserved", name)})
	}
	if node == nil {
		return g.fail(&ConfigError{Component: "node", Message: fmt.Sprintf("node %q has no function", name)})
	}
	if _, exists := g.nodes[name]; exists {
		return g.fail(&ConfigError{Component: "node", Message: fmt.Sprintf("node %q is already registered", name)})
	}
	g.nodes[name] = node
	return nil
}

// AddEdge registers an unconditional edge from one node to another. The
// destination may be End to terminate the run. AddEdge(Start, x) is shorthand
// for SetEntryPoint(x).
func (g *StateGraph) AddEdge(from, to string) error {
	if g.compiled {
		return g.fail(&ConfigError{Component: "edge", Message: "graph is already compiled"})
	}
	if from == Start {
		return g.SetEntryPoint(to)
	}
	if _, exists := g.nodes[from]; !exists {
		return g.fail(&ConfigError{Component: "edge", Message: fmt.Sprintf("source node %q is not registered", from)})
	}
	if to != End {
		if _, exists := g.nodes[to]; !exists {
			return g.fail(&ConfigError{Component: "edge", Message: fmt.Sprintf("destination node %q is not registered", to)})
		}
	}
	g.edges[from] = edge{to: to}
	return nil
}

// AddConditionalEdges registers a router on the source node. After the node
// runs, the router is called with the merged state; its return value is
// looked up in paths to find the next node. A key the router returns at
// runtime that paths does not map fails the run with a *RoutingError.
//
// Every destination in paths other than End must be a registered node, and
// paths must not be empty.
func (g *StateGraph) AddConditionalEdges(from string, router Router, paths map[string]string) error {
	if g.compiled {
		return g.fail(&ConfigError{Component: "edge", Message: "graph is already compiled"})
	}
	if _, exists := g.nodes[from]; !exists {
		return g.fail(&ConfigError{Component: "edge", Message: fmt.Sprintf("source node %q is not registered", from)})
	}
	if router == nil {
		return g.fail(&ConfigError{Component: "edge", Message: fmt.Sprintf("conditional edge from %q has no router", from)})
	}
	if len(paths) == 0 {
		return g.fail(&ConfigError{Component: "edge", Message: fmt.Sprintf("conditional edge from %q has an empty path table", from)})
	}
	for key, dest := range paths {
		if dest == End {
			continue
		}
		if _, exists := g.nodes[dest]; !exists {
			return g.fail(&ConfigError{Component: "edge", Message: fmt.Sprintf("path %q routes to unregistered node %q", key, dest)})
		}
	}

	copied := make(map[string]string, len(paths))
	for k, v := range paths {
		copied[k] = v
	}
	g.edges[from] = edge{router: router, paths: copied}
	return nil
}

// SetEntryPoint names the node where every fresh invocation begins.
func (g *StateGraph) SetEntryPoint(name string) error {
	if g.compiled {
		return g.fail(&ConfigError{Component: "entry_point", Message: "graph is already compiled"})
	}
	if _, exists := g.nodes[name]; !exists {
		return g.fail(&ConfigError{Component: "entry_point", Message: fmt.Sprintf("entry point %q is not registered", name)})
	}
	g.entry = name
	return nil
}

// Compile validates and freezes the definition into an executable graph.
//
// Compile fails if any builder call failed, if no nodes exist, or if no
// entry point is set. It also walks the graph from the entry point and
// reports two non-fatal conditions through the emitter as "graph_warning"
// events: nodes unreachable from the entry point, and nodes with no outgoing
// edge (legitimate only when they are meant to end the run implicitly).
//
// The returned CompiledGraph is re-invocable and safe for concurrent use.
// The definition must not be mutated afterwards.
func (g *StateGraph) Compile(opts ...Option) (*CompiledGraph, error) {
	if g.err != nil {
		return nil, g.err
	}
	if len(g.nodes) == 0 {
		return nil, &ConfigError{Component: "compile", Message: "graph has no nodes"}
	}
	if g.entry == "" {
		return nil, &ConfigError{Component: "compile", Message: "no entry point set"}
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	g.compiled = true

	compiled := &CompiledGraph{
		schema:        g.schema,
		nodes:         g.nodes,
		edges:         g.edges,
		entry:         g.entry,
		store:         cfg.store,
		emitter:       cfg.emitter,
		metrics:       cfg.metrics,
		maxIterations: cfg.maxIterations,
		pending:       make(map[string]pendingInterrupt),
	}
	compiled.warnOnStructure()
	return compiled, nil
}

// warnOnStructure emits non-fatal warnings for unreachable and dead-end
// nodes.
func (c *CompiledGraph) warnOnStructure() {
	reachable := map[string]bool{c.entry: true}
	frontier := []string{c.entry}
	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]

		e, ok := c.edges[current]
		if !ok {
			continue
		}
		var dests []string
		if e.router != nil {
			for _, d := range e.paths {
				dests = append(dests, d)
			}
		} else {
			dests = []string{e.to}
		}
		for _, d := range dests {
			if d == End || reachable[d] {
				continue
			}
			reachable[d] = true
			frontier = append(frontier, d)
		}
	}

	for name := range c.nodes {
		if !reachable[name] {
			c.warn(name, "node is unreachable from the entry point")
		}
		if _, ok := c.edges[name]; !ok {
			c.warn(name, "node has no outgoing edge; the run ends after it")
		}
	}
}
