package graph

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/schema"
)

// Graph is a set of nodes connected by edges, with one start node.
//
// Mutations either apply fully or not at all. Once sealed (the engine seals
// graphs on registration) the graph is read-only and may be shared by
// concurrent runs.
type Graph struct {
	id          string
	description string
	createdAt   time.Time

	nodes map[string]Node
	order []string
	edges []Edge
	start string

	schema schema.Schema
	sealed bool
}

// New creates an empty graph.
func New(id string) *Graph {
	return &Graph{
		id:        id,
		createdAt: time.Now().UTC(),
		nodes:     make(map[string]Node),
	}
}

func (g *Graph) ID() string           { return g.id }
func (g *Graph) Description() string  { return g.description }
func (g *Graph) CreatedAt() time.Time { return g.createdAt }
func (g *Graph) Start() string        { return g.start }
func (g *Graph) Sealed() bool         { return g.sealed }

// Schema returns the initial-state schema, if any.
func (g *Graph) Schema() schema.Schema { return g.schema }

// SetDescription sets a human-readable description.
func (g *Graph) SetDescription(desc string) error {
	if g.sealed {
		return domain.ErrGraphSealed
	}
	g.description = desc
	return nil
}

// SetSchema attaches a schema the initial state of every run must satisfy.
func (g *Graph) SetSchema(s schema.Schema) error {
	if g.sealed {
		return domain.ErrGraphSealed
	}
	g.schema = s
	return nil
}

// AddNode adds a node. Duplicate ids fail with domain.ErrDuplicateNodeID.
func (g *Graph) AddNode(n Node) error {
	if g.sealed {
		return domain.ErrGraphSealed
	}
	if n == nil || n.ID() == "" {
		return fmt.Errorf("node must have an id")
	}
	if _, exists := g.nodes[n.ID()]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateNodeID, n.ID())
	}
	g.nodes[n.ID()] = n
	g.order = append(g.order, n.ID())
	return nil
}

// AddStartNode adds a node and marks it as the start node.
// A second start node fails with domain.ErrMultipleStartNodes and leaves the
// graph unchanged.
func (g *Graph) AddStartNode(n Node) error {
	if g.sealed {
		return domain.ErrGraphSealed
	}
	if g.start != "" {
		return fmt.Errorf("%w: %s", domain.ErrMultipleStartNodes, g.start)
	}
	if err := g.AddNode(n); err != nil {
		return err
	}
	g.start = n.ID()
	return nil
}

// SetStart marks an existing node as the start node.
func (g *Graph) SetStart(id string) error {
	if g.sealed {
		return domain.ErrGraphSealed
	}
	if _, ok := g.nodes[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownNode, id)
	}
	if g.start != "" && g.start != id {
		return fmt.Errorf("%w: %s", domain.ErrMultipleStartNodes, g.start)
	}
	g.start = id
	return nil
}

// AddEdge connects from -> to. guard may be nil. Both endpoints must exist.
func (g *Graph) AddEdge(from, to string, guard *Guard) error {
	if g.sealed {
		return domain.ErrGraphSealed
	}
	for _, id := range []string{from, to} {
		if _, ok := g.nodes[id]; !ok {
			return fmt.Errorf("%w: %s", domain.ErrUnknownNode, id)
		}
	}
	g.edges = append(g.edges, Edge{From: from, To: to, Guard: guard})
	return nil
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Edges returns every edge in insertion order.
func (g *Graph) Edges() []Edge {
	return slices.Clone(g.edges)
}

// Outgoing returns the edges leaving id in insertion order.
func (g *Graph) Outgoing(id string) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}

// Successor returns the single unguarded successor of a non-decision node,
// or "" for a terminal node.
func (g *Graph) Successor(id string) string {
	for _, e := range g.edges {
		if e.From == id {
			return e.To
		}
	}
	return ""
}

// Seal validates the graph and freezes it.
func (g *Graph) Seal() error {
	if g.sealed {
		return nil
	}
	if err := g.Err(); err != nil {
		return err
	}
	g.sealed = true
	return nil
}

// Problem is one structural defect found by Validate.
type Problem struct {
	NodeID  string `json:"node_id,omitempty"`
	Message string `json:"message"`
}

func (p Problem) String() string {
	if p.NodeID == "" {
		return p.Message
	}
	return fmt.Sprintf("node %q: %s", p.NodeID, p.Message)
}

// ValidationError aggregates every problem of a graph.
type ValidationError struct {
	GraphID  string
	Problems []Problem
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.String()
	}
	return fmt.Sprintf("invalid graph %q: %s", e.GraphID, strings.Join(msgs, "; "))
}

func (e *ValidationError) Is(target error) bool { return target == domain.ErrInvalidGraph }

// Err returns a *ValidationError when Validate reports problems.
func (g *Graph) Err() error {
	if problems := g.Validate(); len(problems) > 0 {
		return &ValidationError{GraphID: g.id, Problems: problems}
	}
	return nil
}

// Validate checks the graph's structure and returns every problem found.
func (g *Graph) Validate() []Problem {
	var problems []Problem
	report := func(id, format string, args ...any) {
		problems = append(problems, Problem{NodeID: id, Message: fmt.Sprintf(format, args...)})
	}

	if g.id == "" {
		report("", "graph id is required")
	}
	if len(g.nodes) == 0 {
		report("", "graph has no nodes")
	}
	if g.start == "" {
		report("", "no start node")
	} else if _, ok := g.nodes[g.start]; !ok {
		report("", "start node %q does not exist", g.start)
	}

	for _, e := range g.edges {
		if _, ok := g.nodes[e.From]; !ok {
			report("", "edge source %q does not exist", e.From)
		}
		if _, ok := g.nodes[e.To]; !ok {
			report("", "edge target %q does not exist", e.To)
		}
	}

	for _, id := range g.order {
		out := g.Outgoing(id)
		switch n := g.nodes[id].(type) {
		case *DecisionNode:
			validateDecision(n, out, report)
		case *LoopNode:
			validateLoop(n, report)
			validatePlain(id, out, report)
		case *ToolCallNode:
			if n.Tool() == "" {
				report(id, "tool name is required")
			}
			validatePlain(id, out, report)
		case *BatchNode:
			if n.InputKey() == "" {
				report(id, "batch input key is required")
			}
			if n.tool == "" && n.fn == nil {
				report(id, "batch needs a function or a tool")
			}
			validatePlain(id, out, report)
		default:
			validatePlain(id, out, report)
		}
	}
	return problems
}

func validatePlain(id string, out []Edge, report func(string, string, ...any)) {
	for _, e := range out {
		if e.Guard != nil {
			report(id, "guarded edge to %q; only decision nodes may have guards", e.To)
		}
	}
	if len(out) > 1 {
		targets := make([]string, len(out))
		for i, e := range out {
			targets[i] = e.To
		}
		report(id, "ambiguous successors %v; use a decision node to branch", targets)
	}
}

func validateDecision(n *DecisionNode, out []Edge, report func(string, string, ...any)) {
	if len(out) == 0 {
		report(n.id, "decision has no outgoing edges")
		return
	}
	defaults, routable := 0, 0
	labels := make(map[string]bool)
	for _, e := range out {
		switch {
		case e.isDefault():
			defaults++
		case e.Guard.IsCase():
			if !n.HasSelector() {
				report(n.id, "case %q needs a selector", e.Guard.Label)
				continue
			}
			if labels[e.Guard.Label] {
				report(n.id, "duplicate case %q", e.Guard.Label)
			}
			labels[e.Guard.Label] = true
			routable++
		default:
			if n.HasSelector() {
				report(n.id, "predicate guard %q on a selector decision", e.Guard)
				continue
			}
			routable++
		}
	}
	if defaults > 1 {
		report(n.id, "decision has %d default edges", defaults)
	}
	if routable == 0 && defaults == 0 {
		report(n.id, "decision has no guard able to match and no default")
	}
}

func validateLoop(n *LoopNode, report func(string, string, ...any)) {
	if n.max <= 0 {
		report(n.id, "loop max iterations must be positive, got %d", n.max)
	}
	if n.cond == nil {
		report(n.id, "loop has no condition")
	}
	switch n.body.(type) {
	case nil:
		report(n.id, "loop has no body")
	case *DecisionNode, *LoopNode:
		report(n.id, "loop body must be a function, tool or batch node")
	case *ToolCallNode:
		if n.body.(*ToolCallNode).Tool() == "" {
			report(n.id, "loop body: tool name is required")
		}
	}
}
