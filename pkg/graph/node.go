package graph

import (
	"context"

	"github.com/aretw0/tendril/pkg/domain"
)

// Node is a unit of work in a graph.
//
// Execute must not mutate in.State; nodes work on a copy and return the
// resulting state. Nodes hold no per-run state, so one node may serve many
// concurrent runs.
type Node interface {
	ID() string
	Kind() domain.NodeKind
	Execute(ctx context.Context, in Input) (Result, error)
}

// ToolCaller resolves and invokes tools by name. *registry.Registry satisfies it.
type ToolCaller interface {
	Call(ctx context.Context, name string, args map[string]any) (any, error)
}

// Input is what the executor hands a node.
type Input struct {
	State *domain.State
	// Edges are the node's outgoing edges in insertion order.
	Edges []Edge
	Tools ToolCaller
}

// Result is what a node hands back to the executor.
type Result struct {
	State *domain.State
	// Next is set by decision nodes to the selected target.
	Next string
	// Continue is set by loop nodes when another pass is requested.
	Continue bool
}

// Condition is a predicate over the state. *expr.Expr satisfies it.
type Condition interface {
	Eval(state *domain.State) (bool, error)
}

// ConditionFunc adapts a plain function to Condition.
type ConditionFunc func(state *domain.State) bool

func (f ConditionFunc) Eval(state *domain.State) (bool, error) {
	return f(state), nil
}
