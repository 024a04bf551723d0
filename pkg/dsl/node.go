package dsl

import (
	"fmt"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/expr"
	"github.com/aretw0/tendril/pkg/graph"
)

type edge struct {
	to    string
	guard *graph.Guard
}

// NodeBuilder provides a fluent API for configuring a node.
// Errors (such as malformed conditions) are deferred to Builder.Build.
type NodeBuilder struct {
	id      string
	builder *Builder
	err     error

	kind      domain.NodeKind
	tool      string
	args      map[string]string
	params    map[string]any
	outputKey string
	outputs   map[string]string
	fn        graph.Func
	item      graph.ItemFunc
	inputKey  string
	itemParam string
	selector  graph.Selector
	decision  bool

	loop     bool
	loopCond string
	loopMax  int

	edges []edge
}

func (n *NodeBuilder) fail(format string, args ...any) *NodeBuilder {
	if n.err == nil {
		n.err = fmt.Errorf("node %q: "+format, append([]any{n.id}, args...)...)
	}
	return n
}

// Do configures the node to call a registered tool.
func (n *NodeBuilder) Do(tool string) *NodeBuilder {
	n.kind = domain.KindTool
	n.tool = tool
	return n
}

// Map passes the state value under stateKey as the tool parameter param.
func (n *NodeBuilder) Map(stateKey, param string) *NodeBuilder {
	if n.args == nil {
		n.args = make(map[string]string)
	}
	n.args[stateKey] = param
	return n
}

// With adds a constant tool argument.
func (n *NodeBuilder) With(param string, value any) *NodeBuilder {
	if n.params == nil {
		n.params = make(map[string]any)
	}
	n.params[param] = value
	return n
}

// SaveTo stores a non-map tool result under key.
func (n *NodeBuilder) SaveTo(key string) *NodeBuilder {
	n.outputKey = key
	return n
}

// Pick copies the result field into the state key, instead of merging the
// whole result.
func (n *NodeBuilder) Pick(field, stateKey string) *NodeBuilder {
	if n.outputs == nil {
		n.outputs = make(map[string]string)
	}
	n.outputs[field] = stateKey
	return n
}

// Func configures the node to run fn.
func (n *NodeBuilder) Func(fn graph.Func) *NodeBuilder {
	n.kind = domain.KindFunction
	n.fn = fn
	return n
}

// Each configures the node to call tool once per element of the list under
// inputKey, passing the element as param.
func (n *NodeBuilder) Each(inputKey, tool, param string) *NodeBuilder {
	n.kind = domain.KindBatch
	n.inputKey = inputKey
	n.tool = tool
	n.itemParam = param
	return n
}

// EachFunc configures the node to run fn once per element of the list under inputKey.
func (n *NodeBuilder) EachFunc(inputKey string, fn graph.ItemFunc) *NodeBuilder {
	n.kind = domain.KindBatch
	n.inputKey = inputKey
	n.item = fn
	return n
}

// Repeat turns the node into a loop whose body is the node's action (Do,
// Func or Each). The body repeats while cond holds, at most max times.
func (n *NodeBuilder) Repeat(cond string, max int) *NodeBuilder {
	n.loop = true
	n.loopCond = cond
	n.loopMax = max
	return n
}

// Select turns the node into a decision routed by sel's label (see Case).
func (n *NodeBuilder) Select(sel graph.Selector) *NodeBuilder {
	n.decision = true
	n.selector = sel
	return n
}

// Go adds an unconditional transition to the target node.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	n.edges = append(n.edges, edge{to: target})
	return n
}

// Branch turns the node into a decision and adds a guarded transition.
// Branches are tried in the order they were added.
func (n *NodeBuilder) Branch(condition, target string) *NodeBuilder {
	n.decision = true
	guard, err := graph.IfExpr(condition)
	if err != nil {
		return n.fail("invalid branch condition: %v", err)
	}
	n.edges = append(n.edges, edge{to: target, guard: guard})
	return n
}

// When adds a branch guarded by a Go predicate.
func (n *NodeBuilder) When(label string, cond func(*domain.State) bool, target string) *NodeBuilder {
	n.decision = true
	n.edges = append(n.edges, edge{to: target, guard: graph.IfFunc(label, cond)})
	return n
}

// Case adds a transition taken when the selector returns label.
func (n *NodeBuilder) Case(label, target string) *NodeBuilder {
	n.decision = true
	n.edges = append(n.edges, edge{to: target, guard: graph.Case(label)})
	return n
}

// Otherwise adds the decision's fallback transition.
func (n *NodeBuilder) Otherwise(target string) *NodeBuilder {
	n.decision = true
	n.edges = append(n.edges, edge{to: target, guard: graph.Default()})
	return n
}

// node builds the graph node.
func (n *NodeBuilder) node() (graph.Node, error) {
	if n.err != nil {
		return nil, n.err
	}
	if n.decision {
		if n.kind != "" || n.loop {
			return nil, fmt.Errorf("node %q: a decision cannot also run an action", n.id)
		}
		if n.selector != nil {
			return graph.NewSelectDecision(n.id, n.selector), nil
		}
		return graph.NewDecision(n.id), nil
	}

	if !n.loop {
		return n.action(n.id)
	}
	body, err := n.action(n.id + "_body")
	if err != nil {
		return nil, err
	}
	cond, err := expr.Compile(n.loopCond)
	if err != nil {
		return nil, fmt.Errorf("node %q: invalid loop condition: %w", n.id, err)
	}
	return graph.NewLoop(n.id, body, cond, n.loopMax), nil
}

func (n *NodeBuilder) action(id string) (graph.Node, error) {
	switch n.kind {
	case domain.KindTool:
		return graph.NewToolCall(id, n.tool).
			WithArgs(n.args).
			WithParams(n.params).
			WithOutputKey(n.outputKey).
			WithOutputs(n.outputs), nil
	case domain.KindFunction:
		return graph.NewFunction(id, n.fn), nil
	case domain.KindBatch:
		var b *graph.BatchNode
		if n.item != nil {
			b = graph.NewBatch(id, n.inputKey, n.item)
		} else {
			b = graph.NewToolBatch(id, n.inputKey, n.tool, n.itemParam)
		}
		b.OutputKey = n.outputKey
		return b, nil
	}
	return nil, fmt.Errorf("node %q: no action configured (use Do, Func, Each or a branch)", n.id)
}
