package graph

import (
	"context"
	"fmt"

	"github.com/aretw0/tendril/pkg/domain"
)

// Selector maps the state to a branch label.
type Selector func(state *domain.State) (string, error)

// DecisionNode selects one outgoing edge and leaves the state untouched.
//
// Without a selector, predicate guards are evaluated in insertion order and
// the first match wins. With a selector, the edge whose case label equals the
// selector output wins. In both modes the default edge is taken when nothing
// matched; with no default the node fails with *domain.NoMatchingBranchError.
type DecisionNode struct {
	id       string
	selector Selector
}

// NewDecision creates a guard-driven decision node.
func NewDecision(id string) *DecisionNode {
	return &DecisionNode{id: id}
}

// NewSelectDecision creates a label-driven decision node.
func NewSelectDecision(id string, sel Selector) *DecisionNode {
	return &DecisionNode{id: id, selector: sel}
}

func (n *DecisionNode) ID() string            { return n.id }
func (n *DecisionNode) Kind() domain.NodeKind { return domain.KindDecision }

// HasSelector reports whether the node routes by label.
func (n *DecisionNode) HasSelector() bool { return n.selector != nil }

// Execute picks the next node. The returned state is the input state.
func (n *DecisionNode) Execute(_ context.Context, in Input) (Result, error) {
	next, err := n.Route(in.State, in.Edges)
	if err != nil {
		return Result{}, err
	}
	return Result{State: in.State, Next: next}, nil
}

// Route returns the target of the selected edge.
func (n *DecisionNode) Route(state *domain.State, edges []Edge) (string, error) {
	var label string
	if n.selector != nil {
		var err error
		if label, err = n.selector(state); err != nil {
			return "", &domain.NodeExecutionError{NodeID: n.id, Cause: fmt.Errorf("selector: %w", err)}
		}
		for _, e := range edges {
			if e.Guard.IsCase() && e.Guard.Label == label {
				return e.To, nil
			}
		}
	} else {
		for _, e := range edges {
			ok, err := e.Guard.Match(state)
			if err != nil {
				return "", &domain.NodeExecutionError{NodeID: n.id, Cause: fmt.Errorf("guard %q: %w", e.Guard, err)}
			}
			if ok {
				return e.To, nil
			}
		}
	}

	for _, e := range edges {
		if e.isDefault() {
			return e.To, nil
		}
	}
	return "", &domain.NoMatchingBranchError{NodeID: n.id, Label: label}
}
