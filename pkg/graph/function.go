package graph

import (
	"context"
	"fmt"

	"github.com/aretw0/tendril/pkg/domain"
)

// Func is the body of a FunctionNode. It receives a private copy of the state
// and returns the next state. Returning a nil state keeps the (possibly
// mutated) copy it was given.
type Func func(ctx context.Context, state *domain.State) (*domain.State, error)

// FunctionNode runs user code against the state.
type FunctionNode struct {
	id string
	fn Func
}

// NewFunction creates a function node.
func NewFunction(id string, fn Func) *FunctionNode {
	return &FunctionNode{id: id, fn: fn}
}

func (n *FunctionNode) ID() string            { return n.id }
func (n *FunctionNode) Kind() domain.NodeKind { return domain.KindFunction }

// Execute runs the function. Errors and panics are reported as
// *domain.NodeExecutionError.
func (n *FunctionNode) Execute(ctx context.Context, in Input) (res Result, err error) {
	if n.fn == nil {
		return Result{}, &domain.NodeExecutionError{NodeID: n.id, Cause: fmt.Errorf("no function")}
	}

	defer func() {
		if r := recover(); r != nil {
			res = Result{}
			err = &domain.NodeExecutionError{NodeID: n.id, Cause: fmt.Errorf("panic: %v", r)}
		}
	}()

	work := in.State.Clone()
	out, err := n.fn(ctx, work)
	if err != nil {
		return Result{}, &domain.NodeExecutionError{NodeID: n.id, Cause: err}
	}
	if out == nil {
		out = work
	}
	return Result{State: out}, nil
}
