package graph

import (
	"context"
	"fmt"

	"github.com/aretw0/tendril/pkg/domain"
)

// LoopNode repeats an inner node while its condition holds.
//
// One pass executes the inner node once and then evaluates the condition on
// the resulting state. The iteration bound is enforced by the executor through
// a LoopCursor, not by the node itself.
type LoopNode struct {
	id   string
	body Node
	cond Condition
	max  int
}

// NewLoop creates a loop node. body must be a function, tool or batch node;
// max must be positive.
func NewLoop(id string, body Node, cond Condition, max int) *LoopNode {
	return &LoopNode{id: id, body: body, cond: cond, max: max}
}

func (n *LoopNode) ID() string            { return n.id }
func (n *LoopNode) Kind() domain.NodeKind { return domain.KindLoop }

// Body returns the inner node.
func (n *LoopNode) Body() Node { return n.body }

// MaxIterations returns the pass bound.
func (n *LoopNode) MaxIterations() int { return n.max }

// Condition returns the continuation predicate.
func (n *LoopNode) Condition() Condition { return n.cond }

// Execute runs one pass. Result.Continue reports the condition's verdict.
func (n *LoopNode) Execute(ctx context.Context, in Input) (Result, error) {
	if n.body == nil || n.cond == nil {
		return Result{}, &domain.NodeExecutionError{NodeID: n.id, Cause: fmt.Errorf("loop needs a body and a condition")}
	}

	res, err := n.body.Execute(ctx, Input{State: in.State, Tools: in.Tools})
	if err != nil {
		return Result{}, err
	}
	if res.State == nil {
		res.State = in.State.Clone()
	}

	again, err := n.cond.Eval(res.State)
	if err != nil {
		return Result{}, &domain.NodeExecutionError{NodeID: n.id, Cause: fmt.Errorf("loop condition: %w", err)}
	}
	return Result{State: res.State, Continue: again}, nil
}

// LoopPhase is a state of the loop transition table.
type LoopPhase int

const (
	// LoopEnter: the cursor reached the loop from outside.
	LoopEnter LoopPhase = iota
	// LoopBody: a pass is due.
	LoopBody
	// LoopExit: the condition turned false; follow the exit edge.
	LoopExit
	// LoopLimit: another pass was requested after MaxIterations passes.
	LoopLimit
)

func (p LoopPhase) String() string {
	switch p {
	case LoopEnter:
		return "enter"
	case LoopBody:
		return "body"
	case LoopExit:
		return "exit"
	case LoopLimit:
		return "limit"
	}
	return fmt.Sprintf("LoopPhase(%d)", int(p))
}

// LoopCursor tracks one activation of a loop inside one run.
//
// Transitions:
//
//	enter --begin--> body (pass 1)
//	body  --continue, pass < max--> body (pass+1)
//	body  --continue, pass = max--> limit
//	body  --stop--> exit
//
// exit and limit are terminal; re-entering the loop starts a new cursor.
type LoopCursor struct {
	NodeID string
	Max    int
	Pass   int
	Phase  LoopPhase
}

// NewLoopCursor starts a cursor in the enter phase.
func NewLoopCursor(n *LoopNode) *LoopCursor {
	return &LoopCursor{NodeID: n.id, Max: n.max, Phase: LoopEnter}
}

// Begin moves enter -> body and returns the first pass number.
func (c *LoopCursor) Begin() int {
	if c.Phase == LoopEnter {
		c.Phase = LoopBody
		c.Pass = 1
	}
	return c.Pass
}

// Advance applies the verdict of the pass just executed.
func (c *LoopCursor) Advance(again bool) LoopPhase {
	if c.Phase != LoopBody {
		return c.Phase
	}
	switch {
	case !again:
		c.Phase = LoopExit
	case c.Pass >= c.Max:
		c.Phase = LoopLimit
	default:
		c.Pass++
	}
	return c.Phase
}

// Done reports whether the cursor reached a terminal phase.
func (c *LoopCursor) Done() bool {
	return c.Phase == LoopExit || c.Phase == LoopLimit
}

// Err returns the loop-limit error once the cursor hit the bound.
func (c *LoopCursor) Err() error {
	if c.Phase == LoopLimit {
		return &domain.LoopLimitExceededError{NodeID: c.NodeID, Max: c.Max}
	}
	return nil
}
