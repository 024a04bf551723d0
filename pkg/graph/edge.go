package graph

import (
	"fmt"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/expr"
)

// Edge connects two nodes. Only edges leaving a decision node may carry a guard.
type Edge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Guard *Guard `json:"guard,omitempty"`
}

// Guard restricts when a decision edge is taken. A guard is exactly one of:
//
//   - a predicate guard (When set), matched in insertion order;
//   - a case guard (Label only), matched against the decision's selector output;
//   - the default guard, taken when nothing else matched.
type Guard struct {
	Label   string    `json:"label,omitempty"`
	When    Condition `json:"-"`
	Default bool      `json:"default,omitempty"`
}

// If creates a predicate guard. label is descriptive only.
func If(label string, cond Condition) *Guard {
	return &Guard{Label: label, When: cond}
}

// IfFunc creates a predicate guard from a plain function.
func IfFunc(label string, fn func(*domain.State) bool) *Guard {
	return If(label, ConditionFunc(fn))
}

// IfExpr compiles src into a predicate guard labeled with its source.
func IfExpr(src string) (*Guard, error) {
	e, err := expr.Compile(src)
	if err != nil {
		return nil, err
	}
	return If(src, e), nil
}

// MustIf is like IfExpr but panics on a malformed expression.
func MustIf(src string) *Guard {
	g, err := IfExpr(src)
	if err != nil {
		panic(err)
	}
	return g
}

// Case creates a guard matched against a decision selector's output.
func Case(label string) *Guard {
	return &Guard{Label: label}
}

// Default creates the fallback guard.
func Default() *Guard {
	return &Guard{Label: "default", Default: true}
}

// IsCase reports whether g is a case guard.
func (g *Guard) IsCase() bool {
	return g != nil && g.When == nil && !g.Default
}

// Match evaluates a predicate guard. Case and default guards never match here.
func (g *Guard) Match(state *domain.State) (bool, error) {
	if g == nil || g.When == nil {
		return false, nil
	}
	return g.When.Eval(state)
}

func (g *Guard) String() string {
	switch {
	case g == nil:
		return ""
	case g.Default:
		return "default"
	case g.Label != "":
		return g.Label
	}
	if s, ok := g.When.(fmt.Stringer); ok {
		return s.String()
	}
	return "guard"
}

// isDefault reports whether the edge acts as the decision's fallback:
// an explicit default guard, or no guard at all.
func (e Edge) isDefault() bool {
	return e.Guard == nil || e.Guard.Default
}
