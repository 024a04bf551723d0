package domain

import "slices"

// NodeKind identifies the control flow behavior of a node.
type NodeKind string

const (
	// KindFunction runs user code against the state.
	KindFunction NodeKind = "function"
	// KindTool calls a registered tool with arguments read from the state.
	KindTool NodeKind = "tool"
	// KindDecision selects one outgoing edge and leaves the state untouched.
	KindDecision NodeKind = "decision"
	// KindLoop repeats an inner node while its predicate holds.
	KindLoop NodeKind = "loop"
	// KindBatch maps a function or tool over a list held in the state.
	KindBatch NodeKind = "batch"
)

var nodeKinds = []NodeKind{KindFunction, KindTool, KindDecision, KindLoop, KindBatch}

// NodeKinds lists every node kind the engine executes.
func NodeKinds() []NodeKind {
	return slices.Clone(nodeKinds)
}

// Valid reports whether k is a known node kind.
func (k NodeKind) Valid() bool {
	return slices.Contains(nodeKinds, k)
}
