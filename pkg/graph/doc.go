/*
Package graph defines workflow graphs and the node variants they hold.

# Nodes

  - FunctionNode runs Go code against a copy of the state.
  - ToolCallNode calls a registered tool with arguments mapped from state keys.
  - DecisionNode selects one outgoing edge through guards or a selector.
  - LoopNode repeats an inner node while a condition holds, up to a bound.
  - BatchNode maps a function or tool over a list in the state.

# Edges

Non-decision nodes have at most one unguarded outgoing edge. Decision edges
carry a Guard: a predicate (If, IfFunc, IfExpr), a case label (Case) or the
fallback (Default).

	g := graph.New("review")
	g.AddStartNode(graph.NewToolCall("score", "calculate_score"))
	g.AddNode(graph.NewDecision("gate"))
	...
	g.AddEdge("score", "gate", nil)
	g.AddEdge("gate", "pass", graph.MustIf("score >= 7"))
	g.AddEdge("gate", "fail", graph.Default())

Validate reports every structural problem at once; Seal validates and freezes
the graph.
*/
package graph
