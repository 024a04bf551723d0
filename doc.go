/*
Package tendril is a small workflow engine that executes directed graphs of
nodes over a shared key-value state.

Nodes call registered tools, run Go functions, branch on the state, loop a
bounded number of times or map over lists. Each run walks its graph strictly
sequentially and records every node execution in an ordered log, so a run can
be inspected and replayed step by step.

# Concept

A graph is built either programmatically (pkg/graph, pkg/dsl) or from a
declarative definition (pkg/definition). The Engine seals graphs on
registration; from then on any number of runs may share them.

Node failures never escape as Go errors: the run ends in the failed status,
the failing log entry carries the error and its kind, and the final state is
the state after the last successful node.

# Usage

	eng, err := tendril.New(tendril.WithLogger(logger))
	if err != nil {
		log.Fatal(err)
	}
	defer eng.Close()

	_ = eng.RegisterTool("double", "doubles x", func(ctx context.Context, args map[string]any) (any, error) {
		return map[string]any{"x": args["x"].(int) * 2}, nil
	})

	g := graph.New("demo")
	_ = g.AddStartNode(graph.NewToolCall("double", "double").WithArgs(map[string]string{"x": "x"}))
	_ = eng.AddGraph(g)

	run, err := eng.RunGraph(ctx, "demo", domain.StateFrom(map[string]any{"x": 21}))
	// run.Status == domain.StatusCompleted, run.State has x=42
*/
package tendril
