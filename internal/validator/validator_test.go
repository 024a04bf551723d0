package validator

import (
	"context"
	"testing"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/graph"
)

func pass(id string) *graph.FunctionNode {
	return graph.NewFunction(id, func(_ context.Context, s *domain.State) (*domain.State, error) { return s, nil })
}

func TestLint(t *testing.T) {
	// Scenario A: clean graph
	// start -> gate -> {ok, ko}
	g := graph.New("clean")
	_ = g.AddStartNode(graph.NewToolCall("start", "known"))
	_ = g.AddNode(graph.NewDecision("gate"))
	_ = g.AddNode(pass("ok"))
	_ = g.AddNode(pass("ko"))
	_ = g.AddEdge("start", "gate", nil)
	_ = g.AddEdge("gate", "ok", graph.MustIf("x > 1"))
	_ = g.AddEdge("gate", "ko", graph.Default())

	hasTool := func(name string) bool { return name == "known" }
	if w := Lint(g, hasTool); len(w) != 0 {
		t.Errorf("Scenario A (clean) produced warnings: %v", w)
	}

	// Scenario B: orphan node, decision without default, unknown tool
	b := graph.New("messy")
	_ = b.AddStartNode(graph.NewDecision("gate"))
	_ = b.AddNode(pass("ok"))
	_ = b.AddNode(graph.NewLoop("orphan", graph.NewToolCall("orphan_body", "ghost"), graph.MustIf("true").When, 2))
	_ = b.AddEdge("gate", "ok", graph.MustIf("x > 1"))

	w := Lint(b, hasTool)
	want := []string{
		`decision "gate" has no default edge; unmatched states fail the run`,
		`node "orphan" is unreachable from start node "gate"`,
		`node "orphan" calls unregistered tool "ghost"`,
	}
	if len(w) != len(want) {
		t.Fatalf("Scenario B: expected %d warnings, got %v", len(want), w)
	}
	for i := range want {
		if w[i] != want[i] {
			t.Errorf("Scenario B warning %d: expected %q, got %q", i, want[i], w[i])
		}
	}

	// Scenario C: nil tool lookup skips tool checks
	if w := Lint(b, nil); len(w) != 2 {
		t.Errorf("Scenario C: expected 2 warnings, got %v", w)
	}
}
