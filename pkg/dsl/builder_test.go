package dsl

import (
	"context"
	"strings"
	"testing"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/graph"
)

func keep(_ context.Context, s *domain.State) (*domain.State, error) { return s, nil }

func TestBuilder_SimpleFlow(t *testing.T) {
	// 1. Build the graph using DSL
	b := New("review").Describe("demo")

	b.Add("score").
		Do("calculate_score").
		Map("issues", "issues").
		With("strict", true).
		Go("gate")

	b.Add("gate").
		Branch("quality_score >= 7", "report").
		Otherwise("improve")

	b.Add("improve").
		Repeat("quality_score < 7", 3).
		Do("suggest_improvements").
		Go("report")

	b.Add("report").
		Func(keep)

	// 2. Compile
	g, err := b.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	// 3. Verify specific nodes
	if g.Start() != "score" {
		t.Errorf("Expected start node 'score', got '%s'", g.Start())
	}
	if g.Description() != "demo" {
		t.Errorf("Expected description 'demo', got '%s'", g.Description())
	}

	score, ok := g.Node("score")
	if !ok {
		t.Fatal("score node missing")
	}
	tc, ok := score.(*graph.ToolCallNode)
	if !ok {
		t.Fatalf("Expected *graph.ToolCallNode, got %T", score)
	}
	if tc.Tool() != "calculate_score" || tc.Args["issues"] != "issues" || tc.Params["strict"] != true {
		t.Errorf("Unexpected tool node configuration: %s", tc)
	}

	loop, _ := g.Node("improve")
	ln, ok := loop.(*graph.LoopNode)
	if !ok {
		t.Fatalf("Expected *graph.LoopNode, got %T", loop)
	}
	if ln.MaxIterations() != 3 || ln.Body().ID() != "improve_body" {
		t.Errorf("Unexpected loop configuration: max=%d body=%s", ln.MaxIterations(), ln.Body().ID())
	}

	out := g.Outgoing("gate")
	if len(out) != 2 {
		t.Fatalf("Expected 2 edges out of gate, got %d", len(out))
	}
	if out[0].To != "report" || out[0].Guard.String() != "quality_score >= 7" {
		t.Errorf("Unexpected first branch: %+v", out[0])
	}
	if !out[1].Guard.Default {
		t.Errorf("Expected second branch to be the default")
	}
}

func TestBuilder_SelectAndStart(t *testing.T) {
	b := New("routes").Start("route")

	b.Add("a").Func(keep)
	b.Add("route").
		Select(func(s *domain.State) (string, error) {
			v, _ := s.Get("rating")
			return v.(string), nil
		}).
		Case("Good", "a").
		Otherwise("b")
	b.Add("b").EachFunc("items", func(_ context.Context, item any) (any, error) { return item, nil })

	g := b.MustBuild()
	if g.Start() != "route" {
		t.Errorf("Expected start 'route', got %q", g.Start())
	}
	if guard := g.Outgoing("route")[0].Guard; !guard.IsCase() {
		t.Errorf("Expected a case guard, got %v", guard)
	}
}

func TestBuilder_Errors(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *Builder)
		want  string
	}{
		{"no action", func(b *Builder) { b.Add("a") }, "no action configured"},
		{"bad branch", func(b *Builder) { b.Add("a").Branch("x >", "b"); b.Add("b").Func(keep) }, "invalid branch condition"},
		{"bad loop", func(b *Builder) { b.Add("a").Repeat("(", 2).Func(keep) }, "invalid loop condition"},
		{"decision with action", func(b *Builder) { b.Add("a").Do("t").Otherwise("a") }, "cannot also run an action"},
		{"unknown target", func(b *Builder) { b.Add("a").Func(keep).Go("ghost") }, "ghost"},
		{"two successors", func(b *Builder) {
			b.Add("a").Func(keep).Go("b").Go("c")
			b.Add("b").Func(keep)
			b.Add("c").Func(keep)
		}, "invalid graph"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("g")
			tt.build(b)
			_, err := b.Build()
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
