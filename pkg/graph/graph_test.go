package graph_test

import (
	"context"
	"strings"
	"testing"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(id string) *graph.FunctionNode {
	return graph.NewFunction(id, func(_ context.Context, s *domain.State) (*domain.State, error) {
		return s, nil
	})
}

func TestGraph_Construction(t *testing.T) {
	g := graph.New("g")
	require.NoError(t, g.AddStartNode(noop("a")))
	require.NoError(t, g.AddNode(noop("b")))

	t.Run("duplicate id", func(t *testing.T) {
		err := g.AddNode(noop("a"))
		assert.ErrorIs(t, err, domain.ErrDuplicateNodeID)
		assert.Len(t, g.Nodes(), 2)
	})

	t.Run("second start node leaves graph unchanged", func(t *testing.T) {
		err := g.AddStartNode(noop("c"))
		assert.ErrorIs(t, err, domain.ErrMultipleStartNodes)
		_, exists := g.Node("c")
		assert.False(t, exists)
		assert.Equal(t, "a", g.Start())
	})

	t.Run("unknown endpoint", func(t *testing.T) {
		assert.ErrorIs(t, g.AddEdge("a", "zzz", nil), domain.ErrUnknownNode)
		assert.ErrorIs(t, g.AddEdge("zzz", "a", nil), domain.ErrUnknownNode)
		assert.Empty(t, g.Edges())
	})

	require.NoError(t, g.AddEdge("a", "b", nil))
	assert.Empty(t, g.Validate())
	assert.Equal(t, "b", g.Successor("a"))
	assert.Equal(t, "", g.Successor("b"))

	require.NoError(t, g.Seal())
	assert.True(t, g.Sealed())
	assert.ErrorIs(t, g.AddNode(noop("d")), domain.ErrGraphSealed)
	assert.ErrorIs(t, g.AddEdge("b", "a", nil), domain.ErrGraphSealed)
}

func TestGraph_Validate(t *testing.T) {
	always := graph.IfFunc("always", func(*domain.State) bool { return true })

	tests := []struct {
		name  string
		build func(g *graph.Graph)
		want  []string // substrings, one per expected problem
	}{
		{
			name:  "empty",
			build: func(g *graph.Graph) {},
			want:  []string{"no nodes", "no start node"},
		},
		{
			name: "no start",
			build: func(g *graph.Graph) {
				_ = g.AddNode(noop("a"))
			},
			want: []string{"no start node"},
		},
		{
			name: "ambiguous successors",
			build: func(g *graph.Graph) {
				_ = g.AddStartNode(noop("a"))
				_ = g.AddNode(noop("b"))
				_ = g.AddNode(noop("c"))
				_ = g.AddEdge("a", "b", nil)
				_ = g.AddEdge("a", "c", nil)
			},
			want: []string{"ambiguous successors"},
		},
		{
			name: "guard on plain node",
			build: func(g *graph.Graph) {
				_ = g.AddStartNode(noop("a"))
				_ = g.AddNode(noop("b"))
				_ = g.AddEdge("a", "b", always)
			},
			want: []string{"only decision nodes may have guards"},
		},
		{
			name: "decision without edges",
			build: func(g *graph.Graph) {
				_ = g.AddStartNode(graph.NewDecision("d"))
			},
			want: []string{"no outgoing edges"},
		},
		{
			name: "decision with two defaults",
			build: func(g *graph.Graph) {
				_ = g.AddStartNode(graph.NewDecision("d"))
				_ = g.AddNode(noop("x"))
				_ = g.AddNode(noop("y"))
				_ = g.AddEdge("d", "x", graph.Default())
				_ = g.AddEdge("d", "y", nil)
			},
			want: []string{"2 default edges"},
		},
		{
			name: "case without selector",
			build: func(g *graph.Graph) {
				_ = g.AddStartNode(graph.NewDecision("d"))
				_ = g.AddNode(noop("x"))
				_ = g.AddEdge("d", "x", graph.Case("yes"))
			},
			want: []string{"needs a selector", "no guard able to match"},
		},
		{
			name: "loop bound",
			build: func(g *graph.Graph) {
				_ = g.AddStartNode(graph.NewLoop("l", noop("body"), graph.ConditionFunc(func(*domain.State) bool { return false }), 0))
			},
			want: []string{"max iterations must be positive"},
		},
		{
			name: "loop body kind",
			build: func(g *graph.Graph) {
				_ = g.AddStartNode(graph.NewLoop("l", graph.NewDecision("inner"), nil, 3))
			},
			want: []string{"no condition", "loop body must be"},
		},
		{
			name: "tool without name",
			build: func(g *graph.Graph) {
				_ = g.AddStartNode(graph.NewToolCall("t", ""))
			},
			want: []string{"tool name is required"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := graph.New("g")
			tt.build(g)

			problems := g.Validate()
			require.Len(t, problems, len(tt.want), "problems: %v", problems)
			for i, want := range tt.want {
				assert.Contains(t, problems[i].String(), want)
			}

			err := g.Err()
			assert.ErrorIs(t, err, domain.ErrInvalidGraph)
			assert.ErrorIs(t, g.Seal(), domain.ErrInvalidGraph)
			assert.False(t, g.Sealed())
		})
	}
}

func TestValidationError_Message(t *testing.T) {
	g := graph.New("broken")
	err := g.Err()
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), `invalid graph "broken"`))
}

func TestDescribe(t *testing.T) {
	g := graph.New("review")
	require.NoError(t, g.SetDescription("scores code"))
	require.NoError(t, g.AddStartNode(graph.NewToolCall("score", "calculate_score")))
	require.NoError(t, g.AddNode(graph.NewDecision("gate")))
	require.NoError(t, g.AddNode(graph.NewLoop("retry", graph.NewToolCall("retry_body", "improve"), graph.MustIf("quality < 5").When, 3)))
	require.NoError(t, g.AddNode(noop("done")))
	require.NoError(t, g.AddEdge("score", "gate", nil))
	require.NoError(t, g.AddEdge("gate", "done", graph.MustIf("score >= 7")))
	require.NoError(t, g.AddEdge("gate", "retry", graph.Default()))
	require.NoError(t, g.AddEdge("retry", "done", nil))

	info := graph.Describe(g)
	assert.Equal(t, "review", info.ID)
	assert.Equal(t, "scores code", info.Description)
	assert.Equal(t, "score", info.Start)

	require.Len(t, info.Nodes, 4)
	assert.Equal(t, "calculate_score", info.Nodes[0].Tool)
	assert.Equal(t, domain.KindDecision, info.Nodes[1].Kind)
	assert.Equal(t, 3, info.Nodes[2].MaxIterations)
	require.NotNil(t, info.Nodes[2].Body)
	assert.Equal(t, "improve", info.Nodes[2].Body.Tool)

	require.Len(t, info.Edges, 4)
	assert.Equal(t, graph.EdgeInfo{From: "gate", To: "done", Guard: "score >= 7"}, info.Edges[1])
	assert.Equal(t, "default", info.Edges[2].Guard)
}
