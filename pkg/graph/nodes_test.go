package graph_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/graph"
	"github.com/aretw0/tendril/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func state(kv ...any) *domain.State {
	s := domain.NewState()
	for i := 0; i+1 < len(kv); i += 2 {
		s.Set(kv[i].(string), kv[i+1])
	}
	return s
}

func TestFunctionNode(t *testing.T) {
	in := state("n", 1)

	t.Run("returns new state without touching input", func(t *testing.T) {
		n := graph.NewFunction("inc", func(_ context.Context, s *domain.State) (*domain.State, error) {
			v, _ := s.Get("n")
			s.Set("n", v.(int)+1)
			return nil, nil
		})
		res, err := n.Execute(context.Background(), graph.Input{State: in})
		require.NoError(t, err)

		got, _ := res.State.Get("n")
		assert.Equal(t, 2, got)
		orig, _ := in.Get("n")
		assert.Equal(t, 1, orig)
	})

	t.Run("error is wrapped", func(t *testing.T) {
		cause := errors.New("nope")
		n := graph.NewFunction("bad", func(context.Context, *domain.State) (*domain.State, error) {
			return nil, cause
		})
		_, err := n.Execute(context.Background(), graph.Input{State: in})
		var ne *domain.NodeExecutionError
		require.ErrorAs(t, err, &ne)
		assert.Equal(t, "bad", ne.NodeID)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("panic is wrapped", func(t *testing.T) {
		n := graph.NewFunction("boom", func(context.Context, *domain.State) (*domain.State, error) {
			panic("kaboom")
		})
		_, err := n.Execute(context.Background(), graph.Input{State: in})
		assert.ErrorIs(t, err, domain.ErrNodeExecution)
		assert.Contains(t, err.Error(), "kaboom")
	})
}

func TestToolCallNode(t *testing.T) {
	reg := registry.NewRegistry()
	require.NoError(t, reg.Register("stats", "", func(_ context.Context, args map[string]any) (any, error) {
		code, _ := args["code"].(string)
		return map[string]any{"length": len(code), "mode": args["mode"]}, nil
	}))
	require.NoError(t, reg.Register("upper", "", func(_ context.Context, args map[string]any) (any, error) {
		return "LOUD", nil
	}))

	in := state("source", "abc", "other", true)

	t.Run("map result merged", func(t *testing.T) {
		n := graph.NewToolCall("s", "stats").
			WithArgs(map[string]string{"source": "code", "absent": "ignored"}).
			WithParams(map[string]any{"mode": "fast"})
		res, err := n.Execute(context.Background(), graph.Input{State: in, Tools: reg})
		require.NoError(t, err)

		assert.Equal(t, []string{"source", "other", "length", "mode"}, res.State.Keys())
		length, _ := res.State.Get("length")
		assert.Equal(t, 3, length)
		mode, _ := res.State.Get("mode")
		assert.Equal(t, "fast", mode)
		assert.Equal(t, 2, in.Len())
	})

	t.Run("outputs select fields", func(t *testing.T) {
		n := graph.NewToolCall("s", "stats").
			WithArgs(map[string]string{"source": "code"}).
			WithOutputs(map[string]string{"length": "code_length"})
		res, err := n.Execute(context.Background(), graph.Input{State: in, Tools: reg})
		require.NoError(t, err)
		assert.Equal(t, []string{"source", "other", "code_length"}, res.State.Keys())
	})

	t.Run("scalar result under default key", func(t *testing.T) {
		res, err := graph.NewToolCall("shout", "upper").Execute(context.Background(), graph.Input{State: in, Tools: reg})
		require.NoError(t, err)
		v, ok := res.State.Get("shout_result")
		require.True(t, ok)
		assert.Equal(t, "LOUD", v)
	})

	t.Run("scalar result under custom key", func(t *testing.T) {
		res, err := graph.NewToolCall("shout", "upper").WithOutputKey("msg").
			Execute(context.Background(), graph.Input{State: in, Tools: reg})
		require.NoError(t, err)
		assert.True(t, res.State.Has("msg"))
	})

	t.Run("late bound missing tool", func(t *testing.T) {
		_, err := graph.NewToolCall("m", "missing").Execute(context.Background(), graph.Input{State: in, Tools: reg})
		assert.ErrorIs(t, err, domain.ErrToolNotFound)
	})
}

func TestDecisionNode_Guards(t *testing.T) {
	d := graph.NewDecision("gate")
	edges := []graph.Edge{
		{From: "gate", To: "pass", Guard: graph.MustIf("score >= 7")},
		{From: "gate", To: "fail", Guard: graph.Default()},
	}

	for score, want := range map[float64]string{8: "pass", 7: "pass", 3: "fail"} {
		in := state("score", score)
		res, err := d.Execute(context.Background(), graph.Input{State: in, Edges: edges})
		require.NoError(t, err)
		assert.Equal(t, want, res.Next, "score %v", score)
		assert.Same(t, in, res.State)
	}
}

func TestDecisionNode_FirstMatchWins(t *testing.T) {
	d := graph.NewDecision("d")
	edges := []graph.Edge{
		{From: "d", To: "first", Guard: graph.MustIf("n > 1")},
		{From: "d", To: "second", Guard: graph.MustIf("n > 0")},
	}
	next, err := d.Route(state("n", 5), edges)
	require.NoError(t, err)
	assert.Equal(t, "first", next)

	_, err = d.Route(state("n", -1), edges)
	var nb *domain.NoMatchingBranchError
	require.ErrorAs(t, err, &nb)
	assert.Equal(t, "d", nb.NodeID)
}

func TestDecisionNode_Selector(t *testing.T) {
	d := graph.NewSelectDecision("route", func(s *domain.State) (string, error) {
		v, _ := s.Get("rating")
		return v.(string), nil
	})
	edges := []graph.Edge{
		{From: "route", To: "celebrate", Guard: graph.Case("Excellent")},
		{From: "route", To: "fix", Guard: graph.Case("Poor")},
	}

	next, err := d.Route(state("rating", "Poor"), edges)
	require.NoError(t, err)
	assert.Equal(t, "fix", next)

	_, err = d.Route(state("rating", "Fair"), edges)
	var nb *domain.NoMatchingBranchError
	require.ErrorAs(t, err, &nb)
	assert.Equal(t, "Fair", nb.Label)

	next, err = d.Route(state("rating", "Fair"), append(edges, graph.Edge{From: "route", To: "review"}))
	require.NoError(t, err)
	assert.Equal(t, "review", next)
}

func TestLoopNode_SinglePass(t *testing.T) {
	body := graph.NewFunction("inc", func(_ context.Context, s *domain.State) (*domain.State, error) {
		v, _ := s.Get("i")
		s.Set("i", v.(float64)+1)
		return s, nil
	})
	loop := graph.NewLoop("count", body, graph.MustIf("i < 3").When, 10)

	res, err := loop.Execute(context.Background(), graph.Input{State: state("i", 0.0)})
	require.NoError(t, err)
	assert.True(t, res.Continue)

	res, err = loop.Execute(context.Background(), graph.Input{State: state("i", 2.0)})
	require.NoError(t, err)
	assert.False(t, res.Continue)
}

func TestLoopCursor_Transitions(t *testing.T) {
	loop := graph.NewLoop("l", noop("b"), graph.ConditionFunc(func(*domain.State) bool { return true }), 3)
	c := graph.NewLoopCursor(loop)
	assert.Equal(t, graph.LoopEnter, c.Phase)

	assert.Equal(t, 1, c.Begin())
	assert.Equal(t, graph.LoopBody, c.Advance(true))
	assert.Equal(t, 2, c.Pass)
	assert.Equal(t, graph.LoopBody, c.Advance(true))
	assert.Equal(t, 3, c.Pass)
	assert.Equal(t, graph.LoopLimit, c.Advance(true))
	assert.True(t, c.Done())
	assert.ErrorIs(t, c.Err(), domain.ErrLoopLimitExceeded)

	// terminal phases are sticky
	assert.Equal(t, graph.LoopLimit, c.Advance(false))

	c = graph.NewLoopCursor(loop)
	c.Begin()
	assert.Equal(t, graph.LoopExit, c.Advance(false))
	assert.NoError(t, c.Err())
	assert.Equal(t, "exit", c.Phase.String())
}

func TestBatchNode(t *testing.T) {
	double := graph.NewBatch("double", "nums", func(_ context.Context, item any) (any, error) {
		return item.(int) * 2, nil
	})

	res, err := double.Execute(context.Background(), graph.Input{State: state("nums", []int{1, 2, 3})})
	require.NoError(t, err)
	out, _ := res.State.Get("double_results")
	assert.Equal(t, []any{2, 4, 6}, out)

	res, err = double.Execute(context.Background(), graph.Input{State: state()})
	require.NoError(t, err)
	out, _ = res.State.Get("double_results")
	assert.Equal(t, []any{}, out)

	_, err = double.Execute(context.Background(), graph.Input{State: state("nums", "not a list")})
	assert.ErrorIs(t, err, domain.ErrNodeExecution)
}

func TestBatchNode_Tool(t *testing.T) {
	reg := registry.NewRegistry()
	require.NoError(t, reg.Register("len", "", func(_ context.Context, args map[string]any) (any, error) {
		return len(args["s"].(string)), nil
	}))

	n := graph.NewToolBatch("lens", "words", "len", "s")
	n.OutputKey = "lengths"
	res, err := n.Execute(context.Background(), graph.Input{State: state("words", []any{"a", "abc"}), Tools: reg})
	require.NoError(t, err)
	out, _ := res.State.Get("lengths")
	assert.Equal(t, []any{1, 3}, out)
}
