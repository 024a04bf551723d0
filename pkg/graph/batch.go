package graph

import (
	"context"
	"fmt"
	"reflect"

	"github.com/aretw0/tendril/pkg/domain"
)

// ItemFunc processes one element of a batch.
type ItemFunc func(ctx context.Context, item any) (any, error)

// BatchNode applies a function, or a tool, to every element of a list held
// in the state and stores the results under OutputKey (default "<id>_results").
// A missing input key is treated as an empty list.
type BatchNode struct {
	id        string
	inputKey  string
	fn        ItemFunc
	tool      string
	param     string
	OutputKey string
}

// NewBatch creates a batch node running fn per item.
func NewBatch(id, inputKey string, fn ItemFunc) *BatchNode {
	return &BatchNode{id: id, inputKey: inputKey, fn: fn}
}

// NewToolBatch creates a batch node calling tool once per item, passing the
// item as param.
func NewToolBatch(id, inputKey, tool, param string) *BatchNode {
	return &BatchNode{id: id, inputKey: inputKey, tool: tool, param: param}
}

func (n *BatchNode) ID() string            { return n.id }
func (n *BatchNode) Kind() domain.NodeKind { return domain.KindBatch }
func (n *BatchNode) InputKey() string      { return n.inputKey }
func (n *BatchNode) Tool() string          { return n.tool }

func (n *BatchNode) outputKey() string {
	if n.OutputKey != "" {
		return n.OutputKey
	}
	return n.id + "_results"
}

// Execute processes every item in order. The first failure aborts the batch.
func (n *BatchNode) Execute(ctx context.Context, in Input) (Result, error) {
	raw, _ := in.State.Get(n.inputKey)
	items, err := toList(raw)
	if err != nil {
		return Result{}, &domain.NodeExecutionError{NodeID: n.id, Cause: fmt.Errorf("key %q: %w", n.inputKey, err)}
	}

	results := make([]any, 0, len(items))
	for i, item := range items {
		var (
			out any
			err error
		)
		if n.tool != "" {
			if in.Tools == nil {
				return Result{}, &domain.ToolNotFoundError{Name: n.tool}
			}
			out, err = in.Tools.Call(ctx, n.tool, map[string]any{n.param: item})
			if err != nil {
				return Result{}, err
			}
		} else {
			out, err = n.fn(ctx, item)
			if err != nil {
				return Result{}, &domain.NodeExecutionError{NodeID: n.id, Cause: fmt.Errorf("item %d: %w", i, err)}
			}
		}
		results = append(results, out)
	}

	next := in.State.Clone()
	next.Set(n.outputKey(), results)
	return Result{State: next}, nil
}

func toList(v any) ([]any, error) {
	if v == nil {
		return nil, nil
	}
	if l, ok := v.([]any); ok {
		return l, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}
