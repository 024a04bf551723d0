package graph

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/aretw0/tendril/pkg/domain"
)

// ToolCallNode calls a registered tool with arguments read from the state.
//
// The tool is resolved by name at execution time, so graphs can be built
// before their tools are registered.
type ToolCallNode struct {
	id   string
	tool string

	// Args maps state keys to tool parameter names. Missing keys are skipped.
	Args map[string]string
	// Params are constant arguments. State-derived Args override them.
	Params map[string]any
	// OutputKey receives non-map results. Defaults to "<id>_result".
	OutputKey string
	// Outputs maps result fields to state keys. When set, only these fields
	// of a map result are copied into the state.
	Outputs map[string]string
}

// NewToolCall creates a tool call node.
func NewToolCall(id, tool string) *ToolCallNode {
	return &ToolCallNode{id: id, tool: tool}
}

// WithArgs sets the state-key to parameter mapping.
func (n *ToolCallNode) WithArgs(args map[string]string) *ToolCallNode {
	n.Args = args
	return n
}

// WithParams sets constant arguments.
func (n *ToolCallNode) WithParams(params map[string]any) *ToolCallNode {
	n.Params = params
	return n
}

// WithOutputKey sets where non-map results are stored.
func (n *ToolCallNode) WithOutputKey(key string) *ToolCallNode {
	n.OutputKey = key
	return n
}

// WithOutputs sets the result-field to state-key mapping.
func (n *ToolCallNode) WithOutputs(outputs map[string]string) *ToolCallNode {
	n.Outputs = outputs
	return n
}

func (n *ToolCallNode) ID() string            { return n.id }
func (n *ToolCallNode) Kind() domain.NodeKind { return domain.KindTool }
func (n *ToolCallNode) Tool() string          { return n.tool }

func (n *ToolCallNode) outputKey() string {
	if n.OutputKey != "" {
		return n.OutputKey
	}
	return n.id + "_result"
}

// Execute calls the tool and merges its result into a copy of the state.
func (n *ToolCallNode) Execute(ctx context.Context, in Input) (Result, error) {
	if in.Tools == nil {
		return Result{}, &domain.ToolNotFoundError{Name: n.tool}
	}

	result, err := in.Tools.Call(ctx, n.tool, BuildArgs(in.State, n.Args, n.Params))
	if err != nil {
		return Result{}, err
	}

	next := in.State.Clone()
	mergeResult(next, result, n.outputKey(), n.Outputs)
	return Result{State: next}, nil
}

// BuildArgs assembles tool arguments from constant params and state keys.
func BuildArgs(state *domain.State, mapping map[string]string, params map[string]any) map[string]any {
	args := make(map[string]any, len(params)+len(mapping))
	maps.Copy(args, params)
	for stateKey, param := range mapping {
		if v, ok := state.Get(stateKey); ok {
			args[param] = v
		}
	}
	return args
}

func mergeResult(state *domain.State, result any, outputKey string, outputs map[string]string) {
	m, isMap := asMap(result)

	if len(outputs) > 0 {
		if !isMap {
			state.Set(outputKey, result)
			return
		}
		for _, field := range slices.Sorted(maps.Keys(outputs)) {
			if v, ok := m[field]; ok {
				state.Set(outputs[field], v)
			}
		}
		return
	}

	if !isMap {
		state.Set(outputKey, result)
		return
	}
	for _, k := range slices.Sorted(maps.Keys(m)) {
		state.Set(k, m[k])
	}
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case *domain.State:
		if t == nil {
			return nil, false
		}
		return t.Map(), true
	}
	return nil, false
}

// String describes the node for logs and diagrams.
func (n *ToolCallNode) String() string {
	return fmt.Sprintf("%s(%s)", n.id, n.tool)
}
