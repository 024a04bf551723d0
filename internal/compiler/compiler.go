package compiler

import (
	"errors"
	"fmt"

	"github.com/aretw0/tendril/pkg/definition"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/expr"
	"github.com/aretw0/tendril/pkg/graph"
	"github.com/aretw0/tendril/pkg/schema"
)

// FunctionLookup resolves the function_name of a function node.
type FunctionLookup func(name string) (graph.Func, bool)

// Compiler converts declarative definitions into graphs.
type Compiler struct {
	functions FunctionLookup
}

// New creates a compiler. functions may be nil when no definition uses
// function nodes.
func New(functions FunctionLookup) *Compiler {
	return &Compiler{functions: functions}
}

// Compile builds an unsealed graph from def. Every node and edge problem is
// reported; structural validation is left to graph.Validate.
func (c *Compiler) Compile(def definition.Graph) (*graph.Graph, error) {
	g := graph.New(def.ID)
	if def.Description != "" {
		_ = g.SetDescription(def.Description)
	}
	if len(def.StateSchema) > 0 {
		s, err := schema.ParseTypeMap(def.StateSchema)
		if err != nil {
			return nil, fmt.Errorf("invalid state_schema: %w", err)
		}
		_ = g.SetSchema(s)
	}

	// start_node and every is_start flag each claim the start; more than one
	// distinct claim fails with domain.ErrMultipleStartNodes.
	var errs []error
	start := def.Start()
	for _, nd := range def.Nodes {
		n, err := c.node(nd)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if nd.IsStart || nd.ID == start {
			err = g.AddStartNode(n)
		} else {
			err = g.AddNode(n)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	for i, ed := range def.Edges {
		guard, err := edgeGuard(ed)
		if err != nil {
			errs = append(errs, fmt.Errorf("edge %d (%s -> %s): %w", i, ed.From, ed.To, err))
			continue
		}
		if err := g.AddEdge(ed.From, ed.To, guard); err != nil {
			errs = append(errs, fmt.Errorf("edge %d: %w", i, err))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return g, nil
}

func (c *Compiler) node(nd definition.Node) (graph.Node, error) {
	if nd.ID == "" {
		return nil, fmt.Errorf("node missing id")
	}

	switch nd.Type {
	case definition.TypeTool, definition.TypeStandard:
		if nd.Tool == "" {
			return nil, fmt.Errorf("node %q: tool_name is required", nd.ID)
		}
		return graph.NewToolCall(nd.ID, nd.Tool).
			WithArgs(nd.StateKeys).
			WithParams(nd.Params).
			WithOutputKey(nd.OutputKey).
			WithOutputs(nd.Outputs), nil

	case definition.TypeFunction:
		if nd.Function == "" {
			return nil, fmt.Errorf("node %q: function_name is required", nd.ID)
		}
		if c.functions == nil {
			return nil, fmt.Errorf("node %q: unknown function %q", nd.ID, nd.Function)
		}
		fn, ok := c.functions(nd.Function)
		if !ok {
			return nil, fmt.Errorf("node %q: unknown function %q", nd.ID, nd.Function)
		}
		return graph.NewFunction(nd.ID, fn), nil

	case definition.TypeDecision:
		if nd.Selector != "" {
			return graph.NewSelectDecision(nd.ID, selectKey(nd.Selector)), nil
		}
		return graph.NewDecision(nd.ID), nil

	case definition.TypeLoop:
		if nd.Body == nil {
			return nil, fmt.Errorf("node %q: loop body is required", nd.ID)
		}
		cond, err := expr.Compile(nd.Condition)
		if err != nil {
			return nil, fmt.Errorf("node %q: invalid condition: %w", nd.ID, err)
		}
		bodyDef := *nd.Body
		if bodyDef.ID == "" {
			bodyDef.ID = nd.ID + "_body"
		}
		body, err := c.node(bodyDef)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", nd.ID, err)
		}
		return graph.NewLoop(nd.ID, body, cond, nd.MaxIterations), nil

	case definition.TypeBatch:
		if nd.Tool == "" {
			return nil, fmt.Errorf("node %q: batch nodes need a tool_name", nd.ID)
		}
		param := nd.ItemParam
		if param == "" {
			param = "item"
		}
		b := graph.NewToolBatch(nd.ID, nd.InputKey, nd.Tool, param)
		b.OutputKey = nd.OutputKey
		return b, nil
	}
	return nil, fmt.Errorf("node %q: %w: %q", nd.ID, domain.ErrUnsupportedNodeKind, nd.Type)
}

func edgeGuard(ed definition.Edge) (*graph.Guard, error) {
	set := 0
	for _, b := range []bool{ed.When != "", ed.Case != "", ed.Default} {
		if b {
			set++
		}
	}
	if set > 1 {
		return nil, fmt.Errorf("only one of when, case and default may be set")
	}

	switch {
	case ed.When != "":
		return graph.IfExpr(ed.When)
	case ed.Case != "":
		return graph.Case(ed.Case), nil
	case ed.Default:
		return graph.Default(), nil
	}
	return nil, nil
}

// selectKey routes on the string form of a state value.
func selectKey(key string) graph.Selector {
	return func(state *domain.State) (string, error) {
		v, ok := state.Get(key)
		if !ok {
			return "", fmt.Errorf("selector key %q not in state", key)
		}
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprint(v), nil
	}
}
