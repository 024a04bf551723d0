package dsl

import (
	"errors"
	"fmt"

	"github.com/aretw0/tendril/pkg/graph"
	"github.com/aretw0/tendril/pkg/schema"
)

// Builder manages the graph construction.
type Builder struct {
	id          string
	description string
	schema      schema.Schema
	start       string
	order       []string
	nodes       map[string]*NodeBuilder
}

// New creates a new graph builder. The first node added is the start node
// unless Start says otherwise.
func New(id string) *Builder {
	return &Builder{
		id:    id,
		nodes: make(map[string]*NodeBuilder),
	}
}

// Describe sets the graph description.
func (b *Builder) Describe(desc string) *Builder {
	b.description = desc
	return b
}

// Expect declares the initial-state schema.
func (b *Builder) Expect(s schema.Schema) *Builder {
	b.schema = s
	return b
}

// Start overrides the start node.
func (b *Builder) Start(id string) *Builder {
	b.start = id
	return b
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{id: id, builder: b}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Build compiles the builder into a validated, unsealed graph.
func (b *Builder) Build() (*graph.Graph, error) {
	g := graph.New(b.id)
	_ = g.SetDescription(b.description)
	if b.schema != nil {
		_ = g.SetSchema(b.schema)
	}

	start := b.start
	if start == "" && len(b.order) > 0 {
		start = b.order[0]
	}

	var errs []error
	for _, id := range b.order {
		nb := b.nodes[id]
		n, err := nb.node()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if id == start {
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

	for _, id := range b.order {
		for _, e := range b.nodes[id].edges {
			if err := g.AddEdge(id, e.to, e.guard); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if err := g.Err(); err != nil {
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}
	return g, nil
}

// MustBuild is like Build but panics on error.
func (b *Builder) MustBuild() *graph.Graph {
	g, err := b.Build()
	if err != nil {
		panic(err)
	}
	return g
}
