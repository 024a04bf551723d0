package graph

import (
	"time"

	"github.com/aretw0/tendril/pkg/domain"
)

// Info is the read-only description of a graph used by listings.
type Info struct {
	ID          string     `json:"graph_id"`
	Description string     `json:"description,omitempty"`
	Start       string     `json:"start_node"`
	CreatedAt   time.Time  `json:"created_at"`
	Nodes       []NodeInfo `json:"nodes"`
	Edges       []EdgeInfo `json:"edges"`
	StateKeys   []string   `json:"state_keys,omitempty"`
}

// NodeInfo describes one node.
type NodeInfo struct {
	ID   string          `json:"id"`
	Kind domain.NodeKind `json:"kind"`
	Tool string          `json:"tool,omitempty"`
	// Body and MaxIterations are set for loop nodes.
	Body          *NodeInfo `json:"body,omitempty"`
	MaxIterations int       `json:"max_iterations,omitempty"`
}

// EdgeInfo describes one edge. Guard is the guard's display form.
type EdgeInfo struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Guard string `json:"guard,omitempty"`
}

// Describe returns the structure of g with nodes in insertion order.
func Describe(g *Graph) Info {
	info := Info{
		ID:          g.ID(),
		Description: g.Description(),
		Start:       g.Start(),
		CreatedAt:   g.CreatedAt(),
		StateKeys:   g.Schema().Keys(),
	}
	for _, n := range g.Nodes() {
		info.Nodes = append(info.Nodes, describeNode(n))
	}
	for _, e := range g.Edges() {
		info.Edges = append(info.Edges, EdgeInfo{From: e.From, To: e.To, Guard: e.Guard.String()})
	}
	return info
}

func describeNode(n Node) NodeInfo {
	ni := NodeInfo{ID: n.ID(), Kind: n.Kind()}
	switch v := n.(type) {
	case *ToolCallNode:
		ni.Tool = v.Tool()
	case *BatchNode:
		ni.Tool = v.Tool()
	case *LoopNode:
		ni.MaxIterations = v.MaxIterations()
		if v.Body() != nil {
			body := describeNode(v.Body())
			ni.Body = &body
		}
	}
	return ni
}
