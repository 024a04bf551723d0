package validator

import (
	"fmt"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/graph"
)

// Lint reports problems that do not make a graph invalid but are almost
// always mistakes: nodes unreachable from the start node, decisions without a
// fallback, and tools that are not registered (yet). hasTool may be nil.
func Lint(g *graph.Graph, hasTool func(name string) bool) []string {
	var warnings []string

	visited := map[string]bool{}
	queue := []string{g.Start()}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current == "" || visited[current] {
			continue
		}
		visited[current] = true
		for _, e := range g.Outgoing(current) {
			if !visited[e.To] {
				queue = append(queue, e.To)
			}
		}
	}

	for _, n := range g.Nodes() {
		id := n.ID()
		if !visited[id] {
			warnings = append(warnings, fmt.Sprintf("node %q is unreachable from start node %q", id, g.Start()))
		}
		if n.Kind() == domain.KindDecision && !hasFallback(g.Outgoing(id)) {
			warnings = append(warnings, fmt.Sprintf("decision %q has no default edge; unmatched states fail the run", id))
		}
		if hasTool == nil {
			continue
		}
		for _, tool := range toolsOf(n) {
			if !hasTool(tool) {
				warnings = append(warnings, fmt.Sprintf("node %q calls unregistered tool %q", id, tool))
			}
		}
	}
	return warnings
}

func hasFallback(edges []graph.Edge) bool {
	for _, e := range edges {
		if e.Guard == nil || e.Guard.Default {
			return true
		}
	}
	return false
}

func toolsOf(n graph.Node) []string {
	switch v := n.(type) {
	case *graph.ToolCallNode:
		return []string{v.Tool()}
	case *graph.BatchNode:
		if v.Tool() != "" {
			return []string{v.Tool()}
		}
	case *graph.LoopNode:
		if v.Body() != nil {
			return toolsOf(v.Body())
		}
	}
	return nil
}
