package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/graph"
)

// GraphOverlay contains run data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
	// Failed marks CurrentNode as the node that failed the run.
	Failed bool
}

// OverlayFromRun builds the overlay for a run record.
func OverlayFromRun(run *domain.Run) *GraphOverlay {
	if run == nil {
		return nil
	}
	return &GraphOverlay{
		VisitedNodes: run.Path(),
		CurrentNode:  run.CurrentNodeID,
		Failed:       run.Status == domain.StatusFailed,
	}
}

// GenerateMermaid produces a Mermaid flowchart from a graph description.
// It applies semantic styling:
// - Start: ((Circle))
// - Tool: [[Subroutine]]
// - Decision: {Rhombus}
// - Loop: {{Hexagon}}
// - Batch: [/Parallelogram/]
// - Function: [Rectangle]
// It also applies overlay styles (Visited/Current/Failed) if provided.
func GenerateMermaid(info graph.Info, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range info.Nodes {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch {
		case node.ID == info.Start:
			opener, closer = "((", "))"
		case node.Kind == domain.KindTool:
			opener, closer = "[[", "]]"
		case node.Kind == domain.KindDecision:
			opener, closer = "{", "}"
		case node.Kind == domain.KindLoop:
			opener, closer = "{{", "}}"
		case node.Kind == domain.KindBatch:
			opener, closer = "[/", "/]"
		}

		label := node.ID
		switch {
		case node.Tool != "":
			label += " <br/> " + node.Tool
		case node.Body != nil:
			label += fmt.Sprintf(" <br/> %s x%d", node.Body.ID, node.MaxIterations)
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, escapeLabel(label), closer)
	}

	for _, e := range info.Edges {
		arrow := "-->"
		if e.Guard != "" {
			arrow = fmt.Sprintf("-- \"%s\" -->", escapeLabel(e.Guard))
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(e.From), arrow, sanitizeMermaidID(e.To))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for contrast regardless of theme
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffcdd2,stroke:#b71c1c,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}

		if overlay.CurrentNode != "" {
			class := "current"
			if overlay.Failed {
				class = "failed"
			}
			fmt.Fprintf(&sb, "    class %s %s;\n", sanitizeMermaidID(overlay.CurrentNode), class)
		}
	}

	return sb.String()
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_").Replace(id)
}
