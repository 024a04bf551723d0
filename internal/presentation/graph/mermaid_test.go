package graph_test

import (
	"strings"
	"testing"

	pgraph "github.com/aretw0/tendril/internal/presentation/graph"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/graph"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		info     graph.Info
		overlay  *pgraph.GraphOverlay
		contains []string
	}{
		{
			name: "Node Shapes",
			info: graph.Info{
				Start: "begin",
				Nodes: []graph.NodeInfo{
					{ID: "begin", Kind: domain.KindFunction},
					{ID: "lint", Kind: domain.KindTool, Tool: "run_lint"},
					{ID: "gate", Kind: domain.KindDecision},
					{ID: "retry", Kind: domain.KindLoop, MaxIterations: 3, Body: &graph.NodeInfo{ID: "retry_body"}},
					{ID: "each", Kind: domain.KindBatch},
					{ID: "report", Kind: domain.KindFunction},
				},
			},
			contains: []string{
				`begin(("begin"))`,
				`lint[["lint <br/> run_lint"]]`,
				`gate{"gate"}`,
				`retry{{"retry <br/> retry_body x3"}}`,
				`each[/"each"/]`,
				`report["report"]`,
			},
		},
		{
			name: "ID Sanitization",
			info: graph.Info{
				Nodes: []graph.NodeInfo{{ID: "path/to/file.md"}, {ID: "hyphen-ated"}},
			},
			contains: []string{
				`path_to_file_md["path/to/file.md"]`,
				`hyphen_ated["hyphen-ated"]`,
			},
		},
		{
			name: "Guard Escaping",
			info: graph.Info{
				Edges: []graph.EdgeInfo{
					{From: "A", To: "B", Guard: `verdict == "yes"`},
					{From: "A", To: "C"},
				},
			},
			contains: []string{
				`A -- "verdict == 'yes'" --> B`,
				`A --> C`,
			},
		},
		{
			name: "Overlay",
			info: graph.Info{Nodes: []graph.NodeInfo{{ID: "a"}, {ID: "b"}}},
			overlay: &pgraph.GraphOverlay{
				VisitedNodes: []string{"a", "a", "b"},
				CurrentNode:  "b",
				Failed:       true,
			},
			contains: []string{
				"class a visited;",
				"class b failed;",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pgraph.GenerateMermaid(tt.info, tt.overlay)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
				}
			}
			if tt.overlay != nil && strings.Count(got, "class a visited;") != 1 {
				t.Errorf("visited nodes should be deduplicated:\n%v", got)
			}
		})
	}
}

func TestOverlayFromRun(t *testing.T) {
	run := &domain.Run{
		Status:        domain.StatusFailed,
		CurrentNodeID: "b",
		Log:           []domain.LogEntry{{NodeID: "a"}, {NodeID: "b"}},
	}
	o := pgraph.OverlayFromRun(run)
	if o.CurrentNode != "b" || !o.Failed || len(o.VisitedNodes) != 2 {
		t.Errorf("unexpected overlay %+v", o)
	}
	if pgraph.OverlayFromRun(nil) != nil {
		t.Error("nil run should give nil overlay")
	}
}
