package definition_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/tendril/pkg/definition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const reviewYAML = `
graph_id: review
description: review python code
state_schema:
  code: string
  quality_threshold: float?
nodes:
  - id: extract
    type: standard
    tool_name: extract_functions
    is_start: true
    state_keys: {code: code}
  - id: gate
    type: decision
  - id: retry
    type: loop
    condition: "quality_score < quality_threshold"
    max_iterations: "3"
    body:
      id: improve
      type: tool
      tool_name: suggest_improvements
  - id: done
    type: function
    function_name: generate_report
edges:
  - {from_node: extract, to_node: gate}
  - {from_node: gate, to_node: done, when: "quality_score >= 7"}
  - {from_node: gate, to_node: retry, default: true}
  - {from_node: retry, to_node: done}
`

func TestParse_YAML(t *testing.T) {
	g, err := definition.Parse([]byte(reviewYAML))
	require.NoError(t, err)

	assert.Equal(t, "review", g.ID)
	assert.Equal(t, "extract", g.Start())
	assert.Equal(t, map[string]string{"code": "string", "quality_threshold": "float?"}, g.StateSchema)
	require.Len(t, g.Nodes, 4)
	assert.Equal(t, map[string]string{"code": "code"}, g.Nodes[0].StateKeys)
	assert.Equal(t, 3, g.Nodes[2].MaxIterations, "weakly typed input coerces strings")
	require.NotNil(t, g.Nodes[2].Body)
	assert.Equal(t, "suggest_improvements", g.Nodes[2].Body.Tool)
	require.Len(t, g.Edges, 4)
	assert.True(t, g.Edges[2].Default)
	assert.Equal(t, []string{"extract_functions", "suggest_improvements"}, g.Tools())
}

func TestParse_JSON(t *testing.T) {
	g, err := definition.Parse([]byte(`{
		"graph_id": "simple",
		"nodes": [{"id": "a", "type": "tool", "tool_name": "echo"}, {"id": "b", "type": "tool", "tool_name": "echo"}],
		"edges": [{"from_node": "a", "to_node": "b"}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, "a", g.Start())
	assert.Equal(t, []string{"echo"}, g.Tools())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"missing id", "nodes: []"},
		{"unknown key", "graph_id: x\nnodez: []"},
		{"not a mapping", "- a\n- b"},
		{"bad type", "graph_id: x\nnodes: 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := definition.Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestStart_Precedence(t *testing.T) {
	g := definition.Graph{
		StartNode: "b",
		Nodes:     []definition.Node{{ID: "a"}, {ID: "b"}, {ID: "c", IsStart: true}},
	}
	assert.Equal(t, "b", g.Start())

	g.StartNode = ""
	assert.Equal(t, "c", g.Start())

	g.Nodes[2].IsStart = false
	assert.Equal(t, "a", g.Start())

	assert.Equal(t, "", definition.Graph{}.Start())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "review.yaml")
	require.NoError(t, os.WriteFile(path, []byte(reviewYAML), 0o644))

	g, err := definition.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "review", g.ID)

	_, err = definition.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
