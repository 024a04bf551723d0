package definition

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Parse decodes a YAML or JSON document into a Graph.
// Unknown keys are rejected; scalars are coerced where unambiguous
// ("3" for max_iterations).
func Parse(data []byte) (Graph, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Graph{}, fmt.Errorf("failed to parse definition: %w", err)
	}
	if raw == nil {
		return Graph{}, fmt.Errorf("empty definition")
	}
	return Decode(raw)
}

// Decode converts a generic map (as produced by a JSON or YAML decoder) into a Graph.
func Decode(raw map[string]any) (Graph, error) {
	var g Graph
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &g,
	})
	if err != nil {
		return Graph{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Graph{}, fmt.Errorf("failed to decode definition: %w", err)
	}
	if g.ID == "" {
		return Graph{}, fmt.Errorf("definition missing graph_id")
	}
	return g, nil
}

// LoadFile reads and parses a definition file.
func LoadFile(path string) (Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Graph{}, fmt.Errorf("failed to read definition: %w", err)
	}
	g, err := Parse(data)
	if err != nil {
		return Graph{}, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}
