package process

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ToolConfig describes an external command exposed as a tool.
type ToolConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Env         map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`
	// Parameters is a JSON-schema object advertised in tool listings.
	Parameters map[string]any `yaml:"parameters" json:"parameters"`
	// Timeout bounds one execution. Zero means no limit beyond the caller's context.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// Result is a gjson path selecting the tool result from JSON stdout,
	// e.g. "data.items" or "matches.#.name". Empty returns the whole document.
	Result string `yaml:"result" json:"result"`
}

// ConfigFile represents the structure of tools.yaml
type ConfigFile struct {
	Tools []ToolConfig `yaml:"tools" json:"tools"`
}

// LoadTools reads a configuration file (YAML or JSON, chosen by extension).
// A missing file yields no tools. Entries without a name or command are
// rejected, as are duplicate names.
func LoadTools(path string) ([]ToolConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read tools config: %w", err)
	}
	return ParseTools(data, strings.ToLower(filepath.Ext(path)) == ".json")
}

// ParseTools decodes a tools document.
func ParseTools(data []byte, isJSON bool) ([]ToolConfig, error) {
	var cfg ConfigFile
	if isJSON {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse tools json: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse tools yaml: %w", err)
	}

	seen := make(map[string]bool, len(cfg.Tools))
	var errs []error
	for i, tool := range cfg.Tools {
		switch {
		case tool.Name == "":
			errs = append(errs, fmt.Errorf("tool #%d: missing name", i))
		case tool.Command == "":
			errs = append(errs, fmt.Errorf("tool %q: missing command", tool.Name))
		case seen[tool.Name]:
			errs = append(errs, fmt.Errorf("tool %q: defined twice", tool.Name))
		}
		seen[tool.Name] = true
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg.Tools, nil
}
