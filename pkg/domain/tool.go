package domain

// Tool defines metadata about a tool available to the engine.
// This is used for listings (HTTP, MCP, CLI) and for generating schemas.
type Tool struct {
	Name        string         `json:"name" yaml:"name" mapstructure:"name"`
	Description string         `json:"description" yaml:"description" mapstructure:"description"`
	Parameters  map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty" mapstructure:"parameters"`
}
