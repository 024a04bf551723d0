package definition

// Node types understood by the compiler.
const (
	TypeFunction = "function"
	TypeTool     = "tool"
	TypeStandard = "standard"
	TypeDecision = "decision"
	TypeLoop     = "loop"
	TypeBatch    = "batch"
)

// Graph is the declarative form of a workflow graph.
type Graph struct {
	ID          string `json:"graph_id" yaml:"graph_id" mapstructure:"graph_id"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	// StartNode names the start node. When empty, the node flagged is_start
	// is used, then the first node.
	StartNode string `json:"start_node,omitempty" yaml:"start_node,omitempty" mapstructure:"start_node"`
	// StateSchema maps initial-state keys to type names ("string", "int?", "[string]").
	StateSchema map[string]string `json:"state_schema,omitempty" yaml:"state_schema,omitempty" mapstructure:"state_schema"`

	Nodes []Node `json:"nodes" yaml:"nodes" mapstructure:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges" mapstructure:"edges"`
}

// Node is the declarative form of one node. Which fields apply depends on Type.
type Node struct {
	ID      string `json:"id" yaml:"id" mapstructure:"id"`
	Type    string `json:"type" yaml:"type" mapstructure:"type"`
	IsStart bool   `json:"is_start,omitempty" yaml:"is_start,omitempty" mapstructure:"is_start"`

	// tool and batch
	Tool string `json:"tool_name,omitempty" yaml:"tool_name,omitempty" mapstructure:"tool_name"`
	// function
	Function string `json:"function_name,omitempty" yaml:"function_name,omitempty" mapstructure:"function_name"`

	// StateKeys maps state keys to tool parameter names.
	StateKeys map[string]string `json:"state_keys,omitempty" yaml:"state_keys,omitempty" mapstructure:"state_keys"`
	Params    map[string]any    `json:"params,omitempty" yaml:"params,omitempty" mapstructure:"params"`
	OutputKey string            `json:"output_key,omitempty" yaml:"output_key,omitempty" mapstructure:"output_key"`
	// Outputs maps result fields to state keys.
	Outputs map[string]string `json:"outputs,omitempty" yaml:"outputs,omitempty" mapstructure:"outputs"`

	// decision: the state key whose value selects a case edge.
	Selector string `json:"selector,omitempty" yaml:"selector,omitempty" mapstructure:"selector"`

	// loop
	Condition     string `json:"condition,omitempty" yaml:"condition,omitempty" mapstructure:"condition"`
	MaxIterations int    `json:"max_iterations,omitempty" yaml:"max_iterations,omitempty" mapstructure:"max_iterations"`
	Body          *Node  `json:"body,omitempty" yaml:"body,omitempty" mapstructure:"body"`

	// batch
	InputKey  string `json:"input_key,omitempty" yaml:"input_key,omitempty" mapstructure:"input_key"`
	ItemParam string `json:"item_param,omitempty" yaml:"item_param,omitempty" mapstructure:"item_param"`
}

// Edge is the declarative form of one edge. At most one of When, Case and
// Default may be set, and only on edges leaving a decision.
type Edge struct {
	From    string `json:"from_node" yaml:"from_node" mapstructure:"from_node"`
	To      string `json:"to_node" yaml:"to_node" mapstructure:"to_node"`
	When    string `json:"when,omitempty" yaml:"when,omitempty" mapstructure:"when"`
	Case    string `json:"case,omitempty" yaml:"case,omitempty" mapstructure:"case"`
	Default bool   `json:"default,omitempty" yaml:"default,omitempty" mapstructure:"default"`
}

// Start resolves the start node id.
func (g Graph) Start() string {
	if g.StartNode != "" {
		return g.StartNode
	}
	for _, n := range g.Nodes {
		if n.IsStart {
			return n.ID
		}
	}
	if len(g.Nodes) > 0 {
		return g.Nodes[0].ID
	}
	return ""
}

// Tools returns the distinct tool names the definition calls, in order of
// first use.
func (g Graph) Tools() []string {
	var (
		names []string
		seen  = make(map[string]bool)
	)
	var visit func(n Node)
	visit = func(n Node) {
		if n.Tool != "" && !seen[n.Tool] {
			seen[n.Tool] = true
			names = append(names, n.Tool)
		}
		if n.Body != nil {
			visit(*n.Body)
		}
	}
	for _, n := range g.Nodes {
		visit(n)
	}
	return names
}
