package ports

import (
	"context"

	"github.com/aretw0/tendril/pkg/definition"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/graph"
)

// WorkflowService is the primary interface used by adapters (HTTP, MCP, CLI).
// *tendril.Engine implements it.
type WorkflowService interface {
	// ListTools returns registered tool metadata sorted by name.
	ListTools() []domain.Tool
	// CallTool invokes a tool directly, outside any run.
	CallTool(ctx context.Context, name string, args map[string]any) (any, error)

	// CreateGraph compiles and registers a definition. It returns lint warnings.
	CreateGraph(ctx context.Context, def definition.Graph) ([]string, error)
	// DescribeGraph returns the structure of a registered graph.
	DescribeGraph(id string) (graph.Info, error)
	// ListGraphs returns every registered graph.
	ListGraphs() []graph.Info

	// RunGraph executes a graph and blocks until the run is terminal.
	RunGraph(ctx context.Context, graphID string, initial *domain.State) (*domain.Run, error)
	// StartRun executes a graph in the background and returns the pending run.
	StartRun(ctx context.Context, graphID string, initial *domain.State) (*domain.Run, error)
	// GetRun returns a snapshot of a run. Returns domain.ErrRunNotFound when unknown.
	GetRun(ctx context.Context, runID string) (*domain.Run, error)
	// ListRuns returns every run ordered by creation time.
	ListRuns(ctx context.Context) ([]*domain.Run, error)
}
