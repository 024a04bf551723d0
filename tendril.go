package tendril

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/aretw0/tendril/internal/compiler"
	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/internal/runtime"
	"github.com/aretw0/tendril/internal/validator"
	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/definition"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/graph"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/registry"
	"github.com/aretw0/tendril/pkg/runs"
)

// Version is the engine version reported by the CLI and the HTTP API.
const Version = "1.0.0"

// Engine is the high-level entry point for the Tendril library.
// It owns the graphs, the tool registry and the run registry, and executes
// runs through the internal runtime.
type Engine struct {
	tools    *registry.Registry
	runs     *runs.Registry
	executor *runtime.Executor
	compiler *compiler.Compiler
	pool     *runtime.Pool

	mu        sync.RWMutex
	graphs    map[string]*graph.Graph
	functions map[string]graph.Func

	store    ports.RunStore
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	maxSteps int
	poolSize int
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks for runs, nodes and tool calls.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRegistry injects a tool registry. Its own hooks are kept.
func WithRegistry(r *registry.Registry) Option {
	return func(e *Engine) {
		e.tools = r
	}
}

// WithRunStore sets where run records are kept (default: in memory).
func WithRunStore(store ports.RunStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithMaxSteps bounds node executions per run. Zero means unlimited.
func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		e.maxSteps = n
	}
}

// WithPoolSize bounds how many background runs execute at once.
// Zero starts one goroutine per run.
func WithPoolSize(n int) Option {
	return func(e *Engine) {
		e.poolSize = n
	}
}

// New initializes a new Tendril Engine.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		graphs:    make(map[string]*graph.Graph),
		functions: make(map[string]graph.Func),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.store == nil {
		e.store = memory.NewStore()
	}
	if e.tools == nil {
		e.tools = registry.NewRegistry(registry.WithHooks(e.hooks))
	}
	e.runs = runs.NewRegistry(e.store, runs.WithLogger(e.logger))
	e.compiler = compiler.New(e.function)

	execOpts := []runtime.ExecutorOption{
		runtime.WithLogger(e.logger),
		runtime.WithHooks(e.hooks),
		runtime.WithCheckpointer(e.runs),
		runtime.WithMaxSteps(e.maxSteps),
	}
	if e.poolSize > 0 {
		pool, err := runtime.NewPool(e.poolSize)
		if err != nil {
			return nil, err
		}
		e.pool = pool
		execOpts = append(execOpts, runtime.WithPool(pool))
	}
	e.executor = runtime.NewExecutor(e.tools, execOpts...)

	return e, nil
}

// Close waits for background runs and releases the worker pool.
func (e *Engine) Close() error {
	if e.pool != nil {
		e.pool.Close()
	}
	return nil
}

// Tools returns the engine's tool registry.
func (e *Engine) Tools() *registry.Registry {
	return e.tools
}

// RegisterTool adds a tool to the engine's registry.
func (e *Engine) RegisterTool(name, description string, fn registry.ToolFunction) error {
	return e.tools.Register(name, description, fn)
}

// ListTools returns registered tool metadata sorted by name.
func (e *Engine) ListTools() []domain.Tool {
	return e.tools.Tools()
}

// CallTool invokes a tool directly, outside any run.
func (e *Engine) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	return e.tools.Call(ctx, name, args)
}

// RegisterFunction makes fn available to definitions as function_name.
func (e *Engine) RegisterFunction(name string, fn graph.Func) error {
	if name == "" || fn == nil {
		return fmt.Errorf("function name and implementation are required")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.functions[name]; exists {
		return fmt.Errorf("function %q already registered", name)
	}
	e.functions[name] = fn
	return nil
}

func (e *Engine) function(name string) (graph.Func, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn, ok := e.functions[name]
	return fn, ok
}

// CreateGraph compiles def, validates it and registers it.
// The returned warnings flag likely mistakes that do not prevent execution.
func (e *Engine) CreateGraph(ctx context.Context, def definition.Graph) ([]string, error) {
	g, err := e.compiler.Compile(def)
	if err != nil {
		return nil, fmt.Errorf("failed to compile graph %q: %w", def.ID, err)
	}
	if err := e.AddGraph(g); err != nil {
		return nil, err
	}

	warnings := validator.Lint(g, e.tools.Has)
	for _, w := range warnings {
		e.logger.WarnContext(ctx, "graph lint", "graph", g.ID(), "warning", w)
	}
	return warnings, nil
}

// AddGraph validates, seals and registers a programmatically built graph.
func (e *Engine) AddGraph(g *graph.Graph) error {
	if err := g.Seal(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.graphs[g.ID()]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateGraph, g.ID())
	}
	e.graphs[g.ID()] = g
	e.logger.Info("graph registered", "graph", g.ID(), "nodes", len(g.Nodes()))
	return nil
}

// Graph returns a registered graph.
func (e *Engine) Graph(id string) (*graph.Graph, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	g, ok := e.graphs[id]
	return g, ok
}

func (e *Engine) lookup(id string) (*graph.Graph, error) {
	g, ok := e.Graph(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrGraphNotFound, id)
	}
	return g, nil
}

// DescribeGraph returns the structure of a registered graph.
func (e *Engine) DescribeGraph(id string) (graph.Info, error) {
	g, err := e.lookup(id)
	if err != nil {
		return graph.Info{}, err
	}
	return graph.Describe(g), nil
}

// ListGraphs describes every registered graph, sorted by id.
func (e *Engine) ListGraphs() []graph.Info {
	e.mu.RLock()
	infos := make([]graph.Info, 0, len(e.graphs))
	for _, g := range e.graphs {
		infos = append(infos, graph.Describe(g))
	}
	e.mu.RUnlock()

	slices.SortFunc(infos, func(a, b graph.Info) int { return cmp.Compare(a.ID, b.ID) })
	return infos
}

// RunGraph executes a graph and blocks until the run is terminal.
//
// Node failures are reported in the returned record (status failed), never as
// an error. The error is non-nil only when the run could not be started or
// its record could not be read back.
func (e *Engine) RunGraph(ctx context.Context, graphID string, initial *domain.State) (*domain.Run, error) {
	g, err := e.lookup(graphID)
	if err != nil {
		return nil, err
	}
	run, err := e.runs.Create(ctx, graphID, initial)
	if err != nil {
		return nil, err
	}
	done := e.executor.Run(ctx, g, run)
	// the caller gets the stored record, with run store middleware applied
	return e.runs.Get(context.WithoutCancel(ctx), done.ID)
}

// StartRun executes a graph in the background and returns the pending run.
// Use Await or GetRun to observe it.
func (e *Engine) StartRun(ctx context.Context, graphID string, initial *domain.State) (*domain.Run, error) {
	g, err := e.lookup(graphID)
	if err != nil {
		return nil, err
	}
	run, err := e.runs.Create(ctx, graphID, initial)
	if err != nil {
		return nil, err
	}
	snapshot, err := e.runs.Get(ctx, run.ID)
	if err != nil {
		return nil, err
	}

	if _, err := e.executor.Start(ctx, g, run); err != nil {
		_ = e.runs.Update(ctx, run.ID, func(r *domain.Run) error {
			r.Status = domain.StatusFailed
			r.Error = err.Error()
			r.ErrorKind = domain.KindInternal
			return nil
		})
		return nil, err
	}
	return snapshot, nil
}

// Await blocks until the run is terminal or ctx is done.
func (e *Engine) Await(ctx context.Context, runID string) (*domain.Run, error) {
	return e.runs.Await(ctx, runID)
}

// GetRun returns a snapshot of a run. Returns domain.ErrRunNotFound when unknown.
func (e *Engine) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	return e.runs.Get(ctx, runID)
}

// ListRuns returns every run ordered by creation time.
func (e *Engine) ListRuns(ctx context.Context) ([]*domain.Run, error) {
	return e.runs.List(ctx)
}

var _ ports.WorkflowService = (*Engine)(nil)
