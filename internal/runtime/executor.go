package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/graph"
	"github.com/aretw0/tendril/pkg/schema"
)

// Checkpointer persists the executor's view of a run after every step so
// pollers observe progress. *runs.Registry satisfies it.
type Checkpointer interface {
	Checkpoint(ctx context.Context, run *domain.Run) error
}

// Executor walks a graph for one run at a time, strictly sequentially.
// A single Executor may serve many runs concurrently: all per-run state lives
// on the goroutine executing Run.
type Executor struct {
	tools      graph.ToolCaller
	logger     *slog.Logger
	hooks      domain.LifecycleHooks
	checkpoint Checkpointer
	pool       *Pool
	maxSteps   int
	now        func() time.Time
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(x *Executor) {
		x.logger = logger
	}
}

// WithHooks registers observability hooks.
func WithHooks(hooks domain.LifecycleHooks) ExecutorOption {
	return func(x *Executor) {
		x.hooks = hooks
	}
}

// WithCheckpointer persists run progress after every step.
func WithCheckpointer(c Checkpointer) ExecutorOption {
	return func(x *Executor) {
		x.checkpoint = c
	}
}

// WithMaxSteps bounds the number of node executions per run. Zero means
// unlimited; loops are still bounded by their own MaxIterations.
func WithMaxSteps(n int) ExecutorOption {
	return func(x *Executor) {
		x.maxSteps = n
	}
}

// WithPool sets the worker pool used by Start.
func WithPool(p *Pool) ExecutorOption {
	return func(x *Executor) {
		x.pool = p
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ExecutorOption {
	return func(x *Executor) {
		x.now = now
	}
}

// NewExecutor creates an executor resolving tools through tools.
func NewExecutor(tools graph.ToolCaller, opts ...ExecutorOption) *Executor {
	x := &Executor{
		tools:  tools,
		logger: logging.NewNop(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Run executes g for run, which must be pending, and returns it once terminal.
//
// Node failures never surface as errors: they end the run in the failed
// status with the error recorded on the run and on the failing log entry.
// The final state is then the state after the last successful node.
func (x *Executor) Run(ctx context.Context, g *graph.Graph, run *domain.Run) *domain.Run {
	logger := x.logger.With("graph", g.ID(), "run_id", run.ID)
	started := x.now()

	run.GraphID = g.ID()
	run.Status = domain.StatusRunning
	run.StartedAt = &started
	run.State = run.InitialState.Clone()
	run.CurrentNodeID = g.Start()

	logger.DebugContext(ctx, "run started", "start", g.Start())
	x.emitRunStart(ctx, run)
	x.save(ctx, logger, run)

	if err := schema.ValidateState(g.Schema(), run.State); err != nil {
		logger.WarnContext(ctx, "initial state rejected", "keys", schema.AsViolations(err).Keys())
		x.fail(ctx, logger, run, &domain.InvalidStateError{Cause: err})
		return run
	}

	var (
		current = g.Start()
		cursors = make(map[string]*graph.LoopCursor)
		steps   int
	)
	for current != "" {
		if x.maxSteps > 0 && steps >= x.maxSteps {
			x.fail(ctx, logger, run, &domain.StepLimitExceededError{Max: x.maxSteps})
			return run
		}
		node, ok := g.Node(current)
		if !ok {
			x.fail(ctx, logger, run, &domain.GraphCorruptionError{GraphID: g.ID(), NodeID: current})
			return run
		}
		steps++
		run.CurrentNodeID = current

		next, err := x.step(ctx, logger, g, node, run, cursors)
		if err != nil {
			x.fail(ctx, logger, run, err)
			return run
		}
		x.save(ctx, logger, run)
		current = next
	}

	x.finish(ctx, logger, run, domain.StatusCompleted, nil)
	return run
}

// step executes one node, appends its log entry and returns the next node id.
func (x *Executor) step(ctx context.Context, logger *slog.Logger, g *graph.Graph, node graph.Node, run *domain.Run, cursors map[string]*graph.LoopCursor) (string, error) {
	id := node.ID()
	before := run.State
	entry := domain.LogEntry{
		Seq:       len(run.Log) + 1,
		NodeID:    id,
		Kind:      node.Kind(),
		Input:     before.Clone(),
		StartedAt: x.now(),
	}

	var cursor *graph.LoopCursor
	if loop, ok := node.(*graph.LoopNode); ok {
		cursor = cursors[id]
		if cursor == nil || cursor.Done() {
			cursor = graph.NewLoopCursor(loop)
			cursors[id] = cursor
		}
		entry.Iteration = cursor.Begin()
	}

	x.emitNodeEnter(ctx, run, &entry)

	nodeCtx := domain.WithExecution(ctx, domain.Execution{RunID: run.ID, GraphID: g.ID(), NodeID: id})
	res, err := x.execute(nodeCtx, node, graph.Input{State: before, Edges: g.Outgoing(id), Tools: x.tools})

	var next string
	if err == nil {
		after := res.State
		if after == nil {
			after = before
		}
		entry.Output = after.Clone()
		entry.Changes = domain.Diff(before, after)
		run.State = after
		next, err = route(g, node, res, cursor)
		if cursor != nil && cursor.Done() {
			delete(cursors, id)
		}
	}
	entry.Duration = x.now().Sub(entry.StartedAt)

	if err != nil {
		entry.Error = err.Error()
		entry.ErrorKind = domain.ErrorKind(err)
		run.Log = append(run.Log, entry)
		x.emitNodeLeave(ctx, run, &entry)
		logger.DebugContext(ctx, "node failed", "node", id, "kind", node.Kind(), "error", err)
		return "", err
	}

	entry.Next = next
	run.Log = append(run.Log, entry)
	x.emitNodeLeave(ctx, run, &entry)
	logger.DebugContext(ctx, "node completed", "node", id, "kind", node.Kind(), "next", next, "duration", entry.Duration)
	return next, nil
}

// execute runs a node, converting panics that escape it into node errors.
func (x *Executor) execute(ctx context.Context, node graph.Node, in graph.Input) (res graph.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = graph.Result{}
			err = &domain.NodeExecutionError{NodeID: node.ID(), Cause: fmt.Errorf("panic: %v", r)}
		}
	}()
	return node.Execute(ctx, in)
}

// route selects the next node after a successful execution.
func route(g *graph.Graph, node graph.Node, res graph.Result, cursor *graph.LoopCursor) (string, error) {
	switch node.Kind() {
	case domain.KindDecision:
		return res.Next, nil
	case domain.KindLoop:
		switch cursor.Advance(res.Continue) {
		case graph.LoopBody:
			return node.ID(), nil
		case graph.LoopExit:
			return g.Successor(node.ID()), nil
		default:
			return "", cursor.Err()
		}
	}
	return g.Successor(node.ID()), nil
}

func (x *Executor) fail(ctx context.Context, logger *slog.Logger, run *domain.Run, err error) {
	x.finish(ctx, logger, run, domain.StatusFailed, err)
}

func (x *Executor) finish(ctx context.Context, logger *slog.Logger, run *domain.Run, status domain.RunStatus, err error) {
	done := x.now()
	run.Status = status
	run.CompletedAt = &done
	if err != nil {
		run.Err = err
		run.Error = err.Error()
		run.ErrorKind = domain.ErrorKind(err)
		logger.WarnContext(ctx, "run failed", "node", run.CurrentNodeID, "kind", run.ErrorKind, "steps", len(run.Log), "error", err)
	} else {
		run.CurrentNodeID = ""
		logger.InfoContext(ctx, "run completed", "steps", len(run.Log), "duration", done.Sub(*run.StartedAt))
	}

	x.save(ctx, logger, run)
	x.emitRunFinish(ctx, run)
}

func (x *Executor) save(ctx context.Context, logger *slog.Logger, run *domain.Run) {
	if x.checkpoint == nil {
		return
	}
	if err := x.checkpoint.Checkpoint(ctx, run); err != nil {
		logger.WarnContext(ctx, "checkpoint failed", "status", run.Status, "error", err)
	}
}
