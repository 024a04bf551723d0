package registry

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
)

// ToolFunction defines the signature for a tool implementation.
// It receives a context and a map of arguments, and returns a result or error.
type ToolFunction func(ctx context.Context, args map[string]any) (any, error)

type entry struct {
	meta domain.Tool
	fn   ToolFunction
}

// Registry manages the available tools.
// It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]entry
	hooks domain.LifecycleHooks
}

// Option configures a Registry.
type Option func(*Registry)

// WithHooks sets the hooks fired around every Call.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(r *Registry) {
		r.hooks = hooks
	}
}

// NewRegistry creates a new empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		tools: make(map[string]entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a tool to the registry.
// Registering a name twice fails with a *domain.DuplicateToolError.
func (r *Registry) Register(name, description string, fn ToolFunction) error {
	return r.RegisterTool(domain.Tool{Name: name, Description: description}, fn)
}

// RegisterTool adds a tool described by meta.
func (r *Registry) RegisterTool(meta domain.Tool, fn ToolFunction) error {
	if meta.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if fn == nil {
		return fmt.Errorf("tool %q: nil function", meta.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[meta.Name]; exists {
		return &domain.DuplicateToolError{Name: meta.Name}
	}
	r.tools[meta.Name] = entry{meta: meta, fn: fn}
	return nil
}

// Replace registers fn under meta.Name, overwriting any previous tool.
func (r *Registry) Replace(meta domain.Tool, fn ToolFunction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[meta.Name] = entry{meta: meta, fn: fn}
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (ToolFunction, error) {
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &domain.ToolNotFoundError{Name: name}
	}
	return e.fn, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// List yields (name, description) pairs in name order.
// The sequence is lazy and restartable: each iteration takes a fresh snapshot.
func (r *Registry) List() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, t := range r.Tools() {
			if !yield(t.Name, t.Description) {
				return
			}
		}
	}
}

// Tools returns the metadata of every registered tool sorted by name.
func (r *Registry) Tools() []domain.Tool {
	r.mu.RLock()
	out := make([]domain.Tool, 0, len(r.tools))
	for _, e := range r.tools {
		out = append(out, e.meta)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b domain.Tool) int {
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})
	return out
}

// Call looks up a tool by name and executes it.
// Errors returned by the tool, and panics, are reported as
// *domain.ToolExecutionError; unknown names as *domain.ToolNotFoundError.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) (result any, err error) {
	fn, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	exec, _ := domain.ExecutionFrom(ctx)
	base := domain.EventBase{RunID: exec.RunID, GraphID: exec.GraphID}
	start := time.Now()

	if r.hooks.OnToolCall != nil {
		ev := &domain.ToolEvent{NodeID: exec.NodeID, ToolName: name, Input: args}
		ev.EventBase = base
		ev.Timestamp = start
		ev.Type = domain.EventToolCall
		r.hooks.OnToolCall(ctx, ev)
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = &domain.ToolExecutionError{Tool: name, Cause: fmt.Errorf("panic: %v", rec)}
		}
		if r.hooks.OnToolReturn != nil {
			ev := &domain.ToolEvent{
				NodeID:   exec.NodeID,
				ToolName: name,
				Output:   result,
				IsError:  err != nil,
				Duration: time.Since(start),
			}
			ev.EventBase = base
			ev.Timestamp = time.Now()
			ev.Type = domain.EventToolReturn
			r.hooks.OnToolReturn(ctx, ev)
		}
	}()

	result, err = fn(ctx, args)
	if err != nil {
		return nil, &domain.ToolExecutionError{Tool: name, Cause: err}
	}
	return result, nil
}
