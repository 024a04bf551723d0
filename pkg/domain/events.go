package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventRunStart   EventType = "run_start"
	EventRunFinish  EventType = "run_finish"
	EventNodeEnter  EventType = "node_enter"
	EventNodeLeave  EventType = "node_leave"
	EventToolCall   EventType = "tool_call"
	EventToolReturn EventType = "tool_return"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id,omitempty"`
	GraphID   string    `json:"graph_id,omitempty"`
}

// RunEvent marks the start or the end of a run.
type RunEvent struct {
	EventBase
	Status   RunStatus     `json:"status"`
	Steps    int           `json:"steps,omitempty"`
	Duration time.Duration `json:"duration_ns,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// NodeEvent represents entry or exit from a node.
type NodeEvent struct {
	EventBase
	NodeID    string        `json:"node_id"`
	NodeKind  NodeKind      `json:"node_kind"`
	Iteration int           `json:"iteration,omitempty"`
	Next      string        `json:"next,omitempty"`
	Duration  time.Duration `json:"duration_ns,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// ToolEvent represents a tool execution.
type ToolEvent struct {
	EventBase
	NodeID   string        `json:"node_id,omitempty"`
	ToolName string        `json:"tool_name"`
	Input    any           `json:"input,omitempty"`
	Output   any           `json:"output,omitempty"`
	IsError  bool          `json:"is_error,omitempty"`
	Duration time.Duration `json:"duration_ns,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
// Every field is optional. Hooks run synchronously on the run's goroutine.
type LifecycleHooks struct {
	OnRunStart   func(context.Context, *RunEvent)
	OnRunFinish  func(context.Context, *RunEvent)
	OnNodeEnter  func(context.Context, *NodeEvent)
	OnNodeLeave  func(context.Context, *NodeEvent)
	OnToolCall   func(context.Context, *ToolEvent)
	OnToolReturn func(context.Context, *ToolEvent)
}

// Execution identifies the run and node a piece of code executes under.
type Execution struct {
	RunID   string
	GraphID string
	NodeID  string
}

type executionKey struct{}

// WithExecution returns a context carrying exec. The executor sets it before
// every node so tools and hooks can correlate their work.
func WithExecution(ctx context.Context, exec Execution) context.Context {
	return context.WithValue(ctx, executionKey{}, exec)
}

// ExecutionFrom returns the execution carried by ctx, if any.
func ExecutionFrom(ctx context.Context) (Execution, bool) {
	exec, ok := ctx.Value(executionKey{}).(Execution)
	return exec, ok
}
