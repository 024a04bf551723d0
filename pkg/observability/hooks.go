package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/tendril/pkg/domain"
)

// Combine returns hooks that call every non-nil callback of hs in order.
func Combine(hs ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range hs {
		out.OnRunStart = chain(out.OnRunStart, h.OnRunStart)
		out.OnRunFinish = chain(out.OnRunFinish, h.OnRunFinish)
		out.OnNodeEnter = chain(out.OnNodeEnter, h.OnNodeEnter)
		out.OnNodeLeave = chain(out.OnNodeLeave, h.OnNodeLeave)
		out.OnToolCall = chain(out.OnToolCall, h.OnToolCall)
		out.OnToolReturn = chain(out.OnToolReturn, h.OnToolReturn)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}

// LogHooks logs every lifecycle event at debug level, and failed runs at warn.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunStart: func(ctx context.Context, e *domain.RunEvent) {
			logger.DebugContext(ctx, "run_start", "run_id", e.RunID, "graph", e.GraphID)
		},
		OnRunFinish: func(ctx context.Context, e *domain.RunEvent) {
			level := slog.LevelDebug
			if e.Status == domain.StatusFailed {
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, "run_finish",
				"run_id", e.RunID,
				"graph", e.GraphID,
				"status", e.Status,
				"steps", e.Steps,
				"duration", e.Duration,
				"error", e.Error,
			)
		},
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter", "run_id", e.RunID, "node_id", e.NodeID, "kind", e.NodeKind)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_leave", "run_id", e.RunID, "node_id", e.NodeID, "next", e.Next, "error", e.Error)
		},
		OnToolCall: func(ctx context.Context, e *domain.ToolEvent) {
			logger.DebugContext(ctx, "tool_call", "run_id", e.RunID, "tool_name", e.ToolName)
		},
		OnToolReturn: func(ctx context.Context, e *domain.ToolEvent) {
			logger.DebugContext(ctx, "tool_return", "run_id", e.RunID, "tool_name", e.ToolName, "is_error", e.IsError)
		},
	}
}
