package runtime

import (
	"context"

	"github.com/aretw0/tendril/pkg/domain"
)

func (x *Executor) base(run *domain.Run, t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: x.now(), Type: t, RunID: run.ID, GraphID: run.GraphID}
}

func (x *Executor) emitRunStart(ctx context.Context, run *domain.Run) {
	if x.hooks.OnRunStart == nil {
		return
	}
	x.hooks.OnRunStart(ctx, &domain.RunEvent{
		EventBase: x.base(run, domain.EventRunStart),
		Status:    run.Status,
	})
}

func (x *Executor) emitRunFinish(ctx context.Context, run *domain.Run) {
	if x.hooks.OnRunFinish == nil {
		return
	}
	ev := &domain.RunEvent{
		EventBase: x.base(run, domain.EventRunFinish),
		Status:    run.Status,
		Steps:     len(run.Log),
		Error:     run.Error,
	}
	if run.StartedAt != nil && run.CompletedAt != nil {
		ev.Duration = run.CompletedAt.Sub(*run.StartedAt)
	}
	x.hooks.OnRunFinish(ctx, ev)
}

func (x *Executor) emitNodeEnter(ctx context.Context, run *domain.Run, entry *domain.LogEntry) {
	if x.hooks.OnNodeEnter == nil {
		return
	}
	x.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
		EventBase: x.base(run, domain.EventNodeEnter),
		NodeID:    entry.NodeID,
		NodeKind:  entry.Kind,
		Iteration: entry.Iteration,
	})
}

func (x *Executor) emitNodeLeave(ctx context.Context, run *domain.Run, entry *domain.LogEntry) {
	if x.hooks.OnNodeLeave == nil {
		return
	}
	x.hooks.OnNodeLeave(ctx, &domain.NodeEvent{
		EventBase: x.base(run, domain.EventNodeLeave),
		NodeID:    entry.NodeID,
		NodeKind:  entry.Kind,
		Iteration: entry.Iteration,
		Next:      entry.Next,
		Duration:  entry.Duration,
		Error:     entry.Error,
	})
}
