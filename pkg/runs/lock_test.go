package runs

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/domain"
)

func TestRegistry_LockLifecycle(t *testing.T) {
	reg := NewRegistry(memory.NewStore())
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		id := fmt.Sprintf("run-%d", i)
		_ = reg.WithLock(ctx, id, func(context.Context) error { return nil })
		_, _ = reg.Get(ctx, id)
		_ = reg.Delete(ctx, id)
	}

	if n := len(reg.locks); n != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after Delete", n)
	}
}

func TestRegistry_DoneChannelReleasedOnTerminal(t *testing.T) {
	reg := NewRegistry(memory.NewStore())
	ctx := context.Background()

	run, err := reg.Create(ctx, "g", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(reg.done) != 1 {
		t.Fatalf("expected one pending waiter channel, got %d", len(reg.done))
	}

	run.Status = domain.StatusCompleted
	if err := reg.Checkpoint(ctx, run); err != nil {
		t.Fatal(err)
	}
	if len(reg.done) != 0 {
		t.Errorf("waiter channel leaked: %d remaining", len(reg.done))
	}
}
