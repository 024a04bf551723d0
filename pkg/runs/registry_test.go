package runs_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/runs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("run-%03d", n)
	}
}

func TestRegistry_CreateAndGet(t *testing.T) {
	reg := runs.NewRegistry(memory.NewStore())
	ctx := context.Background()

	initial := domain.StateFrom(map[string]any{"code": "x = 1"})
	run, err := reg.Create(ctx, "review", initial)
	require.NoError(t, err)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "review", run.GraphID)
	assert.Equal(t, domain.StatusPending, run.Status)
	assert.False(t, run.CreatedAt.IsZero())

	// the caller's state is not shared with the record
	initial.Set("code", "changed")

	got, err := reg.Get(ctx, run.ID)
	require.NoError(t, err)
	code, _ := got.InitialState.Get("code")
	assert.Equal(t, "x = 1", code)
}

func TestRegistry_UniqueIDs(t *testing.T) {
	reg := runs.NewRegistry(memory.NewStore())
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		run, err := reg.Create(ctx, "g", nil)
		require.NoError(t, err)
		require.False(t, seen[run.ID], "duplicate id %s", run.ID)
		seen[run.ID] = true
	}
}

func TestRegistry_CreateRejectsCollision(t *testing.T) {
	reg := runs.NewRegistry(memory.NewStore(), runs.WithIDGenerator(func() string { return "fixed" }))
	ctx := context.Background()

	_, err := reg.Create(ctx, "g", nil)
	require.NoError(t, err)
	_, err = reg.Create(ctx, "g", nil)
	assert.Error(t, err)
}

func TestRegistry_GetUnknown(t *testing.T) {
	reg := runs.NewRegistry(memory.NewStore())
	_, err := reg.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestRegistry_ListOrderedByCreation(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	reg := runs.NewRegistry(memory.NewStore(),
		runs.WithIDGenerator(func() string { tick++; return fmt.Sprintf("z-%d", 10-tick) }),
		runs.WithClock(func() time.Time { return base.Add(time.Duration(tick) * time.Second) }),
	)
	ctx := context.Background()

	var want []string
	for i := 0; i < 3; i++ {
		run, err := reg.Create(ctx, "g", nil)
		require.NoError(t, err)
		want = append(want, run.ID)
	}

	list, err := reg.List(ctx)
	require.NoError(t, err)
	var got []string
	for _, r := range list {
		got = append(got, r.ID)
	}
	assert.Equal(t, want, got)
}

func TestRegistry_CheckpointAfterTerminalFails(t *testing.T) {
	reg := runs.NewRegistry(memory.NewStore())
	ctx := context.Background()

	run, err := reg.Create(ctx, "g", nil)
	require.NoError(t, err)

	run.Status = domain.StatusFailed
	require.NoError(t, reg.Checkpoint(ctx, run))

	run.Status = domain.StatusRunning
	assert.Error(t, reg.Checkpoint(ctx, run))

	got, err := reg.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, got.Status)
}

func TestRegistry_AwaitReleasedByCheckpoint(t *testing.T) {
	reg := runs.NewRegistry(memory.NewStore())
	ctx := context.Background()

	run, err := reg.Create(ctx, "g", nil)
	require.NoError(t, err)

	result := make(chan *domain.Run, 1)
	go func() {
		got, err := reg.Await(ctx, run.ID)
		assert.NoError(t, err)
		result <- got
	}()

	run.Status = domain.StatusRunning
	require.NoError(t, reg.Checkpoint(ctx, run))
	run.Status = domain.StatusCompleted
	require.NoError(t, reg.Checkpoint(ctx, run))

	select {
	case got := <-result:
		assert.Equal(t, domain.StatusCompleted, got.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("Await did not return after the run completed")
	}

	// awaiting a terminal run returns immediately
	got, err := reg.Await(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
}

func TestRegistry_AwaitHonoursContext(t *testing.T) {
	reg := runs.NewRegistry(memory.NewStore())
	run, err := reg.Create(context.Background(), "g", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = reg.Await(ctx, run.ID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRegistry_ConcurrentUpdatesAreSerialized(t *testing.T) {
	reg := runs.NewRegistry(memory.NewStore(), runs.WithIDGenerator(sequentialIDs()))
	ctx := context.Background()

	run, err := reg.Create(ctx, "g", domain.StateFrom(map[string]any{"count": 0}))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := reg.Update(ctx, run.ID, func(r *domain.Run) error {
				v, _ := r.State.Get("count")
				r.State.Set("count", v.(int)+1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := reg.Get(ctx, run.ID)
	require.NoError(t, err)
	count, _ := got.State.Get("count")
	assert.Equal(t, 50, count)
}
