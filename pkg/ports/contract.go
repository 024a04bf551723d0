package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunRunStoreContract runs a suite of tests to verify that a RunStore
// implementation adheres to the defined interface contract.
func RunRunStoreContract(t *testing.T, store RunStore) {
	ctx := context.Background()
	runID := "contract-test-run-" + time.Now().Format("20060102150405.000000000")

	newRun := func(id string, created time.Time) *domain.Run {
		s := domain.NewState()
		s.Set("code", "def foo(): pass")
		s.Set("threshold", 7.0)
		return &domain.Run{
			ID:           id,
			GraphID:      "contract-graph",
			Status:       domain.StatusPending,
			InitialState: s,
			State:        s.Clone(),
			CreatedAt:    created,
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		run := newRun(runID, time.Now().UTC())
		run.Log = []domain.LogEntry{{Seq: 1, NodeID: "a", Kind: domain.KindFunction, Input: run.State.Clone()}}

		require.NoError(t, store.Save(ctx, run), "Save should not return error")

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, run.GraphID, loaded.GraphID)
		assert.Equal(t, domain.StatusPending, loaded.Status)
		assert.Equal(t, []string{"code", "threshold"}, loaded.State.Keys())
		require.Len(t, loaded.Log, 1)
		assert.Equal(t, "a", loaded.Log[0].NodeID)
	})

	t.Run("Isolation", func(t *testing.T) {
		run := newRun(runID+"-iso", time.Now().UTC())
		require.NoError(t, store.Save(ctx, run))
		defer func() { _ = store.Delete(ctx, run.ID) }()

		// mutating the saved value does not leak into the store
		run.State.Set("code", "mutated")
		run.Status = domain.StatusFailed

		loaded, err := store.Load(ctx, run.ID)
		require.NoError(t, err)
		code, _ := loaded.State.Get("code")
		assert.Equal(t, "def foo(): pass", code)
		assert.Equal(t, domain.StatusPending, loaded.Status)

		// mutating a loaded value does not leak either
		loaded.State.Set("code", "mutated again")
		again, err := store.Load(ctx, run.ID)
		require.NoError(t, err)
		code, _ = again.State.Get("code")
		assert.Equal(t, "def foo(): pass", code)
	})

	t.Run("Overwrite", func(t *testing.T) {
		run := newRun(runID, time.Now().UTC())
		run.Status = domain.StatusCompleted
		require.NoError(t, store.Save(ctx, run))

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCompleted, loaded.Status)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, newRun(runID, time.Now().UTC())))

		require.NoError(t, store.Delete(ctx, runID), "Delete should not return error")

		_, err := store.Load(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound, "Load after Delete should return ErrRunNotFound")
		assert.NoError(t, store.Delete(ctx, runID), "Delete of a missing run should not fail")
	})

	t.Run("List", func(t *testing.T) {
		base := time.Now().UTC()
		id1, id2 := runID+"-1", runID+"-2"
		require.NoError(t, store.Save(ctx, newRun(id2, base.Add(time.Second))))
		require.NoError(t, store.Save(ctx, newRun(id1, base)))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		runs, err := store.List(ctx)
		require.NoError(t, err)

		pos := map[string]int{}
		for i, r := range runs {
			pos[r.ID] = i
		}
		require.Contains(t, pos, id1)
		require.Contains(t, pos, id2)
		assert.Less(t, pos[id1], pos[id2], "List should order by creation time")
	})
}
