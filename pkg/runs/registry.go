package runs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/google/uuid"
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Registry orchestrates run records, ensuring safe concurrent operations.
// It uses reference counting to garbage collect unused locks.
type Registry struct {
	store ports.RunStore

	mu    sync.Mutex            // guards locks and done
	locks map[string]*lockEntry // active per-run locks
	done  map[string]chan struct{}

	newID  func() string
	now    func() time.Time
	logger *slog.Logger
}

// Option configures the Registry.
type Option func(*Registry)

// WithLogger configures a logger for the Registry.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithIDGenerator overrides how run IDs are generated.
func WithIDGenerator(fn func() string) Option {
	return func(r *Registry) {
		r.newID = fn
	}
}

// WithClock overrides the time source used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry creates a run registry backed by store.
func NewRegistry(store ports.RunStore, opts ...Option) *Registry {
	r := &Registry{
		store:  store,
		locks:  make(map[string]*lockEntry),
		done:   make(map[string]chan struct{}),
		newID:  uuid.NewString,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(runID) after unlocking.
func (r *Registry) acquire(runID string) *lockEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.locks[runID]
	if !exists {
		entry = &lockEntry{}
		r.locks[runID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (r *Registry) release(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.locks[runID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(r.locks, runID)
	}
}

// WithLock executes fn while holding the lock for the run.
func (r *Registry) WithLock(ctx context.Context, runID string, fn func(context.Context) error) error {
	entry := r.acquire(runID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		r.release(runID)
	}()
	return fn(ctx)
}

// Create registers a new pending run for graphID and returns a copy of it.
// A nil initial state is treated as empty.
func (r *Registry) Create(ctx context.Context, graphID string, initial *domain.State) (*domain.Run, error) {
	if initial == nil {
		initial = domain.NewState()
	}
	run := &domain.Run{
		ID:           r.newID(),
		GraphID:      graphID,
		Status:       domain.StatusPending,
		InitialState: initial.Clone(),
		State:        initial.Clone(),
		CreatedAt:    r.now(),
	}

	err := r.WithLock(ctx, run.ID, func(ctx context.Context) error {
		if _, err := r.store.Load(ctx, run.ID); err == nil {
			return fmt.Errorf("run %q already exists", run.ID)
		} else if !errors.Is(err, domain.ErrRunNotFound) {
			return fmt.Errorf("failed to check run existence: %w", err)
		}
		if err := r.store.Save(ctx, run); err != nil {
			return fmt.Errorf("failed to create run: %w", err)
		}
		r.mu.Lock()
		r.done[run.ID] = make(chan struct{})
		r.mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.DebugContext(ctx, "run created", "run_id", run.ID, "graph", graphID)
	return run.Clone(), nil
}

// Get returns a snapshot of the run. Returns domain.ErrRunNotFound when unknown.
func (r *Registry) Get(ctx context.Context, runID string) (*domain.Run, error) {
	var run *domain.Run
	err := r.WithLock(ctx, runID, func(ctx context.Context) error {
		var err error
		run, err = r.store.Load(ctx, runID)
		return err
	})
	return run, err
}

// List returns every run, oldest first.
func (r *Registry) List(ctx context.Context) ([]*domain.Run, error) {
	return r.store.List(ctx)
}

// Checkpoint persists the executor's view of a run. Waiters are released
// once a terminal status is recorded.
func (r *Registry) Checkpoint(ctx context.Context, run *domain.Run) error {
	err := r.WithLock(ctx, run.ID, func(ctx context.Context) error {
		prev, err := r.store.Load(ctx, run.ID)
		if err != nil {
			return err
		}
		if prev.Status.IsTerminal() {
			return fmt.Errorf("run %q is already %s", run.ID, prev.Status)
		}
		return r.store.Save(ctx, run)
	})
	if err != nil {
		return err
	}
	if run.Status.IsTerminal() {
		r.signal(run.ID)
	}
	return nil
}

// Update applies fn to the stored record under the run lock.
func (r *Registry) Update(ctx context.Context, runID string, fn func(*domain.Run) error) error {
	var terminal bool
	err := r.WithLock(ctx, runID, func(ctx context.Context) error {
		run, err := r.store.Load(ctx, runID)
		if err != nil {
			return err
		}
		if err := fn(run); err != nil {
			return err
		}
		terminal = run.Status.IsTerminal()
		return r.store.Save(ctx, run)
	})
	if err == nil && terminal {
		r.signal(runID)
	}
	return err
}

// Delete removes a run. Waiters are released.
func (r *Registry) Delete(ctx context.Context, runID string) error {
	err := r.WithLock(ctx, runID, func(ctx context.Context) error {
		return r.store.Delete(ctx, runID)
	})
	r.signal(runID)
	return err
}

// Await blocks until the run is terminal or ctx is done, then returns a
// snapshot of it.
func (r *Registry) Await(ctx context.Context, runID string) (*domain.Run, error) {
	r.mu.Lock()
	ch, pending := r.done[runID]
	r.mu.Unlock()

	if pending {
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return r.Get(ctx, runID)
}

func (r *Registry) signal(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.done[runID]; ok {
		close(ch)
		delete(r.done, runID)
	}
}

// Store returns the underlying run store.
func (r *Registry) Store() ports.RunStore {
	return r.store
}
