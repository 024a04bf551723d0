package runtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/graph"
	"github.com/panjf2000/ants/v2"
)

// Pool bounds how many background runs execute at once.
type Pool struct {
	pool *ants.Pool
	wg   sync.WaitGroup
}

// NewPool creates a pool running at most size runs concurrently.
func NewPool(size int) (*Pool, error) {
	p, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create run worker pool: %w", err)
	}
	return &Pool{pool: p}, nil
}

// Go submits task. It blocks while the pool is saturated.
func (p *Pool) Go(task func()) error {
	p.wg.Add(1)
	err := p.pool.Submit(func() {
		defer p.wg.Done()
		task()
	})
	if err != nil {
		p.wg.Done()
		return fmt.Errorf("failed to submit run: %w", err)
	}
	return nil
}

// Running returns the number of busy workers.
func (p *Pool) Running() int {
	return p.pool.Running()
}

// Close waits for submitted runs to finish and releases the workers.
func (p *Pool) Close() {
	p.wg.Wait()
	p.pool.Release()
}

// Start executes the run in the background and returns a channel closed once
// the run is terminal.
//
// Background runs are detached from ctx cancellation: cancelling the caller's
// context does not stop a run that was already accepted.
func (x *Executor) Start(ctx context.Context, g *graph.Graph, run *domain.Run) (<-chan struct{}, error) {
	done := make(chan struct{})
	detached := context.WithoutCancel(ctx)
	task := func() {
		defer close(done)
		x.Run(detached, g, run)
	}

	if x.pool == nil {
		go task()
		return done, nil
	}
	if err := x.pool.Go(task); err != nil {
		return nil, err
	}
	return done, nil
}
