package engine

import (
	"context"
	"sync"
)

// Pool is a small bounded worker pool providing cross-instance
// parallelism: each Instance still runs strictly sequentially through
// the Executor, but independent instances may be in flight at once,
// bounded by the pool's concurrency limit.
type Pool struct {
	jobs   chan func(context.Context)
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewPool starts size worker goroutines, each pulling jobs submitted via
// Submit. size is clamped to at least 1.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{jobs: make(chan func(context.Context), size*4), cancel: cancel}

	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case job, ok := <-p.jobs:
					if !ok {
						return
					}
					job(ctx)
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	return p
}

// Submit enqueues a unit of work, blocking if every worker is busy and
// the queue is full.
func (p *Pool) Submit(job func(ctx context.Context)) {
	p.jobs <- job
}

// Close stops accepting new work and waits for in-flight jobs to drain.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
	p.cancel()
}
