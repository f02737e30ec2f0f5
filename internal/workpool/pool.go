// Package workpool runs independent tasks on a bounded number of workers.
package workpool

import (
	"context"
	"runtime"
	"sync"
)

// Pool bounds the number of tasks running at once.
type Pool struct {
	workers int
}

// New creates a pool with n workers; n <= 0 uses one worker per CPU.
func New(n int) *Pool {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return &Pool{workers: n}
}

// Workers returns the worker count.
func (p *Pool) Workers() int {
	return p.workers
}

// Result is the outcome of one task.
type Result[R any] struct {
	Value R
	Err   error
}

// Map runs fn for every item and waits for all of them. Results keep the
// order of items. A failing task does not stop its siblings; tasks not yet
// started when ctx is done fail with the context error.
func Map[T, R any](ctx context.Context, p *Pool, items []T, fn func(ctx context.Context, item T) (R, error)) []Result[R] {
	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results
	}

	jobs := make(chan int, len(items))
	for i := range items {
		jobs <- i
	}
	close(jobs)

	workers := p.workers
	if workers > len(items) {
		workers = len(items)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					results[i].Err = err
					continue
				}
				results[i].Value, results[i].Err = fn(ctx, items[i])
			}
		}()
	}
	wg.Wait()
	return results
}
