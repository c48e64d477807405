// Package runner executes batches of queries against the engine with a
// bounded concurrency level.
package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/ragweave/ragweave/engine"
)

// Asker answers one query. Satisfied by *engine.Engine.
type Asker interface {
	Ask(ctx context.Context, query string) (*engine.Result, error)
}

// Runner bounds how many queries run at once.
type Runner struct {
	asker     Asker
	semaphore chan struct{}
}

// New creates a runner over the given engine.
func New(asker Asker, maxConcurrency int) *Runner {
	if maxConcurrency <= 0 {
		maxConcurrency = 10
	}
	return &Runner{
		asker:     asker,
		semaphore: make(chan struct{}, maxConcurrency),
	}
}

// Run answers a single query, waiting for a concurrency slot first.
func (r *Runner) Run(ctx context.Context, query string) (*engine.Result, error) {
	select {
	case r.semaphore <- struct{}{}:
		defer func() { <-r.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return r.asker.Ask(ctx, query)
}

// Task is one query in a batch.
type Task struct {
	ID    string
	Query string
}

// Result pairs a task with its outcome.
type Result struct {
	TaskID string
	Result *engine.Result
	Error  error
}

// RunBatch answers all tasks concurrently, each under the runner's
// concurrency bound. Results are returned in task order.
func (r *Runner) RunBatch(ctx context.Context, tasks []*Task) []*Result {
	results := make([]*Result, len(tasks))
	var wg sync.WaitGroup

	for i, task := range tasks {
		wg.Add(1)
		go func(index int, t *Task) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					results[index] = &Result{
						TaskID: t.ID,
						Error:  fmt.Errorf("panic in task %s: %v", t.ID, rec),
					}
				}
			}()

			res, err := r.Run(ctx, t.Query)
			results[index] = &Result{
				TaskID: t.ID,
				Result: res,
				Error:  err,
			}
		}(i, task)
	}

	wg.Wait()
	return results
}
