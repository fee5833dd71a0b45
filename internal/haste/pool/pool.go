// Package pool runs FileWorker invocations across a bounded set of
// goroutines, streaming results back out of order as they complete.
package pool

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Task is one unit of work: a relative file path to process.
type Task struct {
	Path string
}

// Outcome pairs a Task with its result. Exactly one of Result or Err is
// meaningful; which one depends on the caller's process function.
type Outcome[R any] struct {
	Task   Task
	Result R
	Err    error
}

// Config controls how a Run call is scheduled.
type Config struct {
	// Concurrency is the maximum number of tasks in flight. Zero or
	// negative defaults to the logical CPU count.
	Concurrency int
	// ForceInBand (or a Concurrency of exactly 1) runs every task
	// synchronously on the caller's goroutine before Run returns,
	// observable only by timing - used by tests and by small
	// file sets where spinning up workers costs more than it saves.
	ForceInBand bool
}

// Run dispatches tasks to process, at most Concurrency at a time, and
// streams an Outcome for each as it completes. The returned channel is
// closed once every task has produced an outcome or ctx is cancelled.
//
// Cancelling ctx stops pulling new tasks and lets in-flight ones finish;
// tasks never started do not appear on the channel.
func Run[R any](ctx context.Context, tasks []Task, process func(context.Context, Task) (R, error), cfg Config) <-chan Outcome[R] {
	out := make(chan Outcome[R], len(tasks))

	if len(tasks) == 0 {
		close(out)
		return out
	}

	if cfg.ForceInBand || cfg.Concurrency == 1 {
		// out is buffered for every task, so these sends never block.
		defer close(out)
		for _, task := range tasks {
			if ctx.Err() != nil {
				return out
			}
			res, err := process(ctx, task)
			out <- Outcome[R]{Task: task, Result: res, Err: err}
		}
		return out
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	if concurrency > len(tasks) {
		concurrency = len(tasks)
	}

	jobs := make(chan Task, len(tasks))
	for _, t := range tasks {
		jobs <- t
	}
	close(jobs)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < concurrency; i++ {
		g.Go(func() error {
			for task := range jobs {
				if gctx.Err() != nil {
					return nil
				}
				res, err := process(gctx, task)
				select {
				case out <- Outcome[R]{Task: task, Result: res, Err: err}:
				case <-gctx.Done():
					return nil
				}
			}
			return nil
		})
	}

	go func() {
		g.Wait()
		close(out)
	}()

	return out
}
