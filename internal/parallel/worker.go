// Package parallel provides the worker pool used by the executor.
//
// Work is fanned out over a fixed number of goroutines and results are
// written back by index, so callers observe exactly the order of a
// sequential loop. The first failing item cancels the remaining work.
package parallel

import (
	"context"
	"runtime"
	"sync"
)

// WorkerPool manages a pool of goroutines for parallel processing
type WorkerPool struct {
	numWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewWorkerPool creates a new worker pool bound to ctx. A non-positive
// worker count uses runtime.NumCPU().
func NewWorkerPool(ctx context.Context, numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		numWorkers: numWorkers,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Workers returns the number of goroutines the pool runs.
func (wp *WorkerPool) Workers() int {
	return wp.numWorkers
}

// ProcessIndexed executes work items in parallel while preserving order. On
// failure it returns the error of the lowest-indexed failing item; results
// still holds whatever succeeded so the caller can release it. Items not yet
// started when a failure is seen are skipped.
func ProcessIndexed[T, R any](
	wp *WorkerPool,
	items []T,
	worker func(ctx context.Context, index int, item T) (R, error),
) ([]R, error) {
	if len(items) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(wp.ctx)
	defer cancel()

	// Channel for input items with index
	itemCh := make(chan indexedItem[T], len(items))
	for i, item := range items {
		itemCh <- indexedItem[T]{index: i, value: item}
	}
	close(itemCh)

	results := make([]R, len(items))
	errs := make([]error, len(items))

	var wg sync.WaitGroup
	for i := 0; i < min(wp.numWorkers, len(items)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range itemCh {
				if ctx.Err() != nil {
					errs[item.index] = ctx.Err()
					continue
				}
				result, err := worker(ctx, item.index, item.value)
				if err != nil {
					errs[item.index] = err
					cancel()
					continue
				}
				results[item.index] = result
			}
		}()
	}
	wg.Wait()

	var first error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if first == nil || first == context.Canceled {
			first = err
		}
		if err != context.Canceled {
			break
		}
	}
	return results, first
}

// Close shuts down the worker pool
func (wp *WorkerPool) Close() {
	wp.cancel()
}

// indexedItem holds an item with its index
type indexedItem[T any] struct {
	index int
	value T
}
