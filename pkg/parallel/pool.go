package parallel

import (
	"context"
	"sync"
)

// mapConcurrent runs fn over items with at most workers goroutines running
// at once. Results are returned in input order regardless of completion
// order, which keeps downstream scoring deterministic.
func mapConcurrent[T, R any](ctx context.Context, items []T, workers int, fn func(context.Context, T) R) []R {
	if workers <= 0 {
		workers = len(items)
	}

	results := make([]R, len(items))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)
		go func(i int, item T) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = fn(ctx, item)
		}(i, item)
	}

	wg.Wait()
	return results
}
