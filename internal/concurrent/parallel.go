// Package concurrent fans requests out over a bounded number of goroutines
package concurrent

import (
	"context"
	"sync"
)

// Result represents the result of a parallel operation
type Result[T any] struct {
	Value T
	Error error
	Index int // Original index in the input slice
}

// MapWithLimit calls fn for every item with at most maxConcurrent calls in flight
// and returns the results in input order. A non-positive limit runs all items at once.
// Items not yet started when ctx is cancelled fail with the context error.
func MapWithLimit[T any, R any](ctx context.Context, items []T, fn func(ctx context.Context, item T) (R, error), maxConcurrent int) []Result[R] {
	if maxConcurrent <= 0 {
		maxConcurrent = len(items)
	}

	results := make([]Result[R], len(items))
	semaphore := make(chan struct{}, max(maxConcurrent, 1))
	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)
		go func() {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-ctx.Done():
				results[i] = Result[R]{Error: ctx.Err(), Index: i}
				return
			}

			value, err := fn(ctx, item)
			results[i] = Result[R]{Value: value, Error: err, Index: i}
		}()
	}

	wg.Wait()
	return results
}

// Collect separates successful values from errors, keeping input order
func Collect[T any](results []Result[T]) (values []T, errs []error) {
	values = make([]T, 0, len(results))

	for _, result := range results {
		if result.Error != nil {
			errs = append(errs, result.Error)
			continue
		}
		values = append(values, result.Value)
	}

	return values, errs
}

// FirstError returns the first error from results, or nil if all succeeded
func FirstError[T any](results []Result[T]) error {
	for _, result := range results {
		if result.Error != nil {
			return result.Error
		}
	}
	return nil
}
