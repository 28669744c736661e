package concurrent_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirychukyurii/rundeck-bridge/internal/concurrent"
)

func TestMapWithLimit(t *testing.T) {
	ctx := context.Background()

	t.Run("should keep input order and never exceed the limit", func(t *testing.T) {
		var inFlight, peak atomic.Int32
		items := []int{1, 2, 3, 4, 5, 6, 7, 8}

		results := concurrent.MapWithLimit(ctx, items, func(ctx context.Context, n int) (int, error) {
			current := inFlight.Add(1)
			for {
				old := peak.Load()
				if current <= old || peak.CompareAndSwap(old, current) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
			return n * 10, nil
		}, 3)

		values, errs := concurrent.Collect(results)
		assert.Empty(t, errs)
		assert.Equal(t, []int{10, 20, 30, 40, 50, 60, 70, 80}, values)
		assert.LessOrEqual(t, peak.Load(), int32(3))
	})
	t.Run("should report errors per item", func(t *testing.T) {
		boom := errors.New("boom")

		results := concurrent.MapWithLimit(ctx, []string{"ok", "bad"}, func(ctx context.Context, s string) (string, error) {
			if s == "bad" {
				return "", boom
			}
			return s, nil
		}, 0)

		require.Len(t, results, 2)
		assert.Equal(t, 1, results[1].Index)
		assert.ErrorIs(t, concurrent.FirstError(results), boom)

		values, errs := concurrent.Collect(results)
		assert.Equal(t, []string{"ok"}, values)
		assert.Len(t, errs, 1)
	})
	t.Run("should not start items after cancellation", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		var calls atomic.Int32
		results := concurrent.MapWithLimit(cancelled, []int{1, 2, 3}, func(ctx context.Context, n int) (int, error) {
			calls.Add(1)
			return n, nil
		}, 1)

		for _, result := range results {
			if result.Error != nil {
				assert.ErrorIs(t, result.Error, context.Canceled)
			}
		}
		assert.LessOrEqual(t, calls.Load(), int32(3))
	})
}
