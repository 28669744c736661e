package cache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kirychukyurii/rundeck-bridge/internal/cache"
)

func TestTTLCache(t *testing.T) {
	t.Run("should return stored values until they expire", func(t *testing.T) {
		c := cache.New[[]string](50 * time.Millisecond)
		c.Set("billing:jobs", []string{"1", "2"})

		got, ok := c.Get("billing:jobs")
		assert.True(t, ok)
		assert.Equal(t, []string{"1", "2"}, got)

		assert.Eventually(t, func() bool {
			_, ok := c.Get("billing:jobs")
			return !ok
		}, time.Second, 10*time.Millisecond)
	})
	t.Run("should forget deleted and cleared keys", func(t *testing.T) {
		c := cache.New[int](time.Minute)
		c.Set("a", 1)
		c.Set("b", 2)

		c.Delete("a")
		_, ok := c.Get("a")
		assert.False(t, ok)

		c.Clear()
		_, ok = c.Get("b")
		assert.False(t, ok)
	})
	t.Run("should never hit when disabled", func(t *testing.T) {
		c := cache.New[int](0)
		c.Set("a", 1)

		_, ok := c.Get("a")
		assert.False(t, ok)
	})
}
