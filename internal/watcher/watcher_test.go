package watcher_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirychukyurii/rundeck-bridge/internal/config"
	"github.com/kirychukyurii/rundeck-bridge/internal/model"
	"github.com/kirychukyurii/rundeck-bridge/internal/watcher"
)

// scriptedSource replays one response per poll and then repeats the last
type scriptedSource struct {
	steps []func() (*model.RecordSet, error)
	polls int
}

func (s *scriptedSource) ExecutionProgress(context.Context, string) (*model.RecordSet, error) {
	step := s.steps[min(s.polls, len(s.steps)-1)]
	s.polls++
	return step()
}

func running(percent int) func() (*model.RecordSet, error) {
	return func() (*model.RecordSet, error) {
		set := model.NewRecordSet()
		set.Put("42", model.Record{"id": "42", "status": "running", model.KeyPercentOnAverageDuration: percent})
		return set, nil
	}
}

func ended() (*model.RecordSet, error) {
	set := model.NewRecordSet()
	set.Put("42", model.Record{"id": "42", "status": "succeeded", model.KeyDateEnded: "2024-03-01T10:01:00Z", model.KeyPercentOnAverageDuration: 100})
	return set, nil
}

func failing() (*model.RecordSet, error) {
	return nil, errors.New("connection refused")
}

func newWatcher(source watcher.ProgressSource) *watcher.Watcher {
	return watcher.New(
		config.WatchConfig{Interval: time.Millisecond, FailedThreshold: 3},
		source,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func TestWatch(t *testing.T) {
	ctx := context.Background()

	t.Run("should report snapshots until the execution ends", func(t *testing.T) {
		source := &scriptedSource{steps: []func() (*model.RecordSet, error){running(10), running(60), ended}}
		var seen []any

		final, err := newWatcher(source).Watch(ctx, "42", func(s watcher.Snapshot) {
			seen = append(seen, s.Execution[model.KeyPercentOnAverageDuration])
		})
		require.NoError(t, err)

		assert.True(t, final.Ended)
		assert.Equal(t, "succeeded", final.Execution.Text(model.KeyStatus))
		assert.Equal(t, []any{10, 60, 100}, seen)
	})
	t.Run("should tolerate failures below the threshold", func(t *testing.T) {
		source := &scriptedSource{steps: []func() (*model.RecordSet, error){failing, failing, running(10), failing, failing, ended}}

		final, err := newWatcher(source).Watch(ctx, "42", nil)
		require.NoError(t, err)
		assert.True(t, final.Ended)
		assert.Equal(t, 6, source.polls)
	})
	t.Run("should stop after consecutive failures", func(t *testing.T) {
		source := &scriptedSource{steps: []func() (*model.RecordSet, error){running(10), failing}}

		_, err := newWatcher(source).Watch(ctx, "42", nil)

		assert.ErrorIs(t, err, watcher.ErrThresholdReached)
		assert.Contains(t, err.Error(), "connection refused")
		assert.Equal(t, 4, source.polls)
	})
	t.Run("should stop when the context is cancelled", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		source := &scriptedSource{steps: []func() (*model.RecordSet, error){running(10)}}

		_, err := newWatcher(source).Watch(cancelled, "42", func(watcher.Snapshot) { cancel() })

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, source.polls)
	})
	t.Run("should treat a missing execution as a failure", func(t *testing.T) {
		source := &scriptedSource{steps: []func() (*model.RecordSet, error){
			func() (*model.RecordSet, error) { return model.NewRecordSet(), nil },
		}}

		_, err := newWatcher(source).Watch(ctx, "42", nil)

		assert.ErrorIs(t, err, watcher.ErrThresholdReached)
		assert.Contains(t, err.Error(), "missing from response")
	})
}
