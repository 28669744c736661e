// Package watcher polls a running execution until it ends
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirychukyurii/rundeck-bridge/internal/config"
	"github.com/kirychukyurii/rundeck-bridge/internal/model"
)

// ErrThresholdReached is returned when polling failed too many times in a row
var ErrThresholdReached = errors.New("execution watch failed threshold reached")

// ProgressSource fetches an execution with its progress estimates
type ProgressSource interface {
	ExecutionProgress(ctx context.Context, executionID string) (*model.RecordSet, error)
}

// Snapshot is one poll of a watched execution
type Snapshot struct {
	ExecutionID string
	Execution   model.Record
	Ended       bool
}

// Watcher polls executions on a fixed interval
type Watcher struct {
	cfg    config.WatchConfig
	source ProgressSource
	logger *slog.Logger
}

// New creates a new execution watcher
func New(cfg config.WatchConfig, source ProgressSource, logger *slog.Logger) *Watcher {
	return &Watcher{
		cfg:    cfg,
		source: source,
		logger: logger,
	}
}

// Watch polls the execution and passes every snapshot to onSnapshot until the
// execution ends, ctx is cancelled or FailedThreshold consecutive polls fail.
// The first poll happens immediately. It returns the final snapshot.
func (w *Watcher) Watch(ctx context.Context, executionID string, onSnapshot func(Snapshot)) (*Snapshot, error) {
	w.logger.Info("watching execution",
		slog.String("execution_id", executionID),
		slog.Duration("interval", w.cfg.Interval),
		slog.Int("failed_threshold", w.cfg.FailedThreshold),
	)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	failures := 0
	for {
		snapshot, err := w.poll(ctx, executionID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			failures++
			w.logger.Warn("execution poll failed",
				slog.String("execution_id", executionID),
				slog.Int("consecutive_failures", failures),
				slog.String("error", err.Error()),
			)
			if failures >= w.cfg.FailedThreshold {
				return nil, fmt.Errorf("%w after %d attempts: %w", ErrThresholdReached, failures, err)
			}
		} else {
			failures = 0
			if onSnapshot != nil {
				onSnapshot(*snapshot)
			}
			if snapshot.Ended {
				w.logger.Info("execution ended",
					slog.String("execution_id", executionID),
					slog.String("status", snapshot.Execution.Text(model.KeyStatus)),
				)
				return snapshot, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}
}

func (w *Watcher) poll(ctx context.Context, executionID string) (*Snapshot, error) {
	executions, err := w.source.ExecutionProgress(ctx, executionID)
	if err != nil {
		return nil, err
	}

	execution, ok := executions.Get(executionID)
	if !ok {
		return nil, fmt.Errorf("execution %s missing from response", executionID)
	}

	return &Snapshot{
		ExecutionID: executionID,
		Execution:   execution,
		Ended:       execution.Has(model.KeyDateEnded),
	}, nil
}
