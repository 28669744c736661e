package repository

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kirychukyurii/rundeck-bridge/internal/model"
)

const (
	defaultTailLines = 3
	failedTailLines  = 1000
)

// progressMarker is the marker scripts print to report their own progress
var progressMarker = regexp.MustCompile(`(?i)\[PROGRESS: ([0-9]+)%\]`)

// GetExecutionWithProgress returns the execution with two completion estimates and
// the tail of its output. Finished executions report 100 for both; running ones are
// estimated from the job's average duration and from progress markers in the output.
func (c *Client) GetExecutionWithProgress(ctx context.Context, executionID string) (*model.RecordSet, error) {
	executions, err := c.GetExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}

	executions.Each(func(id string, execution model.Record) bool {
		err = c.attachProgress(ctx, id, execution)
		return err == nil
	})
	if err != nil {
		return nil, err
	}

	return executions, nil
}

func (c *Client) attachProgress(ctx context.Context, id string, execution model.Record) error {
	if execution.Has(model.KeyDateEnded) {
		lines := defaultTailLines
		if execution.Has(model.KeyFailedNodes) {
			lines = failedTailLines
		}

		tail, err := c.tail(ctx, id, lines)
		if err != nil {
			return err
		}

		execution[model.KeyPercentOnAverageDuration] = 100
		execution[model.KeyPercentOnOutputAnalysis] = 100
		execution[model.KeyTail] = tail
		return nil
	}

	started, err := startedAt(execution)
	if err != nil {
		return &ParseError{Path: "/api/1/execution/" + id, Reason: err.Error()}
	}

	tail, err := c.tail(ctx, id, defaultTailLines)
	if err != nil {
		return err
	}

	elapsed := c.now().Unix() - started.Unix()
	average, _ := strconv.ParseFloat(execution.Nested(model.KeyJob).Text(model.KeyAverageDuration), 64)

	execution[model.KeyPercentOnAverageDuration] = PercentOnAverageDuration(elapsed, average)
	execution[model.KeyPercentOnOutputAnalysis] = PercentFromOutput(tail)
	execution[model.KeyTail] = tail

	return nil
}

func (c *Client) tail(ctx context.Context, executionID string, lines int) (string, error) {
	return c.GetExecutionOutput(ctx, executionID, url.Values{"lastlines": {strconv.Itoa(lines)}})
}

// PercentOnAverageDuration estimates completion from elapsed seconds and the
// job's average duration in milliseconds. Without an average it returns 0.
func PercentOnAverageDuration(elapsedSeconds int64, averageMillis float64) int {
	if averageMillis <= 0 {
		return 0
	}

	percent := math.Floor(100 * float64(elapsedSeconds) / (averageMillis / 1000))
	return int(math.Max(0, math.Min(percent, 100)))
}

// PercentFromOutput returns the value of the [PROGRESS: n%] marker on the last line
// carrying one, or 0. Only the first marker of a line counts.
func PercentFromOutput(output string) int {
	percent := 0
	for _, line := range strings.Split(output, "\n") {
		m := progressMarker.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil {
			percent = n
		}
	}
	return percent
}

// startedAt reads date-started as RFC 3339, falling back to its unixtime attribute
func startedAt(execution model.Record) (time.Time, error) {
	if text := execution.Text(model.KeyDateStarted); text != "" {
		if t, err := time.Parse(time.RFC3339, text); err == nil {
			return t, nil
		}
	}

	if ms, err := strconv.ParseInt(execution.Attribute(model.KeyDateStarted, "unixtime"), 10, 64); err == nil {
		return time.UnixMilli(ms), nil
	}

	return time.Time{}, fmt.Errorf("execution has no parseable %s", model.KeyDateStarted)
}
