// Copyright (C) 2024 right-sizer contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package retry provides exponential-backoff retry, used by the bus
// adapter to re-dial a dropped telemetry stream. The control loop's
// own per-tick errors are NOT retried here: they are recovered
// locally and left for the next tick, which re-diffs against current
// state on its own.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"autoscalerd/logger"
)

// RetryableError distinguishes errors worth retrying from permanent
// ones.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (r *RetryableError) Error() string { return r.Err.Error() }

// IsRetryable reports whether the error can be retried.
func (r *RetryableError) IsRetryable() bool { return r.Retryable }

// NewRetryableError wraps err with a retryability flag.
func NewRetryableError(err error, retryable bool) *RetryableError {
	return &RetryableError{Err: err, Retryable: retryable}
}

// Config holds retry/backoff parameters.
type Config struct {
	MaxRetries          int
	InitialDelay        time.Duration
	MaxDelay            time.Duration
	BackoffFactor       float64
	RandomizationFactor float64
	Timeout             time.Duration
}

// DefaultConfig returns a default retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries:          3,
		InitialDelay:        100 * time.Millisecond,
		MaxDelay:            10 * time.Second,
		BackoffFactor:       2.0,
		RandomizationFactor: 0.1,
		Timeout:             30 * time.Second,
	}
}

// Recorder observes retry attempts for a named operation, so callers
// can surface retry churn as metrics without this package depending
// on any particular sink implementation.
type Recorder interface {
	RecordRetryAttempt(operation string, attempt int)
	RecordRetrySuccess(operation string)
}

// Func is a function that can be retried.
type Func func() error

// FuncWithContext is a function that can be retried with a context.
type FuncWithContext func(ctx context.Context) error

// Retryer executes operations with exponential backoff.
type Retryer struct {
	config   Config
	recorder Recorder
}

// New creates a Retryer. recorder may be nil.
func New(config Config, recorder Recorder) *Retryer {
	return &Retryer{config: config, recorder: recorder}
}

// Do executes fn with retry logic.
func (r *Retryer) Do(operation string, fn Func) error {
	return r.DoWithContext(context.Background(), operation, func(ctx context.Context) error {
		return fn()
	})
}

// DoWithContext executes fn with retry logic and a context.
func (r *Retryer) DoWithContext(ctx context.Context, operation string, fn FuncWithContext) error {
	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	delay := r.config.InitialDelay
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if r.recorder != nil {
			r.recorder.RecordRetryAttempt(operation, attempt+1)
		}

		err := fn(ctx)
		if err == nil {
			if attempt > 0 && r.recorder != nil {
				r.recorder.RecordRetrySuccess(operation)
				logger.Info("operation %s succeeded after %d retries", operation, attempt)
			}
			return nil
		}
		lastErr = err

		if retryableErr, ok := err.(*RetryableError); ok && !retryableErr.IsRetryable() {
			logger.Warn("operation %s failed with non-retryable error: %v", operation, err)
			return err
		}

		if attempt >= r.config.MaxRetries {
			logger.Error("operation %s failed after %d attempts: %v", operation, attempt+1, err)
			break
		}

		select {
		case <-ctx.Done():
			logger.Warn("operation %s canceled during retry attempt %d", operation, attempt+1)
			return ctx.Err()
		default:
		}

		nextDelay := r.calculateDelay(delay, attempt)
		logger.Debug("operation %s failed (attempt %d/%d), retrying in %v: %v",
			operation, attempt+1, r.config.MaxRetries+1, nextDelay, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(nextDelay):
		}

		delay = time.Duration(float64(delay) * r.config.BackoffFactor)
		if delay > r.config.MaxDelay {
			delay = r.config.MaxDelay
		}
	}

	return fmt.Errorf("operation %s failed after %d attempts: %w", operation, r.config.MaxRetries+1, lastErr)
}

// calculateDelay caps baseDelay at MaxDelay and applies jitter.
// DoWithContext already advances baseDelay by BackoffFactor after each
// attempt, so it is not scaled again here.
func (r *Retryer) calculateDelay(baseDelay time.Duration, attempt int) time.Duration {
	delay := baseDelay
	if delay > r.config.MaxDelay {
		delay = r.config.MaxDelay
	}

	if r.config.RandomizationFactor > 0 {
		jitter := float64(delay) * r.config.RandomizationFactor * (rand.Float64()*2 - 1)
		delay = time.Duration(float64(delay) + jitter)
	}

	if delay < time.Millisecond {
		delay = time.Millisecond
	}
	return delay
}
