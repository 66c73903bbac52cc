// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package retry provides a bounded, context-aware retry combinator.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
var ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

type settings struct {
	backoff bool
	logger  *slog.Logger
}

// Option configures a retry loop.
type Option func(*settings)

// WithBackoff doubles the delay after every failed attempt.
func WithBackoff() Option {
	return func(s *settings) {
		s.backoff = true
	}
}

// WithLogger sets the logger used for retry diagnostics.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Do calls operation up to maxAttempts times, waiting delay between attempts.
// It returns the first successful value, or the error from the last attempt.
// The wait is abandoned when ctx is done, in which case ctx.Err() is returned.
func Do[T any](ctx context.Context, maxAttempts int, delay time.Duration, operation func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	var zero T
	if maxAttempts <= 0 {
		return zero, ErrInvalidMaxAttempts
	}

	s := settings{logger: slog.Default()}
	for _, opt := range opts {
		opt(&s)
	}

	var lastErr error
	wait := delay
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		// Check context before attempting
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		value, err := operation(ctx)
		if err == nil {
			if attempt > 1 {
				s.logger.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return value, nil
		}
		lastErr = err

		s.logger.Debug("operation failed", "attempt", attempt, "maxAttempts", maxAttempts, "err", err)

		if attempt == maxAttempts {
			break
		}

		if err := sleep(ctx, wait); err != nil {
			return zero, err
		}
		if s.backoff {
			wait *= 2
		}
	}

	return zero, lastErr
}

// DoErr is Do for operations that produce no value.
func DoErr(ctx context.Context, maxAttempts int, delay time.Duration, operation func(ctx context.Context) error, opts ...Option) error {
	_, err := Do(ctx, maxAttempts, delay, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, operation(ctx)
	}, opts...)
	return err
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
