// Package poller implements the generic wait-until-condition engine used by
// every scenario. A single implementation guarantees uniform timeout
// semantics instead of per-resource wait loops.
package poller

import (
	"context"
	"fmt"
	"math"
	"time"
)

// WaitSpec configures one poll operation.
type WaitSpec struct {
	// Interval is the sleep between fetch attempts.
	Interval time.Duration

	// Timeout is the base timeout before environment scaling.
	Timeout time.Duration

	// Multiplier scales Timeout. Zero means 1.0 so a zero-value spec with
	// Interval and Timeout set is usable as-is.
	Multiplier float64

	// Warnf, when set, receives a line per transient fetch failure so flaky
	// reads stay visible instead of being hidden by the retry loop.
	Warnf func(format string, args ...interface{})
}

// Validate checks the WaitSpec invariants: interval positive and strictly
// less than the timeout, scaled timeout positive and finite.
func (s WaitSpec) Validate() error {
	if s.Interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", s.Interval)
	}
	if s.Interval >= s.Timeout {
		return fmt.Errorf("poll interval %s must be less than timeout %s", s.Interval, s.Timeout)
	}
	scaled := s.scaledTimeout()
	if scaled <= 0 || scaled == time.Duration(math.MaxInt64) {
		return fmt.Errorf("scaled timeout %s (multiplier %v) is not positive and finite", scaled, s.Multiplier)
	}
	return nil
}

func (s WaitSpec) scaledTimeout() time.Duration {
	m := s.Multiplier
	if m == 0 {
		m = 1
	}
	scaled := float64(s.Timeout) * m
	if math.IsNaN(scaled) || math.IsInf(scaled, 0) || scaled > float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(scaled)
}

// TimeoutError reports that the condition never became true within the
// scaled timeout. It carries the last observed value for diagnostics.
type TimeoutError struct {
	LastValue interface{}
	Elapsed   time.Duration
	Attempts  int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("condition not met after %s (%d attempts, last observed: %v)",
		e.Elapsed.Round(time.Millisecond), e.Attempts, e.LastValue)
}

// WaitUntil repeatedly fetches a value and evaluates done on it until done
// returns true, the scaled timeout expires, or the fetch keeps failing.
//
// The first check happens immediately, so a condition that already holds
// returns without sleeping. Fetch errors are treated as transient and
// retried; only when the final attempt itself errored is that error
// surfaced instead of a bare timeout, distinguishing "never became ready"
// from "could not even be queried".
func WaitUntil[T any](ctx context.Context, spec WaitSpec, fetch func(context.Context) (T, error), done func(T) bool) (T, error) {
	var zero T
	if err := spec.Validate(); err != nil {
		return zero, fmt.Errorf("invalid wait spec: %w", err)
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, spec.scaledTimeout())
	defer cancel()

	var last T
	var lastErr error
	attempts := 0

	attempt := func() (T, bool) {
		attempts++
		v, err := fetch(ctx)
		if err != nil {
			lastErr = err
			if spec.Warnf != nil {
				spec.Warnf("poll attempt %d failed: %v", attempts, err)
			}
			return zero, false
		}
		last, lastErr = v, nil
		return v, done(v)
	}

	if v, ok := attempt(); ok {
		return v, nil
	}

	ticker := time.NewTicker(spec.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if lastErr != nil {
				return zero, fmt.Errorf("condition could not be checked after %s (%d attempts): %w",
					time.Since(start).Round(time.Millisecond), attempts, lastErr)
			}
			return zero, &TimeoutError{LastValue: last, Elapsed: time.Since(start), Attempts: attempts}
		case <-ticker.C:
			if v, ok := attempt(); ok {
				return v, nil
			}
		}
	}
}
