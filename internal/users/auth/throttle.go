// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/taibuivan/apisegura/internal/platform/apperr"
)

// FailureCounter tracks failed login attempts per source IP.
//
// The Postgres attempt log is always written; a counter only decides where the
// rolling-window count is answered from.
type FailureCounter interface {
	// RecentFailures counts failures for ipAddress strictly after since.
	RecentFailures(context context.Context, ipAddress string, since time.Time) (int, error)

	// RecordFailure notes one failure for ipAddress at the given instant.
	RecordFailure(context context.Context, ipAddress string, at time.Time) error
}

// attemptLogCounter answers counts straight from the login_attempts table.
type attemptLogCounter struct {
	attempts LoginAttemptRepository
}

// NewAttemptLogCounter returns a [FailureCounter] backed by the audit log.
func NewAttemptLogCounter(attempts LoginAttemptRepository) FailureCounter {
	return &attemptLogCounter{attempts: attempts}
}

func (counter *attemptLogCounter) RecentFailures(context context.Context, ipAddress string, since time.Time) (int, error) {
	return counter.attempts.CountRecentFailures(context, ipAddress, since)
}

// RecordFailure is a no-op; the row written by [Throttle.Record] is the record.
func (counter *attemptLogCounter) RecordFailure(context.Context, string, time.Time) error {
	return nil
}

// Throttle blocks login attempts from an IP once its failures within the
// rolling window reach the threshold.
type Throttle struct {
	attempts    LoginAttemptRepository
	counter     FailureCounter
	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

// NewThrottle constructs a [Throttle].
//
// A nil counter falls back to [NewAttemptLogCounter]. Non-positive limits fall
// back to [DefaultMaxLoginAttempts] and [DefaultLoginWindow].
func NewThrottle(attempts LoginAttemptRepository, counter FailureCounter, maxAttempts int, window time.Duration) *Throttle {
	if counter == nil {
		counter = NewAttemptLogCounter(attempts)
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxLoginAttempts
	}
	if window <= 0 {
		window = DefaultLoginWindow
	}
	return &Throttle{
		attempts:    attempts,
		counter:     counter,
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
	}
}

// WithClock returns the throttle with its time source replaced.
func (throttle *Throttle) WithClock(now func() time.Time) *Throttle {
	throttle.now = now
	return throttle
}

// Window returns the rolling window length.
func (throttle *Throttle) Window() time.Duration { return throttle.window }

/*
Check rejects the attempt when ipAddress already has maxAttempts failures in the window.

Returns:
  - error: apperr.TooManyAttempts with the window as retry hint, or counter failures
*/
func (throttle *Throttle) Check(context context.Context, ipAddress string) error {
	failures, err := throttle.counter.RecentFailures(context, ipAddress, throttle.now().Add(-throttle.window))
	if err != nil {
		return fmt.Errorf("auth_throttle_count_failed: %w", err)
	}

	if failures >= throttle.maxAttempts {
		return apperr.TooManyAttempts(throttle.window)
	}
	return nil
}

/*
Record appends the outcome to the audit log and, for failures, to the counter.

Successful attempts never clear failures already inside the window.
*/
func (throttle *Throttle) Record(context context.Context, ipAddress, username string, successful bool) error {
	attemptedAt := throttle.now()

	err := throttle.attempts.Record(context, LoginAttempt{
		IPAddress:   ipAddress,
		Username:    username,
		Successful:  successful,
		AttemptedAt: attemptedAt,
	})
	if err != nil {
		return fmt.Errorf("auth_throttle_record_failed: %w", err)
	}

	if successful {
		return nil
	}

	if err := throttle.counter.RecordFailure(context, ipAddress, attemptedAt); err != nil {
		return fmt.Errorf("auth_throttle_record_failure_failed: %w", err)
	}
	return nil
}
