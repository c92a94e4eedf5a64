// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/apisegura/internal/platform/apperr"
)

type failingCounter struct{ err error }

func (counter failingCounter) RecentFailures(context.Context, string, time.Time) (int, error) {
	return 0, counter.err
}

func (counter failingCounter) RecordFailure(context.Context, string, time.Time) error {
	return counter.err
}

func TestThrottle_Check(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	attempts := &memoryAttempts{}
	throttle := NewThrottle(attempts, nil, 3, 10*time.Minute).WithClock(clock.Now)

	for i := 0; i < 2; i++ {
		require.NoError(t, throttle.Record(ctx, testIP, "alice", false))
	}
	require.NoError(t, throttle.Record(ctx, testIP, "alice", true))
	assert.NoError(t, throttle.Check(ctx, testIP), "successes do not count")

	require.NoError(t, throttle.Record(ctx, testIP, "alice", false))
	err := throttle.Check(ctx, testIP)
	require.ErrorIs(t, err, apperr.ErrTooManyAttempts)
	assert.Equal(t, 10*time.Minute, apperr.As(err).RetryAfter)

	assert.NoError(t, throttle.Check(ctx, "198.51.100.1"))

	clock.Advance(10 * time.Minute)
	assert.NoError(t, throttle.Check(ctx, testIP), "failures older than the window are ignored")
}

func TestThrottle_Defaults(t *testing.T) {
	throttle := NewThrottle(&memoryAttempts{}, nil, 0, 0)

	assert.Equal(t, DefaultLoginWindow, throttle.Window())
	assert.Equal(t, DefaultMaxLoginAttempts, throttle.maxAttempts)
}

func TestThrottle_CounterFailure(t *testing.T) {
	ctx := context.Background()
	errBoom := errors.New("counter offline")
	throttle := NewThrottle(&memoryAttempts{}, failingCounter{err: errBoom}, 3, time.Minute)

	assert.ErrorIs(t, throttle.Check(ctx, testIP), errBoom)
	assert.ErrorIs(t, throttle.Record(ctx, testIP, "alice", false), errBoom)
	assert.NoError(t, throttle.Record(ctx, testIP, "alice", true))
}
