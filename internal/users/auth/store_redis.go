// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/apisegura/internal/platform/constants"
	"github.com/taibuivan/apisegura/pkg/uuid"
)

// RedisFailureCounter implements FailureCounter with one sorted set per IP.
//
// Members are unique IDs scored by attempt time in milliseconds. Each write
// trims entries older than the window and refreshes the key TTL, so idle IPs
// expire on their own.
type RedisFailureCounter struct {
	client redis.Cmdable
	window time.Duration
}

// NewRedisFailureCounter creates a new Redis-backed FailureCounter.
func NewRedisFailureCounter(client redis.Cmdable, window time.Duration) *RedisFailureCounter {
	if window <= 0 {
		window = DefaultLoginWindow
	}
	return &RedisFailureCounter{client: client, window: window}
}

/*
RecordFailure adds one failure and trims the set to the window.

Parameters:
  - context: context.Context
  - ipAddress: string
  - at: time.Time

Returns:
  - error: Execution errors
*/
func (counter *RedisFailureCounter) RecordFailure(context context.Context, ipAddress string, at time.Time) error {
	key := failureKey(ipAddress)
	cutoff := strconv.FormatInt(at.Add(-counter.window).UnixMilli(), 10)

	_, err := counter.client.TxPipelined(context, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(context, key, redis.Z{Score: float64(at.UnixMilli()), Member: uuid.New()})
		pipe.ZRemRangeByScore(context, key, "-inf", cutoff)
		pipe.Expire(context, key, counter.window)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis_failure_counter_record_failed: %w", err)
	}

	return nil
}

/*
RecentFailures counts failures scored strictly after since.

Returns:
  - int: Failure count (0 for unknown IPs)
  - error: Resolution failures
*/
func (counter *RedisFailureCounter) RecentFailures(context context.Context, ipAddress string, since time.Time) (int, error) {
	minScore := "(" + strconv.FormatInt(since.UnixMilli(), 10)

	count, err := counter.client.ZCount(context, failureKey(ipAddress), minScore, "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("redis_failure_counter_count_failed: %w", err)
	}

	return int(count), nil
}

func failureKey(ipAddress string) string {
	return constants.RedisPrefixLoginFailures + ipAddress
}
