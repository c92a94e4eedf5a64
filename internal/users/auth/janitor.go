// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"log/slog"
	"time"
)

// TokenPurger removes refresh tokens past their expiry.
type TokenPurger interface {
	PurgeExpiredTokens(context context.Context) (int64, error)
}

/*
RunTokenJanitor purges expired refresh tokens every interval until context is done.

Description: Blocks; run it in its own goroutine. Purge failures are logged
and retried on the next tick.

Parameters:
  - context: context.Context
  - purger: TokenPurger
  - interval: time.Duration
  - logger: *slog.Logger
*/
func RunTokenJanitor(context context.Context, purger TokenPurger, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-context.Done():
			return
		case <-ticker.C:
			removed, err := purger.PurgeExpiredTokens(context)
			if err != nil {
				logger.Error("token_janitor_purge_failed", slog.Any("error", err))
				continue
			}
			if removed > 0 {
				logger.Info("token_janitor_purged", slog.Int64("removed", removed))
			}
		}
	}
}
