// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package postgres opens the pgx connection pool backing the credential store
// and defines the narrow query surface repositories are written against.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of [*pgxpool.Pool] used by repositories.
//
// pgxmock's pool mock satisfies it, so stores can be tested without a server.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pinger is implemented by anything that can report connection health.
type Pinger interface {
	Ping(ctx context.Context) error
}

const (
	maxConnLifetime   = 60 * time.Minute
	maxConnIdleTime   = 10 * time.Minute
	healthCheckPeriod = 1 * time.Minute
	connectTimeout    = 5 * time.Second
	pingTimeout       = 2 * time.Second
)

// Settings tunes the pool. Zero fields take the values from [DefaultSettings].
type Settings struct {
	MaxConns int32
	MinConns int32
	// StatementTimeout is applied to every physical connection; 0 disables it.
	StatementTimeout time.Duration
}

// DefaultSettings suits a single API instance doing short auth queries.
func DefaultSettings() Settings {
	return Settings{MaxConns: 25, MinConns: 5, StatementTimeout: 15 * time.Second}
}

func (s Settings) withDefaults() Settings {
	defaults := DefaultSettings()
	if s.MaxConns <= 0 {
		s.MaxConns = defaults.MaxConns
	}
	if s.MinConns < 0 || s.MinConns > s.MaxConns {
		s.MinConns = min(defaults.MinConns, s.MaxConns)
	}
	return s
}

/*
NewPool opens and verifies a PostgreSQL connection pool.

Parameters:
  - ctx: context.Context (bounds the initial connect and ping)
  - dsn: string (libpq keyword string or postgres:// URL)
  - settings: Settings
  - logger: *slog.Logger

Returns:
  - *pgxpool.Pool: A pool that answered a ping
  - error: Invalid DSN or unreachable server
*/
func NewPool(ctx context.Context, dsn string, settings Settings, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: invalid DSN: %w", err)
	}

	settings = settings.withDefaults()
	poolConfig.MaxConns = settings.MaxConns
	poolConfig.MinConns = settings.MinConns
	poolConfig.MaxConnLifetime = maxConnLifetime
	poolConfig.MaxConnIdleTime = maxConnIdleTime
	poolConfig.HealthCheckPeriod = healthCheckPeriod
	poolConfig.ConnConfig.ConnectTimeout = connectTimeout

	if settings.StatementTimeout > 0 {
		statementTimeout := statementTimeoutSQL(settings.StatementTimeout)
		poolConfig.AfterConnect = func(ctx context.Context, connection *pgx.Conn) error {
			_, err := connection.Exec(ctx, statementTimeout)
			return err
		}
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create pool: %w", err)
	}

	if err := Ping(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("postgres_pool_connected",
		slog.Int("max_conns", int(settings.MaxConns)),
		slog.Int("min_conns", int(settings.MinConns)),
		slog.Duration("statement_timeout", settings.StatementTimeout),
	)

	return pool, nil
}

// statementTimeoutSQL renders the per-connection statement_timeout in milliseconds.
func statementTimeoutSQL(timeout time.Duration) string {
	return fmt.Sprintf("SET statement_timeout = %d", timeout.Milliseconds())
}

// Ping checks pool health within a short deadline.
func Ping(ctx context.Context, pool Pinger) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		return fmt.Errorf("postgres: ping failed: %w", err)
	}

	return nil
}
