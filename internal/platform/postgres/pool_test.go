// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings_WithDefaults(t *testing.T) {
	tests := []struct {
		name string
		in   Settings
		want Settings
	}{
		{"zero", Settings{}, Settings{MaxConns: 25, MinConns: 0}},
		{"min above max", Settings{MaxConns: 3, MinConns: 10}, Settings{MaxConns: 3, MinConns: 3}},
		{"negative min", Settings{MaxConns: 10, MinConns: -1}, Settings{MaxConns: 10, MinConns: 5}},
		{"explicit", Settings{MaxConns: 8, MinConns: 2, StatementTimeout: time.Second}, Settings{MaxConns: 8, MinConns: 2, StatementTimeout: time.Second}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.in.withDefaults())
		})
	}
}

func TestStatementTimeoutSQL(t *testing.T) {
	assert.Equal(t, "SET statement_timeout = 1500", statementTimeoutSQL(1500*time.Millisecond))
}

func TestPing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectPing()
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	assert.NoError(t, Ping(context.Background(), mock))

	err = Ping(context.Background(), mock)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: ping failed")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPool_InvalidDSN(t *testing.T) {
	_, err := NewPool(context.Background(), "postgres://%zz", Settings{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid DSN")
}
