// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dberr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/apisegura/internal/platform/apperr"
	"github.com/taibuivan/apisegura/internal/platform/dberr"
)

var conflicts = dberr.ConflictMessages{
	"users_username_key": "Username already taken",
}

func TestWrap(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, dberr.Wrap(nil, "op", conflicts))
	})

	t.Run("no rows", func(t *testing.T) {
		err := dberr.Wrap(fmt.Errorf("scan: %w", pgx.ErrNoRows), "op", conflicts)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("known constraint", func(t *testing.T) {
		pgError := &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_username_key"}

		err := dberr.Wrap(pgError, "op", conflicts)

		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, apperr.CodeConflict, ae.Code)
		assert.Equal(t, "Username already taken", ae.Message)
	})

	t.Run("unknown constraint", func(t *testing.T) {
		pgError := &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "other"}

		err := dberr.Wrap(pgError, "op", conflicts)
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("other", func(t *testing.T) {
		cause := errors.New("connection reset")

		err := dberr.Wrap(cause, "users_create", conflicts)

		assert.ErrorIs(t, err, apperr.ErrInternal)
		assert.ErrorIs(t, err, cause)
	})
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, dberr.IsUniqueViolation(&pgconn.PgError{Code: pgerrcode.UniqueViolation}))
	assert.False(t, dberr.IsUniqueViolation(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}))
	assert.False(t, dberr.IsUniqueViolation(errors.New("plain")))
}
