// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/apisegura/internal/platform/apperr"
)

var (
	// ErrNotFound is a standard error returned when a queried row doesn't exist.
	ErrNotFound = apperr.NotFound("Resource")
)

// ConflictMessages maps a unique constraint name to the client-facing message
// returned when it is violated.
type ConflictMessages map[string]string

// Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
// It hides internal database details from the client while classifying the error type.
//
// # Mapping
//
//   - pgx.ErrNoRows          -> NOT_FOUND
//   - SQLSTATE 23505         -> CONFLICT (message chosen by constraint name)
//   - anything else          -> INTERNAL_ERROR with action recorded in the cause
func Wrap(err error, action string, conflicts ConflictMessages) error {
	if err == nil {
		return nil
	}

	// 1. Not Found mapping
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	// 2. Unique violations become conflicts
	if IsUniqueViolation(err) {
		var pgError *pgconn.PgError
		errors.As(err, &pgError)
		if message, ok := conflicts[pgError.ConstraintName]; ok {
			return apperr.Conflict(message).WithCause(err)
		}
		return apperr.Conflict("Resource already exists").WithCause(err)
	}

	// 3. Unknown query errors become Internal Server Errors
	return apperr.Internal(fmt.Errorf("%s: %w", action, err))
}

// IsUniqueViolation reports whether err carries SQLSTATE 23505.
func IsUniqueViolation(err error) bool {
	var pgError *pgconn.PgError
	return errors.As(err, &pgError) && pgError.Code == pgerrcode.UniqueViolation
}
