// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr defines the centralized error handling framework for the auth API.

It provides a rich error type that bridges the gap between low-level Domain/Storage
errors and high-level HTTP responses.

Architecture:

  - AppError: A struct containing a machine-readable Code and a client-safe message.
  - Sentinels: One exported value per Code so callers can use [errors.Is].
  - Mapping: Explicit mapping from AppError to standard HTTP Status Codes.

Every error that leaves the service layer should either be an [AppError] or be
converted into [Internal] by the respond package.
*/
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// # Error Codes

const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeConflict           = "CONFLICT"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeAccountInactive    = "ACCOUNT_INACTIVE"
	CodeTooManyAttempts    = "TOO_MANY_ATTEMPTS"
	CodeTokenMissing       = "TOKEN_MISSING"
	CodeTokenInvalid       = "TOKEN_INVALID"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeUserInactive       = "USER_INACTIVE"
	CodeUserInvalid        = "USER_INVALID"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternal           = "INTERNAL_ERROR"
	CodeUnavailable        = "SERVICE_UNAVAILABLE"
)

// AppError is the canonical error type for the API.
//
// It carries an HTTP status code, a machine-readable code, a client-safe
// message, and an optional slice of field-level validation errors.
//
// # Security
//
// The Cause field is for server-side logging only and is never sent to clients
// to avoid leaking internal implementation details (e.g., SQL queries).
type AppError struct {
	// Code is a machine-readable error identifier (e.g. "NOT_FOUND", "CONFLICT").
	Code string `json:"code"`
	// Message is a human-readable description safe to return to the client.
	Message string `json:"error"`
	// HTTPStatus is the HTTP response status code.
	HTTPStatus int `json:"-"`
	// Cause is the underlying error, used for server-side logging only.
	Cause error `json:"-"`
	// Details holds per-field validation errors for VALIDATION_ERROR responses.
	Details []FieldError `json:"details,omitempty"`
	// RetryAfter is the wait hint sent as a Retry-After header on 429 responses.
	RetryAfter time.Duration `json:"-"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	// Field is the JSON field name that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// Is reports whether target is an [*AppError] with the same Code.
//
// This makes the package sentinels usable with [errors.Is] regardless of the
// message or cause carried by a particular instance.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// WithCause returns a copy of e that records cause for logging.
func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

// # Sentinels

var (
	ErrValidation         = &AppError{Code: CodeValidation, HTTPStatus: http.StatusBadRequest}
	ErrConflict           = &AppError{Code: CodeConflict, HTTPStatus: http.StatusConflict}
	ErrInvalidCredentials = &AppError{Code: CodeInvalidCredentials, HTTPStatus: http.StatusUnauthorized}
	ErrAccountInactive    = &AppError{Code: CodeAccountInactive, HTTPStatus: http.StatusForbidden}
	ErrTooManyAttempts    = &AppError{Code: CodeTooManyAttempts, HTTPStatus: http.StatusTooManyRequests}
	ErrTokenMissing       = &AppError{Code: CodeTokenMissing, HTTPStatus: http.StatusUnauthorized}
	ErrTokenInvalid       = &AppError{Code: CodeTokenInvalid, HTTPStatus: http.StatusUnauthorized}
	ErrUserNotFound       = &AppError{Code: CodeUserNotFound, HTTPStatus: http.StatusUnauthorized}
	ErrUserInactive       = &AppError{Code: CodeUserInactive, HTTPStatus: http.StatusForbidden}
	ErrUserInvalid        = &AppError{Code: CodeUserInvalid, HTTPStatus: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: CodeForbidden, HTTPStatus: http.StatusForbidden}
	ErrNotFound           = &AppError{Code: CodeNotFound, HTTPStatus: http.StatusNotFound}
	ErrInternal           = &AppError{Code: CodeInternal, HTTPStatus: http.StatusInternalServerError}
)

// # Client Errors (4xx)

// NotFound creates a 404 [AppError] for a named resource.
//
// Example:
//
//	apperr.NotFound("User") // Returns "User not found"
func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    resource + " not found",
		HTTPStatus: http.StatusNotFound,
	}
}

// Forbidden creates a 403 [AppError].
func Forbidden(msg string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    msg,
		HTTPStatus: http.StatusForbidden,
	}
}

// Conflict creates a 409 [AppError] for duplicate or unique-constraint violations.
func Conflict(msg string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    msg,
		HTTPStatus: http.StatusConflict,
	}
}

// ValidationError creates a 400 [AppError] with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// InvalidCredentials creates the generic 401 returned for both unknown users
// and wrong passwords. The message must not reveal which one failed.
func InvalidCredentials() *AppError {
	return &AppError{
		Code:       CodeInvalidCredentials,
		Message:    "Invalid username or password",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// AccountInactive creates a 403 [AppError] for a login on a deactivated account.
func AccountInactive() *AppError {
	return &AppError{
		Code:       CodeAccountInactive,
		Message:    "Account is deactivated",
		HTTPStatus: http.StatusForbidden,
	}
}

// TooManyAttempts creates a 429 [AppError] carrying a retry hint.
func TooManyAttempts(retryAfter time.Duration) *AppError {
	return &AppError{
		Code:       CodeTooManyAttempts,
		Message:    fmt.Sprintf("Too many failed login attempts. Try again in %s.", retryAfter),
		HTTPStatus: http.StatusTooManyRequests,
		RetryAfter: retryAfter,
	}
}

// TokenMissing creates a 401 [AppError] for a request without a bearer token.
func TokenMissing() *AppError {
	return &AppError{
		Code:       CodeTokenMissing,
		Message:    "Authentication token is required",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// TokenInvalid creates a 401 [AppError]. The cause (signature, expiry, claim
// mismatch) is kept for [errors.Is] and logging only.
func TokenInvalid(cause error) *AppError {
	return &AppError{
		Code:       CodeTokenInvalid,
		Message:    "Invalid or expired token",
		HTTPStatus: http.StatusUnauthorized,
		Cause:      cause,
	}
}

// UserNotFound creates a 401 [AppError] for a valid token whose subject is gone.
func UserNotFound() *AppError {
	return &AppError{
		Code:       CodeUserNotFound,
		Message:    "User not found",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// UserInactive creates a 403 [AppError] for a valid token whose subject is deactivated.
func UserInactive() *AppError {
	return &AppError{
		Code:       CodeUserInactive,
		Message:    "User is deactivated",
		HTTPStatus: http.StatusForbidden,
	}
}

// UserInvalid creates a 401 [AppError] for a refresh on a missing or inactive user.
func UserInvalid() *AppError {
	return &AppError{
		Code:       CodeUserInvalid,
		Message:    "User is invalid or inactive",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// RateLimited creates a 429 [AppError].
func RateLimited(retryAfterSeconds int) *AppError {
	return &AppError{
		Code:       CodeRateLimited,
		Message:    fmt.Sprintf("Too many requests. Try again in %ds.", retryAfterSeconds),
		HTTPStatus: http.StatusTooManyRequests,
		RetryAfter: time.Duration(retryAfterSeconds) * time.Second,
	}
}

// # Server Errors (5xx)

// Internal creates a 500 [AppError] wrapping an unexpected server-side error.
// The cause is stored for logging but is never sent to the client.
func Internal(cause error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "An unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// ServiceUnavailable creates a 503 [AppError] for failed readiness checks.
func ServiceUnavailable(msg string) *AppError {
	return &AppError{
		Code:       CodeUnavailable,
		Message:    msg,
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// # Helpers

// IsAppError reports whether err (or any error in its chain) is an [*AppError].
func IsAppError(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}
