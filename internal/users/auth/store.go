// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"

	"github.com/taibuivan/apisegura/internal/platform/sec"
)

// # User Data Access

// UserRepository defines the data access contract for user accounts.
//
// Lookups return (nil, nil) when the row does not exist.
type UserRepository interface {

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: int64

		Returns:
		  - *User: Hydrated entity, or nil if absent
		  - error: Database retrieval failures
	*/
	FindByID(context context.Context, id int64) (*User, error)

	/*
		FindByUsernameOrEmail resolves a login credential.

		Description: Exact match on username, case-insensitive match on email.

		Parameters:
		  - context: context.Context
		  - credential: string

		Returns:
		  - *User: Hydrated entity, or nil if absent
		  - error: Database retrieval failures
	*/
	FindByUsernameOrEmail(context context.Context, credential string) (*User, error)

	/*
		Create persists a brand-new user account and fills ID and timestamps.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: apperr.Conflict on duplicate username/email, or persistence failures
	*/
	Create(context context.Context, user *User) error

	/*
		UpdatePassword replaces only the user's password hash.

		Parameters:
		  - context: context.Context
		  - userID: int64
		  - newHash: string

		Returns:
		  - error: Persistence failures
	*/
	UpdatePassword(context context.Context, userID int64, newHash string) error

	/*
		SetActive toggles the account's active flag.

		Returns:
		  - *User: Updated entity, or nil if absent
		  - error: Persistence failures
	*/
	SetActive(context context.Context, userID int64, active bool) (*User, error)

	/*
		SetRole changes the account's role.

		Returns:
		  - *User: Updated entity, or nil if absent
		  - error: Persistence failures
	*/
	SetRole(context context.Context, userID int64, role sec.Role) (*User, error)

	/*
		List returns one page of accounts ordered by ID and the total count.

		Parameters:
		  - context: context.Context
		  - limit: int
		  - offset: int

		Returns:
		  - []*User: Page of entities
		  - int: Total number of accounts
		  - error: Database retrieval failures
	*/
	List(context context.Context, limit, offset int) ([]*User, int, error)
}

// # Refresh Token Data Access

// RefreshTokenRepository defines the data access contract for stored refresh tokens.
type RefreshTokenRepository interface {

	/*
		Save persists a refresh token digest for a user.

		Parameters:
		  - context: context.Context
		  - tokenHash: string
		  - userID: int64
		  - expiresAt: time.Time

		Returns:
		  - error: Persistence failures
	*/
	Save(context context.Context, tokenHash string, userID int64, expiresAt time.Time) error

	/*
		FindValid returns the row for tokenHash bound to userID that has not expired at now.

		Returns:
		  - *RefreshToken: Hydrated entity, or nil if absent or expired
		  - error: Database retrieval failures
	*/
	FindValid(context context.Context, tokenHash string, userID int64, now time.Time) (*RefreshToken, error)

	/*
		Delete removes a single refresh token. Deleting a missing row is not an error.
	*/
	Delete(context context.Context, tokenHash string) error

	/*
		DeleteAllForUser removes every refresh token belonging to userID.
	*/
	DeleteAllForUser(context context.Context, userID int64) error

	/*
		DeleteExpired physically removes rows whose expiry is at or before now.

		Returns:
		  - int64: Number of rows removed
		  - error: Persistence failures
	*/
	DeleteExpired(context context.Context, now time.Time) (int64, error)
}

// # Login Attempt Data Access

// LoginAttemptRepository defines the contract for the append-only login audit log.
type LoginAttemptRepository interface {

	/*
		Record appends a login attempt.

		Parameters:
		  - context: context.Context
		  - attempt: LoginAttempt

		Returns:
		  - error: Persistence failures
	*/
	Record(context context.Context, attempt LoginAttempt) error

	/*
		CountRecentFailures counts failed attempts from ipAddress after since.

		Parameters:
		  - context: context.Context
		  - ipAddress: string
		  - since: time.Time

		Returns:
		  - int: Number of failed attempts
		  - error: Database retrieval failures
	*/
	CountRecentFailures(context context.Context, ipAddress string, since time.Time) (int, error)
}
