// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import "time"

// # Authentication Constraints

const (
	// DefaultMaxLoginAttempts is the failed-attempt count that blocks an IP.
	DefaultMaxLoginAttempts = 5

	// DefaultLoginWindow is the rolling window failed attempts are counted over.
	DefaultLoginWindow = 15 * time.Minute

	// UsernameMinLength and UsernameMaxLength bound registered usernames.
	UsernameMinLength = 3
	UsernameMaxLength = 32

	// EmailMaxLength matches the users.email column.
	EmailMaxLength = 254
)

// # Resource Types

// ResourceUser is the ownership resource type for user accounts.
const ResourceUser = "user"

// # Messages

const (
	msgLoggedOut       = "Logged out successfully"
	msgPasswordChanged = "Password changed successfully"
)
