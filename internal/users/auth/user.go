// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the user identity and session management layer.

It defines the core domain entities (User, RefreshToken, LoginAttempt) and the
logic for registration, login, token refresh, logout and password changes.

# Architecture

  - Service: Orchestrates the flows (throttle, lookup, hash verify, issue, persist).
  - Repository: Abstracted interfaces implemented for PostgreSQL.
  - Throttle: Per-IP failed login counting, backed by Postgres or Redis.
  - Handler: chi routes translating HTTP into service calls.
*/
package auth

import (
	"time"

	"github.com/taibuivan/apisegura/internal/platform/sec"
)

// # Domain Entities

// User represents a registered account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Explicitly omitted from JSON for security.
	Role         sec.Role  `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Identity projects the user onto the principal carried by tokens and request contexts.
func (user *User) Identity() sec.Identity {
	return sec.Identity{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
	}
}

// RefreshToken is a stored, revocable refresh credential.
type RefreshToken struct {
	TokenHash string    `json:"-"` // SHA-256 of the signed JWT.
	UserID    int64     `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// LoginAttempt is one row of the append-only login audit log.
type LoginAttempt struct {
	IPAddress   string    `json:"ipAddress"`
	Username    string    `json:"username"`
	Successful  bool      `json:"successful"`
	AttemptedAt time.Time `json:"attemptedAt"`
}

// AuthResult is returned by register and login.
type AuthResult struct {
	User   *User          `json:"user"`
	Tokens *sec.TokenPair `json:"tokens"`
}

// AccessGrant is returned by refresh.
type AccessGrant struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
	TokenType   string `json:"tokenType"`
}

// # Field Identifiers

// Global field names for validation and identity mapping in the authentication domain.
const (
	FieldUsername        = "username"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldRefreshToken    = "refreshToken"
	FieldCurrentPassword = "currentPassword"
	FieldNewPassword     = "newPassword"
	FieldActive          = "active"
	FieldRole            = "role"
	FieldID              = "id"
)
