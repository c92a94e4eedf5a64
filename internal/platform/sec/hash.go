// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MinBcryptCost is the lowest work factor accepted by configuration.
const MinBcryptCost = 10

// DefaultBcryptCost is used when no cost is configured.
const DefaultBcryptCost = 12

// PasswordHasher hashes and verifies user passwords.
type PasswordHasher interface {
	// Hash produces a salted one-way hash of plaintext.
	Hash(plaintext string) (string, error)

	// Verify reports whether plaintext matches hash. Comparison is constant-time.
	Verify(plaintext, hash string) bool
}

// BcryptHasher is the production [PasswordHasher].
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a hasher with the given bcrypt work factor.
// Values below [bcrypt.MinCost] fall back to [DefaultBcryptCost].
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash hashes a plain-text password using the bcrypt algorithm.
func (hasher *BcryptHasher) Hash(plaintext string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plaintext), hasher.cost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// Verify compares a plain-text password with its hashed version.
func (hasher *BcryptHasher) Verify(plaintext, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	return err == nil
}

// Cost returns the configured work factor.
func (hasher *BcryptHasher) Cost() int { return hasher.cost }

// HashToken returns the hex SHA-256 digest of an opaque token.
//
// Refresh tokens are stored under this digest so the table never holds a
// usable credential.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
