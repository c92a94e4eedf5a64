// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validate

import (
	"fmt"
	"strings"
	"unicode"
)

// MaxPasswordBytes is the bcrypt input limit.
const MaxPasswordBytes = 72

// weakPatterns are rejected anywhere in a password, case-insensitively.
var weakPatterns = []string{
	"password",
	"123456",
	"qwerty",
	"abc123",
	"letmein",
	"admin",
	"welcome",
}

// PasswordPolicy describes the strength rules for new passwords.
type PasswordPolicy struct {
	MinLength      int
	RequireLower   bool
	RequireUpper   bool
	RequireDigit   bool
	RequireSpecial bool
}

// DefaultPasswordPolicy requires 8 characters with every character class.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:      8,
		RequireLower:   true,
		RequireUpper:   true,
		RequireDigit:   true,
		RequireSpecial: true,
	}
}

// Password adds one failure per unmet rule of policy.
//
// # Rules
//
//   - Length between policy.MinLength characters and [MaxPasswordBytes] bytes.
//   - Requested character classes (lower, upper, digit, special).
//   - No common weak substrings and no character repeated three times in a row.
func (v *Validator) Password(field, value string, policy PasswordPolicy) *Validator {
	if value == "" {
		v.add(field, "This field is required")
		return v
	}

	if len([]rune(value)) < policy.MinLength {
		v.add(field, fmt.Sprintf("Must be at least %d characters", policy.MinLength))
	}
	if len(value) > MaxPasswordBytes {
		v.add(field, fmt.Sprintf("Must be at most %d bytes", MaxPasswordBytes))
	}

	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range value {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r):
			hasSpecial = true
		}
	}

	if policy.RequireLower && !hasLower {
		v.add(field, "Must contain a lowercase letter")
	}
	if policy.RequireUpper && !hasUpper {
		v.add(field, "Must contain an uppercase letter")
	}
	if policy.RequireDigit && !hasDigit {
		v.add(field, "Must contain a digit")
	}
	if policy.RequireSpecial && !hasSpecial {
		v.add(field, "Must contain a special character")
	}

	lower := strings.ToLower(value)
	for _, pattern := range weakPatterns {
		if strings.Contains(lower, pattern) {
			v.add(field, "Must not contain common patterns")
			break
		}
	}

	if hasRepeatedRun(value, 3) {
		v.add(field, "Must not repeat a character 3 or more times in a row")
	}

	return v
}

// hasRepeatedRun reports whether any rune appears n or more times consecutively.
func hasRepeatedRun(value string, n int) bool {
	var previous rune
	run := 0
	for _, r := range value {
		if r == previous {
			run++
		} else {
			previous, run = r, 1
		}
		if run >= n {
			return true
		}
	}
	return false
}
