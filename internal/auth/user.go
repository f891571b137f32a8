// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"regexp"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Username validation constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
)

// DefaultMinPasswordLength is the default minimum password length.
const DefaultMinPasswordLength = 8

// usernameRegex matches usernames that:
// - Start with a letter (a-z, A-Z)
// - Contain only letters, numbers, and underscores
var usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// User represents a registered account. Usernames are unique
// case-insensitively; the storage layer enforces this with a unique index.
type User struct {
	ID           ulid.ULID
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser creates a validated User with a fresh ID.
// The password hash must come from a PasswordHasher, never raw input.
func NewUser(username, passwordHash string) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_EMPTY_HASH").Errorf("password hash cannot be empty")
	}

	now := time.Now().UTC()
	return &User{
		ID:           ulid.Make(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ValidateUsername validates a username against rules.
// Username requirements:
// - Length: MinUsernameLength to MaxUsernameLength characters
// - Must start with a letter
// - Can contain only letters (a-z, A-Z), numbers (0-9), and underscores (_)
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code("AUTH_INVALID_USERNAME").Errorf("username cannot be empty")
	}
	if len(username) < MinUsernameLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("min", MinUsernameLength).
			Errorf("username must be at least %d characters", MinUsernameLength)
	}
	if len(username) > MaxUsernameLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("max", MaxUsernameLength).
			Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return oops.Code("AUTH_INVALID_USERNAME").
			Errorf("username must start with a letter and contain only letters, numbers, and underscores")
	}
	return nil
}

// PasswordPolicy constrains what plaintext passwords are accepted at
// registration. The zero value uses DefaultMinPasswordLength.
type PasswordPolicy struct {
	MinLength int
}

// EffectiveMinLength returns the minimum length, using default if not set.
func (p PasswordPolicy) EffectiveMinLength() int {
	if p.MinLength <= 0 {
		return DefaultMinPasswordLength
	}
	return p.MinLength
}

// Validate checks a candidate password against the policy.
func (p PasswordPolicy) Validate(password string) error {
	if password == "" {
		return oops.Code("AUTH_INVALID_PASSWORD").Errorf("password cannot be empty")
	}
	if min := p.EffectiveMinLength(); len(password) < min {
		return oops.Code("AUTH_INVALID_PASSWORD").
			With("min", min).
			Errorf("password must be at least %d characters", min)
	}
	return nil
}

// UserRepository manages user persistence. Implementations must enforce
// username uniqueness atomically at insert time; callers treat a wrapped
// ErrUsernameTaken from Create as the authoritative duplicate signal.
type UserRepository interface {
	// Create stores a new user. A username collision, including one lost
	// to a concurrent insert, returns an error wrapping ErrUsernameTaken.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	// Returns an error wrapping ErrNotFound if no such user exists.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByUsername retrieves a user by username (case-insensitive).
	// Returns an error wrapping ErrNotFound if no such user exists.
	GetByUsername(ctx context.Context, username string) (*User, error)
}
