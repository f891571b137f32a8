// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// Service is the register/login engine. It orchestrates the user repository
// and the password hasher and returns coded outcomes; it never mutates
// session state and never logs plaintext passwords or stored hashes.
type Service struct {
	users  UserRepository
	hasher PasswordHasher
	policy PasswordPolicy
	logger *slog.Logger
}

// NewService creates a new Service logging to slog.Default().
func NewService(users UserRepository, hasher PasswordHasher, policy PasswordPolicy) (*Service, error) {
	return NewServiceWithLogger(users, hasher, policy, slog.Default())
}

// NewServiceWithLogger creates a new Service with an explicit logger.
func NewServiceWithLogger(users UserRepository, hasher PasswordHasher, policy PasswordPolicy, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &Service{
		users:  users,
		hasher: hasher,
		policy: policy,
		logger: logger,
	}, nil
}

// dummyPasswordHash is used when a user doesn't exist to prevent timing
// attacks: verification still runs so response time stays consistent.
// This is NOT a real credential - it's a fake hash that will never match any
// password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$2a$10$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Register creates a new account from a credential attempt.
//
// The existence pre-check is only a fast path; the store's unique constraint
// is the source of truth, and a Create that loses a concurrent race maps to
// the same AUTH_USERNAME_TAKEN rejection.
func (s *Service) Register(ctx context.Context, username, password string) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, oops.Code("AUTH_INVALID_INPUT").Wrap(err)
	}
	if err := s.policy.Validate(password); err != nil {
		return nil, oops.Code("AUTH_INVALID_INPUT").Wrap(err)
	}

	_, err := s.users.GetByUsername(ctx, username)
	if err == nil {
		return nil, s.rejectTaken(username)
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "get user by username").
			Wrap(err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("AUTH_HASH_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(username, hash)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "construct user").
			Wrap(err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			// Lost the race against a concurrent registration.
			return nil, s.rejectTaken(username)
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	s.logger.Info("user registered", "username", username, "outcome", "accepted")
	return user, nil
}

// Login verifies a credential attempt.
//
// Unknown usernames and wrong passwords return the identical
// AUTH_INVALID_CREDENTIALS rejection, and a lookup miss still pays the cost
// of one hash verification against a decoy so latency cannot be used to
// enumerate accounts.
func (s *Service) Login(ctx context.Context, username, password string) (*User, error) {
	if username == "" || password == "" {
		return nil, oops.Code("AUTH_INVALID_INPUT").Errorf("username and password are required")
	}

	user, lookupErr := s.users.GetByUsername(ctx, username)

	targetHash := dummyPasswordHash
	userExists := false
	if lookupErr == nil {
		targetHash = user.PasswordHash
		userExists = true
	} else if !errors.Is(lookupErr, ErrNotFound) {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get user by username").
			Wrap(lookupErr)
	}

	// Always verify, against the decoy when the user is absent.
	valid := s.hasher.Verify(password, targetHash)

	if !userExists || !valid {
		s.logger.Info("login rejected", "username", username, "outcome", "invalid_credentials")
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}

	s.logger.Info("login accepted", "username", username, "outcome", "accepted")
	return user, nil
}

func (s *Service) rejectTaken(username string) error {
	s.logger.Info("registration rejected", "username", username, "outcome", "username_taken")
	return oops.Code("AUTH_USERNAME_TAKEN").
		With("username", username).
		Wrap(ErrUsernameTaken)
}
