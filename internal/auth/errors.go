// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrUsernameTaken is returned when a username is already registered.
// Repositories wrap it on unique-constraint violations so concurrent
// registrations collapse into the same rejection as the fast-path check.
var ErrUsernameTaken = errors.New("username already taken")

// ErrInvalidCredentials is returned for both unknown usernames and wrong
// passwords. The two cases are deliberately indistinguishable.
var ErrInvalidCredentials = errors.New("invalid username or password")
