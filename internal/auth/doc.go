// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package auth is the credential-authentication core of Gatehouse.
//
// # Domain Types
//
// Domain types (User, Session) should be created using their
// respective constructors:
//   - NewUser - creates a User with a validated username and password hash
//   - NewSession - creates a Session with a validated user and expiry
//
// Direct struct initialization bypasses validation and may create invalid
// state. Repository implementations receive pre-validated types from these
// constructors.
//
// # Services
//
// Service types coordinate domain operations:
//   - Service - the register/login engine
//   - Identity - issues and resolves session subjects
//   - SessionManager - server-side session lifecycle on top of Identity
//
// Services are created with New* constructors that validate dependencies.
//
// Rejections (bad input, taken username, wrong credentials) are returned as
// coded errors wrapping the package sentinels, not raised as faults. Unknown
// usernames and wrong passwords produce identical rejections so callers
// cannot enumerate accounts.
package auth
