// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Subject is the minimal durable reference carried between requests after
// authentication. Session carriers persist only this, never the full user,
// so revocation takes effect on the next resolve.
type Subject struct {
	UserID ulid.ULID
}

// Identity serializes authenticated users into session subjects and
// resolves subjects back into live user records.
type Identity struct {
	users UserRepository
}

// NewIdentity creates a new Identity.
func NewIdentity(users UserRepository) (*Identity, error) {
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	return &Identity{users: users}, nil
}

// Issue produces the session subject for an authenticated user. Pure.
func (i *Identity) Issue(user *User) Subject {
	return Subject{UserID: user.ID}
}

// Resolve rehydrates the user a subject refers to. A subject that no longer
// resolves (zero ID, or the user was deleted) returns an error wrapping
// ErrNotFound; callers must treat that as "not authenticated", never as a
// fault.
func (i *Identity) Resolve(ctx context.Context, subject Subject) (*User, error) {
	if subject.UserID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("AUTH_INVALID_SUBJECT").Wrap(ErrNotFound)
	}

	user, err := i.users.GetByID(ctx, subject.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("AUTH_STALE_SUBJECT").
				With("user_id", subject.UserID.String()).
				Wrap(ErrNotFound)
		}
		return nil, oops.Code("AUTH_RESOLVE_FAILED").
			With("operation", "get user by id").
			With("user_id", subject.UserID.String()).
			Wrap(err)
	}
	return user, nil
}
