// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// SessionManager owns the server-side session lifecycle: it persists the
// session subject at login and resolves it back into a live user on each
// request. Expiry and revocation both surface as "not authenticated".
type SessionManager struct {
	sessions SessionRepository
	identity *Identity
	ttl      time.Duration
	logger   *slog.Logger
}

// NewSessionManager creates a new SessionManager. A non-positive ttl uses
// DefaultSessionTTL.
func NewSessionManager(sessions SessionRepository, identity *Identity, ttl time.Duration, logger *slog.Logger) (*SessionManager, error) {
	if sessions == nil {
		return nil, oops.Errorf("session repository is required")
	}
	if identity == nil {
		return nil, oops.Errorf("identity is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{
		sessions: sessions,
		identity: identity,
		ttl:      ttl,
		logger:   logger,
	}, nil
}

// Start issues a subject for the user and persists a session carrying it.
// Returns the session and the plaintext token for the client cookie.
func (m *SessionManager) Start(ctx context.Context, user *User) (*Session, string, error) {
	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return nil, "", oops.Code("SESSION_START_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	session, err := NewSession(m.identity.Issue(user), tokenHash, time.Now().Add(m.ttl))
	if err != nil {
		return nil, "", oops.Code("SESSION_START_FAILED").
			With("operation", "construct session").
			Wrap(err)
	}

	if err := m.sessions.Create(ctx, session); err != nil {
		return nil, "", oops.Code("SESSION_START_FAILED").
			With("operation", "persist session").
			Wrap(err)
	}

	m.logger.Info("session started", "username", user.Username, "session_id", session.ID.String())
	return session, token, nil
}

// Resolve maps a session token back to a live user record. Unknown tokens,
// expired sessions, and subjects whose user was deleted all return an error
// wrapping ErrNotFound.
func (m *SessionManager) Resolve(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, oops.Code("SESSION_INVALID").Wrap(ErrNotFound)
	}

	session, err := m.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("SESSION_INVALID").Wrap(ErrNotFound)
		}
		return nil, oops.Code("SESSION_RESOLVE_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if session.IsExpired() {
		// Best effort cleanup; the expired session is dead either way.
		_ = m.sessions.Delete(ctx, session.ID) //nolint:errcheck
		return nil, oops.Code("SESSION_EXPIRED").Wrap(ErrNotFound)
	}

	user, err := m.identity.Resolve(ctx, session.Subject())
	if err != nil {
		return nil, err
	}

	// Best effort, resolution succeeds regardless.
	_ = m.sessions.UpdateLastSeen(ctx, session.ID, time.Now()) //nolint:errcheck

	return user, nil
}

// End destroys the session for a token. Ending an unknown or already-ended
// session is not an error.
func (m *SessionManager) End(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	session, err := m.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return oops.Code("SESSION_END_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if err := m.sessions.Delete(ctx, session.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return oops.Code("SESSION_END_FAILED").
			With("operation", "delete session").
			With("session_id", session.ID.String()).
			Wrap(err)
	}

	m.logger.Info("session ended", "session_id", session.ID.String())
	return nil
}

// PurgeExpired removes expired sessions and returns how many were deleted.
func (m *SessionManager) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := m.sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, oops.Code("SESSION_PURGE_FAILED").Wrap(err)
	}
	if n > 0 {
		m.logger.Info("expired sessions purged", "count", n)
	}
	return n, nil
}
