// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/auth/postgres"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

func newStoredSession(t *testing.T) *auth.Session {
	t.Helper()
	_, tokenHash, err := auth.GenerateSessionToken()
	require.NoError(t, err)
	session, err := auth.NewSession(auth.Subject{UserID: ulid.Make()}, tokenHash, time.Now().Add(time.Hour))
	require.NoError(t, err)
	return session
}

func TestSessionRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts the session", func(t *testing.T) {
		pool := newMockPool(t)
		repo := postgres.NewSessionRepository(pool)
		session := newStoredSession(t)

		pool.ExpectExec(`INSERT INTO sessions`).
			WithArgs(session.ID.String(), session.UserID.String(), session.TokenHash,
				session.ExpiresAt, session.CreatedAt, session.LastSeenAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, repo.Create(ctx, session))
	})

	t.Run("database errors are faults", func(t *testing.T) {
		pool := newMockPool(t)
		repo := postgres.NewSessionRepository(pool)
		session := newStoredSession(t)

		pool.ExpectExec(`INSERT INTO sessions`).
			WithArgs(session.ID.String(), session.UserID.String(), session.TokenHash,
				session.ExpiresAt, session.CreatedAt, session.LastSeenAt).
			WillReturnError(errors.New("connection refused"))

		err := repo.Create(ctx, session)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "SESSION_CREATE_FAILED")
	})
}

func TestSessionRepository_GetByTokenHash(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the stored session", func(t *testing.T) {
		pool := newMockPool(t)
		repo := postgres.NewSessionRepository(pool)
		session := newStoredSession(t)

		pool.ExpectQuery(`SELECT id, user_id, token_hash, expires_at, created_at, last_seen_at`).
			WithArgs(session.TokenHash).
			WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "token_hash", "expires_at", "created_at", "last_seen_at"}).
				AddRow(session.ID.String(), session.UserID.String(), session.TokenHash,
					session.ExpiresAt, session.CreatedAt, session.LastSeenAt))

		got, err := repo.GetByTokenHash(ctx, session.TokenHash)
		require.NoError(t, err)
		assert.Equal(t, session.ID, got.ID)
		assert.Equal(t, session.UserID, got.UserID)
		assert.Equal(t, session.TokenHash, got.TokenHash)
	})

	t.Run("unknown hash maps to not found", func(t *testing.T) {
		pool := newMockPool(t)
		repo := postgres.NewSessionRepository(pool)

		pool.ExpectQuery(`SELECT id, user_id, token_hash, expires_at, created_at, last_seen_at`).
			WithArgs("unknownhash").
			WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "token_hash", "expires_at", "created_at", "last_seen_at"}))

		_, err := repo.GetByTokenHash(ctx, "unknownhash")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "SESSION_NOT_FOUND")
	})
}

func TestSessionRepository_UpdateLastSeen(t *testing.T) {
	ctx := context.Background()

	t.Run("updates the timestamp", func(t *testing.T) {
		pool := newMockPool(t)
		repo := postgres.NewSessionRepository(pool)
		id := ulid.Make()
		now := time.Now()

		pool.ExpectExec(`UPDATE sessions SET last_seen_at`).
			WithArgs(id.String(), now).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.UpdateLastSeen(ctx, id, now))
	})

	t.Run("missing session maps to not found", func(t *testing.T) {
		pool := newMockPool(t)
		repo := postgres.NewSessionRepository(pool)
		id := ulid.Make()
		now := time.Now()

		pool.ExpectExec(`UPDATE sessions SET last_seen_at`).
			WithArgs(id.String(), now).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateLastSeen(ctx, id, now)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestSessionRepository_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes the session", func(t *testing.T) {
		pool := newMockPool(t)
		repo := postgres.NewSessionRepository(pool)
		id := ulid.Make()

		pool.ExpectExec(`DELETE FROM sessions WHERE id`).
			WithArgs(id.String()).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		require.NoError(t, repo.Delete(ctx, id))
	})

	t.Run("missing session maps to not found", func(t *testing.T) {
		pool := newMockPool(t)
		repo := postgres.NewSessionRepository(pool)
		id := ulid.Make()

		pool.ExpectExec(`DELETE FROM sessions WHERE id`).
			WithArgs(id.String()).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		err := repo.Delete(ctx, id)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestSessionRepository_DeleteByUser(t *testing.T) {
	ctx := context.Background()
	pool := newMockPool(t)
	repo := postgres.NewSessionRepository(pool)
	userID := ulid.Make()

	pool.ExpectExec(`DELETE FROM sessions WHERE user_id`).
		WithArgs(userID.String()).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	require.NoError(t, repo.DeleteByUser(ctx, userID))
}

func TestSessionRepository_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	pool := newMockPool(t)
	repo := postgres.NewSessionRepository(pool)

	pool.ExpectExec(`DELETE FROM sessions WHERE expires_at`).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
