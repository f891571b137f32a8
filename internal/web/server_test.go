// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package web_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/web"
)

func newTestServer(t *testing.T, addr string) *web.Server {
	t.Helper()

	users := newMemUserRepo()
	hasher, err := auth.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	engine, err := auth.NewService(users, hasher, auth.PasswordPolicy{})
	require.NoError(t, err)
	identity, err := auth.NewIdentity(users)
	require.NoError(t, err)
	sessions, err := auth.NewSessionManager(newMemSessionRepo(), identity, time.Hour, nil)
	require.NoError(t, err)

	srv, err := web.NewServer(addr, engine, sessions, nil, nil)
	require.NoError(t, err)
	return srv
}

func TestNewServer_Validation(t *testing.T) {
	srv := newTestServer(t, "127.0.0.1:0")
	require.NotNil(t, srv)

	_, err := web.NewServer("", nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestServerLifecycle(t *testing.T) {
	srv := newTestServer(t, "127.0.0.1:0")

	errCh, err := srv.Start()
	require.NoError(t, err)
	assert.NotEmpty(t, srv.Addr())

	_, err = srv.Start()
	assert.Error(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))

	select {
	case serveErr, ok := <-errCh:
		assert.False(t, ok, "unexpected error from server: %v", serveErr)
	case <-time.After(5 * time.Second):
		t.Fatal("error channel not closed after stop")
	}

	assert.NoError(t, srv.Stop(ctx))
}
