// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"valid simple", "alice", false},
		{"valid with numbers", "alice42", false},
		{"valid with underscore", "alice_b", false},
		{"valid minimum length", "abc", false},
		{"valid maximum length", strings.Repeat("a", auth.MaxUsernameLength), false},
		{"empty", "", true},
		{"too short", "ab", true},
		{"too long", strings.Repeat("a", auth.MaxUsernameLength+1), true},
		{"starts with number", "1alice", true},
		{"starts with underscore", "_alice", true},
		{"contains space", "alice b", true},
		{"contains dash", "alice-b", true},
		{"contains at sign", "alice@example", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.ValidateUsername(tt.username)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewUser(t *testing.T) {
	t.Run("creates user with fresh id and timestamps", func(t *testing.T) {
		user, err := auth.NewUser("alice", "$2a$10$somehash")
		require.NoError(t, err)

		assert.NotEqual(t, ulid.ULID{}, user.ID)
		assert.Equal(t, "alice", user.Username)
		assert.Equal(t, "$2a$10$somehash", user.PasswordHash)
		assert.False(t, user.CreatedAt.IsZero())
		assert.Equal(t, user.CreatedAt, user.UpdatedAt)
	})

	t.Run("distinct users get distinct ids", func(t *testing.T) {
		u1, err := auth.NewUser("alice", "hash")
		require.NoError(t, err)
		u2, err := auth.NewUser("bob", "hash")
		require.NoError(t, err)
		assert.NotEqual(t, u1.ID, u2.ID)
	})

	t.Run("rejects invalid username", func(t *testing.T) {
		_, err := auth.NewUser("", "hash")
		assert.Error(t, err)
	})

	t.Run("rejects empty password hash", func(t *testing.T) {
		_, err := auth.NewUser("alice", "")
		assert.Error(t, err)
	})
}

func TestPasswordPolicy(t *testing.T) {
	t.Run("zero value uses default minimum", func(t *testing.T) {
		var policy auth.PasswordPolicy
		assert.Equal(t, auth.DefaultMinPasswordLength, policy.EffectiveMinLength())
	})

	t.Run("accepts password at minimum length", func(t *testing.T) {
		policy := auth.PasswordPolicy{MinLength: 6}
		assert.NoError(t, policy.Validate("sixsix"))
	})

	t.Run("rejects short password", func(t *testing.T) {
		policy := auth.PasswordPolicy{MinLength: 6}
		assert.Error(t, policy.Validate("five5"))
	})

	t.Run("rejects empty password", func(t *testing.T) {
		var policy auth.PasswordPolicy
		assert.Error(t, policy.Validate(""))
	})
}
