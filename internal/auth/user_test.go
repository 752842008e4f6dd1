// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/gatehouse/internal/auth"
)

func TestNewUser(t *testing.T) {
	t.Run("assigns id and timestamps", func(t *testing.T) {
		user, err := auth.NewUser("alice@example.com", "somehash")
		require.NoError(t, err)
		assert.NotEqual(t, ulid.ULID{}, user.ID)
		assert.Equal(t, "alice@example.com", user.Email)
		assert.Equal(t, "somehash", user.PasswordHash)
		assert.Nil(t, user.SessionID)
		assert.Nil(t, user.ResetToken)
		assert.False(t, user.CreatedAt.IsZero())
	})

	t.Run("two users get distinct ids", func(t *testing.T) {
		u1, err := auth.NewUser("a@example.com", "h")
		require.NoError(t, err)
		u2, err := auth.NewUser("b@example.com", "h")
		require.NoError(t, err)
		assert.NotEqual(t, u1.ID, u2.ID)
	})

	t.Run("rejects empty hash", func(t *testing.T) {
		_, err := auth.NewUser("alice@example.com", "")
		assert.Error(t, err)
	})
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{name: "plain address", email: "bob@example.com", wantErr: false},
		{name: "subdomain", email: "bob@mail.example.com", wantErr: false},
		{name: "empty", email: "", wantErr: true},
		{name: "no at sign", email: "bobexample.com", wantErr: true},
		{name: "two at signs", email: "bob@@example.com", wantErr: true},
		{name: "whitespace", email: "bob smith@example.com", wantErr: true},
		{name: "missing domain", email: "bob@", wantErr: true},
		{name: "missing local part", email: "@example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.ValidateEmail(tt.email)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
