// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// SessionService issues, looks up, and revokes session ids. The session id
// lives on the user record itself, so sessions survive process restarts and
// resolution is just another point lookup.
type SessionService struct {
	users UserRepository
}

// NewSessionService creates a new SessionService.
func NewSessionService(users UserRepository) (*SessionService, error) {
	if users == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("user repository is required")
	}
	return &SessionService{users: users}, nil
}

// GenerateSessionID returns a fresh session id: a version 4 UUID in
// canonical form, 122 bits of entropy from crypto/rand.
func GenerateSessionID() string {
	return uuid.NewString()
}

// CreateSession authenticates nothing; it assumes the caller has already
// validated credentials. It looks the user up by email, stores a fresh
// session id on the record, and returns it. Any prior session id is
// overwritten: one active session per user.
func (s *SessionService) CreateSession(ctx context.Context, email string) (string, error) {
	user, err := s.users.FindOne(ctx, LookupEmail, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", oops.Code("SESSION_USER_NOT_FOUND").
				With("email", email).
				Wrap(ErrNotFound)
		}
		return "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "find user by email").
			Wrap(err)
	}

	sessionID := GenerateSessionID()
	if err := s.users.Update(ctx, user.ID, map[UpdateField]any{
		FieldSessionID: &sessionID,
	}); err != nil {
		return "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "store session id").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	return sessionID, nil
}

// Resolve returns the user owning the given session id. An empty id fails
// immediately without touching the store.
func (s *SessionService) Resolve(ctx context.Context, sessionID string) (*User, error) {
	if sessionID == "" {
		return nil, oops.Code("SESSION_EMPTY").Wrap(ErrNotFound)
	}

	user, err := s.users.FindOne(ctx, LookupSessionID, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("SESSION_INVALID").Wrap(ErrNotFound)
		}
		return nil, oops.Code("SESSION_RESOLVE_FAILED").
			With("operation", "find user by session id").
			Wrap(err)
	}
	return user, nil
}

// Destroy clears the user's session id. Destroying an already-cleared
// session is not an error; only an unknown user id is.
func (s *SessionService) Destroy(ctx context.Context, userID ulid.ULID) error {
	err := s.users.Update(ctx, userID, map[UpdateField]any{
		FieldSessionID: (*string)(nil),
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("SESSION_USER_NOT_FOUND").
				With("user_id", userID.String()).
				Wrap(ErrNotFound)
		}
		return oops.Code("SESSION_DESTROY_FAILED").
			With("operation", "clear session id").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return nil
}
