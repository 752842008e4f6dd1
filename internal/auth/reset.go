// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// ResetService handles the password recovery flow: issue a one-time token,
// redeem it for a password change. Tokens live on the user record and are
// cleared in the same write that stores the new hash, so a token cannot be
// replayed.
type ResetService struct {
	users  UserRepository
	hasher PasswordHasher
}

// NewResetService creates a new ResetService.
func NewResetService(users UserRepository, hasher PasswordHasher) (*ResetService, error) {
	if users == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("password hasher is required")
	}
	return &ResetService{users: users, hasher: hasher}, nil
}

// IssueResetToken generates a fresh reset token for the user with the
// given email and stores it on the record, replacing any outstanding one.
// Returns the plaintext token for delivery (sending mail is not this
// service's job). Fails with ErrNotFound for an unknown email.
func (s *ResetService) IssueResetToken(ctx context.Context, email string) (string, error) {
	user, err := s.users.FindOne(ctx, LookupEmail, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", oops.Code("RESET_USER_NOT_FOUND").
				With("email", email).
				Wrap(ErrNotFound)
		}
		return "", oops.Code("RESET_ISSUE_FAILED").
			With("operation", "find user by email").
			Wrap(err)
	}

	token := uuid.NewString()
	if err := s.users.Update(ctx, user.ID, map[UpdateField]any{
		FieldResetToken: &token,
	}); err != nil {
		return "", oops.Code("RESET_ISSUE_FAILED").
			With("operation", "store reset token").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	return token, nil
}

// ResetPassword redeems a reset token: hashes the new password and, in one
// atomic write, overwrites the stored hash and clears the token. Fails with
// ErrInvalidToken when no user holds the token (never issued, or already
// redeemed).
func (s *ResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return oops.Code("RESET_TOKEN_EMPTY").Wrap(ErrInvalidToken)
	}

	user, err := s.users.FindOne(ctx, LookupResetToken, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("RESET_TOKEN_INVALID").Wrap(ErrInvalidToken)
		}
		return oops.Code("RESET_REDEEM_FAILED").
			With("operation", "find user by reset token").
			Wrap(err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("RESET_REDEEM_FAILED").
			With("operation", "hash new password").
			Wrap(err)
	}

	// Hash and token move together; a concurrent redeem of the same token
	// sees either the old record or a record with no token, never a mix.
	if err := s.users.Update(ctx, user.ID, map[UpdateField]any{
		FieldPasswordHash: hash,
		FieldResetToken:   (*string)(nil),
	}); err != nil {
		return oops.Code("RESET_REDEEM_FAILED").
			With("operation", "store new password").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	return nil
}
