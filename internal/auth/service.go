// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// Service validates email/password pairs and registers new accounts.
type Service struct {
	users  UserRepository
	hasher PasswordHasher
	logger *slog.Logger
}

// NewService creates a new Service.
func NewService(users UserRepository, hasher PasswordHasher) (*Service, error) {
	return NewServiceWithLogger(users, hasher, slog.Default())
}

// NewServiceWithLogger creates a new Service with a custom logger.
func NewServiceWithLogger(users UserRepository, hasher PasswordHasher, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("logger is required")
	}
	return &Service{users: users, hasher: hasher, logger: logger}, nil
}

// dummyPasswordHash is used when a user doesn't exist to prevent timing attacks.
// We still run password verification to make response time consistent.
// This is NOT a real credential - it's a fake hash that will never match any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Register creates a new account. It fails with ErrAlreadyExists when the
// email is taken. The pre-check below gives the common case a clean error;
// the unique index on email closes the race between two concurrent
// registrations, so the second writer also gets ErrAlreadyExists.
func (s *Service) Register(ctx context.Context, email, password string) (*User, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	_, err := s.users.FindOne(ctx, LookupEmail, email)
	if err == nil {
		return nil, oops.Code("AUTH_ALREADY_EXISTS").
			With("email", email).
			Wrap(ErrAlreadyExists)
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "find user by email").
			Wrap(err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(email, hash)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "construct user").
			Wrap(err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			// Lost the race against a concurrent registration.
			return nil, oops.Code("AUTH_ALREADY_EXISTS").
				With("email", email).
				Wrap(ErrAlreadyExists)
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	s.logger.Info("user registered", "user_id", user.ID.String())
	return user, nil
}

// ValidLogin reports whether the email/password pair is valid. It never
// returns an error to the caller: unknown emails, bad passwords, and
// malformed stored hashes all yield false. An unknown email still pays for
// a verification against a dummy hash so response time does not leak
// whether the account exists.
func (s *Service) ValidLogin(ctx context.Context, email, password string) bool {
	targetHash := dummyPasswordHash
	userExists := false

	user, err := s.users.FindOne(ctx, LookupEmail, email)
	if err == nil {
		targetHash = user.PasswordHash
		userExists = true
	} else if !errors.Is(err, ErrNotFound) {
		s.logger.Warn("login lookup failed", "error", err)
		return false
	}

	valid, err := s.hasher.Verify(password, targetHash)
	if err != nil {
		// Malformed stored hash. Treated as a mismatch per policy; the
		// dummy hash errors here too for non-existent users.
		if userExists {
			s.logger.Warn("stored password hash is malformed", "user_id", user.ID.String())
		}
		return false
	}

	return userExists && valid
}
