// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"regexp"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// emailRegex is a deliberately loose shape check: something@something.
// Real validation happens when mail is actually delivered.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+$`)

// User represents a registered account.
//
// SessionID and ResetToken are nullable: nil means no active session or no
// outstanding reset request. A user has at most one active session; a new
// login overwrites the previous session id.
type User struct {
	ID           ulid.ULID
	Email        string
	PasswordHash string
	SessionID    *string
	ResetToken   *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser creates a validated User with a freshly assigned id. The password
// hash must already be produced by a PasswordHasher; this constructor never
// sees plaintext.
func NewUser(email, passwordHash string) (*User, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_EMPTY_HASH").Errorf("password hash cannot be empty")
	}

	now := time.Now()
	return &User{
		ID:           ulid.Make(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ValidateEmail validates the shape of an email address.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code("AUTH_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if !emailRegex.MatchString(email) {
		return oops.Code("AUTH_INVALID_EMAIL").
			With("email", email).
			Errorf("email must have the form local@domain")
	}
	return nil
}

// LookupField names a column a user can be fetched by. FindOne accepts
// exactly one; anything else is ErrInvalidFilter.
type LookupField string

// Fields users can be looked up by.
const (
	LookupID         LookupField = "id"
	LookupEmail      LookupField = "email"
	LookupSessionID  LookupField = "session_id"
	LookupResetToken LookupField = "reset_token"
)

// UpdateField names a mutable column. Update rejects anything else with
// ErrUnknownField. ID and CreatedAt are immutable by construction.
type UpdateField string

// Fields Update may mutate.
const (
	FieldEmail        UpdateField = "email"
	FieldPasswordHash UpdateField = "password_hash"
	FieldSessionID    UpdateField = "session_id"
	FieldResetToken   UpdateField = "reset_token"
)

// UserRepository manages user persistence.
//
// Implementations must apply Update as one atomic write: a concurrent
// reader never observes a partially-updated record.
type UserRepository interface {
	// Create stores a new user. Email uniqueness is enforced here; a
	// duplicate fails with ErrAlreadyExists.
	Create(ctx context.Context, user *User) error

	// FindOne retrieves a user by a single field. Returns ErrNotFound when
	// no row matches and ErrInvalidFilter for an unrecognized field. When
	// more than one row matches (session_id and reset_token are not
	// constrained unique), the first by id order wins.
	FindOne(ctx context.Context, field LookupField, value string) (*User, error)

	// Update mutates only the named fields of the user with the given id
	// in a single statement. Values must be string or *string (nil clears
	// a nullable column). Returns ErrUnknownField for an unrecognized
	// field and ErrNotFound when no row has that id.
	Update(ctx context.Context, id ulid.ULID, fields map[UpdateField]any) error

	// Count returns the number of registered users.
	Count(ctx context.Context) (int64, error)
}
