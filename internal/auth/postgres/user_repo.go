// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres implements the auth repositories on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/gatehouse/internal/auth"
)

// poolIface is the subset of pgxpool.Pool the repository uses. It lets
// tests substitute pgxmock without a database.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// lookupColumns whitelists the fields FindOne accepts. Anything else is
// caller misuse, reported as ErrInvalidFilter.
var lookupColumns = map[auth.LookupField]string{
	auth.LookupID:         "id",
	auth.LookupEmail:      "email",
	auth.LookupSessionID:  "session_id",
	auth.LookupResetToken: "reset_token",
}

// updateColumns whitelists the fields Update accepts.
var updateColumns = map[auth.UpdateField]string{
	auth.FieldEmail:        "email",
	auth.FieldPasswordHash: "password_hash",
	auth.FieldSessionID:    "session_id",
	auth.FieldResetToken:   "reset_token",
}

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	pool poolIface
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool poolIface) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create stores a new user. The unique index on lower(email) makes the
// store the arbiter of duplicate registrations; a violation surfaces as
// auth.ErrAlreadyExists.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (
			id, email, password_hash, session_id, reset_token,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		user.ID.String(),
		user.Email,
		user.PasswordHash,
		user.SessionID,
		user.ResetToken,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("USER_ALREADY_EXISTS").
				With("email", user.Email).
				Wrap(auth.ErrAlreadyExists)
		}
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			Wrap(err)
	}
	return nil
}

// FindOne retrieves a user by exactly one field. Email lookups are
// case-insensitive; the others compare exact values. When several rows
// match, the oldest id wins (LIMIT 1 in id order).
func (r *UserRepository) FindOne(ctx context.Context, field auth.LookupField, value string) (*auth.User, error) {
	column, ok := lookupColumns[field]
	if !ok {
		return nil, oops.Code("USER_INVALID_FILTER").
			With("field", string(field)).
			Wrap(auth.ErrInvalidFilter)
	}

	predicate := column + " = $1"
	if field == auth.LookupEmail {
		predicate = "LOWER(email) = LOWER($1)"
	}

	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT id, email, password_hash, session_id, reset_token,
		       created_at, updated_at
		FROM users
		WHERE %s
		ORDER BY id
		LIMIT 1
	`, predicate), value)

	user, err := r.scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("field", string(field)).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_FIND_FAILED").
			With("operation", "find user").
			With("field", string(field)).
			Wrap(err)
	}
	return user, nil
}

// Update mutates the named fields of one user in a single UPDATE statement,
// so concurrent readers never see a half-applied change. Values must be
// string or *string; nil pointers clear nullable columns.
func (r *UserRepository) Update(ctx context.Context, id ulid.ULID, fields map[auth.UpdateField]any) error {
	if len(fields) == 0 {
		return oops.Code("USER_UPDATE_EMPTY").Errorf("no fields to update")
	}

	// Deterministic column order keeps the statement stable for a given
	// field set.
	names := make([]string, 0, len(fields))
	for f := range fields {
		if _, ok := updateColumns[f]; !ok {
			return oops.Code("USER_UNKNOWN_FIELD").
				With("field", string(f)).
				Wrap(auth.ErrUnknownField)
		}
		names = append(names, string(f))
	}
	sort.Strings(names)

	assignments := make([]string, 0, len(names)+1)
	args := make([]any, 0, len(names)+2)
	args = append(args, id.String())
	for _, name := range names {
		args = append(args, fields[auth.UpdateField(name)])
		assignments = append(assignments, fmt.Sprintf("%s = $%d", updateColumns[auth.UpdateField(name)], len(args)))
	}
	args = append(args, time.Now())
	assignments = append(assignments, fmt.Sprintf("updated_at = $%d", len(args)))

	result, err := r.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE users SET %s WHERE id = $1`, strings.Join(assignments, ", ")),
		args...,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("USER_ALREADY_EXISTS").Wrap(auth.ErrAlreadyExists)
		}
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "update user").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// Count returns the number of registered users.
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, oops.Code("USER_COUNT_FAILED").
			With("operation", "count users").
			Wrap(err)
	}
	return n, nil
}

// scanUser scans a single row into a User.
// Callers are responsible for handling pgx.ErrNoRows.
func (r *UserRepository) scanUser(row pgx.Row) (*auth.User, error) {
	var (
		idStr        string
		email        string
		passwordHash string
		sessionID    *string
		resetToken   *string
		createdAt    time.Time
		updatedAt    time.Time
	)

	err := row.Scan(&idStr, &email, &passwordHash, &sessionID, &resetToken, &createdAt, &updatedAt)
	if err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to handle with context.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("USER_SCAN_FAILED").
			With("operation", "scan user").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}

	return &auth.User{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
		SessionID:    sessionID,
		ResetToken:   resetToken,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}, nil
}

// isUniqueViolation reports whether err is a postgres unique constraint
// violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)
