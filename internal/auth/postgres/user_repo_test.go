// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/gatehouse/internal/auth"
)

func newTestUser(t *testing.T) *auth.User {
	t.Helper()
	user, err := auth.NewUser("alice@example.com", "$argon2id$stub")
	require.NoError(t, err)
	return user
}

func uniqueViolation() error {
	return &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_lower_idx"}
}

func TestUserRepository_Create(t *testing.T) {
	user := newTestUser(t)

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
		errMsg    string
	}{
		{
			name: "successful insert",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs(
						user.ID.String(),
						user.Email,
						user.PasswordHash,
						user.SessionID,
						user.ResetToken,
						user.CreatedAt,
						user.UpdatedAt,
					).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "duplicate email",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs(
						user.ID.String(),
						user.Email,
						user.PasswordHash,
						user.SessionID,
						user.ResetToken,
						user.CreatedAt,
						user.UpdatedAt,
					).
					WillReturnError(uniqueViolation())
			},
			wantErr: auth.ErrAlreadyExists,
		},
		{
			name: "database error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs(
						user.ID.String(),
						user.Email,
						user.PasswordHash,
						user.SessionID,
						user.ResetToken,
						user.CreatedAt,
						user.UpdatedAt,
					).
					WillReturnError(errors.New("connection refused"))
			},
			errMsg: "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err, "failed to create mock")
			defer mock.Close()

			tt.setupMock(mock)

			repo := NewUserRepository(mock)
			err = repo.Create(context.Background(), user)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			default:
				require.NoError(t, err)
			}

			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestUserRepository_FindOne(t *testing.T) {
	user := newTestUser(t)
	columns := []string{
		"id", "email", "password_hash", "session_id", "reset_token",
		"created_at", "updated_at",
	}

	userRow := func() *pgxmock.Rows {
		return pgxmock.NewRows(columns).AddRow(
			user.ID.String(),
			user.Email,
			user.PasswordHash,
			user.SessionID,
			user.ResetToken,
			user.CreatedAt,
			user.UpdatedAt,
		)
	}

	tests := []struct {
		name      string
		field     auth.LookupField
		value     string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
		errMsg    string
	}{
		{
			name:  "find by email is case-insensitive",
			field: auth.LookupEmail,
			value: "Alice@Example.COM",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`WHERE LOWER\(email\) = LOWER\(\$1\)`).
					WithArgs("Alice@Example.COM").
					WillReturnRows(userRow())
			},
		},
		{
			name:  "find by session id",
			field: auth.LookupSessionID,
			value: "22222222-2222-4222-8222-222222222222",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`WHERE session_id = \$1`).
					WithArgs("22222222-2222-4222-8222-222222222222").
					WillReturnRows(userRow())
			},
		},
		{
			name:  "find by reset token",
			field: auth.LookupResetToken,
			value: "44444444-4444-4444-8444-444444444444",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`WHERE reset_token = \$1`).
					WithArgs("44444444-4444-4444-8444-444444444444").
					WillReturnRows(userRow())
			},
		},
		{
			name:  "no match",
			field: auth.LookupEmail,
			value: "ghost@example.com",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`WHERE LOWER\(email\) = LOWER\(\$1\)`).
					WithArgs("ghost@example.com").
					WillReturnRows(pgxmock.NewRows(columns))
			},
			wantErr: auth.ErrNotFound,
		},
		{
			name:      "unknown lookup field",
			field:     auth.LookupField("favourite_colour"),
			value:     "blue",
			setupMock: func(pgxmock.PgxPoolIface) {},
			wantErr:   auth.ErrInvalidFilter,
		},
		{
			name:  "database error",
			field: auth.LookupID,
			value: user.ID.String(),
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`WHERE id = \$1`).
					WithArgs(user.ID.String()).
					WillReturnError(errors.New("timeout"))
			},
			errMsg: "timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err, "failed to create mock")
			defer mock.Close()

			tt.setupMock(mock)

			repo := NewUserRepository(mock)
			got, err := repo.FindOne(context.Background(), tt.field, tt.value)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			default:
				require.NoError(t, err)
				assert.Equal(t, user.ID, got.ID)
				assert.Equal(t, user.Email, got.Email)
				assert.Equal(t, user.PasswordHash, got.PasswordHash)
			}

			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestUserRepository_FindOne_multipleMatchesDeterministic(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	defer mock.Close()

	// The query orders by id and takes one row, so the store decides
	// the winner; the repository just trusts the single returned row.
	first := newTestUser(t)
	mock.ExpectQuery(`ORDER BY id\s+LIMIT 1`).
		WithArgs("shared-session").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "email", "password_hash", "session_id", "reset_token",
			"created_at", "updated_at",
		}).AddRow(
			first.ID.String(), first.Email, first.PasswordHash,
			first.SessionID, first.ResetToken, first.CreatedAt, first.UpdatedAt,
		))

	repo := NewUserRepository(mock)
	got, err := repo.FindOne(context.Background(), auth.LookupSessionID, "shared-session")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
}

func TestUserRepository_Update(t *testing.T) {
	user := newTestUser(t)
	sessionID := "22222222-2222-4222-8222-222222222222"

	tests := []struct {
		name      string
		fields    map[auth.UpdateField]any
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
		errMsg    string
	}{
		{
			name:   "set session id",
			fields: map[auth.UpdateField]any{auth.FieldSessionID: &sessionID},
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`UPDATE users SET session_id = \$2, updated_at = \$3 WHERE id = \$1`).
					WithArgs(user.ID.String(), &sessionID, pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			},
		},
		{
			name:   "clear session id",
			fields: map[auth.UpdateField]any{auth.FieldSessionID: (*string)(nil)},
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`UPDATE users SET session_id = \$2, updated_at = \$3 WHERE id = \$1`).
					WithArgs(user.ID.String(), (*string)(nil), pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			},
		},
		{
			name: "password and reset token move in one statement",
			fields: map[auth.UpdateField]any{
				auth.FieldPasswordHash: "new-hash",
				auth.FieldResetToken:   (*string)(nil),
			},
			setupMock: func(mock pgxmock.PgxPoolIface) {
				// Columns are sorted, so password_hash binds before reset_token.
				mock.ExpectExec(`UPDATE users SET password_hash = \$2, reset_token = \$3, updated_at = \$4 WHERE id = \$1`).
					WithArgs(user.ID.String(), "new-hash", (*string)(nil), pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			},
		},
		{
			name:      "no fields",
			fields:    map[auth.UpdateField]any{},
			setupMock: func(pgxmock.PgxPoolIface) {},
			errMsg:    "no fields to update",
		},
		{
			name:      "unknown field",
			fields:    map[auth.UpdateField]any{auth.UpdateField("favourite_colour"): "blue"},
			setupMock: func(pgxmock.PgxPoolIface) {},
			wantErr:   auth.ErrUnknownField,
		},
		{
			name:   "no row matched",
			fields: map[auth.UpdateField]any{auth.FieldSessionID: &sessionID},
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`UPDATE users SET session_id = \$2, updated_at = \$3 WHERE id = \$1`).
					WithArgs(user.ID.String(), &sessionID, pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("UPDATE", 0))
			},
			wantErr: auth.ErrNotFound,
		},
		{
			name:   "email update hits the unique index",
			fields: map[auth.UpdateField]any{auth.FieldEmail: "taken@example.com"},
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`UPDATE users SET email = \$2, updated_at = \$3 WHERE id = \$1`).
					WithArgs(user.ID.String(), "taken@example.com", pgxmock.AnyArg()).
					WillReturnError(uniqueViolation())
			},
			wantErr: auth.ErrAlreadyExists,
		},
		{
			name:   "database error",
			fields: map[auth.UpdateField]any{auth.FieldSessionID: &sessionID},
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`UPDATE users SET session_id = \$2, updated_at = \$3 WHERE id = \$1`).
					WithArgs(user.ID.String(), &sessionID, pgxmock.AnyArg()).
					WillReturnError(errors.New("connection lost"))
			},
			errMsg: "connection lost",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err, "failed to create mock")
			defer mock.Close()

			tt.setupMock(mock)

			repo := NewUserRepository(mock)
			err = repo.Update(context.Background(), user.ID, tt.fields)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			default:
				require.NoError(t, err)
			}

			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestUserRepository_Count(t *testing.T) {
	t.Run("returns the user count", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(42)))

		repo := NewUserRepository(mock)
		n, err := repo.Count(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(42), n)
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("database error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).
			WillReturnError(errors.New("connection refused"))

		repo := NewUserRepository(mock)
		_, err = repo.Count(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})
}

func TestUserRepository_scanMalformedID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	defer mock.Close()

	mock.ExpectQuery(`WHERE id = \$1`).
		WithArgs("not-a-ulid").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "email", "password_hash", "session_id", "reset_token",
			"created_at", "updated_at",
		}).AddRow(
			"not-a-ulid", "alice@example.com", "hash",
			(*string)(nil), (*string)(nil), time.Now(), time.Now(),
		))

	repo := NewUserRepository(mock)
	_, err = repo.FindOne(context.Background(), auth.LookupID, "not-a-ulid")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
}

// Compile-time check that pgxmock satisfies the pool interface the
// repository is built against.
var _ poolIface = (pgxmock.PgxPoolIface)(nil)

func TestNewUserRepository(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	defer mock.Close()

	repo := NewUserRepository(mock)
	require.NotNil(t, repo)
}
