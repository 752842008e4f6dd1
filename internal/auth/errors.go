// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "errors"

// Sentinel errors for the credential core. Callers classify failures with
// errors.Is; the HTTP layer maps them to status codes.
var (
	// ErrNotFound is returned when a requested user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when registering an email that is taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidToken is returned when a reset token is unknown or spent.
	ErrInvalidToken = errors.New("invalid reset token")

	// ErrInvalidFilter is returned for a lookup on an unrecognized field.
	ErrInvalidFilter = errors.New("invalid filter field")

	// ErrUnknownField is returned for an update naming an unrecognized field.
	ErrUnknownField = errors.New("unknown update field")
)
