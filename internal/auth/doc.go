// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth implements the credential lifecycle for Gatehouse.
//
// # Domain Types
//
// User is created through NewUser, which validates the email shape and
// assigns the id. Direct struct initialization bypasses validation and may
// create invalid state. Repository implementations receive pre-validated
// values from the services below.
//
// # Services
//
// Service types coordinate domain operations:
//   - Service - registration and credential validation
//   - SessionService - session id issuance, resolution, revocation
//   - ResetService - one-time reset tokens and password overwrite
//
// Services are created with New*Service constructors that validate
// dependencies. All expected misses (unknown email, bad password, spent
// token) surface as sentinel errors or booleans, never panics.
package auth
