// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package gate decides whether a request needs authentication and resolves
// the acting user from whatever credential the request carries.
//
// Two Authenticator variants exist: BasicAuthenticator reads an
// Authorization header, SessionAuthenticator reads a session cookie. One of
// them is selected at startup by configuration; handlers only ever see the
// interface.
package gate

import (
	"context"
	"net/http"
	"strings"

	"github.com/holomush/gatehouse/internal/auth"
)

// Credential is an authentication proof extracted from a request. Exactly
// one variant is populated: Email/Password for basic auth, SessionID for
// cookie auth.
type Credential struct {
	Email     string
	Password  string
	SessionID string
}

// Authenticator is the contract every authentication variant satisfies.
type Authenticator interface {
	// RequiresAuth reports whether the path is protected.
	RequiresAuth(path string) bool

	// CredentialPresented reports whether the request carries the
	// variant's credential at all, well-formed or not. The gate answers
	// 401 only when this is false; a garbled credential falls through
	// to the 403 path.
	CredentialPresented(r *http.Request) bool

	// ExtractCredential pulls the variant's credential out of the request.
	// Returns ok=false for an absent or malformed credential; it never
	// errors.
	ExtractCredential(r *http.Request) (Credential, bool)

	// ResolveUser resolves the request to a user, or nil when the
	// credential is absent, malformed, or does not match an account.
	ResolveUser(ctx context.Context, r *http.Request) *auth.User
}

// WildcardPolicy selects how a trailing-* exclusion entry matches.
type WildcardPolicy string

const (
	// PolicyContains excludes any path containing the marker's stem as a
	// substring. This mirrors the historic behavior this service replaced
	// and is the default; it is looser than it looks ("/api/v1/admin/*"
	// also excludes "/other/api/v1/admin/x").
	PolicyContains WildcardPolicy = "contains"

	// PolicyPrefix excludes only paths that start with the marker's stem.
	PolicyPrefix WildcardPolicy = "prefix"
)

// PathPolicy decides which request paths require authentication.
type PathPolicy struct {
	excluded []string
	wildcard WildcardPolicy
}

// NewPathPolicy creates a PathPolicy from the excluded-path entries.
// Entries ending in '*' are wildcard markers matched per the policy; all
// other entries match exactly after trailing-slash normalization.
func NewPathPolicy(excluded []string, wildcard WildcardPolicy) *PathPolicy {
	if wildcard != PolicyPrefix {
		wildcard = PolicyContains
	}
	return &PathPolicy{excluded: excluded, wildcard: wildcard}
}

// RequiresAuth reports whether the path is protected. Unknown is protected:
// an empty path or an empty exclusion list requires auth.
func (p *PathPolicy) RequiresAuth(path string) bool {
	if path == "" || len(p.excluded) == 0 {
		return true
	}

	normalized := ensureTrailingSlash(path)

	for _, entry := range p.excluded {
		if stem, isWildcard := strings.CutSuffix(entry, "*"); isWildcard {
			switch p.wildcard {
			case PolicyPrefix:
				if strings.HasPrefix(normalized, stem) {
					return false
				}
			default:
				if strings.Contains(normalized, stem) {
					return false
				}
			}
			continue
		}
		if ensureTrailingSlash(entry) == normalized {
			return false
		}
	}
	return true
}

func ensureTrailingSlash(path string) string {
	if strings.HasSuffix(path, "/") {
		return path
	}
	return path + "/"
}
