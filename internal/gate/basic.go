// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package gate

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/holomush/gatehouse/internal/auth"
)

// basicScheme is the Authorization scheme tag, followed by a single space.
const basicScheme = "Basic "

// BasicAuthenticator authenticates requests carrying an
// "Authorization: Basic <base64(email:password)>" header.
type BasicAuthenticator struct {
	policy *PathPolicy
	authn  *auth.Service
	users  auth.UserRepository
}

// NewBasicAuthenticator creates a BasicAuthenticator.
func NewBasicAuthenticator(policy *PathPolicy, authn *auth.Service, users auth.UserRepository) *BasicAuthenticator {
	return &BasicAuthenticator{policy: policy, authn: authn, users: users}
}

// RequiresAuth reports whether the path is protected.
func (a *BasicAuthenticator) RequiresAuth(path string) bool {
	return a.policy.RequiresAuth(path)
}

// CredentialPresented reports whether the request carries an Authorization
// header at all, regardless of scheme or encoding.
func (a *BasicAuthenticator) CredentialPresented(r *http.Request) bool {
	return r != nil && r.Header.Get("Authorization") != ""
}

// ExtractCredential decodes the basic-auth header. Any malformed step -
// missing header, wrong scheme, bad base64, no ':' delimiter - yields
// ok=false, never an error.
func (a *BasicAuthenticator) ExtractCredential(r *http.Request) (Credential, bool) {
	if r == nil {
		return Credential{}, false
	}

	header := r.Header.Get("Authorization")
	payload, ok := strings.CutPrefix(header, basicScheme)
	if !ok {
		return Credential{}, false
	}

	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Credential{}, false
	}

	email, password, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return Credential{}, false
	}

	return Credential{Email: email, Password: password}, true
}

// ResolveUser validates the basic-auth credential and returns the matching
// user, or nil at the first failure in the chain.
func (a *BasicAuthenticator) ResolveUser(ctx context.Context, r *http.Request) *auth.User {
	cred, ok := a.ExtractCredential(r)
	if !ok {
		return nil
	}
	if !a.authn.ValidLogin(ctx, cred.Email, cred.Password) {
		return nil
	}
	user, err := a.users.FindOne(ctx, auth.LookupEmail, cred.Email)
	if err != nil {
		return nil
	}
	return user
}

// Compile-time interface check.
var _ Authenticator = (*BasicAuthenticator)(nil)
