// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package gate

import (
	"context"
	"net/http"

	"github.com/holomush/gatehouse/internal/auth"
)

// DefaultCookieName is the session cookie used when none is configured.
const DefaultCookieName = "session_id"

// SessionAuthenticator authenticates requests carrying a session cookie.
type SessionAuthenticator struct {
	policy     *PathPolicy
	sessions   *auth.SessionService
	cookieName string
}

// NewSessionAuthenticator creates a SessionAuthenticator. An empty
// cookieName falls back to DefaultCookieName.
func NewSessionAuthenticator(policy *PathPolicy, sessions *auth.SessionService, cookieName string) *SessionAuthenticator {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &SessionAuthenticator{policy: policy, sessions: sessions, cookieName: cookieName}
}

// CookieName returns the name of the session cookie this variant reads.
func (a *SessionAuthenticator) CookieName() string {
	return a.cookieName
}

// RequiresAuth reports whether the path is protected.
func (a *SessionAuthenticator) RequiresAuth(path string) bool {
	return a.policy.RequiresAuth(path)
}

// CredentialPresented reports whether the session cookie exists on the
// request, even with an empty value.
func (a *SessionAuthenticator) CredentialPresented(r *http.Request) bool {
	if r == nil {
		return false
	}
	_, err := r.Cookie(a.cookieName)
	return err == nil
}

// ExtractCredential reads the session cookie. A missing or empty cookie
// yields ok=false.
func (a *SessionAuthenticator) ExtractCredential(r *http.Request) (Credential, bool) {
	if r == nil {
		return Credential{}, false
	}
	cookie, err := r.Cookie(a.cookieName)
	if err != nil || cookie.Value == "" {
		return Credential{}, false
	}
	return Credential{SessionID: cookie.Value}, true
}

// ResolveUser resolves the session cookie to its user, or nil when the
// cookie is absent or names no active session.
func (a *SessionAuthenticator) ResolveUser(ctx context.Context, r *http.Request) *auth.User {
	cred, ok := a.ExtractCredential(r)
	if !ok {
		return nil
	}
	user, err := a.sessions.Resolve(ctx, cred.SessionID)
	if err != nil {
		return nil
	}
	return user
}

// Compile-time interface check.
var _ Authenticator = (*SessionAuthenticator)(nil)
