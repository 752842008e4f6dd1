// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/holomush/gatehouse/internal/auth"
	"github.com/holomush/gatehouse/pkg/errutil"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck // response write error means the client went away
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// handleIndex answers the root with a greeting, matching the original
// service's welcome payload.
func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Bienvenue"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	n, err := s.users.Count(r.Context())
	if err != nil {
		errutil.LogError(s.logger, "stats query failed", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"users": n})
}

// handleUnauthorized and handleForbidden exist to exercise the error
// responses end to end.
func (s *Server) handleUnauthorized(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusUnauthorized, "Unauthorized")
}

func (s *Server) handleForbidden(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusForbidden, "Forbidden")
}

// handleRegister creates an account from form fields email and password.
// A duplicate email answers 400.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	password := r.FormValue("password")
	if email == "" {
		writeError(w, http.StatusBadRequest, "email missing")
		return
	}
	if password == "" {
		writeError(w, http.StatusBadRequest, "password missing")
		return
	}

	_, err := s.authn.Register(r.Context(), email, password)
	if err != nil {
		s.recordRegistration("failure")
		if errors.Is(err, auth.ErrAlreadyExists) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "email already registered"})
			return
		}
		errutil.LogError(s.logger, "registration failed", err)
		writeError(w, errutil.HTTPStatus(err), "registration failed")
		return
	}

	s.recordRegistration("success")
	writeJSON(w, http.StatusOK, map[string]string{"email": email, "message": "user created"})
}

// handleLogin validates credentials and sets the session cookie.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	password := r.FormValue("password")
	if email == "" {
		writeError(w, http.StatusBadRequest, "email missing")
		return
	}
	if password == "" {
		writeError(w, http.StatusBadRequest, "password missing")
		return
	}

	if !s.authn.ValidLogin(r.Context(), email, password) {
		s.recordLogin("failure")
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	sessionID, err := s.sessions.CreateSession(r.Context(), email)
	if err != nil {
		s.recordLogin("failure")
		errutil.LogError(s.logger, "session creation failed", err)
		writeError(w, errutil.HTTPStatus(err), "login failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.recordLogin("success")
	writeJSON(w, http.StatusOK, map[string]string{"email": email, "message": "logged in"})
}

// handleLogout destroys the session named by the cookie and redirects home.
// An unknown or missing session answers 403.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sessionID := s.sessionCookie(r)
	user, err := s.sessions.Resolve(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}

	if err := s.sessions.Destroy(r.Context(), user.ID); err != nil {
		errutil.LogError(s.logger, "session destroy failed", err)
		writeError(w, errutil.HTTPStatus(err), "logout failed")
		return
	}

	// Expire the cookie client-side too.
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusFound)
}

// handleProfile reports the authenticated user's email. The gate has
// already resolved the user for this protected path; in the rare case it
// has not (profile was added to the exclusion list), fall back to the
// cookie directly.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r.Context())
	if user == nil {
		resolved, err := s.sessions.Resolve(r.Context(), s.sessionCookie(r))
		if err != nil {
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}
		user = resolved
	}
	writeJSON(w, http.StatusOK, map[string]string{"email": user.Email})
}

// handleResetRequest issues a reset token for the given email. An unknown
// email answers 403.
func (s *Server) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "email missing")
		return
	}

	token, err := s.resets.IssueResetToken(r.Context(), email)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}
		errutil.LogError(s.logger, "reset token issuance failed", err)
		writeError(w, errutil.HTTPStatus(err), "reset request failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"email": email, "reset_token": token})
}

// handleResetRedeem overwrites the password named by a reset token. An
// unknown or spent token answers 403.
func (s *Server) handleResetRedeem(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	token := r.FormValue("reset_token")
	newPassword := r.FormValue("new_password")
	if token == "" {
		writeError(w, http.StatusBadRequest, "reset_token missing")
		return
	}
	if newPassword == "" {
		writeError(w, http.StatusBadRequest, "new_password missing")
		return
	}

	if err := s.resets.ResetPassword(r.Context(), token, newPassword); err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}
		errutil.LogError(s.logger, "password reset failed", err)
		writeError(w, errutil.HTTPStatus(err), "password reset failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"email": email, "message": "Password updated"})
}

// sessionCookie returns the session cookie value, or empty when absent.
func (s *Server) sessionCookie(r *http.Request) string {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (s *Server) recordLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Server) recordRegistration(outcome string) {
	if s.metrics != nil {
		s.metrics.RegistrationsTotal.WithLabelValues(outcome).Inc()
	}
}
