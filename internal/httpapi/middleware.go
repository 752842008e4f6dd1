// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/holomush/gatehouse/internal/auth"
)

// ctxKey is the private context key type for request-scoped values.
type ctxKey int

const userKey ctxKey = iota

// CurrentUser returns the user the gate resolved for this request, or nil
// on an excluded path.
func CurrentUser(ctx context.Context) *auth.User {
	user, _ := ctx.Value(userKey).(*auth.User)
	return user
}

// requireAuth enforces the access gate on every request. Excluded paths
// pass through untouched. On protected paths, a request presenting no
// credential at all is a 401; a credential that is garbled or resolves to
// no user is a 403.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authr.RequiresAuth(r.URL.Path) {
			s.recordGateDecision("excluded")
			next.ServeHTTP(w, r)
			return
		}

		if !s.authr.CredentialPresented(r) {
			s.recordGateDecision("unauthorized")
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		user := s.authr.ResolveUser(r.Context(), r)
		if user == nil {
			s.recordGateDecision("forbidden")
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}

		s.recordGateDecision("allowed")
		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// statusRecorder captures the response status for the request counter.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// countRequests records one counter increment per request, labeled by mux
// pattern (bounded cardinality) and status.
func (s *Server) countRequests(mux *http.ServeMux) http.Handler {
	if s.metrics == nil {
		return mux
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		mux.ServeHTTP(rec, r)

		// Label by registered pattern, not raw path, to bound cardinality.
		_, route := mux.Handler(r)
		if route == "" {
			route = "unmatched"
		}
		s.metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}

func (s *Server) recordGateDecision(result string) {
	if s.metrics == nil {
		return
	}
	s.metrics.GateDecisionsTotal.WithLabelValues(result).Inc()
}
