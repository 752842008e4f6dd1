// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package httpapi exposes the credential core over a JSON API.
//
// Every route lives under /api/v1. The access gate middleware runs before
// protected handlers: a request to a protected path with no credential at
// all gets a 401, a credential that resolves to no user gets a 403.
package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/gatehouse/internal/auth"
	"github.com/holomush/gatehouse/internal/gate"
	"github.com/holomush/gatehouse/internal/observability"
)

// Server serves the Gatehouse API.
type Server struct {
	addr       string
	authr      gate.Authenticator
	authn      *auth.Service
	sessions   *auth.SessionService
	resets     *auth.ResetService
	users      auth.UserRepository
	cookieName string
	metrics    *observability.Metrics
	logger     *slog.Logger

	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// Deps bundles the collaborators the API needs.
type Deps struct {
	Authenticator gate.Authenticator
	AuthService   *auth.Service
	Sessions      *auth.SessionService
	Resets        *auth.ResetService
	Users         auth.UserRepository

	// CookieName is the session cookie set on login. Empty falls back to
	// gate.DefaultCookieName.
	CookieName string

	// Metrics is optional; nil disables request counters.
	Metrics *observability.Metrics

	// Logger is optional; nil falls back to slog.Default.
	Logger *slog.Logger
}

// NewServer creates the API server.
func NewServer(addr string, deps Deps) (*Server, error) {
	if addr == "" {
		return nil, oops.Code("API_CONFIG_INVALID").Errorf("listen address is required")
	}
	if deps.Authenticator == nil || deps.AuthService == nil || deps.Sessions == nil ||
		deps.Resets == nil || deps.Users == nil {
		return nil, oops.Code("API_NIL_DEPENDENCY").Errorf("all API dependencies are required")
	}
	cookieName := deps.CookieName
	if cookieName == "" {
		cookieName = gate.DefaultCookieName
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:       addr,
		authr:      deps.Authenticator,
		authn:      deps.AuthService,
		sessions:   deps.Sessions,
		resets:     deps.Resets,
		users:      deps.Users,
		cookieName: cookieName,
		metrics:    deps.Metrics,
		logger:     logger,
	}, nil
}

// Handler builds the full route table wrapped in the gate middleware.
// Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/status/{$}", s.handleStatus)
	mux.HandleFunc("GET /api/v1/stats", s.handleStats)
	mux.HandleFunc("GET /api/v1/unauthorized", s.handleUnauthorized)
	mux.HandleFunc("GET /api/v1/forbidden", s.handleForbidden)

	mux.HandleFunc("POST /api/v1/users", s.handleRegister)
	mux.HandleFunc("POST /api/v1/sessions", s.handleLogin)
	mux.HandleFunc("DELETE /api/v1/sessions", s.handleLogout)
	mux.HandleFunc("GET /api/v1/profile", s.handleProfile)
	mux.HandleFunc("POST /api/v1/reset_password", s.handleResetRequest)
	mux.HandleFunc("PUT /api/v1/reset_password", s.handleResetRedeem)

	return s.requireAuth(s.countRequests(mux))
}

// Start begins serving the API. It returns an error channel that receives
// any error from the HTTP server after startup; the channel is closed when
// the server stops gracefully.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("api server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("api server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the API server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_api_server").Wrap(err)
		}
	}

	s.logger.Info("api server stopped")
	return nil
}

// Addr returns the address the server is listening on.
// Returns empty string if not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
