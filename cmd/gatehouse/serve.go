// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/holomush/gatehouse/internal/auth"
	"github.com/holomush/gatehouse/internal/auth/postgres"
	"github.com/holomush/gatehouse/internal/config"
	"github.com/holomush/gatehouse/internal/gate"
	"github.com/holomush/gatehouse/internal/httpapi"
	"github.com/holomush/gatehouse/internal/logging"
	"github.com/holomush/gatehouse/internal/observability"
	"github.com/holomush/gatehouse/internal/store"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the authentication API server",
		Long: `Start the Gatehouse API server. Configuration comes from the file
named by --config, overridden by the flags below.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(resolveConfigFile(), cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	// Flag names double as config keys for the posflag provider.
	cmd.Flags().String("http.addr", "", "API listen address")
	cmd.Flags().String("metrics.addr", "", "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("database.url", "", "PostgreSQL connection URL")
	cmd.Flags().String("auth.mode", "", "authentication variant (basic or session)")
	cmd.Flags().String("auth.cookie_name", "", "session cookie name")
	cmd.Flags().String("auth.wildcard_policy", "", "excluded-path wildcard matching (contains or prefix)")
	cmd.Flags().String("log.format", "", "log format (json or text)")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logging.SetDefault(config.ServiceName, config.Version, cfg.Log.Format)
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.Database.URL, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	users := postgres.NewUserRepository(pool)
	hasher := auth.NewArgon2idHasher()

	authn, err := auth.NewServiceWithLogger(users, hasher, logger)
	if err != nil {
		return err
	}
	sessions, err := auth.NewSessionService(users)
	if err != nil {
		return err
	}
	resets, err := auth.NewResetService(users, hasher)
	if err != nil {
		return err
	}

	policy := gate.NewPathPolicy(cfg.Auth.ExcludedPaths, gate.WildcardPolicy(cfg.Auth.WildcardPolicy))

	var authenticator gate.Authenticator
	if cfg.Auth.Mode == "basic" {
		authenticator = gate.NewBasicAuthenticator(policy, authn, users)
	} else {
		authenticator = gate.NewSessionAuthenticator(policy, sessions, cfg.Auth.CookieName)
	}

	var metrics *observability.Metrics
	var obsServer *observability.Server
	var obsErrCh <-chan error
	if cfg.Metrics.Addr != "" {
		obsServer = observability.NewServer(cfg.Metrics.Addr, func() bool {
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			return pool.Ping(pingCtx) == nil
		})
		obsErrCh, err = obsServer.Start()
		if err != nil {
			return err
		}
		metrics = obsServer.Metrics()
	}

	apiServer, err := httpapi.NewServer(cfg.HTTP.Addr, httpapi.Deps{
		Authenticator: authenticator,
		AuthService:   authn,
		Sessions:      sessions,
		Resets:        resets,
		Users:         users,
		CookieName:    cfg.Auth.CookieName,
		Metrics:       metrics,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	apiErrCh, err := apiServer.Start()
	if err != nil {
		return err
	}

	logger.Info("gatehouse running",
		"http_addr", apiServer.Addr(),
		"auth_mode", cfg.Auth.Mode,
	)

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-apiErrCh:
	case err = <-obsErrCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if stopErr := apiServer.Stop(shutdownCtx); stopErr != nil && err == nil {
		err = stopErr
	}
	if obsServer != nil {
		if stopErr := obsServer.Stop(shutdownCtx); stopErr != nil && err == nil {
			err = stopErr
		}
	}
	return err
}
