// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/holomush/gatehouse/internal/config"
	"github.com/holomush/gatehouse/internal/store"
)

const statusTimeout = 5 * time.Second

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report configuration and database status",
		Long: `Report the effective configuration, check that the PostgreSQL
database is reachable, and print the current migration version.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(resolveConfigFile(), cmd.Flags())
			if err != nil {
				return err
			}
			return runStatus(cmd, cfg)
		},
	}

	cmd.Flags().String("database.url", "", "PostgreSQL connection URL")

	return cmd
}

func runStatus(cmd *cobra.Command, cfg *config.Config) error {
	cmd.Printf("http.addr:  %s\n", cfg.HTTP.Addr)
	cmd.Printf("auth.mode:  %s\n", cfg.Auth.Mode)

	// Connect's retry chatter is noise for a one-shot check.
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithTimeout(cmd.Context(), statusTimeout)
	defer cancel()

	pool, err := store.Connect(ctx, cfg.Database.URL, quiet)
	if err != nil {
		return err
	}
	defer pool.Close()
	cmd.Println("database:   reachable")

	migrator, err := store.NewMigrator(cfg.Database.URL)
	if err != nil {
		return err
	}
	defer migrator.Close() //nolint:errcheck // close error does not affect the status report

	version, dirty, err := migrator.Version()
	if err != nil {
		return err
	}
	cmd.Printf("migrations: version %d, dirty=%v\n", version, dirty)
	return nil
}
