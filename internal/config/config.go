// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads service configuration from defaults, an optional
// YAML file, and command-line flags, in increasing order of precedence.
package config

import (
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Service identity reported in logs and metrics.
const (
	ServiceName = "gatehouse"
	Version     = "0.3.0"
)

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

// MetricsConfig configures the observability listener.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// AuthConfig configures the access gate.
type AuthConfig struct {
	// Mode selects the authentication variant: "basic" or "session".
	Mode string `koanf:"mode"`

	// CookieName is the session cookie name (session mode only).
	CookieName string `koanf:"cookie_name"`

	// ExcludedPaths are route patterns exempt from the gate. Entries
	// ending in '*' are wildcard markers.
	ExcludedPaths []string `koanf:"excluded_paths"`

	// WildcardPolicy is "contains" (historic behavior, default) or
	// "prefix" (strict).
	WildcardPolicy string `koanf:"wildcard_policy"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Format string `koanf:"format"`
}

// Config is the root service configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Log      LogConfig      `koanf:"log"`
}

// Default returns the built-in configuration. The excluded paths mirror the
// open endpoints of the API: the welcome page, registration, login, reset,
// and the status views stay reachable without a credential. Stats stays
// behind the gate.
func Default() Config {
	return Config{
		HTTP:     HTTPConfig{Addr: ":8080"},
		Metrics:  MetricsConfig{Addr: "127.0.0.1:9100"},
		Database: DatabaseConfig{},
		Auth: AuthConfig{
			Mode:       "session",
			CookieName: "session_id",
			ExcludedPaths: []string{
				"/",
				"/api/v1/status/",
				"/api/v1/unauthorized/",
				"/api/v1/forbidden/",
				"/api/v1/users/",
				"/api/v1/sessions/",
				"/api/v1/reset_password/",
			},
			WildcardPolicy: "contains",
		},
		Log: LogConfig{Format: "json"},
	}
}

// Load builds the effective configuration: defaults, then the YAML file at
// path (skipped when path is empty), then any set flags. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// Defaults first, so an unchanged flag never shadows them.
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, oops.Code("CONFIG_INVALID").
			With("operation", "load defaults").
			Wrap(err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, oops.Code("CONFIG_FILE_MISSING").
				With("path", path).
				Wrap(err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_PARSE_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").
			With("operation", "unmarshal config").
			Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("http.addr is required")
	}
	if c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url is required")
	}
	if c.Auth.Mode != "basic" && c.Auth.Mode != "session" {
		return oops.Code("CONFIG_INVALID").
			Errorf("auth.mode must be 'basic' or 'session', got %q", c.Auth.Mode)
	}
	if c.Auth.WildcardPolicy != "contains" && c.Auth.WildcardPolicy != "prefix" {
		return oops.Code("CONFIG_INVALID").
			Errorf("auth.wildcard_policy must be 'contains' or 'prefix', got %q", c.Auth.WildcardPolicy)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").
			Errorf("log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	return nil
}
