// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package config loads Gatehouse configuration from defaults, an optional
// YAML file, and command-line flags, in that order of precedence.
package config

import (
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"
)

// Default values.
const (
	DefaultHTTPAddr    = "127.0.0.1:8080"
	DefaultMetricsAddr = "127.0.0.1:9100"
)

// Config is the full Gatehouse configuration tree.
type Config struct {
	Database Database `koanf:"database"`
	HTTP     HTTP     `koanf:"http"`
	Metrics  Metrics  `koanf:"metrics"`
	Auth     Auth     `koanf:"auth"`
	Session  Session  `koanf:"session"`
	Log      Log      `koanf:"log"`
}

// Database holds storage settings.
type Database struct {
	URL string `koanf:"url"`
}

// HTTP holds the web server settings.
type HTTP struct {
	Addr string `koanf:"addr"`
}

// Metrics holds the observability server settings. An empty Addr disables it.
type Metrics struct {
	Addr string `koanf:"addr"`
}

// Auth holds the authentication core settings.
type Auth struct {
	BcryptCost        int `koanf:"bcrypt_cost"`
	MinPasswordLength int `koanf:"min_password_length"`
}

// Session holds session carrier settings.
type Session struct {
	TTL time.Duration `koanf:"ttl"`
}

// Log holds logging settings.
type Log struct {
	Format string `koanf:"format"`
}

// Default returns the configuration defaults.
func Default() Config {
	return Config{
		Database: Database{},
		HTTP:     HTTP{Addr: DefaultHTTPAddr},
		Metrics:  Metrics{Addr: DefaultMetricsAddr},
		Auth: Auth{
			BcryptCost:        10,
			MinPasswordLength: 8,
		},
		Session: Session{TTL: time.Hour},
		Log:     Log{Format: "json"},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (if non-empty), then the given flag set (if non-nil). Keys in the flag set
// use the same dotted names as the file ("http.addr", "session.ttl", ...).
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "load flags").
				Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_INVALID").
			With("operation", "unmarshal config").
			Wrap(err)
	}

	// Environment fallback for deployments that configure nothing else.
	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.HTTP.Addr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("http.addr is required")
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return oops.Code("CONFIG_INVALID").
			With("bcrypt_cost", c.Auth.BcryptCost).
			Errorf("auth.bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.Auth.MinPasswordLength <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("auth.min_password_length must be positive")
	}
	if c.Session.TTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("session.ttl must be positive")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").
			With("format", c.Log.Format).
			Errorf("log.format must be 'json' or 'text'")
	}
	return nil
}
