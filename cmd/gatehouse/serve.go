// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/auth"
	authpg "github.com/gatehouse/gatehouse/internal/auth/postgres"
	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/logging"
	"github.com/gatehouse/gatehouse/internal/observability"
	"github.com/gatehouse/gatehouse/internal/store"
	"github.com/gatehouse/gatehouse/internal/web"
)

// shutdownTimeout bounds how long graceful shutdown may take.
const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Gatehouse web and observability servers",
		Long: `Start the Gatehouse HTTP server serving the register/login flows and
the authenticated area, plus a separate metrics/health endpoint.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(resolveConfigFile(), cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, autoMigrate)
		},
	}

	// Flag names mirror the config file keys so posflag can merge them.
	flags := cmd.Flags()
	flags.String("database.url", "", "PostgreSQL connection URL (default: $DATABASE_URL)")
	flags.String("http.addr", config.DefaultHTTPAddr, "web server listen address")
	flags.String("metrics.addr", config.DefaultMetricsAddr, "metrics/health listen address (empty = disabled)")
	flags.Int("auth.bcrypt_cost", auth.DefaultBcryptCost, "bcrypt work factor for password hashing")
	flags.Int("auth.min_password_length", auth.DefaultMinPasswordLength, "minimum accepted password length")
	flags.Duration("session.ttl", auth.DefaultSessionTTL, "session lifetime")
	flags.String("log.format", "json", "log format (json or text)")
	flags.BoolVar(&autoMigrate, "auto-migrate", false, "run pending schema migrations before serving")

	return cmd
}

func runServe(ctx context.Context, cfg config.Config, autoMigrate bool) error {
	logging.SetDefault("gatehouse", version, cfg.Log.Format)
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if autoMigrate {
		migrator, err := store.NewMigrator(cfg.Database.URL)
		if err != nil {
			return err
		}
		if err := migrator.Up(); err != nil {
			return err
		}
		if err := migrator.Close(); err != nil {
			return err
		}
		logger.Info("schema migrations applied")
	}

	pool, err := store.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("connected to database")

	users := authpg.NewUserRepository(pool)
	sessionRepo := authpg.NewSessionRepository(pool)

	hasher, err := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}

	engine, err := auth.NewServiceWithLogger(users, hasher,
		auth.PasswordPolicy{MinLength: cfg.Auth.MinPasswordLength}, logger)
	if err != nil {
		return err
	}

	identity, err := auth.NewIdentity(users)
	if err != nil {
		return err
	}

	sessions, err := auth.NewSessionManager(sessionRepo, identity, cfg.Session.TTL, logger)
	if err != nil {
		return err
	}

	var metrics *observability.Metrics
	var obsServer *observability.Server
	if cfg.Metrics.Addr != "" {
		obsServer = observability.NewServer(cfg.Metrics.Addr, func() bool {
			pingCtx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()
			return pool.Ping(pingCtx) == nil
		})
		metrics = obsServer.Metrics()
	}

	webServer, err := web.NewServer(cfg.HTTP.Addr, engine, sessions, metrics, logger)
	if err != nil {
		return err
	}

	var obsErrCh <-chan error
	if obsServer != nil {
		obsErrCh, err = obsServer.Start()
		if err != nil {
			return err
		}
	}

	webErrCh, err := webServer.Start()
	if err != nil {
		return err
	}

	// Expired sessions are purged in the background so dead rows don't pile
	// up; resolution already treats expired sessions as unauthenticated.
	go purgeSessionsLoop(ctx, sessions, logger)

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err = <-webErrCh:
		if err != nil {
			logger.Error("web server failed", "error", err)
		}
	case err = <-obsErrCh:
		if err != nil {
			logger.Error("observability server failed", "error", err)
		}
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if stopErr := webServer.Stop(stopCtx); stopErr != nil {
		return oops.Code("SHUTDOWN_FAILED").Wrap(stopErr)
	}
	if obsServer != nil {
		if stopErr := obsServer.Stop(stopCtx); stopErr != nil {
			return oops.Code("SHUTDOWN_FAILED").Wrap(stopErr)
		}
	}
	return err
}

// purgeSessionsLoop deletes expired sessions every 15 minutes until ctx ends.
func purgeSessionsLoop(ctx context.Context, sessions *auth.SessionManager, logger *slog.Logger) {
	ticker := time.NewTicker(15 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := sessions.PurgeExpired(ctx); err != nil {
				logger.Error("session purge failed", "error", err)
			}
		}
	}
}
