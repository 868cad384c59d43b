// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/identity"
	idpg "github.com/wardenhq/warden/internal/identity/postgres"
	"github.com/wardenhq/warden/internal/logging"
	"github.com/wardenhq/warden/internal/mail"
	"github.com/wardenhq/warden/internal/observability"
	"github.com/wardenhq/warden/internal/store"
	"github.com/wardenhq/warden/pkg/errutil"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the Warden backend",
		Long: `Start the Warden backend: connects to PostgreSQL, wires the
identity services, and serves metrics and health probes until
interrupted.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.Setup(logging.Options{
		Service: "warden",
		Version: version,
		Format:  cfg.LogFormat,
		Level:   cfg.LogLevel,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := store.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	app, cleanup, err := buildServices(cfg, pool, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	errCh, err := app.obs.Start()
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if stopErr := app.obs.Stop(shutdownCtx); stopErr != nil {
			errutil.LogError(logger, "observability shutdown failed", stopErr)
		}
	}()

	logger.InfoContext(ctx, "warden started", "metrics_addr", app.obs.Addr())

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		return nil
	case serveErr := <-errCh:
		if serveErr != nil {
			return oops.Code("OBSERVABILITY_FAILED").Wrap(serveErr)
		}
		return nil
	}
}

// services bundles the wired application components. The auth, admin,
// and authz services are the surface an API layer consumes.
type services struct {
	auth  *identity.AuthService
	admin *identity.AdminService
	authz *identity.Authorizer
	obs   *observability.Server
}

// buildServices wires the identity stack over the pool. The returned
// cleanup closes the mailer connection.
func buildServices(cfg config.Config, pool *pgxpool.Pool, logger *slog.Logger) (*services, func(), error) {
	factory, err := idpg.NewFactory(pool)
	if err != nil {
		return nil, nil, err
	}

	signer, err := identity.NewSigner(cfg.JWTSecret, cfg.JWTLeeway)
	if err != nil {
		return nil, nil, err
	}
	hasher := identity.NewBcryptHasher(cfg.BcryptCost)

	var mailer mail.Mailer
	cleanup := func() {}
	if cfg.NATSURL != "" {
		nm, err := mail.NewNATSMailer(cfg.NATSURL, cfg.MailSubject)
		if err != nil {
			return nil, nil, err
		}
		mailer = nm
		cleanup = nm.Close
	} else {
		logger.Warn("nats_url not configured, outbound mail will only be logged")
		mailer = mail.NewLogMailer(logger)
	}

	obs := observability.NewServer(cfg.MetricsAddr, func() bool {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return pool.Ping(pingCtx) == nil
	})
	metrics := identity.NewMetrics(obs.Registry())

	authCfg := identity.AuthConfig{
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
		VerifyTokenTTL:  cfg.VerifyTokenTTL,
		DefaultRole:     cfg.DefaultRole,
		VerifyURL:       cfg.VerifyURL,
	}

	return &services{
		auth:  identity.NewAuthService(factory, hasher, signer, mailer, authCfg, logger, metrics),
		admin: identity.NewAdminService(factory, hasher, logger),
		authz: identity.NewAuthorizer(factory, signer),
		obs:   obs,
	}, cleanup, nil
}
