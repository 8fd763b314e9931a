// Copyright 2026 The Eduplane Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/eduplane/eduplane/internal/audit"
	"github.com/eduplane/eduplane/internal/config"
	"github.com/eduplane/eduplane/internal/identity"
	"github.com/eduplane/eduplane/internal/identity/workos"
	"github.com/eduplane/eduplane/internal/observability/logger"
	"github.com/eduplane/eduplane/internal/observability/metrics"
	"github.com/eduplane/eduplane/internal/observability/tracing"
	"github.com/eduplane/eduplane/internal/provisioning"
	"github.com/eduplane/eduplane/internal/saga"
	"github.com/eduplane/eduplane/internal/store/postgres"
	transportHTTP "github.com/eduplane/eduplane/internal/transport/http"
	"github.com/spf13/cobra"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	slog.InfoContext(ctx, "starting eduplane",
		slog.String("version", cfg.Observability.ServiceVersion),
		slog.String("identity_provider", cfg.Identity.Provider),
	)

	// Initialize tracer
	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   cfg.Observability.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			slog.Error("tracer shutdown error", logger.Error(err))
		}
	}()

	// Initialize meter
	meter, err := metrics.New(ctx, metrics.Config{Enabled: cfg.Observability.OTELEnabled}, cfg.Observability.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to initialize meter: %w", err)
	}
	sagaMetrics, err := metrics.NewSagaInstruments(meter)
	if err != nil {
		return fmt.Errorf("failed to create saga instruments: %w", err)
	}

	db, err := a.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	auditLogger := audit.NewSlogLogger()
	idp := newIdentityProvider(cfg, db, auditLogger)

	exec := saga.NewExecutor(
		saga.WithLogger(slog.Default().With(logger.Component("saga"))),
		saga.WithTracer(tracing.Tracer("github.com/eduplane/eduplane/internal/saga")),
		saga.WithMetrics(sagaMetrics),
		saga.WithCompensationRetry(uint(cfg.Saga.CompensationMaxTries), cfg.Saga.CompensationInitialInterval),
	)
	svc := provisioning.NewService(
		postgres.NewClient(db),
		idp,
		exec,
		auditLogger,
		provisioning.Config{
			DefaultStorageQuotaMB: cfg.Provisioning.DefaultStorageQuotaMB,
			CodeCandidates:        cfg.Provisioning.CodeCandidates,
		},
	)

	rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	defer rateLimiter.Close()

	router := transportHTTP.NewRouter(
		transportHTTP.NewHandler(svc, db),
		rateLimiter,
		transportHTTP.NewAuthenticator([]byte(cfg.Auth.JWTSecret), cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience),
		transportHTTP.RouterConfig{RequestTimeout: cfg.Server.RequestTimeout},
	)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"), slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server")

	// In-flight sagas run to completion or compensation before the pool closes.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

func newIdentityProvider(cfg *config.Config, db *postgres.DB, auditLogger audit.Logger) identity.Provider {
	if cfg.Identity.Provider == config.IdentityWorkOS {
		return workos.New(workos.Config{
			APIKey:   cfg.Identity.WorkOSAPIKey,
			ClientID: cfg.Identity.WorkOSClientID,
		})
	}
	return newLocalProvider(cfg, db, auditLogger)
}

func newLocalProvider(cfg *config.Config, db *postgres.DB, auditLogger audit.Logger) *identity.LocalProvider {
	hasher := identity.NewPasswordHasher(
		cfg.Security.Argon2Memory,
		cfg.Security.Argon2Iterations,
		cfg.Security.Argon2Parallelism,
		cfg.Security.Argon2SaltLength,
		cfg.Security.Argon2KeyLength,
	)
	return identity.NewLocalProvider(postgres.NewAccountRepository(db), hasher, auditLogger)
}
