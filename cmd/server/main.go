// Package main is the entrypoint for the CraftLink API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/craftlinkhq/craftlink/internal/api"
	"github.com/craftlinkhq/craftlink/internal/api/handler"
	mw "github.com/craftlinkhq/craftlink/internal/api/middleware"
	"github.com/craftlinkhq/craftlink/internal/api/response"
	"github.com/craftlinkhq/craftlink/internal/auth"
	"github.com/craftlinkhq/craftlink/internal/cache"
	"github.com/craftlinkhq/craftlink/internal/config"
	"github.com/craftlinkhq/craftlink/internal/lifecycle"
	"github.com/craftlinkhq/craftlink/internal/notify"
	"github.com/craftlinkhq/craftlink/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "mail_provider", cfg.Mail.Provider, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create notifier
	var notifier notify.Notifier
	switch cfg.Mail.Provider {
	case "sendgrid":
		notifier = notify.NewSendGridClient(cfg.Mail.BaseURL, cfg.Mail.APIKey, cfg.Mail.From, cfg.Mail.Timeout)
	default:
		notifier = notify.LogNotifier{}
	}
	slog.Info("notifier initialized", "provider", cfg.Mail.Provider)

	// 6. Create store and services
	pgStore := store.NewPostgresStore(pool)
	issuer := auth.NewIssuer(cfg.Auth)
	guard := auth.NewGuard(pgStore, issuer)
	svc := lifecycle.NewService(pgStore, notifier)

	// 7. Start the expiry sweeper
	sweeper := lifecycle.NewSweeper(svc, cfg.Sweeper.Interval)
	go sweeper.Run(ctx)
	slog.Info("expiry sweeper started", "interval", cfg.Sweeper.Interval)

	// 8. Build router with dependencies
	authMW := mw.NewAuth(issuer)
	rateLimit := mw.NewRateLimit(redisCache, cfg.Auth.APIRatePerMinute)

	deps := api.Dependencies{
		Auth:      authMW,
		RateLimit: rateLimit,

		HealthHandler:   healthHandler(pgStore, redisCache),
		RegisterHandler: handler.NewRegisterHandler(pgStore),
		LoginHandler:    handler.NewLoginHandler(guard),

		CreateJobHandler: handler.NewCreateJobHandler(pgStore),
		GetJobHandler:    handler.NewGetJobHandler(pgStore),
		ListJobsHandler:  handler.NewListJobsHandler(pgStore),

		CreateRequestHandler:  handler.NewCreateRequestHandler(svc),
		AcceptRequestHandler:  handler.NewAcceptRequestHandler(svc),
		DeclineRequestHandler: handler.NewDeclineRequestHandler(svc),
		CancelRequestHandler:  handler.NewCancelRequestHandler(svc),
		TimeoutCheckHandler:   handler.NewTimeoutCheckHandler(svc),
		GetRequestHandler:     handler.NewGetRequestHandler(pgStore),
		ListRequestsHandler:   handler.NewListRequestsHandler(pgStore),

		AdminListRequestsHandler: handler.NewListRequestsHandler(pgStore),
	}

	router := api.NewRouter(deps)

	// 9. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// healthHandler checks database and cache connectivity.
func healthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		if checks["database"] != "ok" || checks["cache"] != "ok" {
			response.Failure(w, http.StatusServiceUnavailable, "One or more services degraded.")
			return
		}

		response.Single(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
