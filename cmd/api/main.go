package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackday/teamportal/internal/app/migrate"
	httpx "github.com/hackday/teamportal/internal/http"
	"github.com/hackday/teamportal/internal/service/redirect"
	"github.com/hackday/teamportal/internal/service/session"
	"github.com/hackday/teamportal/internal/service/submission"
	"github.com/hackday/teamportal/internal/service/team"
	"github.com/hackday/teamportal/internal/store"
	"github.com/hackday/teamportal/internal/ws"
	"github.com/hackday/teamportal/pkg/config"
	"github.com/hackday/teamportal/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.LoadPortalConfig()
	log := logger.New("teamportal-api", logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, storeHealth, cleanup, err := buildStore(ctx, cfg, log)
	if err != nil {
		log.Error("store init failed", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer cleanup()

	limiter, err := buildRateLimiter(cfg, log)
	if err != nil {
		log.Error("rate limiter init failed", "error", err)
		os.Exit(1)
	}

	hub := ws.NewHub()
	sessionSvc := session.New(st, log, cfg)
	teamSvc := team.New(st, log)
	submissionSvc := submission.New(st, log, cfg)
	redirectSvc := redirect.New(st, log, hub)

	router := httpx.NewRouter(log, sessionSvc, teamSvc, submissionSvc, redirectSvc, hub, limiter, storeHealth)
	defer router.Close()

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("api listening", "addr", cfg.Addr, "backend", cfg.StoreBackend, "env", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		log.Error("server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	log.Info("api stopped")
}

// buildStore selects the persistence backend. Memory is the default; it keeps
// local development dependency free but loses everything on restart.
func buildStore(ctx context.Context, cfg config.PortalConfig, log *slog.Logger) (store.Store, func(context.Context) error, func(), error) {
	switch cfg.StoreBackend {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		runner, err := migrate.New(pool, cfg.DatabaseURL, cfg.MigrationsDir, log)
		if err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		if err := runner.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		if err := runner.Ensure(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		return store.NewPostgres(pool), pool.Ping, func() { pool.Close() }, nil
	case "redis":
		rs, err := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, nil, err
		}
		return rs, rs.Ping, func() { _ = rs.Close() }, nil
	default:
		log.Warn("using in-memory store, state is lost on restart", "backend", cfg.StoreBackend)
		return store.NewMemory(), nil, func() {}, nil
	}
}

func buildRateLimiter(cfg config.PortalConfig, log *slog.Logger) (httpx.RateLimiter, error) {
	if cfg.RateLimitRedisAddr == "" {
		return httpx.NewMemoryRateLimiter(), nil
	}
	return httpx.NewRedisRateLimiter(cfg.RateLimitRedisAddr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
}
