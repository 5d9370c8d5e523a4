package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackday/teamportal/internal/app/migrate"
	"github.com/hackday/teamportal/pkg/config"
	"github.com/hackday/teamportal/pkg/logger"
)

func main() {
	command := flag.String("command", "up", "migration command: up or status")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall command timeout")
	flag.Parse()

	cfg := config.LoadPortalConfig()
	log := logger.New("teamportal-migrate", logger.ParseLevel(cfg.LogLevel))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("connect to database failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	runner, err := migrate.New(pool, cfg.DatabaseURL, cfg.MigrationsDir, log)
	if err != nil {
		log.Error("migration runner init failed", "error", err)
		os.Exit(1)
	}
	if err := runner.Ping(ctx); err != nil {
		log.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	switch *command {
	case "up":
		if err := runner.Ensure(ctx); err != nil {
			log.Error("migrations failed", "error", err)
			os.Exit(1)
		}
	case "status":
		if err := runner.Status(ctx); err != nil {
			log.Error("migration status failed", "error", err)
			os.Exit(1)
		}
	default:
		log.Error("unknown command", "command", *command)
		os.Exit(1)
	}
}
