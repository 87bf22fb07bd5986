// Command janitor periodically purges the time-bounded, self-cleaning
// tables the token engine otherwise only grows: expired refresh tokens,
// expired authorization and device codes, expired browser SSO
// sessions, and expired MFA challenges. It runs as a separate, stateless
// process from cmd/server so a deployment can scale API replicas without
// multiplying GC sweeps.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Islamawad132/Authme-sub001/internal/config"
)

const sweepInterval = time.Hour

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	cfg := config.Load()

	if cfg.DatabaseURL == "" {
		logger.Error("database_url_missing")
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("database_connect_failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger.Info("janitor_started", "interval", sweepInterval.String())

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	runSweep(ctx, pool, logger)

	for {
		select {
		case <-ticker.C:
			runSweep(ctx, pool, logger)
		case <-quit:
			logger.Info("janitor_shutting_down")
			return
		}
	}
}

// sweepTargets names every table a row becomes permanently useless in
// once its own expires_at has passed.
var sweepTargets = []struct {
	table  string
	column string
}{
	{"refresh_tokens", "expires_at"},
	{"authorization_codes", "expires_at"},
	{"device_codes", "expires_at"},
	{"login_sessions", "expires_at"},
	{"pending_actions", "expires_at"},
}

func runSweep(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) {
	logger.Info("sweep_cycle_started")
	for _, target := range sweepTargets {
		tag, err := pool.Exec(ctx, "DELETE FROM "+target.table+" WHERE "+target.column+" < now()")
		if err != nil {
			logger.Error("sweep_failed", "table", target.table, "error", err)
			continue
		}
		if n := tag.RowsAffected(); n > 0 {
			logger.Info("sweep_deleted", "table", target.table, "rows", n)
		}
	}
}
