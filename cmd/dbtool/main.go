package main

import (
	"context"
	"os"
	"stop-route-service/internal/adapters/repositories"
	"stop-route-service/internal/config"
	"stop-route-service/internal/platform/db"
	"stop-route-service/internal/platform/obs"
	"time"

	"github.com/go-kit/log/level"
)

// dbtool creates the geocode and segment cache tables in Postgres.
func main() {
	logger := obs.Logger()

	config.Load()

	databaseURL := config.Get("DATABASE_URL", "")
	if databaseURL == "" {
		_ = level.Error(logger).Log("err", "DATABASE_URL is required")
		os.Exit(1)
	}

	pg, err := db.Open(databaseURL)
	if err != nil {
		_ = level.Error(logger).Log("err", err)
		os.Exit(1)
	}
	defer pg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_ = level.Info(logger).Log("msg", "initializing database schema")
	if err := repositories.InitPostgresSchema(ctx, pg); err != nil {
		_ = level.Error(logger).Log("msg", "schema initialization failed", "err", err)
		pg.Close()
		os.Exit(1)
	}
	_ = level.Info(logger).Log("msg", "schema ready")
}
