package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"stop-route-service/internal/adapters/cache"
	"stop-route-service/internal/adapters/nominatim"
	"stop-route-service/internal/adapters/ors"
	"stop-route-service/internal/adapters/osrm"
	"stop-route-service/internal/adapters/repositories"
	"stop-route-service/internal/api"
	"stop-route-service/internal/config"
	"stop-route-service/internal/platform/db"
	"stop-route-service/internal/platform/obs"
	"stop-route-service/internal/ports"
	"stop-route-service/internal/services"
	"syscall"
	"time"

	"github.com/go-kit/log/level"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"
)

const durationTTL = 24 * time.Hour

// main is the application composition root.
// It wires concrete adapters (OSRM, ORS, Nominatim, SQL caches, Redis) behind ports
// and runs the HTTP server until SIGINT/SIGTERM.
func main() {
	logger := obs.Logger()

	config.Load()
	cfg, err := config.FromEnv()
	if err != nil {
		fatal(err)
	}

	sqlDB, geocodeCache, segmentCache, err := openCaches(cfg)
	if err != nil {
		fatal(err)
	}
	if sqlDB != nil {
		defer sqlDB.Close()
	}

	osrmClient := osrm.NewClient(cfg.OSRMBaseURL, cfg.HTTPTimeout)

	var orsClient *ors.Client
	if cfg.SegmentProvider == "ors" || cfg.Geocoder == "ors" {
		orsClient, err = ors.NewClient(cfg.ORSAPIKey, cfg.ORSBaseURL, cfg.HTTPTimeout)
		if err != nil {
			fatal(err)
		}
	}

	var geocoder ports.Geocoder
	switch cfg.Geocoder {
	case "ors":
		geocoder = orsClient
	default:
		g := nominatim.New(cfg.NominatimBaseURL, "", cfg.HTTPTimeout, time.Second)
		defer g.Close()
		geocoder = g
	}

	var segments ports.SegmentProvider = osrmClient
	if cfg.SegmentProvider == "ors" {
		segments = orsClient
	}
	if segmentCache != nil {
		segments = cache.NewCachingSegmentProvider(segments, segmentCache)
	}

	durations, closeDurations, err := openDurationCache(cfg)
	if err != nil {
		fatal(err)
	}
	defer closeDurations()

	assembler := services.NewRouteAssembler(
		cache.NewCachingGeocoder(geocoder, geocodeCache),
		osrmClient,
		segments,
	)
	router := api.NewRouter(assembler, durations)

	addr := net.JoinHostPort("", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		_ = level.Info(logger).Log("transport", "HTTP", "addr", addr,
			"geocoder", cfg.Geocoder, "segments", cfg.SegmentProvider, "cache", cfg.GeocodeCache)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			_ = level.Error(logger).Log("transport", "HTTP", "during", "Serve", "err", err)
			os.Exit(1)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	sig := <-c
	_ = level.Info(logger).Log("signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		_ = level.Error(logger).Log("transport", "HTTP", "during", "Shutdown", "err", err)
	}

	_ = level.Info(logger).Log("transport", "HTTP", "status", "stopped")
}

func fatal(err error) {
	_ = level.Error(obs.Logger()).Log("err", err)
	os.Exit(1)
}

// openCaches opens the configured SQL backend and returns the geocode and
// segment caches on top of it. With GEOCODE_CACHE=none all three are nil.
func openCaches(cfg config.Config) (*sql.DB, ports.GeocodeCache, ports.SegmentCache, error) {
	switch cfg.GeocodeCache {
	case "postgres":
		pg, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := repositories.InitPostgresSchema(context.Background(), pg); err != nil {
			pg.Close()
			return nil, nil, nil, err
		}
		return pg, cache.NewSQLGeocodeCache(pg, cache.DialectPostgres), cache.NewSQLSegmentCache(pg, cache.DialectPostgres), nil

	case "sqlite":
		lite, err := openDB(cfg.DBPath)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := repositories.InitSchema(lite); err != nil {
			lite.Close()
			return nil, nil, nil, err
		}
		return lite, cache.NewSQLGeocodeCache(lite, cache.DialectSQLite), cache.NewSQLSegmentCache(lite, cache.DialectSQLite), nil
	}

	return nil, nil, nil, nil
}

func openDB(dbPath string) (*sql.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("openDB: create directory %q: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("openDB: open sqlite database %q: %w", dbPath, err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("openDB: verify sqlite connection to %q: %w", dbPath, err)
	}

	return db, nil
}

// openDurationCache returns Redis when REDIS_URL is set, otherwise process memory.
func openDurationCache(cfg config.Config) (ports.DurationCache, func(), error) {
	if cfg.RedisURL == "" {
		return cache.NewMemoryDurationCache(), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	return cache.NewRedisDurationCache(client, durationTTL), func() { _ = client.Close() }, nil
}
