// cmd/server/main.go
// Entry point for the Racing League standings API. It wires configuration, the
// database, the optional Redis cache and R2 archive, the live-update hub, the
// periodic snapshot job and the HTTP routes, then serves until SIGINT or SIGTERM.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	// cors lets browser clients on other origins call the API
	"github.com/gofiber/fiber/v2/middleware/cors"
	// logger prints method, path, status and duration for each request
	"github.com/gofiber/fiber/v2/middleware/logger"
	// recover turns a handler panic into a 500 instead of crashing the process
	"github.com/gofiber/fiber/v2/middleware/recover"

	// Internal packages, imported by module path
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/archive"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/broadcast"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/cache"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/config"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/database"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/handlers"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/middleware"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/snapshots"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/store"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration from environment variables (and optionally a .env file)
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)
	log.Info("configuration loaded", slog.String("env", cfg.Env), slog.String("port", cfg.Port))

	// ctx is cancelled on SIGINT or SIGTERM and stops the background work
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL, then apply any pending migrations from migrations/
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		log.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	st := store.New(db)

	// Standings cache: Redis when configured, otherwise every read computes.
	var standingsCache cache.Cache = cache.Noop{}
	if cfg.RedisURL != "" {
		rdb, err := database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer rdb.Close()
		standingsCache = cache.NewRedis(rdb, cfg.StandingsTTL)
		log.Info("standings cache enabled", slog.Duration("ttl", cfg.StandingsTTL))
	}

	// Snapshot archive. A nil Uploader keeps snapshots in the database only.
	var uploader snapshots.Uploader
	if cfg.ArchiveEnabled() {
		archiver, err := archive.NewR2(ctx, archive.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			Bucket:          cfg.R2Bucket,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			log.Error("failed to initialize R2 archive", slog.Any("error", err))
			os.Exit(1)
		}
		uploader = archiver
		log.Info("snapshot archive enabled", slog.String("bucket", cfg.R2Bucket))
	}
	job := snapshots.NewJob(st, uploader, cfg.SnapshotWorkers, log.With(slog.String("component", "snapshots")))

	// The hub fans recomputed tables out to every open standings stream.
	hub := broadcast.NewHub()
	go hub.Run()

	// Periodic snapshots of every active season; SNAPSHOT_INTERVAL=0 turns them off
	if cfg.SnapshotEvery > 0 {
		go runScheduler(ctx, job, cfg.SnapshotEvery, log)
	}

	// Create the Fiber app (our HTTP server)
	app := fiber.New(fiber.Config{
		AppName: "Racing League API",
	})
	// --- Global middleware ---
	// These run on every request before any route handler.
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())

	// --- Public routes (no auth required) ---
	// /health is the liveness check; /ready also pings the database.
	app.Get("/health", handlers.HealthCheck)
	app.Get("/ready", handlers.Ready(db))

	// --- Authenticated API routes ---
	// Everything under /api/v1 needs a valid bearer token. Auth verifies it and
	// syncs the user; Register mounts the league, standings, results, scoring
	// and snapshot routes on the group.
	api := app.Group("/api/v1", middleware.Auth(cfg, db))
	handlers.Register(api, handlers.Deps{
		DB:        db,
		Store:     st,
		Cache:     standingsCache,
		Hub:       hub,
		Snapshots: job,
	})

	// Listen on all interfaces at the configured port until a signal arrives
	serverErrors := make(chan error, 1)
	go func() {
		log.Info("starting server", slog.String("address", ":"+cfg.Port))
		serverErrors <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-serverErrors:
		if err != nil {
			log.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	// Closing the hub ends every open stream so the server can drain.
	hub.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", slog.Any("error", err))
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	log.Info("server shutdown complete")
}

// runScheduler snapshots every active season at startup and then on each tick
// until ctx is cancelled.
func runScheduler(ctx context.Context, job *snapshots.Job, every time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	log.Info("snapshot scheduler started", slog.Duration("interval", every))

	if err := job.Run(ctx); err != nil {
		log.Error("snapshot scheduler: initial run failed", slog.Any("error", err))
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := job.Run(ctx); err != nil {
				log.Error("snapshot scheduler: periodic run failed", slog.Any("error", err))
			}
		}
	}
}
