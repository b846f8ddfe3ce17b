package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/playmatatu/clawmachine/internal/accounts"
	"github.com/playmatatu/clawmachine/internal/api"
	"github.com/playmatatu/clawmachine/internal/config"
	"github.com/playmatatu/clawmachine/internal/database"
	"github.com/playmatatu/clawmachine/internal/game"
	"github.com/playmatatu/clawmachine/internal/geometry"
	"github.com/playmatatu/clawmachine/internal/migrations"
	"github.com/playmatatu/clawmachine/internal/redis"
	"github.com/playmatatu/clawmachine/internal/save"
	"github.com/playmatatu/clawmachine/internal/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.DatabaseURL, database.PoolFromConfig(cfg))
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		log.Println("↗ Running DB migrations on startup...")
		if err := migrations.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	frames, err := geometry.FramesFor(cfg.AssetDir, 1)
	if err != nil {
		log.Fatalf("Failed to load claw frames: %v", err)
	}
	opts := game.OptionsFromConfig(cfg, frames)
	if err := opts.Tuning.Validate(); err != nil {
		log.Fatalf("Invalid machine tuning: %v", err)
	}

	store := save.NewPostgresStore(db)
	mgr := game.NewManager(store, rdb, opts)

	game.StartAutosaveWorker(ctx, mgr, time.Duration(cfg.AutosaveSeconds)*time.Second)

	hub := ws.NewHub()
	go hub.Run(ctx)
	ws.StartEventRelay(ctx, rdb, hub, mgr.InstanceID())

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	api.SetupRoutes(router, api.Deps{
		Config:   cfg,
		Redis:    rdb,
		Profiles: accounts.NewSQLProfiles(db),
		Machines: mgr,
		Hub:      hub,
		Wins:     store,
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		log.Printf("Starting claw machine server on port %s (instance %s)", cfg.Port, mgr.InstanceID())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down, saving running machines...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	mgr.Shutdown(shutdownCtx)
}
