package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/article-publishing-api/internal/api"
	"github.com/article-publishing-api/internal/auth"
	"github.com/article-publishing-api/internal/config"
	"github.com/article-publishing-api/internal/converter"
	"github.com/article-publishing-api/internal/database"
	"github.com/article-publishing-api/internal/repository"
	"github.com/article-publishing-api/internal/service"
	"github.com/article-publishing-api/internal/storage"
	"github.com/article-publishing-api/pkg/logger"
)

func main() {
	migrateDown := flag.Bool("migrate-down", false, "roll back the last migration and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "json")
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Msg("Starting Article Publishing API server...")

	// Initialize database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if *migrateDown {
		if err := db.MigrateDown(cfg.MigrationsPath); err != nil {
			log.Fatal().Err(err).Msg("Failed to roll back database migrations")
		}
		log.Info().Msg("Migration rolled back")
		return
	}

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Static routes need the permanent namespaces to exist up front
	for _, dir := range []string{cfg.Storage.TempDir, cfg.Storage.ArticlesDir, cfg.Storage.UploadsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal().Err(err).Str("dir", dir).Msg("Failed to create storage directory")
		}
	}

	// Initialize storage, converter and repositories
	store := storage.New(cfg.Storage, log)
	conv := converter.NewDocxConverter()
	repos := repository.New(db)

	// Initialize services
	services := service.NewServices(repos, store, conv, cfg, log)

	// Start background sweeper
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go services.Sweep.Start(sweepCtx)

	// Initialize router
	authn := auth.New(cfg.Auth.JWTSecret, cfg.Auth.AdminRole)
	router := api.NewRouter(services, authn, db, cfg, log)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop accepting uploads before the sweeper goes away
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	stopSweep()
	services.Sweep.Stop()

	log.Info().Msg("Server exited gracefully")
}
