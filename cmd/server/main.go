package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ByteSpectre/avito-bid-manager/internal/api"
	"github.com/ByteSpectre/avito-bid-manager/internal/auth"
	"github.com/ByteSpectre/avito-bid-manager/internal/avito"
	"github.com/ByteSpectre/avito-bid-manager/internal/config"
	"github.com/ByteSpectre/avito-bid-manager/internal/logging"
	"github.com/ByteSpectre/avito-bid-manager/internal/metrics"
	"github.com/ByteSpectre/avito-bid-manager/internal/models"
	"github.com/ByteSpectre/avito-bid-manager/internal/reconcile"
	"github.com/ByteSpectre/avito-bid-manager/internal/scheduler"
	"github.com/ByteSpectre/avito-bid-manager/internal/serp"
	"github.com/ByteSpectre/avito-bid-manager/internal/server"
	"github.com/ByteSpectre/avito-bid-manager/internal/storage/memory"
	"github.com/ByteSpectre/avito-bid-manager/internal/storage/postgres"
	"log/slog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	logger.Info("starting avito-bid-manager")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Pick the persistence backend: Postgres when DATABASE_URL is set,
	// in-memory stores otherwise.
	var accounts models.AccountRepository
	var listings models.ListingRepository
	if cfg.Database.URL != "" {
		logger.Info("connecting to database")
		dbCfg := postgres.DefaultConfig()
		dbCfg.URL = cfg.Database.URL
		db, err := postgres.Connect(ctx, dbCfg)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := postgres.Migrate(ctx, db); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("database connected")

		accounts = postgres.NewAccountStore(db)
		listings = postgres.NewListingStore(db)
	} else {
		logger.Info("no DATABASE_URL set, using in-memory stores")
		accounts = memory.NewAccountStore()
		listings = memory.NewListingStore()
	}

	// Platform client with its token manager.
	platformClient := &http.Client{Timeout: cfg.Avito.Timeout}
	tokens := avito.NewTokenManager(accounts, cfg.Avito.BaseURL, platformClient, logger)
	platform := avito.NewClient(cfg.Avito.BaseURL, platformClient, tokens, logger)

	// Snapshot cache over the search pages.
	searchClient := &http.Client{Timeout: cfg.Engine.SearchTimeout}
	snapshots := serp.NewCache(cfg.Engine.SnapshotTTL, searchClient, logger)

	collector, err := metrics.NewCollector()
	if err != nil {
		logger.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}

	engine := reconcile.NewEngine(listings, snapshots, platform, reconcile.NewPushGuard(), collector, logger, reconcile.Config{
		MaxConcurrentSources: cfg.Engine.MaxConcurrentSources,
	})
	go engine.Start(ctx)

	reconcileScheduler := scheduler.NewReconcileScheduler(engine, cfg.Engine.ReconcileInterval, logger)
	go reconcileScheduler.Start(ctx)

	// Setup HTTP routes
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("/metrics", collector.Handler())

	// Load auth configuration
	authConfig := auth.LoadConfigFromEnv()
	logger.Info("auth configured", "jwt_secret_set", authConfig.JWTSecret != "change-this-secret")

	logger.Info("setting up REST API")
	api.SetupRoutes(mux, accounts, listings, platform, engine, authConfig, logger)

	srv := server.New(cfg.Server, logger, collector.InstrumentHandler(mux))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
	}

	reconcileScheduler.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
