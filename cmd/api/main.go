package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/anshulj/papershelf/internal/api"
	"github.com/anshulj/papershelf/internal/blob"
	"github.com/anshulj/papershelf/internal/cache"
	"github.com/anshulj/papershelf/internal/config"
	"github.com/anshulj/papershelf/internal/database"
	"github.com/anshulj/papershelf/internal/extract"
	"github.com/anshulj/papershelf/internal/index"
	"github.com/anshulj/papershelf/internal/ingest"
	"github.com/anshulj/papershelf/internal/queue"
	"github.com/anshulj/papershelf/internal/queue/workers"
	"github.com/anshulj/papershelf/internal/reconcile"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db, cfg.Database.MigrationsPath); err != nil {
		slog.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable at startup", "error", err)
	}
	defer rdb.Close()

	blobStore := blob.NewSupabaseStore(cfg.Storage.SupabaseURL, cfg.Storage.SupabaseKey, cfg.Storage.Bucket)
	if err := blobStore.EnsureBucket(ctx); err != nil {
		slog.Error("bucket provisioning failed", "bucket", cfg.Storage.Bucket, "error", err)
		os.Exit(1)
	}

	idx, err := index.Open(cfg.Index.Dir)
	if err != nil {
		slog.Error("failed to open index", "dir", cfg.Index.Dir, "error", err)
		os.Exit(1)
	}
	slog.Info("index opened", "dir", cfg.Index.Dir, "generation", idx.Snapshot().Generation())

	renderer := extract.NewPopplerRenderer()
	if !renderer.IsAvailable() {
		slog.Warn("pdftoppm not found, thumbnails will be skipped")
	}

	docStore := database.NewDocumentStore(db)
	queueClient := queue.NewClient(cfg.Redis)
	defer queueClient.Close()

	coord := ingest.NewCoordinator(docStore, blobStore, idx,
		extract.NewPDFTextExtractor(), renderer,
		ingest.WithReconcileEnqueuer(queueClient),
		ingest.WithURLCache(cache.NewURLCache(rdb)),
	)

	// Reconcile sweeps run in this process: the index has one writer
	// session, and it lives here.
	sweeper := reconcile.NewSweeper(docStore, idx)
	asynqSrv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB},
		asynq.Config{Concurrency: 1},
	)
	registry := queue.NewHandlersRegistry()
	registry.Register(queue.TypeReconcileSweep, asynq.HandlerFunc(workers.NewReconcileWorker(sweeper).ProcessTask))

	go func() {
		if err := asynqSrv.Run(registry.Mux()); err != nil {
			slog.Error("reconcile worker error", "error", err)
		}
	}()

	router := api.NewRouter(db, rdb, coord, idx)
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting API server", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	asynqSrv.Shutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}
