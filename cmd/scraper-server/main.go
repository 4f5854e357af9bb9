// Command scraper-server exposes the item-URL scraper over HTTP: a readiness
// endpoint, a browser status probe and run management backed by a
// run-history table.
package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/ryparmar/serverless-aws-lambda-scraper/internal/api"
	"github.com/ryparmar/serverless-aws-lambda-scraper/internal/browser"
	"github.com/ryparmar/serverless-aws-lambda-scraper/internal/config"
	"github.com/ryparmar/serverless-aws-lambda-scraper/internal/database"
	"github.com/ryparmar/serverless-aws-lambda-scraper/internal/notify"
	"github.com/ryparmar/serverless-aws-lambda-scraper/internal/remote"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if len(cfg.Site.Categories) == 0 {
		cfg.Site.Categories = cfg.Site.CategoryChoices
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Name,
		MaxConns: cfg.Database.MaxConns,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	opts := browser.DefaultOptions()
	opts.InDocker = cfg.Scraper.InDocker
	opts.Timeout = cfg.Scraper.WaitTimeout
	b, err := browser.New(opts)
	if err != nil {
		logger.Error("failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	syncs, err := buildSyncs(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize object store backends", "error", err)
		os.Exit(1)
	}

	var publisher *notify.Publisher
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, run events will not be published", "error", err)
	} else {
		publisher = notify.NewPublisher(redisClient, cfg.Redis.Stream, logger)
	}

	service := newRunService(cfg, db, b, publisher, syncs, logger)
	handlers := api.NewHandlers(service, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
	}))
	r.Mount("/", handlers.Routes())

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			cancel()
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-stop:
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

func buildSyncs(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]*remote.Sync, error) {
	var syncs []*remote.Sync
	if cfg.Remote.SaveToS3 {
		store, err := remote.NewS3Store(ctx)
		if err != nil {
			return nil, err
		}
		syncs = append(syncs, remote.NewSync(store, cfg.Remote.S3Bucket, "s3", logger))
	}
	if cfg.Remote.SaveToGCS {
		store, err := remote.NewGCSStore(ctx)
		if err != nil {
			return nil, err
		}
		syncs = append(syncs, remote.NewSync(store, cfg.Remote.GCSBucket, "gcs", logger))
	}
	return syncs, nil
}
