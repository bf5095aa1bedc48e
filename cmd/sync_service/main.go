package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sync_service/internal/config"
	"sync_service/internal/feed"
	getProducts "sync_service/internal/http-server/handlers/products/get"
	getSuppliers "sync_service/internal/http-server/handlers/suppliers/get"
	syncStatus "sync_service/internal/http-server/handlers/sync/status"
	updateSync "sync_service/internal/http-server/handlers/sync/update"
	"sync_service/internal/lib/jwt"
	sl "sync_service/internal/lib/logger"
	authMiddlware "sync_service/internal/middleware/auth"
	"sync_service/internal/rabbitmq"
	"sync_service/internal/storage/postgres"
	"sync_service/internal/storage/redis"
	"sync_service/internal/syncer"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad("./config/config.yaml")

	log := setupLogger(cfg.Env)

	log.Info("starting sync service",
		slog.String("env", cfg.Env),
		slog.Int("suppliers", len(cfg.Suppliers)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutdown signal received")
		cancel()
	}()

	jwtParser := jwt.New(cfg.JWTSecret)

	redisClient, err := redis.New(ctx, cfg.Redis.Addr, cfg.Redis.Db, cfg.Redis.ReportTTL)
	if err != nil {
		log.Error("failed to connect redis", sl.Err(err))
		os.Exit(1)
	}
	defer redisClient.Close()

	postgresClient, err := postgres.New(ctx, cfg)
	if err != nil {
		log.Error("failed to connect postgres", sl.Err(err))
		os.Exit(1)
	}
	defer postgresClient.Close()

	snc := syncer.New(log, postgresClient, feed.NewParser)

	// RabbitMQ is optional: without it syncs are triggered over HTTP only
	// and reports are not published.
	var reportPublisher updateSync.ReportPublisher
	if cfg.RabbitMQ.URL != "" {
		rabbitClient, err := rabbitmq.New(cfg.RabbitMQ.URL)
		if err != nil {
			log.Error("failed to connect rabbitMQ", sl.Err(err))
			os.Exit(1)
		}
		defer rabbitClient.Close()

		reportPublisher = rabbitmq.NewProducer(rabbitClient.Channel, cfg.RabbitMQ.ReportQueue)

		consumer := rabbitmq.NewConsumer(
			rabbitClient.Channel,
			log,
			cfg.RabbitMQ.SyncQueue,
			cfg.RabbitMQ.WorkerPoolSize,
		)
		trigger := syncer.NewQueueTrigger(log, snc, cfg, redisClient)
		if err := consumer.Consume(ctx, trigger.Handle); err != nil {
			log.Error("failed to start sync request consumer", sl.Err(err))
			os.Exit(1)
		}
	}

	requestValidator := validator.New()

	router := setupRouter(
		log,
		cfg,
		requestValidator,
		snc,
		postgresClient,
		redisClient,
		reportPublisher,
		jwtParser,
	)

	srv := &http.Server{
		Addr:        cfg.HTTPServer.Address,
		Handler:     router,
		ReadTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout: cfg.HTTPServer.IdleTimeout,
		// No write timeout: a sync runs as long as the feed takes.
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", sl.Err(err))
			cancel()
		}
	}()

	log.Info("http server started", slog.String("address", cfg.HTTPServer.Address))

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", sl.Err(err))
	}

	log.Info("server stopped")
}

func setupRouter(
	log *slog.Logger,
	cfg *config.Config,
	validate *validator.Validate,
	snc *syncer.Syncer,
	postgresClient *postgres.CatalogRepo,
	redisClient *redis.RedisRepo,
	reportPublisher updateSync.ReportPublisher,
	jwtParser *jwt.JWTParser,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/products", getProducts.New(log, cfg, postgresClient, feed.NewParser))
	r.Get("/suppliers", getSuppliers.New(log, cfg))
	r.Get("/sync/status", syncStatus.New(log, cfg, redisClient))

	r.Group(func(r chi.Router) {
		r.Use(authMiddlware.New(log, jwtParser))
		r.Post("/update-database", updateSync.New(log, cfg, snc, redisClient, reportPublisher, validate))
	})

	return r
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
