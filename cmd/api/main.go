package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/streamgate/internal/api"
	"github.com/hszk-dev/streamgate/internal/api/handler"
	"github.com/hszk-dev/streamgate/internal/auth"
	"github.com/hszk-dev/streamgate/internal/codec"
	"github.com/hszk-dev/streamgate/internal/config"
	"github.com/hszk-dev/streamgate/internal/domain/repository"
	"github.com/hszk-dev/streamgate/internal/infrastructure/cache"
	"github.com/hszk-dev/streamgate/internal/infrastructure/postgres"
	"github.com/hszk-dev/streamgate/internal/infrastructure/queue"
	"github.com/hszk-dev/streamgate/internal/infrastructure/storage"
	"github.com/hszk-dev/streamgate/internal/logging"
	"github.com/hszk-dev/streamgate/internal/ratelimit"
	"github.com/hszk-dev/streamgate/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ValidateAPI(); err != nil {
		return err
	}

	logger := logging.New(cfg.Log, os.Stdout)
	logging.Setup(logger)

	tokenCodec, err := codec.New(cfg.Codec.Secret)
	if err != nil {
		return fmt.Errorf("failed to initialize token codec: %w", err)
	}

	checks := make(map[string]handler.Pinger)

	var objectCache cache.ObjectInfoCache
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		logger.Info("connected to Redis")

		redisCache := cache.NewRedisObjectCache(redisClient)
		objectCache = redisCache
		checks["redis"] = redisCache
	}

	var backends []repository.ObjectBackend
	if cfg.MinIO.Enabled {
		storageClient, err := storage.NewClient(ctx, storage.ClientConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			UseSSL:    cfg.MinIO.UseSSL,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to MinIO: %w", err)
		}
		logger.Info("connected to MinIO", slog.String("bucket", storageClient.Bucket()))
		backends = append(backends, storageClient)
		checks["minio"] = storageClient
	}
	if cfg.Drive.Enabled {
		driveClient, err := storage.NewDriveClient(ctx, storage.DriveConfig{
			CredentialsFile: cfg.Drive.CredentialsFile,
			APIKey:          cfg.Drive.APIKey,
			Endpoint:        cfg.Drive.Endpoint,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize Drive client: %w", err)
		}
		logger.Info("initialized Drive client")
		backends = append(backends, driveClient)
	}

	if objectCache != nil {
		cacheCfg := usecase.CachedBackendConfig{CacheTTL: cfg.Stream.MetadataCacheTTL}
		for i, b := range backends {
			backends[i] = usecase.NewCachedBackend(b, objectCache, cacheCfg)
		}
	}

	var sessions repository.SessionStore
	if cfg.Database.Enabled {
		pgConfig := postgres.DefaultClientConfig(cfg.Database.DSN())
		pgConfig.ApplicationName = "streamgate-api"
		pgClient, err := postgres.NewClient(ctx, pgConfig)
		if err != nil {
			return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		defer pgClient.Close()
		logger.Info("connected to PostgreSQL")

		checks["postgres"] = pgClient
		if err := pgClient.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
			return err
		}
		if cfg.Auth.CheckSessionStore {
			sessions = postgres.NewSessionRepository(pgClient.Pool())
		}
	}

	var events repository.EventPublisher = queue.Discard{}
	if cfg.RabbitMQ.Enabled {
		queueClient, err := queue.NewClient(ctx, queue.DefaultClientConfig(cfg.RabbitMQ.URL()))
		if err != nil {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		defer queueClient.Close()
		logger.Info("connected to RabbitMQ")
		events = queueClient
	}

	streamSvc := usecase.NewStreamService(tokenCodec, backends, usecase.StreamServiceConfig{
		AllowTokenPassthrough: cfg.Codec.AllowPassthrough,
	})
	streamHandler := handler.NewStreamHandler(streamSvc, events, logger, handler.StreamHandlerConfig{
		BufferSize:     cfg.Stream.BufferSize,
		PublishTimeout: cfg.Stream.EventPublishTimeout,
	})
	gate := auth.NewGate(auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.SessionTTL), sessions)

	routerCfg := api.RouterConfig{
		Logger:      logger,
		Stream:      streamHandler,
		Sessions:    gate,
		CookieName:  cfg.Auth.CookieName,
		CORSOrigins: cfg.CORS.AllowedOrigins,
		Ready:       handler.NewReadyHandler(checks, 2*time.Second, logger),
		Metrics:     promhttp.Handler(),
	}
	if cfg.RateLimit.Enabled {
		limiter := ratelimit.NewFixedWindow(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		go limiter.Run(ctx, cfg.RateLimit.PurgeInterval)
		routerCfg.Limiter = limiter
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewRouter(routerCfg),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			slog.Int("port", cfg.Server.Port),
			slog.Int("backends", len(backends)),
			slog.Bool("session_store", sessions != nil),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down server", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
