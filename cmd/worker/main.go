package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hszk-dev/streamgate/internal/config"
	"github.com/hszk-dev/streamgate/internal/domain/model"
	"github.com/hszk-dev/streamgate/internal/infrastructure/postgres"
	"github.com/hszk-dev/streamgate/internal/infrastructure/queue"
	"github.com/hszk-dev/streamgate/internal/logging"
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

	logger := logging.New(cfg.Log, os.Stdout)
	logging.Setup(logger)

	pgConfig := postgres.DefaultClientConfig(cfg.Database.DSN())
	pgConfig.ApplicationName = "streamgate-worker"
	pgClient, err := postgres.NewClient(ctx, pgConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pgClient.Close()
	logger.Info("connected to PostgreSQL")

	queueClient, err := queue.NewClient(ctx, queue.DefaultClientConfig(cfg.RabbitMQ.URL()))
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer queueClient.Close()
	logger.Info("connected to RabbitMQ")

	playbackSvc := usecase.NewPlaybackService(
		postgres.NewPlaybackRepository(pgClient.Pool()),
		usecase.PlaybackServiceConfig{MaxRetries: cfg.Worker.MaxRetries},
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Events are recorded inline by the consumer loop, so once it returns no
	// record is in flight.
	consumerDone := make(chan struct{})
	errCh := make(chan error, 1)
	go func() {
		defer close(consumerDone)
		logger.Info("starting worker, consuming playback events")
		err := queueClient.ConsumePlaybackEvents(ctx, func(event *model.PlaybackEvent) error {
			// Recording must finish even if shutdown cancels ctx mid-write.
			if err := playbackSvc.Record(context.WithoutCancel(ctx), event); err != nil {
				logger.Error("failed to record playback event",
					slog.String("event_id", event.ID.String()),
					slog.Int("retry_count", event.RetryCount),
					slog.String("error", err.Error()),
				)
				return err
			}

			logger.Debug("playback event recorded",
				slog.String("event_id", event.ID.String()),
				slog.String("outcome", event.Outcome.String()),
			)
			return nil
		})
		if err != nil && ctx.Err() == nil {
			errCh <- fmt.Errorf("consumer error: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down worker", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	// Stop taking new deliveries.
	cancel()

	select {
	case <-consumerDone:
		logger.Info("all in-flight events recorded")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout exceeded, some events may be redelivered")
	}

	logger.Info("worker stopped")
	return nil
}
