package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/hszk-dev/gotube/internal/config"
	"github.com/hszk-dev/gotube/internal/domain/repository"
	"github.com/hszk-dev/gotube/internal/infrastructure/queue"
	"github.com/hszk-dev/gotube/internal/infrastructure/storage"
	"github.com/hszk-dev/gotube/internal/usecase"
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

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if !cfg.RabbitMQ.Enabled {
		return fmt.Errorf("cleanup worker requires RabbitMQ (RABBITMQ_ENABLED=false)")
	}

	store, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	logger.Info("connected to object storage",
		slog.String("driver", cfg.Storage.Driver),
		slog.String("bucket", cfg.Storage.Bucket),
	)

	queueClient, err := queue.NewClient(ctx, queue.DefaultClientConfig(cfg.RabbitMQ.URL()))
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer queueClient.Close()
	logger.Info("connected to RabbitMQ")

	cleanupSvc := usecase.NewCleanupService(store, usecase.CleanupServiceConfig{
		MaxRetries: cfg.Worker.MaxRetries,
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Tracks in-flight tasks.
	var wg sync.WaitGroup

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting worker, consuming cleanup tasks")
		err := queueClient.ConsumeCleanupTasks(ctx, func(task *repository.CleanupTask) error {
			wg.Add(1)
			defer wg.Done()

			logger.Info("processing task",
				slog.String("task_id", task.ID),
				slog.String("video_id", task.VideoID),
				slog.String("reason", task.Reason),
				slog.Int("keys", len(task.Keys)),
				slog.Int("retry_count", task.RetryCount),
			)

			// Detached so a shutdown does not abort deletes already under way.
			if err := cleanupSvc.ProcessTask(context.WithoutCancel(ctx), task); err != nil {
				logger.Error("task processing failed",
					slog.String("task_id", task.ID),
					slog.Int("retry_count", task.RetryCount),
					slog.String("error", err.Error()),
				)
				return err
			}

			logger.Info("task completed", slog.String("task_id", task.ID))
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

	// Stop consuming new messages.
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("all in-flight tasks completed")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout exceeded, some tasks may not have completed")
	}

	logger.Info("worker stopped")
	return nil
}
