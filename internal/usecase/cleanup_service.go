package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hszk-dev/gotube/internal/domain/repository"
	"github.com/hszk-dev/gotube/internal/infrastructure/metrics"
)

const (
	// DefaultMaxRetries is the default number of redeliveries before a cleanup task is abandoned.
	DefaultMaxRetries = 3
)

// CleanupServiceConfig holds configuration for CleanupService.
type CleanupServiceConfig struct {
	// MaxRetries is the maximum number of retry attempts before giving up on the remaining keys.
	MaxRetries int
}

// DefaultCleanupServiceConfig returns the default configuration.
func DefaultCleanupServiceConfig() CleanupServiceConfig {
	return CleanupServiceConfig{
		MaxRetries: DefaultMaxRetries,
	}
}

// CleanupService reclaims storage objects orphaned by failed uploads and deletes.
type CleanupService interface {
	// ProcessTask deletes the task's keys.
	// Returns nil on success or when the task is abandoned (max retries exceeded).
	// On partial failure task.Keys is narrowed to the keys still present and an
	// error is returned so the queue retries only those.
	ProcessTask(ctx context.Context, task *repository.CleanupTask) error
}

type cleanupService struct {
	storage repository.ObjectStorage

	maxRetries int
}

// NewCleanupService creates a new CleanupService instance.
func NewCleanupService(storage repository.ObjectStorage, cfg CleanupServiceConfig) CleanupService {
	return &cleanupService{
		storage:    storage,
		maxRetries: cfg.MaxRetries,
	}
}

func (s *cleanupService) ProcessTask(ctx context.Context, task *repository.CleanupTask) error {
	if task.RetryCount >= s.maxRetries {
		metrics.CleanupTasksTotal.WithLabelValues(metrics.CleanupAbandoned).Inc()
		slog.Error("abandoning storage cleanup",
			"task_id", task.ID,
			"video_id", task.VideoID,
			"keys", task.Keys,
			"retry_count", task.RetryCount,
		)
		return nil
	}

	var (
		remaining []string
		errs      []error
	)
	for _, key := range task.Keys {
		err := s.storage.Delete(ctx, key)
		if err == nil || errors.Is(err, repository.ErrObjectNotFound) {
			continue
		}
		remaining = append(remaining, key)
		errs = append(errs, fmt.Errorf("%s: %w", key, err))
	}

	if len(remaining) > 0 {
		slog.Warn("storage cleanup incomplete",
			"task_id", task.ID,
			"video_id", task.VideoID,
			"remaining", len(remaining),
			"retry_count", task.RetryCount,
		)
		task.Keys = remaining
		return fmt.Errorf("delete %d objects: %w", len(remaining), errors.Join(errs...))
	}

	metrics.CleanupTasksTotal.WithLabelValues(metrics.CleanupCompleted).Inc()
	slog.Info("storage cleanup completed",
		"task_id", task.ID,
		"video_id", task.VideoID,
		"reason", task.Reason,
	)
	return nil
}
