package repository

import (
	"context"
)

// CleanupTask asks the worker to delete storage objects that the API could
// not reclaim inline (orphans left by a failed upload or delete).
type CleanupTask struct {
	ID         string   `json:"id"`
	VideoID    string   `json:"video_id"`
	Keys       []string `json:"keys"`
	Reason     string   `json:"reason"`
	RetryCount int      `json:"retry_count"`
}

// Cleanup reasons.
const (
	CleanupReasonUploadAborted = "upload_aborted"
	CleanupReasonDeleteFailed  = "delete_failed"
)

// MessageQueue defines the interface for message queue operations.
// Implementations should be provided by the infrastructure layer (e.g., RabbitMQ).
type MessageQueue interface {
	// PublishCleanupTask sends a cleanup task to the queue.
	PublishCleanupTask(ctx context.Context, task CleanupTask) error

	// ConsumeCleanupTasks starts consuming cleanup tasks from the queue.
	// The handler function is called for each received task. A handler that
	// fails may narrow task.Keys first; the narrowed task is what gets retried.
	// Used by the worker service.
	ConsumeCleanupTasks(ctx context.Context, handler func(task *CleanupTask) error) error

	// Close gracefully closes the connection to the message queue.
	Close() error
}
