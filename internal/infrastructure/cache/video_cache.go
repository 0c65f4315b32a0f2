package cache

import (
	"context"
	"time"

	"github.com/hszk-dev/gotube/internal/domain/model"
)

// VideoCache defines the interface for caching video metadata.
// Entries are addressable by either identifier form of a VideoRef.
type VideoCache interface {
	// Get retrieves a video from cache.
	// Returns nil, nil if the video is not found in cache (cache miss).
	Get(ctx context.Context, ref model.VideoRef) (*model.Video, error)

	// Set stores a video in cache under both its id and its short alias.
	Set(ctx context.Context, video *model.Video, ttl time.Duration) error

	// Delete evicts the video ref points to.
	// Returns nil if the video was not in cache.
	Delete(ctx context.Context, ref model.VideoRef) error
}
