package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/hszk-dev/gotube/internal/domain/model"
	"github.com/hszk-dev/gotube/internal/infrastructure/cache"
	"github.com/hszk-dev/gotube/internal/infrastructure/metrics"
	"golang.org/x/sync/singleflight"
)

// CachedVideoServiceConfig holds configuration for CachedVideoService.
type CachedVideoServiceConfig struct {
	// CacheTTL is the TTL for cached video metadata.
	CacheTTL time.Duration
}

// DefaultCachedVideoServiceConfig returns the default configuration.
func DefaultCachedVideoServiceConfig() CachedVideoServiceConfig {
	return CachedVideoServiceConfig{
		CacheTTL: 5 * time.Minute,
	}
}

// cachedVideoService wraps VideoService with caching of single-video lookups.
// Listings are not cached.
type cachedVideoService struct {
	delegate VideoService
	cache    cache.VideoCache
	sfGroup  singleflight.Group

	cacheTTL time.Duration
}

// NewCachedVideoService creates a new CachedVideoService wrapping the provided VideoService.
func NewCachedVideoService(
	delegate VideoService,
	videoCache cache.VideoCache,
	cfg CachedVideoServiceConfig,
) VideoService {
	return &cachedVideoService{
		delegate: delegate,
		cache:    videoCache,
		cacheTTL: cfg.CacheTTL,
	}
}

func (s *cachedVideoService) ListVideos(ctx context.Context, input ListVideosInput) (*model.Page[*model.Video], error) {
	return s.delegate.ListVideos(ctx, input)
}

func (s *cachedVideoService) SearchVideos(ctx context.Context, input SearchVideosInput) (*model.Page[*model.Video], error) {
	return s.delegate.SearchVideos(ctx, input)
}

func (s *cachedVideoService) RelatedVideos(ctx context.Context, ref model.VideoRef) ([]*model.Video, error) {
	return s.delegate.RelatedVideos(ctx, ref)
}

// GetVideo retrieves a video with caching.
// Uses singleflight to prevent cache stampede on concurrent requests for the same video.
func (s *cachedVideoService) GetVideo(ctx context.Context, ref model.VideoRef) (*model.Video, error) {
	result, err, shared := s.sfGroup.Do(ref.String(), func() (any, error) {
		return s.getVideoWithCache(ctx, ref)
	})

	if shared {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightShared).Inc()
	} else {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightInitiated).Inc()
	}

	if err != nil {
		return nil, err
	}

	// Shared results must not be mutated by callers.
	video := *result.(*model.Video)
	return &video, nil
}

// getVideoWithCache implements the cache-aside pattern.
func (s *cachedVideoService) getVideoWithCache(ctx context.Context, ref model.VideoRef) (*model.Video, error) {
	video, err := s.cache.Get(ctx, ref)
	if err != nil {
		slog.Warn("cache get failed, falling back to database",
			"ref", ref.String(),
			"error", err,
		)
	}

	if video != nil {
		return video, nil
	}

	video, err = s.delegate.GetVideo(ctx, ref)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, video, s.cacheTTL); err != nil {
		slog.Warn("failed to cache video",
			"video_id", video.ID.Hex(),
			"error", err,
		)
	}

	return video, nil
}

// UpdateVideo delegates and evicts the stale entry under both identifiers.
func (s *cachedVideoService) UpdateVideo(ctx context.Context, ref model.VideoRef, update model.VideoUpdate) (*model.Video, error) {
	video, err := s.delegate.UpdateVideo(ctx, ref, update)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, model.RefForID(video.ID), "update")
	if video.ShortID != "" {
		s.invalidate(ctx, model.VideoRef{Kind: model.RefShortID, ShortID: video.ShortID}, "update")
	}
	return video, nil
}

func (s *cachedVideoService) IncrementViews(ctx context.Context, ref model.VideoRef) (int64, error) {
	views, err := s.delegate.IncrementViews(ctx, ref)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, ref, "view")
	return views, nil
}

func (s *cachedVideoService) IncrementLikes(ctx context.Context, ref model.VideoRef) (int64, error) {
	likes, err := s.delegate.IncrementLikes(ctx, ref)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, ref, "like")
	return likes, nil
}

// InvalidateCache removes a video from the cache.
func (s *cachedVideoService) InvalidateCache(ctx context.Context, ref model.VideoRef) error {
	return s.cache.Delete(ctx, ref)
}

// invalidate logs instead of failing: a stale entry expires with its TTL.
func (s *cachedVideoService) invalidate(ctx context.Context, ref model.VideoRef, reason string) {
	if err := s.cache.Delete(ctx, ref); err != nil {
		slog.Warn("failed to invalidate cache",
			"ref", ref.String(),
			"reason", reason,
			"error", err,
		)
	}
}
