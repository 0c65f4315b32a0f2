package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hszk-dev/gotube/internal/domain/model"
	"github.com/hszk-dev/gotube/internal/domain/repository"
	"github.com/hszk-dev/gotube/internal/infrastructure/cache"
)

// MaxWatchSeconds bounds a single watch report to one day.
const MaxWatchSeconds = 24 * 60 * 60

// ErrInvalidWatchTime is returned for a watch duration outside (0, MaxWatchSeconds].
var ErrInvalidWatchTime = errors.New("watch time must be between 1 and 86400 seconds")

// InteractionService manages per-user flags on videos. Its like toggle is
// the authoritative source for the video's like counter.
type InteractionService interface {
	// Get returns the caller's interaction with the video.
	Get(ctx context.Context, userID string, ref model.VideoRef) (*model.Interaction, error)

	// Toggle flips one flag and returns the updated interaction.
	Toggle(ctx context.Context, userID string, ref model.VideoRef, flag model.InteractionFlag) (*model.Interaction, error)

	// RecordWatch accumulates watch time and marks the video as watched.
	RecordWatch(ctx context.Context, userID string, ref model.VideoRef, seconds int) (*model.Interaction, error)
}

type interactionService struct {
	videos       repository.VideoRepository
	interactions repository.InteractionRepository
	cache        cache.VideoCache
}

// NewInteractionService creates a new InteractionService instance.
// videoCache may be nil.
func NewInteractionService(
	videos repository.VideoRepository,
	interactions repository.InteractionRepository,
	videoCache cache.VideoCache,
) InteractionService {
	return &interactionService{
		videos:       videos,
		interactions: interactions,
		cache:        videoCache,
	}
}

func (s *interactionService) Get(ctx context.Context, userID string, ref model.VideoRef) (*model.Interaction, error) {
	video, err := s.videos.GetByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.interactions.Get(ctx, userID, video.ID)
}

func (s *interactionService) Toggle(ctx context.Context, userID string, ref model.VideoRef, flag model.InteractionFlag) (*model.Interaction, error) {
	video, err := s.videos.GetByRef(ctx, ref)
	if err != nil {
		return nil, err
	}

	interaction, err := s.interactions.Toggle(ctx, userID, video.ID, flag)
	if err != nil {
		return nil, fmt.Errorf("toggle %s: %w", flag, err)
	}

	if flag == model.FlagLiked && s.cache != nil {
		if err := s.cache.Delete(ctx, model.RefForID(video.ID)); err != nil {
			slog.Warn("failed to invalidate cache on like toggle",
				"video_id", video.ID.Hex(),
				"error", err,
			)
		}
	}

	return interaction, nil
}

func (s *interactionService) RecordWatch(ctx context.Context, userID string, ref model.VideoRef, seconds int) (*model.Interaction, error) {
	if seconds <= 0 || seconds > MaxWatchSeconds {
		return nil, ErrInvalidWatchTime
	}

	video, err := s.videos.GetByRef(ctx, ref)
	if err != nil {
		return nil, err
	}

	interaction, err := s.interactions.AddWatchTime(ctx, userID, video.ID, seconds)
	if err != nil {
		return nil, fmt.Errorf("record watch: %w", err)
	}
	return interaction, nil
}
