package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/hszk-dev/gotube/internal/domain/model"
	"github.com/hszk-dev/gotube/internal/domain/repository"
)

// CategoryAll lists every category.
const CategoryAll = "all"

// ListVideosInput contains the parameters of a paginated listing.
type ListVideosInput struct {
	Category string
	Page     int
	Limit    int
	// AllStatuses lifts the published-only restriction for admin listings.
	AllStatuses bool
}

// SearchVideosInput contains the parameters of a text search.
type SearchVideosInput struct {
	Query string
	ListVideosInput
}

// VideoService defines the interface for video read paths, edits and counters.
type VideoService interface {
	// ListVideos returns a newest-first page of videos.
	ListVideos(ctx context.Context, input ListVideosInput) (*model.Page[*model.Video], error)

	// SearchVideos matches the query against title, description and tags.
	SearchVideos(ctx context.Context, input SearchVideosInput) (*model.Page[*model.Video], error)

	// RelatedVideos returns published videos sharing the category of ref.
	RelatedVideos(ctx context.Context, ref model.VideoRef) ([]*model.Video, error)

	// GetVideo retrieves a video by either identifier form.
	GetVideo(ctx context.Context, ref model.VideoRef) (*model.Video, error)

	// UpdateVideo applies an edit and returns the stored video.
	UpdateVideo(ctx context.Context, ref model.VideoRef, update model.VideoUpdate) (*model.Video, error)

	// IncrementViews adds one view and returns the new count.
	IncrementViews(ctx context.Context, ref model.VideoRef) (int64, error)

	// IncrementLikes adds one anonymous like and returns the new count.
	IncrementLikes(ctx context.Context, ref model.VideoRef) (int64, error)
}

// VideoServiceConfig holds configuration for VideoService.
type VideoServiceConfig struct {
	RelatedLimit int
}

// DefaultVideoServiceConfig returns the default configuration.
func DefaultVideoServiceConfig() VideoServiceConfig {
	return VideoServiceConfig{
		RelatedLimit: 10,
	}
}

type videoService struct {
	repo repository.VideoRepository

	relatedLimit int
}

// NewVideoService creates a new VideoService instance.
func NewVideoService(repo repository.VideoRepository, cfg VideoServiceConfig) VideoService {
	if cfg.RelatedLimit <= 0 {
		cfg.RelatedLimit = DefaultVideoServiceConfig().RelatedLimit
	}
	return &videoService{
		repo:         repo,
		relatedLimit: cfg.RelatedLimit,
	}
}

func (s *videoService) ListVideos(ctx context.Context, input ListVideosInput) (*model.Page[*model.Video], error) {
	return s.repo.List(ctx, listFilter(input))
}

func (s *videoService) SearchVideos(ctx context.Context, input SearchVideosInput) (*model.Page[*model.Video], error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return s.repo.List(ctx, listFilter(input.ListVideosInput))
	}
	return s.repo.Search(ctx, repository.SearchFilter{
		Query:      query,
		ListFilter: listFilter(input.ListVideosInput),
	})
}

func (s *videoService) RelatedVideos(ctx context.Context, ref model.VideoRef) ([]*model.Video, error) {
	video, err := s.repo.GetByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.repo.Related(ctx, video.ID, video.Category, s.relatedLimit)
}

func (s *videoService) GetVideo(ctx context.Context, ref model.VideoRef) (*model.Video, error) {
	return s.repo.GetByRef(ctx, ref)
}

func (s *videoService) UpdateVideo(ctx context.Context, ref model.VideoRef, update model.VideoUpdate) (*model.Video, error) {
	video, err := s.repo.GetByRef(ctx, ref)
	if err != nil {
		return nil, err
	}

	if err := video.ApplyUpdate(update); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, video); err != nil {
		return nil, fmt.Errorf("update video: %w", err)
	}
	return video, nil
}

func (s *videoService) IncrementViews(ctx context.Context, ref model.VideoRef) (int64, error) {
	return s.repo.IncrementViews(ctx, ref)
}

func (s *videoService) IncrementLikes(ctx context.Context, ref model.VideoRef) (int64, error) {
	return s.repo.IncrementLikes(ctx, ref)
}

// listFilter maps request parameters to a repository filter. Public
// listings see only published videos; "all" or an empty category means no
// category filter.
func listFilter(input ListVideosInput) repository.ListFilter {
	filter := repository.ListFilter{
		Category:   normalizeCategoryFilter(input.Category),
		Pagination: model.Pagination{Page: input.Page, Limit: input.Limit}.Normalize(),
	}
	if !input.AllStatuses {
		published := model.StatusPublished
		filter.Status = &published
	}
	return filter
}

func normalizeCategoryFilter(category string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	if c == CategoryAll {
		return ""
	}
	return c
}
