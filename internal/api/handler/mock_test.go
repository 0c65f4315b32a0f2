package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hszk-dev/gotube/internal/api/middleware"
	"github.com/hszk-dev/gotube/internal/domain/model"
	"github.com/hszk-dev/gotube/internal/domain/repository"
	"github.com/hszk-dev/gotube/internal/usecase"
)

// Mock VideoService

type mockVideoService struct {
	listVideosFn     func(ctx context.Context, input usecase.ListVideosInput) (*model.Page[*model.Video], error)
	searchVideosFn   func(ctx context.Context, input usecase.SearchVideosInput) (*model.Page[*model.Video], error)
	relatedVideosFn  func(ctx context.Context, ref model.VideoRef) ([]*model.Video, error)
	getVideoFn       func(ctx context.Context, ref model.VideoRef) (*model.Video, error)
	updateVideoFn    func(ctx context.Context, ref model.VideoRef, update model.VideoUpdate) (*model.Video, error)
	incrementViewsFn func(ctx context.Context, ref model.VideoRef) (int64, error)
	incrementLikesFn func(ctx context.Context, ref model.VideoRef) (int64, error)
}

func (m *mockVideoService) ListVideos(ctx context.Context, input usecase.ListVideosInput) (*model.Page[*model.Video], error) {
	if m.listVideosFn != nil {
		return m.listVideosFn(ctx, input)
	}
	return &model.Page[*model.Video]{}, nil
}

func (m *mockVideoService) SearchVideos(ctx context.Context, input usecase.SearchVideosInput) (*model.Page[*model.Video], error) {
	if m.searchVideosFn != nil {
		return m.searchVideosFn(ctx, input)
	}
	return &model.Page[*model.Video]{}, nil
}

func (m *mockVideoService) RelatedVideos(ctx context.Context, ref model.VideoRef) ([]*model.Video, error) {
	if m.relatedVideosFn != nil {
		return m.relatedVideosFn(ctx, ref)
	}
	return nil, nil
}

func (m *mockVideoService) GetVideo(ctx context.Context, ref model.VideoRef) (*model.Video, error) {
	if m.getVideoFn != nil {
		return m.getVideoFn(ctx, ref)
	}
	return nil, repository.ErrVideoNotFound
}

func (m *mockVideoService) UpdateVideo(ctx context.Context, ref model.VideoRef, update model.VideoUpdate) (*model.Video, error) {
	if m.updateVideoFn != nil {
		return m.updateVideoFn(ctx, ref, update)
	}
	return nil, repository.ErrVideoNotFound
}

func (m *mockVideoService) IncrementViews(ctx context.Context, ref model.VideoRef) (int64, error) {
	if m.incrementViewsFn != nil {
		return m.incrementViewsFn(ctx, ref)
	}
	return 0, repository.ErrVideoNotFound
}

func (m *mockVideoService) IncrementLikes(ctx context.Context, ref model.VideoRef) (int64, error) {
	if m.incrementLikesFn != nil {
		return m.incrementLikesFn(ctx, ref)
	}
	return 0, repository.ErrVideoNotFound
}

// Mock AssetPipeline

type mockAssetPipeline struct {
	uploadFn     func(ctx context.Context, input usecase.UploadInput) (*model.Video, error)
	regenerateFn func(ctx context.Context, ref model.VideoRef) ([]string, error)
	deleteFn     func(ctx context.Context, ref model.VideoRef) (*model.DeleteSummary, error)
}

func (m *mockAssetPipeline) Upload(ctx context.Context, input usecase.UploadInput) (*model.Video, error) {
	if m.uploadFn != nil {
		return m.uploadFn(ctx, input)
	}
	return nil, usecase.ErrMissingVideoFile
}

func (m *mockAssetPipeline) RegenerateThumbnails(ctx context.Context, ref model.VideoRef) ([]string, error) {
	if m.regenerateFn != nil {
		return m.regenerateFn(ctx, ref)
	}
	return nil, repository.ErrVideoNotFound
}

func (m *mockAssetPipeline) Delete(ctx context.Context, ref model.VideoRef) (*model.DeleteSummary, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, ref)
	}
	return nil, repository.ErrVideoNotFound
}

// Mock CategoryService

type mockCategoryService struct {
	createFn func(ctx context.Context, name, description string) (*model.Category, error)
	listFn   func(ctx context.Context) ([]*model.Category, error)
}

func (m *mockCategoryService) CreateCategory(ctx context.Context, name, description string) (*model.Category, error) {
	if m.createFn != nil {
		return m.createFn(ctx, name, description)
	}
	return model.NewCategory(name, description)
}

func (m *mockCategoryService) ListCategories(ctx context.Context) ([]*model.Category, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

// Mock InteractionService

type mockInteractionService struct {
	getFn    func(ctx context.Context, userID string, ref model.VideoRef) (*model.Interaction, error)
	toggleFn func(ctx context.Context, userID string, ref model.VideoRef, flag model.InteractionFlag) (*model.Interaction, error)
	watchFn  func(ctx context.Context, userID string, ref model.VideoRef, seconds int) (*model.Interaction, error)
}

func (m *mockInteractionService) Get(ctx context.Context, userID string, ref model.VideoRef) (*model.Interaction, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID, ref)
	}
	return &model.Interaction{UserID: userID, VideoID: ref.ID}, nil
}

func (m *mockInteractionService) Toggle(ctx context.Context, userID string, ref model.VideoRef, flag model.InteractionFlag) (*model.Interaction, error) {
	if m.toggleFn != nil {
		return m.toggleFn(ctx, userID, ref, flag)
	}
	return &model.Interaction{UserID: userID, VideoID: ref.ID}, nil
}

func (m *mockInteractionService) RecordWatch(ctx context.Context, userID string, ref model.VideoRef, seconds int) (*model.Interaction, error) {
	if m.watchFn != nil {
		return m.watchFn(ctx, userID, ref, seconds)
	}
	return &model.Interaction{UserID: userID, VideoID: ref.ID, Watched: true, WatchTime: seconds}, nil
}

// Helpers

func testVideo() *model.Video {
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	return &model.Video{
		ID:         primitive.NewObjectIDFromTimestamp(now),
		ShortID:    "k3j9x0q2ab",
		Title:      "Test Video",
		Category:   "music",
		Tags:       []string{"live"},
		VideoURL:   "https://cdn.example.com/gotube/videos/1_clip.mp4",
		Thumbnail:  "https://cdn.example.com/gotube/thumbnails/1_thumb_1.jpg",
		Thumbnails: []string{"https://cdn.example.com/gotube/thumbnails/1_thumb_1.jpg"},
		Duration:   90,
		Status:     model.StatusPublished,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// serve routes req through a chi router so URL parameters resolve. A
// non-nil principal is attached to the request context.
func serve(method, pattern string, h http.HandlerFunc, req *http.Request, p *middleware.Principal) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)

	if p != nil {
		req = req.WithContext(middleware.WithPrincipal(req.Context(), *p))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()

	var reader io.Reader
	switch v := body.(type) {
	case nil:
		reader = http.NoBody
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		b, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to unmarshal response: %v (body %q)", err, rec.Body.String())
	}
	return v
}
