package usecase

import (
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hszk-dev/gotube/internal/domain/model"
	"github.com/hszk-dev/gotube/internal/domain/repository"
	"github.com/hszk-dev/gotube/internal/encoder"
)

// mockVideoRepository provides a configurable mock for VideoRepository.
type mockVideoRepository struct {
	createFn         func(ctx context.Context, video *model.Video) error
	getByRefFn       func(ctx context.Context, ref model.VideoRef) (*model.Video, error)
	listFn           func(ctx context.Context, filter repository.ListFilter) (*model.Page[*model.Video], error)
	searchFn         func(ctx context.Context, filter repository.SearchFilter) (*model.Page[*model.Video], error)
	relatedFn        func(ctx context.Context, id primitive.ObjectID, category string, limit int) ([]*model.Video, error)
	updateFn         func(ctx context.Context, video *model.Video) error
	deleteFn         func(ctx context.Context, id primitive.ObjectID) error
	incrementViewsFn func(ctx context.Context, ref model.VideoRef) (int64, error)
	incrementLikesFn func(ctx context.Context, ref model.VideoRef) (int64, error)
}

func (m *mockVideoRepository) Create(ctx context.Context, video *model.Video) error {
	if m.createFn != nil {
		return m.createFn(ctx, video)
	}
	return nil
}

func (m *mockVideoRepository) GetByRef(ctx context.Context, ref model.VideoRef) (*model.Video, error) {
	if m.getByRefFn != nil {
		return m.getByRefFn(ctx, ref)
	}
	return nil, repository.ErrVideoNotFound
}

func (m *mockVideoRepository) List(ctx context.Context, filter repository.ListFilter) (*model.Page[*model.Video], error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return &model.Page[*model.Video]{}, nil
}

func (m *mockVideoRepository) Search(ctx context.Context, filter repository.SearchFilter) (*model.Page[*model.Video], error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, filter)
	}
	return &model.Page[*model.Video]{}, nil
}

func (m *mockVideoRepository) Related(ctx context.Context, id primitive.ObjectID, category string, limit int) ([]*model.Video, error) {
	if m.relatedFn != nil {
		return m.relatedFn(ctx, id, category, limit)
	}
	return nil, nil
}

func (m *mockVideoRepository) Update(ctx context.Context, video *model.Video) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, video)
	}
	return nil
}

func (m *mockVideoRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockVideoRepository) IncrementViews(ctx context.Context, ref model.VideoRef) (int64, error) {
	if m.incrementViewsFn != nil {
		return m.incrementViewsFn(ctx, ref)
	}
	return 0, nil
}

func (m *mockVideoRepository) IncrementLikes(ctx context.Context, ref model.VideoRef) (int64, error) {
	if m.incrementLikesFn != nil {
		return m.incrementLikesFn(ctx, ref)
	}
	return 0, nil
}

// memoryVideos is a tiny keyed store used to back mockVideoRepository in
// tests that need read-after-write behavior.
type memoryVideos struct {
	mu     sync.Mutex
	videos map[primitive.ObjectID]*model.Video
}

func newMemoryVideos() *memoryVideos {
	return &memoryVideos{videos: make(map[primitive.ObjectID]*model.Video)}
}

func (s *memoryVideos) repo() *mockVideoRepository {
	return &mockVideoRepository{
		createFn: func(_ context.Context, v *model.Video) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.videos[v.ID] = v
			return nil
		},
		getByRefFn: func(_ context.Context, ref model.VideoRef) (*model.Video, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			for _, v := range s.videos {
				if (ref.Kind == model.RefObjectID && v.ID == ref.ID) ||
					(ref.Kind == model.RefShortID && v.ShortID == ref.ShortID) {
					copied := *v
					return &copied, nil
				}
			}
			return nil, repository.ErrVideoNotFound
		},
		deleteFn: func(_ context.Context, id primitive.ObjectID) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.videos[id]; !ok {
				return repository.ErrVideoNotFound
			}
			delete(s.videos, id)
			return nil
		},
		incrementViewsFn: func(_ context.Context, ref model.VideoRef) (int64, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			for _, v := range s.videos {
				if (ref.Kind == model.RefObjectID && v.ID == ref.ID) ||
					(ref.Kind == model.RefShortID && v.ShortID == ref.ShortID) {
					v.Views++
					return v.Views, nil
				}
			}
			return 0, repository.ErrVideoNotFound
		},
	}
}

func (s *memoryVideos) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.videos)
}

// mockObjectStorage provides a configurable mock for ObjectStorage.
// Without overrides it records puts and serves URLs under baseURL.
type mockObjectStorage struct {
	putFn      func(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error)
	downloadFn func(ctx context.Context, key string) (io.ReadCloser, error)
	deleteFn   func(ctx context.Context, key string) error

	mu      sync.Mutex
	puts    map[string]string
	deletes []string
}

const testStorageBase = "https://cdn.example.com/gotube"

func (m *mockObjectStorage) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	if m.putFn != nil {
		return m.putFn(ctx, key, reader, size, contentType)
	}
	_, _ = io.Copy(io.Discard, reader)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.puts == nil {
		m.puts = make(map[string]string)
	}
	m.puts[key] = contentType
	return m.PublicURL(key), nil
}

func (m *mockObjectStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	if m.downloadFn != nil {
		return m.downloadFn(ctx, key)
	}
	return io.NopCloser(strings.NewReader("fake video data")), nil
}

func (m *mockObjectStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	m.deletes = append(m.deletes, key)
	m.mu.Unlock()
	if m.deleteFn != nil {
		return m.deleteFn(ctx, key)
	}
	return nil
}

func (m *mockObjectStorage) PublicURL(key string) string {
	return testStorageBase + "/" + key
}

func (m *mockObjectStorage) ObjectKey(rawURL string) (string, error) {
	if key, ok := strings.CutPrefix(rawURL, testStorageBase+"/"); ok && key != "" {
		return key, nil
	}
	if strings.HasPrefix(rawURL, repository.PrefixVideos) || strings.HasPrefix(rawURL, repository.PrefixThumbnails) {
		return rawURL, nil
	}
	return "", repository.ErrUnrecognizedObjectURL
}

// mockMessageQueue provides a configurable mock for MessageQueue.
type mockMessageQueue struct {
	publishCleanupTaskFn  func(ctx context.Context, task repository.CleanupTask) error
	consumeCleanupTasksFn func(ctx context.Context, handler func(task *repository.CleanupTask) error) error

	mu        sync.Mutex
	published []repository.CleanupTask
}

func (m *mockMessageQueue) PublishCleanupTask(ctx context.Context, task repository.CleanupTask) error {
	if m.publishCleanupTaskFn != nil {
		return m.publishCleanupTaskFn(ctx, task)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, task)
	return nil
}

func (m *mockMessageQueue) ConsumeCleanupTasks(ctx context.Context, handler func(task *repository.CleanupTask) error) error {
	if m.consumeCleanupTasksFn != nil {
		return m.consumeCleanupTasksFn(ctx, handler)
	}
	return nil
}

func (m *mockMessageQueue) Close() error {
	return nil
}

// mockEncoder provides a configurable mock for Encoder.
// Without overrides it probes 10 seconds and extracts every frame.
type mockEncoder struct {
	probeFn         func(ctx context.Context, inputPath string) (float64, error)
	extractFramesFn func(ctx context.Context, inputPath, outputDir string, timestamps []float64, size encoder.FrameSize) ([]encoder.Frame, error)

	lastTimestamps []float64
}

func (m *mockEncoder) Probe(ctx context.Context, inputPath string) (float64, error) {
	if m.probeFn != nil {
		return m.probeFn(ctx, inputPath)
	}
	return 10, nil
}

func (m *mockEncoder) ExtractFrames(ctx context.Context, inputPath, outputDir string, timestamps []float64, size encoder.FrameSize) ([]encoder.Frame, error) {
	m.lastTimestamps = append([]float64(nil), timestamps...)
	if m.extractFramesFn != nil {
		return m.extractFramesFn(ctx, inputPath, outputDir, timestamps, size)
	}
	frames := make([]encoder.Frame, len(timestamps))
	for i, ts := range timestamps {
		frames[i] = encoder.Frame{Index: i, Timestamp: ts, Data: []byte{0xFF, 0xD8, 0xFF}}
	}
	return frames, nil
}

// mockVideoCache is an in-memory VideoCache keyed by both identifier forms.
type mockVideoCache struct {
	mu       sync.RWMutex
	data     map[string]*model.Video
	getFn    func(ctx context.Context, ref model.VideoRef) (*model.Video, error)
	setFn    func(ctx context.Context, video *model.Video, ttl time.Duration) error
	deleteFn func(ctx context.Context, ref model.VideoRef) error
	deletes  atomic.Int32
}

func newMockVideoCache() *mockVideoCache {
	return &mockVideoCache{
		data: make(map[string]*model.Video),
	}
}

func (m *mockVideoCache) Get(ctx context.Context, ref model.VideoRef) (*model.Video, error) {
	if m.getFn != nil {
		return m.getFn(ctx, ref)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data[ref.String()], nil
}

func (m *mockVideoCache) Set(ctx context.Context, video *model.Video, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, video, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[video.ID.Hex()] = video
	if video.ShortID != "" {
		m.data[video.ShortID] = video
	}
	return nil
}

func (m *mockVideoCache) Delete(ctx context.Context, ref model.VideoRef) error {
	m.deletes.Add(1)
	if m.deleteFn != nil {
		return m.deleteFn(ctx, ref)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, ref.String())
	return nil
}

// mockCategoryRepository provides a configurable mock for CategoryRepository.
type mockCategoryRepository struct {
	createFn    func(ctx context.Context, category *model.Category) error
	listFn      func(ctx context.Context) ([]*model.Category, error)
	getBySlugFn func(ctx context.Context, slug string) (*model.Category, error)
}

func (m *mockCategoryRepository) Create(ctx context.Context, category *model.Category) error {
	if m.createFn != nil {
		return m.createFn(ctx, category)
	}
	return nil
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]*model.Category, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockCategoryRepository) GetBySlug(ctx context.Context, slug string) (*model.Category, error) {
	if m.getBySlugFn != nil {
		return m.getBySlugFn(ctx, slug)
	}
	return nil, repository.ErrCategoryNotFound
}

// mockInteractionRepository provides a configurable mock for InteractionRepository.
type mockInteractionRepository struct {
	getFn          func(ctx context.Context, userID string, videoID primitive.ObjectID) (*model.Interaction, error)
	toggleFn       func(ctx context.Context, userID string, videoID primitive.ObjectID, flag model.InteractionFlag) (*model.Interaction, error)
	addWatchTimeFn func(ctx context.Context, userID string, videoID primitive.ObjectID, seconds int) (*model.Interaction, error)
}

func (m *mockInteractionRepository) Get(ctx context.Context, userID string, videoID primitive.ObjectID) (*model.Interaction, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID, videoID)
	}
	return &model.Interaction{UserID: userID, VideoID: videoID}, nil
}

func (m *mockInteractionRepository) Toggle(ctx context.Context, userID string, videoID primitive.ObjectID, flag model.InteractionFlag) (*model.Interaction, error) {
	if m.toggleFn != nil {
		return m.toggleFn(ctx, userID, videoID, flag)
	}
	return &model.Interaction{UserID: userID, VideoID: videoID}, nil
}

func (m *mockInteractionRepository) AddWatchTime(ctx context.Context, userID string, videoID primitive.ObjectID, seconds int) (*model.Interaction, error) {
	if m.addWatchTimeFn != nil {
		return m.addWatchTimeFn(ctx, userID, videoID, seconds)
	}
	return &model.Interaction{UserID: userID, VideoID: videoID, Watched: true, WatchTime: seconds}, nil
}
