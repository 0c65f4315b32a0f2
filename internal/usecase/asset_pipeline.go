package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"mime"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hszk-dev/gotube/internal/domain/model"
	"github.com/hszk-dev/gotube/internal/domain/repository"
	"github.com/hszk-dev/gotube/internal/encoder"
	"github.com/hszk-dev/gotube/internal/infrastructure/cache"
	"github.com/hszk-dev/gotube/internal/infrastructure/metrics"
)

// ErrMissingVideoFile is returned when an upload carries no video payload.
var ErrMissingVideoFile = errors.New("video file is required")

// ThumbnailCount is the number of candidate thumbnails produced per video.
const ThumbnailCount = 6

// thumbnailFractions are the relative offsets sampled at upload time.
var thumbnailFractions = [ThumbnailCount]float64{0.10, 0.25, 0.40, 0.55, 0.70, 0.85}

// Bounds of the interval random regeneration samples from.
const (
	regenerateMinFraction = 0.10
	regenerateMaxFraction = 0.90
)

const (
	thumbnailContentType = "image/jpeg"
	defaultVideoName     = "video.mp4"
)

// UploadInput is a raw video plus the metadata supplied with it.
type UploadInput struct {
	File        io.Reader
	FileName    string
	ContentType string
	Title       string
	Description string
	Category    string
	Tags        []string
	UploaderID  string
}

// AssetPipelineConfig holds configuration for AssetPipeline.
type AssetPipelineConfig struct {
	// TempDir is the parent of the per-request scratch directories.
	TempDir string
	// PlaceholderBaseURL serves generic images when no frame could be used.
	PlaceholderBaseURL string
}

// DefaultAssetPipelineConfig returns the default configuration.
func DefaultAssetPipelineConfig() AssetPipelineConfig {
	return AssetPipelineConfig{
		TempDir:            filepath.Join(os.TempDir(), "gotube"),
		PlaceholderBaseURL: "https://placehold.co/800x450",
	}
}

// AssetPipeline turns raw uploads into persisted videos with derived
// assets, and reverses that on delete.
type AssetPipeline interface {
	// Upload stores the primary asset, derives duration and thumbnails and
	// persists the record. No record is written unless the primary asset
	// was stored.
	Upload(ctx context.Context, input UploadInput) (*model.Video, error)

	// RegenerateThumbnails samples fresh frames from the stored asset and
	// returns their URLs. The record is left untouched.
	RegenerateThumbnails(ctx context.Context, ref model.VideoRef) ([]string, error)

	// Delete removes every stored object the record references and then
	// the record itself, whatever the storage outcome.
	Delete(ctx context.Context, ref model.VideoRef) (*model.DeleteSummary, error)
}

type assetPipeline struct {
	repo    repository.VideoRepository
	storage repository.ObjectStorage
	encoder encoder.Encoder
	queue   repository.MessageQueue
	cache   cache.VideoCache

	tempDir         string
	placeholderBase string

	now   func() time.Time
	float func() float64
}

// NewAssetPipeline creates a new AssetPipeline instance.
// queue and videoCache may be nil.
func NewAssetPipeline(
	repo repository.VideoRepository,
	storage repository.ObjectStorage,
	enc encoder.Encoder,
	queue repository.MessageQueue,
	videoCache cache.VideoCache,
	cfg AssetPipelineConfig,
) AssetPipeline {
	return &assetPipeline{
		repo:            repo,
		storage:         storage,
		encoder:         enc,
		queue:           queue,
		cache:           videoCache,
		tempDir:         cfg.TempDir,
		placeholderBase: strings.TrimRight(cfg.PlaceholderBaseURL, "/"),
		now:             time.Now,
		float:           rand.Float64,
	}
}

func (p *assetPipeline) Upload(ctx context.Context, input UploadInput) (*model.Video, error) {
	if input.File == nil {
		return nil, ErrMissingVideoFile
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, model.ErrEmptyTitle
	}

	workDir, err := p.createWorkDir("upload-*")
	if err != nil {
		return nil, err
	}
	defer p.removeWorkDir(workDir)

	stamp := p.now().UnixMilli()
	name := sanitizeFileName(input.FileName)

	scratch := filepath.Join(workDir, "source"+filepath.Ext(name))
	size, err := writeScratch(scratch, input.File)
	if err != nil {
		return nil, fmt.Errorf("write scratch file: %w", err)
	}
	if size == 0 {
		return nil, ErrMissingVideoFile
	}

	videoKey := fmt.Sprintf("%s%d_%s", repository.PrefixVideos, stamp, name)
	videoURL, err := p.putFile(ctx, scratch, videoKey, size, videoContentType(input.ContentType, name))
	if err != nil {
		return nil, fmt.Errorf("upload video: %w", err)
	}
	uploaded := []string{videoKey}

	seconds, duration := p.resolveDuration(ctx, scratch, size)

	timestamps := make([]float64, ThumbnailCount)
	for i, f := range thumbnailFractions {
		timestamps[i] = seconds * f
	}
	thumbnails, primary, thumbKeys := p.uploadThumbnails(ctx, scratch, workDir, stamp, timestamps)
	uploaded = append(uploaded, thumbKeys...)

	video, err := model.NewVideo(model.NewVideoInput{
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Tags:        input.Tags,
		VideoURL:    videoURL,
		Thumbnail:   primary,
		Thumbnails:  thumbnails,
		Duration:    duration,
		FileSize:    size,
		UploaderID:  input.UploaderID,
	})
	if err != nil {
		p.scheduleCleanup(ctx, "", uploaded, repository.CleanupReasonUploadAborted)
		return nil, err
	}

	if err := p.repo.Create(ctx, video); err != nil {
		p.scheduleCleanup(ctx, video.ID.Hex(), uploaded, repository.CleanupReasonUploadAborted)
		return nil, fmt.Errorf("create video: %w", err)
	}

	slog.Info("video uploaded",
		"video_id", video.ID.Hex(),
		"short_id", video.ShortID,
		"key", videoKey,
		"size", size,
		"duration", duration,
	)

	return video, nil
}

// resolveDuration returns the probed duration, or the size-based estimate
// when probing fails. The first value drives frame sampling.
func (p *assetPipeline) resolveDuration(ctx context.Context, path string, size int64) (float64, int) {
	seconds, err := p.encoder.Probe(ctx, path)
	if err == nil && seconds > 0 {
		return seconds, int(math.Round(seconds))
	}

	estimate := EstimateDuration(size)
	metrics.PipelineFallbacksTotal.WithLabelValues(metrics.FallbackDuration).Inc()
	slog.Warn("probe failed, estimating duration from file size",
		"size", size,
		"duration", estimate,
		"error", err,
	)
	return float64(estimate), estimate
}

// EstimateDuration guesses a duration in seconds from the file size,
// assuming two megabytes per minute, never less than one minute.
func EstimateDuration(size int64) int {
	mb := float64(size) / (1024 * 1024)
	minutes := int(math.Round(mb / 2))
	if minutes < 1 {
		minutes = 1
	}
	return minutes * 60
}

// uploadThumbnails extracts one frame per timestamp and stores each.
// Slots whose frame could not be produced or stored get a placeholder, so
// the result always has len(timestamps) entries. primary is the first
// stored frame, or the first placeholder when none was stored.
func (p *assetPipeline) uploadThumbnails(
	ctx context.Context,
	input, workDir string,
	stamp int64,
	timestamps []float64,
) (urls []string, primary string, keys []string) {
	urls = make([]string, len(timestamps))
	for i := range urls {
		urls[i] = p.placeholderURL(i + 1)
	}

	frames, err := p.encoder.ExtractFrames(ctx, input, workDir, timestamps, encoder.ThumbnailSize)
	if err != nil {
		metrics.PipelineFallbacksTotal.WithLabelValues(metrics.FallbackThumbnails).Inc()
		slog.Warn("thumbnail extraction failed, using placeholders", "error", err)
		return urls, urls[0], nil
	}

	stored := make([]bool, len(timestamps))
	for _, frame := range frames {
		if frame.Index < 0 || frame.Index >= len(urls) {
			continue
		}
		if !frame.OK() {
			slog.Warn("thumbnail frame failed",
				"index", frame.Index,
				"timestamp", frame.Timestamp,
				"error", frame.Err,
			)
			continue
		}

		key := thumbnailKey(stamp, frame.Index+1)
		url, err := p.putBytes(ctx, key, frame.Data, thumbnailContentType)
		if err != nil {
			slog.Warn("thumbnail upload failed", "key", key, "error", err)
			continue
		}
		urls[frame.Index] = url
		stored[frame.Index] = true
		keys = append(keys, key)
	}

	if len(keys) < len(urls) {
		metrics.PipelineFallbacksTotal.WithLabelValues(metrics.FallbackThumbnails).Inc()
	}

	primary = urls[0]
	if i := slices.Index(stored, true); i >= 0 {
		primary = urls[i]
	}
	return urls, primary, keys
}

func (p *assetPipeline) RegenerateThumbnails(ctx context.Context, ref model.VideoRef) ([]string, error) {
	video, err := p.repo.GetByRef(ctx, ref)
	if err != nil {
		return nil, err
	}

	key, err := p.storage.ObjectKey(video.VideoURL)
	if err != nil {
		return nil, fmt.Errorf("resolve video key: %w", err)
	}

	workDir, err := p.createWorkDir("regen-*")
	if err != nil {
		return nil, err
	}
	defer p.removeWorkDir(workDir)

	scratch := filepath.Join(workDir, "source"+filepath.Ext(key))
	if err := p.downloadTo(ctx, key, scratch); err != nil {
		return nil, fmt.Errorf("download video: %w", err)
	}

	seconds, err := p.encoder.Probe(ctx, scratch)
	if err != nil || seconds <= 0 {
		seconds = float64(video.Duration)
		if seconds <= 0 {
			seconds = float64(EstimateDuration(video.FileSize))
		}
		slog.Warn("probe failed during regeneration, using stored duration",
			"video_id", video.ID.Hex(),
			"duration", seconds,
			"error", err,
		)
	}

	timestamps := p.randomTimestamps(seconds, ThumbnailCount)
	frames, err := p.encoder.ExtractFrames(ctx, scratch, workDir, timestamps, encoder.ThumbnailSize)
	if err != nil {
		return nil, fmt.Errorf("extract frames: %w", err)
	}

	stamp := p.now().UnixMilli()
	urls := make([]string, 0, len(frames))
	for _, frame := range frames {
		if !frame.OK() {
			continue
		}
		url, err := p.putBytes(ctx, thumbnailKey(stamp, frame.Index+1), frame.Data, thumbnailContentType)
		if err != nil {
			slog.Warn("regenerated thumbnail upload failed",
				"video_id", video.ID.Hex(),
				"index", frame.Index,
				"error", err,
			)
			continue
		}
		urls = append(urls, url)
	}
	if len(urls) == 0 {
		return nil, encoder.ErrNoFrames
	}

	return urls, nil
}

// randomTimestamps draws n sorted offsets uniformly from the middle 80% of
// the video.
func (p *assetPipeline) randomTimestamps(seconds float64, n int) []float64 {
	lo := seconds * regenerateMinFraction
	span := seconds * (regenerateMaxFraction - regenerateMinFraction)
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + p.float()*span
	}
	slices.Sort(out)
	return out
}

func (p *assetPipeline) Delete(ctx context.Context, ref model.VideoRef) (*model.DeleteSummary, error) {
	video, err := p.repo.GetByRef(ctx, ref)
	if err != nil {
		return nil, err
	}

	summary := &model.DeleteSummary{
		VideoID: video.ID.Hex(),
		Objects: []model.ObjectResult{},
	}

	urls := make([]string, 0, len(video.Thumbnails)+2)
	urls = append(urls, video.VideoURL, video.Thumbnail)
	urls = append(urls, video.Thumbnails...)

	seen := make(map[string]struct{}, len(urls))
	for _, url := range urls {
		if url == "" {
			continue
		}

		key, err := p.storage.ObjectKey(url)
		if err != nil {
			summary.Skipped++
			summary.Objects = append(summary.Objects, model.ObjectResult{URL: url, Error: err.Error()})
			slog.Info("skipping object with unrecognized URL",
				"video_id", summary.VideoID,
				"url", url,
			)
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		summary.Attempted++
		result := model.ObjectResult{URL: url, Key: key}
		if err := p.storage.Delete(ctx, key); err != nil {
			summary.Failed++
			result.Error = err.Error()
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", key, err))
			slog.Warn("failed to delete stored object",
				"video_id", summary.VideoID,
				"key", key,
				"error", err,
			)
		} else {
			summary.Deleted++
			result.Deleted = true
		}
		summary.Objects = append(summary.Objects, result)
	}

	if err := p.repo.Delete(ctx, video.ID); err != nil {
		return nil, fmt.Errorf("delete video: %w", err)
	}
	p.invalidate(ctx, video)

	summary.CleanupScheduled = p.scheduleCleanup(ctx, summary.VideoID, summary.FailedKeys(), repository.CleanupReasonDeleteFailed)

	slog.Info("video deleted",
		"video_id", summary.VideoID,
		"attempted", summary.Attempted,
		"deleted", summary.Deleted,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
	)

	return summary, nil
}

// scheduleCleanup hands orphaned keys to the cleanup worker.
// It reports whether a task was published.
func (p *assetPipeline) scheduleCleanup(ctx context.Context, videoID string, keys []string, reason string) bool {
	if p.queue == nil || len(keys) == 0 {
		return false
	}

	task := repository.CleanupTask{
		ID:      uuid.NewString(),
		VideoID: videoID,
		Keys:    keys,
		Reason:  reason,
	}
	if err := p.queue.PublishCleanupTask(ctx, task); err != nil {
		slog.Error("failed to schedule storage cleanup",
			"video_id", videoID,
			"keys", keys,
			"reason", reason,
			"error", err,
		)
		return false
	}
	return true
}

func (p *assetPipeline) invalidate(ctx context.Context, video *model.Video) {
	if p.cache == nil {
		return
	}
	refs := []model.VideoRef{model.RefForID(video.ID)}
	if video.ShortID != "" {
		refs = append(refs, model.VideoRef{Kind: model.RefShortID, ShortID: video.ShortID})
	}
	for _, ref := range refs {
		if err := p.cache.Delete(ctx, ref); err != nil {
			slog.Warn("failed to invalidate cache on delete",
				"video_id", video.ID.Hex(),
				"ref", ref.String(),
				"error", err,
			)
		}
	}
}

func (p *assetPipeline) placeholderURL(n int) string {
	return fmt.Sprintf("%s?text=Thumbnail+%d", p.placeholderBase, n)
}

// createWorkDir creates a unique scratch directory under the configured
// temp dir.
func (p *assetPipeline) createWorkDir(pattern string) (string, error) {
	if p.tempDir != "" {
		if err := os.MkdirAll(p.tempDir, 0o755); err != nil {
			return "", fmt.Errorf("create temp dir: %w", err)
		}
	}
	dir, err := os.MkdirTemp(p.tempDir, pattern)
	if err != nil {
		return "", fmt.Errorf("create work directory: %w", err)
	}
	return dir, nil
}

// removeWorkDir logs instead of returning so it cannot mask the caller's error.
func (p *assetPipeline) removeWorkDir(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		slog.Warn("failed to remove work directory", "dir", dir, "error", err)
	}
}

func (p *assetPipeline) putFile(ctx context.Context, path, key string, size int64, contentType string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return p.storage.Put(ctx, key, file, size, contentType)
}

func (p *assetPipeline) putBytes(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	return p.storage.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
}

func (p *assetPipeline) downloadTo(ctx context.Context, key, path string) error {
	reader, err := p.storage.Download(ctx, key)
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()

	_, err = writeScratch(path, reader)
	return err
}

// writeScratch copies r to a new file at path and returns the byte count.
func writeScratch(path string, r io.Reader) (int64, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}

	n, err := io.Copy(file, r)
	if err != nil {
		_ = file.Close()
		return 0, fmt.Errorf("copy: %w", err)
	}
	if err := file.Close(); err != nil {
		return 0, fmt.Errorf("close file: %w", err)
	}
	return n, nil
}

func thumbnailKey(stamp int64, n int) string {
	return fmt.Sprintf("%s%d_thumb_%d.jpg", repository.PrefixThumbnails, stamp, n)
}

// sanitizeFileName keeps the base name of an uploaded file, replacing
// anything outside [A-Za-z0-9._-] with an underscore.
func sanitizeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" || name == "" {
		return defaultVideoName
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return defaultVideoName
	}
	return out
}

// videoContentType prefers the declared type and falls back to the file
// extension.
func videoContentType(declared, name string) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return "video/mp4"
}
