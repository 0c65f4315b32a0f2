package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hszk-dev/gotube/internal/domain/model"
	"github.com/hszk-dev/gotube/internal/infrastructure/metrics"
)

const (
	// videoCacheKeyPrefix is the prefix for video cache keys in Redis.
	videoCacheKeyPrefix = "video:"

	// aliasCacheKeyPrefix maps a short alias to the hex id of its video.
	aliasCacheKeyPrefix = "video:alias:"
)

// videoJSON is the JSON representation of a Video for caching.
// Using explicit struct avoids coupling to domain model's JSON tags.
type videoJSON struct {
	ID          string   `json:"id"`
	ShortID     string   `json:"short_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	VideoURL    string   `json:"video_url"`
	Thumbnail   string   `json:"thumbnail"`
	Thumbnails  []string `json:"thumbnails"`
	Duration    int      `json:"duration"`
	Views       int64    `json:"views"`
	Likes       int64    `json:"likes"`
	Status      string   `json:"status"`
	FileSize    int64    `json:"file_size"`
	UploaderID  string   `json:"uploader_id,omitempty"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

// RedisVideoCache implements VideoCache using Redis as the backing store.
type RedisVideoCache struct {
	client *redis.Client
}

// NewRedisVideoCache creates a new Redis-backed video cache.
func NewRedisVideoCache(client *redis.Client) *RedisVideoCache {
	return &RedisVideoCache{
		client: client,
	}
}

// Get retrieves a video from Redis cache.
// Alias refs take one extra round trip to resolve the id.
// Returns nil, nil on cache miss.
func (c *RedisVideoCache) Get(ctx context.Context, ref model.VideoRef) (*model.Video, error) {
	id, ok, err := c.resolve(ctx, ref)
	if err != nil || !ok {
		return nil, err
	}

	data, err := c.client.Get(ctx, videoKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			observe(metrics.CacheOpGet, metrics.CacheStatusMiss)
			return nil, nil // Cache miss
		}
		observe(metrics.CacheOpGet, metrics.CacheStatusError)
		return nil, fmt.Errorf("redis get: %w", err)
	}

	video, err := c.deserialize(data)
	if err != nil {
		observe(metrics.CacheOpGet, metrics.CacheStatusError)
		return nil, fmt.Errorf("deserialize video: %w", err)
	}

	observe(metrics.CacheOpGet, metrics.CacheStatusHit)
	return video, nil
}

// Set stores a video in Redis cache with the specified TTL.
func (c *RedisVideoCache) Set(ctx context.Context, video *model.Video, ttl time.Duration) error {
	data, err := c.serialize(video)
	if err != nil {
		return fmt.Errorf("serialize video: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, videoKey(video.ID), data, ttl)
	if video.ShortID != "" {
		pipe.Set(ctx, aliasKey(video.ShortID), video.ID.Hex(), ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		observe(metrics.CacheOpSet, metrics.CacheStatusError)
		return fmt.Errorf("redis set: %w", err)
	}

	observe(metrics.CacheOpSet, metrics.CacheStatusSuccess)
	return nil
}

// Delete removes a video from Redis cache.
// The alias mapping is dropped too when ref is an alias.
func (c *RedisVideoCache) Delete(ctx context.Context, ref model.VideoRef) error {
	id, ok, err := c.resolve(ctx, ref)
	if err != nil || !ok {
		return err
	}

	keys := []string{videoKey(id)}
	if ref.Kind == model.RefShortID {
		keys = append(keys, aliasKey(ref.ShortID))
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		observe(metrics.CacheOpDelete, metrics.CacheStatusError)
		return fmt.Errorf("redis del: %w", err)
	}

	observe(metrics.CacheOpDelete, metrics.CacheStatusSuccess)
	return nil
}

// resolve returns the primary id for ref. ok is false when an alias has
// no cached mapping.
func (c *RedisVideoCache) resolve(ctx context.Context, ref model.VideoRef) (primitive.ObjectID, bool, error) {
	if ref.Kind == model.RefObjectID {
		return ref.ID, true, nil
	}

	hex, err := c.client.Get(ctx, aliasKey(ref.ShortID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			observe(metrics.CacheOpGet, metrics.CacheStatusMiss)
			return primitive.NilObjectID, false, nil
		}
		observe(metrics.CacheOpGet, metrics.CacheStatusError)
		return primitive.NilObjectID, false, fmt.Errorf("redis get alias: %w", err)
	}

	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, false, fmt.Errorf("parse cached alias target: %w", err)
	}
	return id, true, nil
}

func videoKey(id primitive.ObjectID) string {
	return videoCacheKeyPrefix + id.Hex()
}

func aliasKey(shortID string) string {
	return aliasCacheKeyPrefix + shortID
}

func observe(op, status string) {
	metrics.CacheOperationsTotal.WithLabelValues(op, status, metrics.CacheTypeRedis).Inc()
}

// serialize converts a Video to JSON bytes.
func (c *RedisVideoCache) serialize(video *model.Video) ([]byte, error) {
	v := videoJSON{
		ID:          video.ID.Hex(),
		ShortID:     video.ShortID,
		Title:       video.Title,
		Description: video.Description,
		Category:    video.Category,
		Tags:        video.Tags,
		VideoURL:    video.VideoURL,
		Thumbnail:   video.Thumbnail,
		Thumbnails:  video.Thumbnails,
		Duration:    video.Duration,
		Views:       video.Views,
		Likes:       video.Likes,
		Status:      string(video.Status),
		FileSize:    video.FileSize,
		UploaderID:  video.UploaderID,
		CreatedAt:   video.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:   video.UpdatedAt.Format(time.RFC3339Nano),
	}
	return json.Marshal(v)
}

// deserialize converts JSON bytes to a Video.
func (c *RedisVideoCache) deserialize(data []byte) (*model.Video, error) {
	var v videoJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}

	id, err := primitive.ObjectIDFromHex(v.ID)
	if err != nil {
		return nil, fmt.Errorf("parse video ID: %w", err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, v.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	updatedAt, err := time.Parse(time.RFC3339Nano, v.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &model.Video{
		ID:          id,
		ShortID:     v.ShortID,
		Title:       v.Title,
		Description: v.Description,
		Category:    v.Category,
		Tags:        v.Tags,
		VideoURL:    v.VideoURL,
		Thumbnail:   v.Thumbnail,
		Thumbnails:  v.Thumbnails,
		Duration:    v.Duration,
		Views:       v.Views,
		Likes:       v.Likes,
		Status:      model.Status(v.Status),
		FileSize:    v.FileSize,
		UploaderID:  v.UploaderID,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}

// Compile-time verification that RedisVideoCache implements VideoCache.
var _ VideoCache = (*RedisVideoCache)(nil)
