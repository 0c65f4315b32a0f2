package model

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Status represents the lifecycle state of a video.
type Status string

const (
	StatusPublished Status = "published"
	StatusDraft     Status = "draft"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPublished, StatusDraft:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	return string(s)
}

// ParseStatus converts a raw string to a Status.
func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", ErrInvalidStatus
	}
	return status, nil
}

// Video represents an uploaded video and its derived assets.
type Video struct {
	ID          primitive.ObjectID
	ShortID     string
	Title       string
	Description string
	Category    string
	Tags        []string
	VideoURL    string
	Thumbnail   string
	Thumbnails  []string
	Duration    int
	Views       int64
	Likes       int64
	Status      Status
	FileSize    int64
	UploaderID  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

var (
	ErrEmptyTitle        = errors.New("title cannot be empty")
	ErrTitleTooLong      = errors.New("title exceeds maximum length of 200 characters")
	ErrInvalidStatus     = errors.New("status must be published or draft")
	ErrNegativeDuration  = errors.New("duration cannot be negative")
	ErrMissingVideoURL   = errors.New("video URL is required")
	ErrMissingThumbnails = errors.New("thumbnail list is required")
)

const (
	maxTitleLength = 200

	// DefaultCategory is used when an upload carries no category.
	DefaultCategory = "general"
)

// NewVideoInput carries everything known about a video once its assets exist.
type NewVideoInput struct {
	Title       string
	Description string
	Category    string
	Tags        []string
	VideoURL    string
	Thumbnail   string
	Thumbnails  []string
	Duration    int
	FileSize    int64
	UploaderID  string
}

// NewVideo creates a published Video with zeroed counters.
func NewVideo(in NewVideoInput) (*Video, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if len([]rune(title)) > maxTitleLength {
		return nil, ErrTitleTooLong
	}
	if in.Duration < 0 {
		return nil, ErrNegativeDuration
	}
	if in.VideoURL == "" {
		return nil, ErrMissingVideoURL
	}
	if len(in.Thumbnails) == 0 {
		return nil, ErrMissingThumbnails
	}

	thumbnail := in.Thumbnail
	if thumbnail == "" {
		thumbnail = in.Thumbnails[0]
	}

	now := time.Now()
	return &Video{
		ID:          primitive.NewObjectIDFromTimestamp(now),
		ShortID:     NewShortID(),
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Category:    NormalizeCategory(in.Category),
		Tags:        NormalizeTags(in.Tags),
		VideoURL:    in.VideoURL,
		Thumbnail:   thumbnail,
		Thumbnails:  append([]string(nil), in.Thumbnails...),
		Duration:    in.Duration,
		Status:      StatusPublished,
		FileSize:    in.FileSize,
		UploaderID:  in.UploaderID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// NormalizeCategory lowercases and trims a category tag.
func NormalizeCategory(category string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	if c == "" {
		return DefaultCategory
	}
	return c
}

// NormalizeTags trims tags and drops empty entries and duplicates.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// VideoUpdate holds the optional fields a caller may change after upload.
// Thumbnails is deliberately absent: the alternatives list is immutable.
type VideoUpdate struct {
	Title       *string
	Description *string
	Category    *string
	Tags        []string
	Status      *Status
	Thumbnail   *string
}

// ApplyUpdate mutates the editable fields of v.
func (v *Video) ApplyUpdate(u VideoUpdate) error {
	if u.Title != nil {
		title := strings.TrimSpace(*u.Title)
		if title == "" {
			return ErrEmptyTitle
		}
		if len([]rune(title)) > maxTitleLength {
			return ErrTitleTooLong
		}
		v.Title = title
	}
	if u.Status != nil {
		if !u.Status.IsValid() {
			return ErrInvalidStatus
		}
		v.Status = *u.Status
	}
	if u.Description != nil {
		v.Description = strings.TrimSpace(*u.Description)
	}
	if u.Category != nil {
		v.Category = NormalizeCategory(*u.Category)
	}
	if u.Tags != nil {
		v.Tags = NormalizeTags(u.Tags)
	}
	if u.Thumbnail != nil && *u.Thumbnail != "" {
		v.Thumbnail = *u.Thumbnail
	}
	v.UpdatedAt = time.Now()
	return nil
}

// IsPublished reports whether the video is publicly listed.
func (v *Video) IsPublished() bool {
	return v.Status == StatusPublished
}
