package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hszk-dev/gotube/internal/domain/model"
	"github.com/hszk-dev/gotube/internal/domain/repository"
	"github.com/hszk-dev/gotube/internal/encoder"
	"github.com/hszk-dev/gotube/internal/usecase"
)

func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, "failed to encode response", http.StatusInternalServerError)
		}
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func Error(w http.ResponseWriter, status int, err string, message string) {
	JSON(w, status, ErrorResponse{
		Error:   err,
		Message: message,
	})
}

// serviceError maps domain errors to HTTP responses. Anything unmapped is
// logged and reported as a 500 carrying the error text.
func serviceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repository.ErrVideoNotFound):
		Error(w, http.StatusNotFound, "video_not_found", "Video not found")
	case errors.Is(err, repository.ErrCategoryNotFound):
		Error(w, http.StatusNotFound, "category_not_found", "Category not found")
	case errors.Is(err, repository.ErrObjectNotFound):
		Error(w, http.StatusNotFound, "object_not_found", "Stored video file not found")
	case errors.Is(err, repository.ErrDuplicateCategory):
		Error(w, http.StatusConflict, "category_exists", "Category already exists")
	case errors.Is(err, repository.ErrDuplicateVideo):
		Error(w, http.StatusConflict, "video_exists", "Video already exists")
	case errors.Is(err, usecase.ErrMissingVideoFile):
		Error(w, http.StatusBadRequest, "missing_file", "A video file is required")
	case errors.Is(err, model.ErrEmptyTitle), errors.Is(err, model.ErrTitleTooLong):
		Error(w, http.StatusBadRequest, "invalid_title", err.Error())
	case errors.Is(err, model.ErrInvalidStatus):
		Error(w, http.StatusBadRequest, "invalid_status", err.Error())
	case errors.Is(err, model.ErrEmptyCategoryName), errors.Is(err, model.ErrInvalidSlug):
		Error(w, http.StatusBadRequest, "invalid_category", err.Error())
	case errors.Is(err, model.ErrInvalidFlag):
		Error(w, http.StatusBadRequest, "invalid_flag", err.Error())
	case errors.Is(err, usecase.ErrInvalidWatchTime):
		Error(w, http.StatusBadRequest, "invalid_watch_time", err.Error())
	case errors.Is(err, repository.ErrUnrecognizedObjectURL):
		Error(w, http.StatusUnprocessableEntity, "unrecognized_object_url", err.Error())
	case errors.Is(err, encoder.ErrNoFrames):
		Error(w, http.StatusUnprocessableEntity, "thumbnail_generation_failed", "No frame could be extracted from the video")
	default:
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		Error(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// VideoResponse is the public JSON shape of a video.
type VideoResponse struct {
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

func toVideoResponse(v *model.Video) VideoResponse {
	return VideoResponse{
		ID:          v.ID.Hex(),
		ShortID:     v.ShortID,
		Title:       v.Title,
		Description: v.Description,
		Category:    v.Category,
		Tags:        nonNil(v.Tags),
		VideoURL:    v.VideoURL,
		Thumbnail:   v.Thumbnail,
		Thumbnails:  nonNil(v.Thumbnails),
		Duration:    v.Duration,
		Views:       v.Views,
		Likes:       v.Likes,
		Status:      v.Status.String(),
		FileSize:    v.FileSize,
		UploaderID:  v.UploaderID,
		CreatedAt:   v.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   v.UpdatedAt.Format(time.RFC3339),
	}
}

func toVideoResponses(videos []*model.Video) []VideoResponse {
	out := make([]VideoResponse, 0, len(videos))
	for _, v := range videos {
		out = append(out, toVideoResponse(v))
	}
	return out
}

// VideoPageResponse is one page of a listing or search.
type VideoPageResponse struct {
	Videos     []VideoResponse `json:"videos"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
	Total      int64           `json:"total"`
}

func toVideoPageResponse(p *model.Page[*model.Video]) VideoPageResponse {
	return VideoPageResponse{
		Videos:     toVideoResponses(p.Items),
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: p.TotalPages,
		Total:      p.Total,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
