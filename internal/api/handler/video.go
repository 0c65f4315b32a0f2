package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hszk-dev/gotube/internal/api/middleware"
	"github.com/hszk-dev/gotube/internal/domain/model"
	"github.com/hszk-dev/gotube/internal/usecase"
)

const (
	// videoFormField is the multipart field carrying the raw video.
	videoFormField = "video"

	// maxMultipartMemory is kept in memory before parts spill to disk.
	maxMultipartMemory = 32 << 20
)

// UpdateVideoRequest carries the editable fields of a video. Absent fields
// are left unchanged.
type UpdateVideoRequest struct {
	Title       *string  `json:"title" validate:"omitempty,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=5000"`
	Category    *string  `json:"category" validate:"omitempty,max=50"`
	Tags        []string `json:"tags" validate:"omitempty,max=20,dive,max=50"`
	Status      *string  `json:"status"`
	Thumbnail   *string  `json:"thumbnail" validate:"omitempty,url"`
}

type CounterResponse struct {
	Views *int64 `json:"views,omitempty"`
	Likes *int64 `json:"likes,omitempty"`
}

type ThumbnailsResponse struct {
	Thumbnails []string `json:"thumbnails"`
}

// DeleteVideoResponse reports the per-object outcome of a delete.
type DeleteVideoResponse struct {
	Message string `json:"message"`
	*model.DeleteSummary
}

// VideoHandler handles video-related HTTP requests.
type VideoHandler struct {
	videos         usecase.VideoService
	pipeline       usecase.AssetPipeline
	maxUploadBytes int64
}

// NewVideoHandler creates a new VideoHandler.
func NewVideoHandler(videos usecase.VideoService, pipeline usecase.AssetPipeline, maxUploadBytes int64) *VideoHandler {
	return &VideoHandler{
		videos:         videos,
		pipeline:       pipeline,
		maxUploadBytes: maxUploadBytes,
	}
}

// List handles GET /api/videos
func (h *VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

// AdminList handles GET /api/admin/videos
func (h *VideoHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

func (h *VideoHandler) list(w http.ResponseWriter, r *http.Request, allStatuses bool) {
	input, ok := listInput(w, r)
	if !ok {
		return
	}
	input.AllStatuses = allStatuses

	page, err := h.videos.ListVideos(r.Context(), input)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, toVideoPageResponse(page))
}

// Search handles GET /api/videos/search/videos
func (h *VideoHandler) Search(w http.ResponseWriter, r *http.Request) {
	input, ok := listInput(w, r)
	if !ok {
		return
	}

	page, err := h.videos.SearchVideos(r.Context(), usecase.SearchVideosInput{
		Query:           r.URL.Query().Get("q"),
		ListVideosInput: input,
	})
	if err != nil {
		serviceError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, toVideoPageResponse(page))
}

// Related handles GET /api/videos/related/{id}
func (h *VideoHandler) Related(w http.ResponseWriter, r *http.Request) {
	ref, ok := videoRef(w, r)
	if !ok {
		return
	}

	videos, err := h.videos.RelatedVideos(r.Context(), ref)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, toVideoResponses(videos))
}

// Get handles GET /api/videos/{id}
func (h *VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ref, ok := videoRef(w, r)
	if !ok {
		return
	}

	video, err := h.videos.GetVideo(r.Context(), ref)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, toVideoResponse(video))
}

// View handles POST /api/videos/{id}/view
func (h *VideoHandler) View(w http.ResponseWriter, r *http.Request) {
	ref, ok := videoRef(w, r)
	if !ok {
		return
	}

	views, err := h.videos.IncrementViews(r.Context(), ref)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, CounterResponse{Views: &views})
}

// Like handles POST /api/videos/{id}/like
func (h *VideoHandler) Like(w http.ResponseWriter, r *http.Request) {
	ref, ok := videoRef(w, r)
	if !ok {
		return
	}

	likes, err := h.videos.IncrementLikes(r.Context(), ref)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, CounterResponse{Likes: &likes})
}

// Upload handles POST /api/videos/upload
func (h *VideoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			Error(w, http.StatusRequestEntityTooLarge, "file_too_large", "Upload exceeds the size limit")
			return
		}
		Error(w, http.StatusBadRequest, "invalid_request", "Expected a multipart form")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile(videoFormField)
	if err != nil {
		Error(w, http.StatusBadRequest, "missing_file", "A video file is required")
		return
	}
	defer file.Close()

	var uploaderID string
	if p, ok := middleware.GetPrincipal(r.Context()); ok {
		uploaderID = p.UserID
	}

	video, err := h.pipeline.Upload(r.Context(), usecase.UploadInput{
		File:        file,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		Tags:        formTags(r),
		UploaderID:  uploaderID,
	})
	if err != nil {
		serviceError(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, toVideoResponse(video))
}

// Update handles PUT /api/videos/{id}
func (h *VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ref, ok := videoRef(w, r)
	if !ok {
		return
	}

	var req UpdateVideoRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	update := model.VideoUpdate{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Tags:        req.Tags,
		Thumbnail:   req.Thumbnail,
	}
	if req.Status != nil {
		status, err := model.ParseStatus(*req.Status)
		if err != nil {
			serviceError(w, r, err)
			return
		}
		update.Status = &status
	}

	video, err := h.videos.UpdateVideo(r.Context(), ref, update)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, toVideoResponse(video))
}

// Delete handles DELETE /api/videos/{id}
func (h *VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ref, ok := videoRef(w, r)
	if !ok {
		return
	}

	summary, err := h.pipeline.Delete(r.Context(), ref)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, DeleteVideoResponse{Message: "Video deleted", DeleteSummary: summary})
}

// GenerateThumbnails handles POST /api/videos/generate-thumbnails/{id}
func (h *VideoHandler) GenerateThumbnails(w http.ResponseWriter, r *http.Request) {
	ref, ok := videoRef(w, r)
	if !ok {
		return
	}

	urls, err := h.pipeline.RegenerateThumbnails(r.Context(), ref)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, ThumbnailsResponse{Thumbnails: urls})
}

func videoRef(w http.ResponseWriter, r *http.Request) (model.VideoRef, bool) {
	ref, err := model.ParseVideoRef(chi.URLParam(r, "id"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_video_id", "Video ID is required")
		return model.VideoRef{}, false
	}
	return ref, true
}

func listInput(w http.ResponseWriter, r *http.Request) (usecase.ListVideosInput, bool) {
	q := r.URL.Query()

	page, err := queryInt(q.Get("page"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_page", "page must be an integer")
		return usecase.ListVideosInput{}, false
	}
	limit, err := queryInt(q.Get("limit"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
		return usecase.ListVideosInput{}, false
	}

	return usecase.ListVideosInput{
		Category: q.Get("category"),
		Page:     page,
		Limit:    limit,
	}, true
}

// queryInt parses an optional integer; an empty value yields zero so the
// service applies its default.
func queryInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// formTags accepts repeated "tags" fields as well as comma-separated values.
func formTags(r *http.Request) []string {
	var tags []string
	for _, v := range r.MultipartForm.Value["tags"] {
		tags = append(tags, strings.Split(v, ",")...)
	}
	return tags
}
