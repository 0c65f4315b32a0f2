package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hszk-dev/gotube/internal/api/middleware"
	"github.com/hszk-dev/gotube/internal/domain/model"
	"github.com/hszk-dev/gotube/internal/usecase"
)

type WatchRequest struct {
	Seconds int `json:"seconds" validate:"required,gt=0,max=86400"`
}

type InteractionResponse struct {
	VideoID    string `json:"video_id"`
	Liked      bool   `json:"liked"`
	WatchLater bool   `json:"watch_later"`
	Favorite   bool   `json:"favorite"`
	Watched    bool   `json:"watched"`
	WatchTime  int    `json:"watch_time"`
}

// InteractionHandler handles the caller's per-video flags.
type InteractionHandler struct {
	svc usecase.InteractionService
}

// NewInteractionHandler creates a new InteractionHandler.
func NewInteractionHandler(svc usecase.InteractionService) *InteractionHandler {
	return &InteractionHandler{svc: svc}
}

// Get handles GET /api/videos/{id}/interaction
func (h *InteractionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ref, ok := interactionTarget(w, r)
	if !ok {
		return
	}

	interaction, err := h.svc.Get(r.Context(), userID, ref)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, toInteractionResponse(interaction))
}

// Toggle handles POST /api/videos/{id}/interaction/{flag}
func (h *InteractionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	userID, ref, ok := interactionTarget(w, r)
	if !ok {
		return
	}

	flag, err := model.ParseInteractionFlag(chi.URLParam(r, "flag"))
	if err != nil {
		serviceError(w, r, err)
		return
	}

	interaction, err := h.svc.Toggle(r.Context(), userID, ref, flag)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, toInteractionResponse(interaction))
}

// Watch handles POST /api/videos/{id}/watch
func (h *InteractionHandler) Watch(w http.ResponseWriter, r *http.Request) {
	userID, ref, ok := interactionTarget(w, r)
	if !ok {
		return
	}

	var req WatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	interaction, err := h.svc.RecordWatch(r.Context(), userID, ref, req.Seconds)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, toInteractionResponse(interaction))
}

func interactionTarget(w http.ResponseWriter, r *http.Request) (string, model.VideoRef, bool) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		Error(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return "", model.VideoRef{}, false
	}
	ref, ok := videoRef(w, r)
	if !ok {
		return "", model.VideoRef{}, false
	}
	return p.UserID, ref, true
}

func toInteractionResponse(i *model.Interaction) InteractionResponse {
	return InteractionResponse{
		VideoID:    i.VideoID.Hex(),
		Liked:      i.Liked,
		WatchLater: i.WatchLater,
		Favorite:   i.Favorite,
		Watched:    i.Watched,
		WatchTime:  i.WatchTime,
	}
}
