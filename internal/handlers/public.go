package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/clipvault/backend/internal/logging"
	"github.com/clipvault/backend/internal/models"
)

// PublicHandler serves the anonymous player endpoints. Responses never
// distinguish an unknown code from an inactive one.
type PublicHandler struct {
	Player PublicPlayer
	Links  Linker
}

type publicVideoResponse struct {
	models.PublicVideo
	PlaybackURL  string `json:"playback_url,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// Get handles GET /api/v1/public/{code}.
func (h PublicHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	video, err := h.Player.PublicVideo(ctx, mux.Vars(r)["code"])
	if err != nil {
		respondError(ctx, w, http.StatusNotFound, "not found")
		return
	}

	resp := publicVideoResponse{PublicVideo: video}
	if h.Links != nil {
		if url, err := h.Links.URL(ctx, video.StoragePath); err == nil {
			resp.PlaybackURL = url
		} else {
			logging.FromContext(ctx).Error("playback url", "error", err)
		}
		if video.ThumbnailPath != nil {
			if url, err := h.Links.URL(ctx, *video.ThumbnailPath); err == nil {
				resp.ThumbnailURL = url
			}
		}
	}

	w.Header().Set("Cache-Control", "no-store")
	respondJSON(ctx, w, http.StatusOK, resp)
}

// View handles POST /api/v1/public/{code}/views. It always answers 204.
func (h PublicHandler) View(w http.ResponseWriter, r *http.Request) {
	h.Player.RecordView(r.Context(), mux.Vars(r)["code"])
	w.WriteHeader(http.StatusNoContent)
}
