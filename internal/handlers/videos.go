package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/clipvault/backend/internal/logging"
	"github.com/clipvault/backend/internal/models"
	"github.com/clipvault/backend/internal/videos"
)

const multipartMemory = 8 << 20

// VideoHandler implements the owner-facing video endpoints.
type VideoHandler struct {
	Library        Library
	MaxUploadBytes int64
}

type uploadResponse struct {
	Video     models.Video `json:"video"`
	ShareCode string       `json:"share_code,omitempty"`
}

// List handles GET /api/v1/videos?days=N.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	days := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondError(ctx, w, http.StatusBadRequest, "days must be a non-negative integer")
			return
		}
		days = parsed
	}

	list, err := h.Library.ListVideos(ctx, principal(r), days)
	if err != nil {
		respondServiceError(ctx, w, "list videos", err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{"videos": list})
}

// Upload handles multipart POST /api/v1/videos with a "file" part and an
// optional "thumbnail" part.
func (h VideoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	limit := h.MaxUploadBytes
	if limit <= 0 {
		limit = videos.DefaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartMemory)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(ctx, w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		logger.Warn("invalid upload form", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	in := videos.Upload{
		VideoID:  strings.TrimSpace(r.FormValue("video_id")),
		Title:    r.FormValue("title"),
		MimeType: header.Header.Get("Content-Type"),
		Size:     header.Size,
		Body:     file,
	}
	if description := strings.TrimSpace(r.FormValue("description")); description != "" {
		in.Description = &description
	}
	if raw := strings.TrimSpace(r.FormValue("duration_seconds")); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil {
			respondError(ctx, w, http.StatusBadRequest, "duration_seconds must be an integer")
			return
		}
		in.DurationSeconds = &seconds
	}

	if thumb, thumbHeader, err := r.FormFile("thumbnail"); err == nil {
		defer thumb.Close()
		in.Thumbnail = thumb
		in.ThumbnailSize = thumbHeader.Size
	} else if !errors.Is(err, http.ErrMissingFile) {
		respondError(ctx, w, http.StatusBadRequest, "invalid thumbnail")
		return
	}

	result, err := h.Library.Upload(ctx, principal(r), in)
	if err != nil {
		respondServiceError(ctx, w, "upload video", err)
		return
	}
	respondJSON(ctx, w, http.StatusCreated, uploadResponse{Video: result.Video, ShareCode: result.ShareCode})
}

// Delete handles DELETE /api/v1/videos/{id}.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.Library.DeleteVideo(ctx, principal(r), mux.Vars(r)["id"]); err != nil {
		respondServiceError(ctx, w, "delete video", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
