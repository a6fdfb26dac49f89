package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// ShareHandler implements share issuance and toggling for video owners.
type ShareHandler struct {
	Shares Sharing
}

type toggleRequest struct {
	IsActive *bool `json:"is_active"`
}

// Create handles POST /api/v1/videos/{id}/shares.
func (h ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	share, err := h.Shares.CreateShare(ctx, principal(r), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(ctx, w, "create share", err)
		return
	}
	respondJSON(ctx, w, http.StatusCreated, share)
}

// Toggle handles PATCH /api/v1/shares/{id} with {"is_active": bool}.
func (h ShareHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsActive == nil {
		respondError(ctx, w, http.StatusBadRequest, "is_active is required")
		return
	}

	shareID := mux.Vars(r)["id"]
	if err := h.Shares.ToggleShare(ctx, principal(r), shareID, *req.IsActive); err != nil {
		respondServiceError(ctx, w, "toggle share", err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{"id": shareID, "is_active": *req.IsActive})
}
