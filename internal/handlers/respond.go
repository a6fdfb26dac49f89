package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clipvault/backend/internal/auth"
	"github.com/clipvault/backend/internal/logging"
	"github.com/clipvault/backend/internal/videos"
)

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
	}
}

func respondError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	respondJSON(ctx, w, status, map[string]string{"error": message})
}

// respondServiceError maps core errors onto HTTP statuses. Unauthorized is
// reported as 403 because the caller is authenticated but not allowed.
func respondServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	logger := logging.FromContext(ctx)

	switch {
	case errors.Is(err, videos.ErrUnauthorized):
		logger.Warn(op+" denied", "error", err)
		respondError(ctx, w, http.StatusForbidden, "not allowed")
	case errors.Is(err, videos.ErrNotFound):
		respondError(ctx, w, http.StatusNotFound, "not found")
	case errors.Is(err, videos.ErrInvalidUpload):
		logger.Warn(op+" rejected", "error", err)
		respondError(ctx, w, http.StatusBadRequest, err.Error())
	case errors.Is(err, videos.ErrUpstreamUnavailable):
		logger.Error(op+" upstream failure", "error", err)
		respondError(ctx, w, http.StatusServiceUnavailable, "service temporarily unavailable")
	default:
		logger.Error(op+" failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal error")
	}
}

// principal returns the caller stored by the authentication middleware.
func principal(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFromContext(r.Context())
	return p
}
