package handlers

import "net/http"

// AdminHandler exposes the admin rollup.
type AdminHandler struct {
	Reporter AdminReporter
}

// Stats handles GET /api/v1/admin/stats.
func (h AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.Reporter.AdminStats(ctx, principal(r))
	if err != nil {
		respondServiceError(ctx, w, "admin stats", err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, stats)
}
