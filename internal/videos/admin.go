package videos

import (
	"context"
	"errors"

	"github.com/clipvault/backend/internal/auth"
	"github.com/clipvault/backend/internal/models"
	"github.com/clipvault/backend/internal/repositories"
)

// AdminStats returns the platform rollup. The admin flag is read from the
// profile store on every call; token contents are never trusted for it.
func (s *Service) AdminStats(ctx context.Context, principal auth.Principal) (models.AdminStats, error) {
	if principal.Anonymous() {
		return models.AdminStats{}, ErrUnauthorized
	}

	isAdmin, err := s.profiles.IsAdmin(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.AdminStats{}, ErrUnauthorized
		}
		return models.AdminStats{}, upstream(err)
	}
	if !isAdmin {
		return models.AdminStats{}, ErrUnauthorized
	}

	stats, err := s.profiles.Stats(ctx)
	if err != nil {
		return models.AdminStats{}, upstream(err)
	}
	if stats.Users == nil {
		stats.Users = []models.AdminUserStats{}
	}
	return stats, nil
}
