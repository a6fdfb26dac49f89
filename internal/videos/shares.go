package videos

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/clipvault/backend/internal/auth"
	"github.com/clipvault/backend/internal/logging"
	"github.com/clipvault/backend/internal/metrics"
	"github.com/clipvault/backend/internal/models"
	"github.com/clipvault/backend/internal/repositories"
)

// CreateShare issues a new active share for a video the principal owns and
// returns its code. Collisions on the code are retried maxCodeRetries times.
func (s *Service) CreateShare(ctx context.Context, principal auth.Principal, videoID string) (models.Share, error) {
	if err := s.requireVideoOwner(ctx, principal, videoID); err != nil {
		return models.Share{}, err
	}

	logger := logging.FromContext(ctx).With(slog.String("video_id", videoID))

	for attempt := 0; attempt <= maxCodeRetries; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return models.Share{}, fmt.Errorf("generate share code: %w", err)
		}

		now := s.now().UTC()
		share := models.Share{
			ID:        uuid.NewString(),
			VideoID:   videoID,
			ShareCode: code,
			IsActive:  true,
			ViewCount: 0,
			CreatedAt: now,
			UpdatedAt: now,
		}

		err = s.shares.Insert(ctx, share)
		switch {
		case err == nil:
			metrics.ShareCreated()
			logger.Info("share created", slog.String("share_id", share.ID))
			return share, nil
		case errors.Is(err, repositories.ErrConflict):
			metrics.ShareCodeCollision()
			logger.Warn("share code collision", slog.Int("attempt", attempt+1))
			continue
		case errors.Is(err, repositories.ErrNotFound):
			// The video vanished between the ownership check and the insert.
			return models.Share{}, ErrUnauthorized
		default:
			return models.Share{}, upstream(err)
		}
	}

	metrics.ShareCodeExhausted()
	logger.Error("share code retries exhausted", slog.Int("attempts", maxCodeRetries+1))
	return models.Share{}, ErrExhaustedRetries
}

// ToggleShare sets the active flag of a share whose parent video the
// principal owns. Setting the current value again succeeds.
func (s *Service) ToggleShare(ctx context.Context, principal auth.Principal, shareID string, active bool) error {
	if principal.Anonymous() || !validID(shareID) {
		return ErrUnauthorized
	}

	owned, err := s.shares.OwnedBy(ctx, shareID, principal.UserID)
	if err != nil {
		return upstream(err)
	}
	if !owned {
		return ErrUnauthorized
	}

	if err := s.shares.SetActive(ctx, shareID, active); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUnauthorized
		}
		return upstream(err)
	}

	logging.FromContext(ctx).Info("share toggled",
		slog.String("share_id", shareID),
		slog.Bool("active", active),
	)
	return nil
}
