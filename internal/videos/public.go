package videos

import (
	"context"
	"errors"
	"log/slog"

	"github.com/clipvault/backend/internal/logging"
	"github.com/clipvault/backend/internal/metrics"
	"github.com/clipvault/backend/internal/models"
	"github.com/clipvault/backend/internal/repositories"
)

// RecordView adds one view to the active share holding code. Unknown codes,
// inactive shares and store failures are all silent so anonymous callers
// learn nothing from the result.
func (s *Service) RecordView(ctx context.Context, code string) {
	if !ValidCode(code) {
		metrics.ViewRecorded(false)
		return
	}

	counted, err := s.shares.IncrementViewCount(ctx, code)
	if err != nil {
		logging.FromContext(ctx).Error("record view", slog.Any("error", err))
		metrics.ViewRecorded(false)
		return
	}
	metrics.ViewRecorded(counted)
}

// PublicVideo resolves code to the public projection of its video. Every
// failure, including store errors, is reported as ErrNotFound.
func (s *Service) PublicVideo(ctx context.Context, code string) (models.PublicVideo, error) {
	if !ValidCode(code) {
		return models.PublicVideo{}, ErrNotFound
	}

	video, err := s.shares.PublicVideo(ctx, code)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			logging.FromContext(ctx).Error("resolve public video", slog.Any("error", err))
		}
		return models.PublicVideo{}, ErrNotFound
	}
	return video, nil
}
