package videos

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/clipvault/backend/internal/logging"
	"github.com/clipvault/backend/internal/metrics"
	"github.com/clipvault/backend/internal/models"
	"github.com/clipvault/backend/internal/repositories"
)

// SweepResult summarises one retention run.
type SweepResult struct {
	Candidates   int
	Deleted      int
	AlreadyGone  int
	BlobFailures int
	RowFailures  int
}

// Failed reports whether any video was left for the next run.
func (r SweepResult) Failed() int { return r.BlobFailures + r.RowFailures }

// Sweep deletes every video older than the retention window. For each video
// the blobs go first and the row last; when a blob delete fails the row is
// kept so the next run retries it. One failing video never stops the run.
func (s *Service) Sweep(ctx context.Context) (SweepResult, error) {
	ctx, span := logging.StartSpan(ctx, "videos.sweep")
	started := time.Now()
	defer func() { metrics.ObserveSweep(time.Since(started).Seconds()) }()

	cutoff := s.now().UTC().Add(-s.retention)
	logger := logging.FromContext(ctx)

	expired, err := s.videos.ListCreatedBefore(ctx, cutoff)
	if err != nil {
		err = upstream(fmt.Errorf("list expired videos: %w", err))
		span.EndErr(err)
		return SweepResult{}, err
	}

	result := SweepResult{Candidates: len(expired)}
	for _, video := range expired {
		if err := ctx.Err(); err != nil {
			span.EndErr(err)
			return result, err
		}
		switch outcome := s.sweepOne(ctx, video); outcome {
		case metrics.SweepDeleted:
			result.Deleted++
		case metrics.SweepAlreadyGone:
			result.AlreadyGone++
		case metrics.SweepBlobFailed:
			result.BlobFailures++
		case metrics.SweepRowFailed:
			result.RowFailures++
		}
	}

	logger.Info("retention sweep finished",
		slog.Time("cutoff", cutoff),
		slog.Int("candidates", result.Candidates),
		slog.Int("deleted", result.Deleted),
		slog.Int("already_gone", result.AlreadyGone),
		slog.Int("failed", result.Failed()),
	)
	span.End()
	return result, nil
}

func (s *Service) sweepOne(ctx context.Context, video models.Video) string {
	logger := logging.FromContext(ctx).With(
		slog.String("video_id", video.ID),
		slog.String("storage_path", video.StoragePath),
	)

	if err := s.deleteBlobs(ctx, video); err != nil {
		logger.Error("sweep blob delete failed", slog.Any("error", err))
		metrics.SweepVideo(metrics.SweepBlobFailed)
		return metrics.SweepBlobFailed
	}

	if err := s.videos.Delete(ctx, video.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			metrics.SweepVideo(metrics.SweepAlreadyGone)
			return metrics.SweepAlreadyGone
		}
		logger.Error("sweep row delete failed", slog.Any("error", err))
		metrics.SweepVideo(metrics.SweepRowFailed)
		return metrics.SweepRowFailed
	}

	logger.Debug("expired video removed")
	metrics.SweepVideo(metrics.SweepDeleted)
	return metrics.SweepDeleted
}

// deleteBlobs removes the original and, when present, the thumbnail.
func (s *Service) deleteBlobs(ctx context.Context, video models.Video) error {
	if err := s.blobs.Delete(ctx, video.StoragePath); err != nil {
		return fmt.Errorf("delete %s: %w", video.StoragePath, err)
	}
	if video.ThumbnailPath != nil && *video.ThumbnailPath != "" {
		if err := s.blobs.Delete(ctx, *video.ThumbnailPath); err != nil {
			return fmt.Errorf("delete %s: %w", *video.ThumbnailPath, err)
		}
	}
	return nil
}
