package videos

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clipvault/backend/internal/auth"
	"github.com/clipvault/backend/internal/logging"
	"github.com/clipvault/backend/internal/models"
	"github.com/clipvault/backend/internal/repositories"
)

var allowedMimeTypes = map[string]bool{
	"video/mp4":       true,
	"video/quicktime": true,
}

// Upload describes a clip to store for the calling principal.
type Upload struct {
	// VideoID may be chosen by the client; a fresh id is used when empty.
	VideoID         string
	Title           string
	Description     *string
	MimeType        string
	Size            int64
	DurationSeconds *int
	Body            io.Reader

	Thumbnail     io.Reader
	ThumbnailSize int64
}

// UploadResult is the stored video plus the share created for it. ShareCode
// is empty when the automatic share could not be issued.
type UploadResult struct {
	Video     models.Video
	ShareCode string
}

// ObjectKey is the blob key of a video's original file. The owner id prefix
// lets storage policies derive ownership from the key alone.
func ObjectKey(ownerID, videoID string) string {
	return fmt.Sprintf("%s/%s/original.mp4", ownerID, videoID)
}

// ThumbnailKey is the blob key of a video's poster image.
func ThumbnailKey(ownerID, videoID string) string {
	return fmt.Sprintf("%s/%s/thumbnail.jpg", ownerID, videoID)
}

func (s *Service) validateUpload(in Upload) error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalidUpload)
	case !allowedMimeTypes[strings.ToLower(in.MimeType)]:
		return fmt.Errorf("%w: unsupported type %q", ErrInvalidUpload, in.MimeType)
	case in.Size <= 0:
		return fmt.Errorf("%w: file is empty", ErrInvalidUpload)
	case in.Size > s.maxUploadBytes:
		return fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidUpload, s.maxUploadBytes)
	case in.Body == nil:
		return fmt.Errorf("%w: missing body", ErrInvalidUpload)
	case in.VideoID != "" && !validID(in.VideoID):
		return fmt.Errorf("%w: malformed video id", ErrInvalidUpload)
	case in.DurationSeconds != nil && *in.DurationSeconds < 0:
		return fmt.Errorf("%w: negative duration", ErrInvalidUpload)
	}
	return nil
}

// Upload writes the blob, then the row, and deletes the blob again if the
// row cannot be written. A share is issued for the new video on success.
func (s *Service) Upload(ctx context.Context, principal auth.Principal, in Upload) (UploadResult, error) {
	if principal.Anonymous() {
		return UploadResult{}, ErrUnauthorized
	}
	if err := s.validateUpload(in); err != nil {
		return UploadResult{}, err
	}

	videoID := in.VideoID
	if videoID == "" {
		videoID = uuid.NewString()
	}
	logger := logging.FromContext(ctx).With(slog.String("video_id", videoID))

	now := s.now().UTC()
	video := models.Video{
		ID:              videoID,
		UserID:          principal.UserID,
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		StoragePath:     ObjectKey(principal.UserID, videoID),
		FileSize:        in.Size,
		MimeType:        strings.ToLower(in.MimeType),
		DurationSeconds: in.DurationSeconds,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.blobs.Put(ctx, video.StoragePath, in.Body, in.Size, video.MimeType); err != nil {
		return UploadResult{}, upstream(fmt.Errorf("store video: %w", err))
	}

	if in.Thumbnail != nil && in.ThumbnailSize > 0 {
		key := ThumbnailKey(principal.UserID, videoID)
		if err := s.blobs.Put(ctx, key, in.Thumbnail, in.ThumbnailSize, "image/jpeg"); err != nil {
			logger.Warn("thumbnail upload failed", slog.Any("error", err))
		} else {
			video.ThumbnailPath = &key
		}
	}

	if err := s.videos.Create(ctx, video); err != nil {
		s.compensate(ctx, video)
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return UploadResult{}, ErrUnauthorized
		case errors.Is(err, repositories.ErrConflict):
			return UploadResult{}, fmt.Errorf("%w: video id already in use", ErrInvalidUpload)
		}
		return UploadResult{}, upstream(fmt.Errorf("record video: %w", err))
	}

	logger.Info("video uploaded", slog.Int64("file_size", video.FileSize))

	result := UploadResult{Video: video}
	share, err := s.CreateShare(ctx, principal, videoID)
	if err != nil {
		logger.Error("automatic share failed", slog.Any("error", err))
		return result, nil
	}
	result.ShareCode = share.ShareCode
	return result, nil
}

// compensate removes blobs written by a failed upload.
func (s *Service) compensate(ctx context.Context, video models.Video) {
	if err := s.deleteBlobs(ctx, video); err != nil {
		logging.FromContext(ctx).Error("upload compensation failed",
			slog.String("storage_path", video.StoragePath),
			slog.Any("error", err),
		)
	}
}

// DeleteVideo removes an owned video. The blob goes first; if it cannot be
// removed the row stays and the caller sees ErrUpstreamUnavailable.
func (s *Service) DeleteVideo(ctx context.Context, principal auth.Principal, videoID string) error {
	if err := s.requireVideoOwner(ctx, principal, videoID); err != nil {
		return err
	}

	video, err := s.videos.Get(ctx, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil
		}
		return upstream(err)
	}

	if err := s.deleteBlobs(ctx, video); err != nil {
		return upstream(err)
	}

	if err := s.videos.Delete(ctx, videoID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return upstream(err)
	}

	logging.FromContext(ctx).Info("video deleted", slog.String("video_id", videoID))
	return nil
}

// ListVideos returns the principal's videos with their shares, newest first.
// A positive sinceDays limits the list to videos created in that many days.
func (s *Service) ListVideos(ctx context.Context, principal auth.Principal, sinceDays int) ([]models.VideoWithShares, error) {
	if principal.Anonymous() {
		return nil, ErrUnauthorized
	}

	var since time.Time
	if sinceDays > 0 {
		since = s.now().UTC().AddDate(0, 0, -sinceDays)
	}

	list, err := s.videos.ListByOwner(ctx, principal.UserID, since)
	if err != nil {
		return nil, upstream(err)
	}
	if list == nil {
		list = []models.VideoWithShares{}
	}
	return list, nil
}
