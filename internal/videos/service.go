package videos

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/clipvault/backend/internal/auth"
	"github.com/clipvault/backend/internal/models"
	"github.com/clipvault/backend/internal/repositories"
)

// VideoStore persists video metadata.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	Get(ctx context.Context, videoID string) (models.Video, error)
	OwnedBy(ctx context.Context, videoID, userID string) (bool, error)
	ListByOwner(ctx context.Context, userID string, since time.Time) ([]models.VideoWithShares, error)
	ListCreatedBefore(ctx context.Context, cutoff time.Time) ([]models.Video, error)
	Delete(ctx context.Context, videoID string) error
}

// ShareStore persists share links. IncrementViewCount must be a single
// atomic add that only touches active shares.
type ShareStore interface {
	Insert(ctx context.Context, share models.Share) error
	OwnedBy(ctx context.Context, shareID, userID string) (bool, error)
	SetActive(ctx context.Context, shareID string, active bool) error
	IncrementViewCount(ctx context.Context, code string) (bool, error)
	PublicVideo(ctx context.Context, code string) (models.PublicVideo, error)
}

// ProfileStore persists profiles and answers the admin rollup.
type ProfileStore interface {
	Create(ctx context.Context, profile models.Profile) (bool, error)
	IsAdmin(ctx context.Context, userID string) (bool, error)
	Stats(ctx context.Context) (models.AdminStats, error)
}

// BlobStore stores video bytes by object key. Delete of a missing key succeeds.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
}

const (
	// DefaultRetention is how long a video lives before the sweeper removes it.
	DefaultRetention = 30 * 24 * time.Hour
	// DefaultMaxUploadBytes caps a single clip at 50 MiB.
	DefaultMaxUploadBytes int64 = 50 * 1024 * 1024

	maxCodeRetries = 5
)

// Options tunes a Service. Zero values fall back to the package defaults.
type Options struct {
	Retention      time.Duration
	MaxUploadBytes int64
	// IsAdminEmail decides the admin flag for newly materialised profiles.
	IsAdminEmail func(email string) bool
	// NewCode overrides RandomCode, mainly for tests.
	NewCode CodeGenerator
	// Now overrides time.Now.
	Now func() time.Time
}

// Service implements share issuance, the public player path, retention and
// the admin rollup on top of the relational and blob stores.
type Service struct {
	videos   VideoStore
	shares   ShareStore
	profiles ProfileStore
	blobs    BlobStore

	retention      time.Duration
	maxUploadBytes int64
	isAdminEmail   func(string) bool
	newCode        CodeGenerator
	now            func() time.Time
}

// NewService wires a Service from its stores.
func NewService(videos VideoStore, shares ShareStore, profiles ProfileStore, blobs BlobStore, opts Options) *Service {
	s := &Service{
		videos:         videos,
		shares:         shares,
		profiles:       profiles,
		blobs:          blobs,
		retention:      opts.Retention,
		maxUploadBytes: opts.MaxUploadBytes,
		isAdminEmail:   opts.IsAdminEmail,
		newCode:        opts.NewCode,
		now:            opts.Now,
	}
	if s.retention <= 0 {
		s.retention = DefaultRetention
	}
	if s.maxUploadBytes <= 0 {
		s.maxUploadBytes = DefaultMaxUploadBytes
	}
	if s.isAdminEmail == nil {
		s.isAdminEmail = func(string) bool { return false }
	}
	if s.newCode == nil {
		s.newCode = RandomCode
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// OwnsVideo reports whether principal owns videoID. Malformed ids and
// anonymous principals simply do not own anything.
func (s *Service) OwnsVideo(ctx context.Context, principal auth.Principal, videoID string) (bool, error) {
	if principal.Anonymous() || !validID(videoID) {
		return false, nil
	}
	owned, err := s.videos.OwnedBy(ctx, videoID, principal.UserID)
	if err != nil {
		return false, upstream(err)
	}
	return owned, nil
}

// requireVideoOwner turns a failed ownership check into ErrUnauthorized.
func (s *Service) requireVideoOwner(ctx context.Context, principal auth.Principal, videoID string) error {
	owned, err := s.OwnsVideo(ctx, principal, videoID)
	if err != nil {
		return err
	}
	if !owned {
		return ErrUnauthorized
	}
	return nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// upstream marks err as a store failure unless it already carries a core error.
func upstream(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{ErrUnauthorized, ErrNotFound, ErrExhaustedRetries, ErrConstraintViolation, ErrUpstreamUnavailable, ErrInvalidUpload} {
		if errors.Is(err, known) {
			return err
		}
	}
	if errors.Is(err, repositories.ErrConstraint) {
		return fmt.Errorf("%w: %w", ErrConstraintViolation, err)
	}
	return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
}
