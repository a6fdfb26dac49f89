package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/clipvault/backend/internal/models"
)

// MemoryStore keeps profiles, videos and shares in process memory with the
// same integrity rules as the SQL schema: unique share codes, foreign keys,
// and cascading deletes. It backs tests and local development.
type MemoryStore struct {
	mu         sync.Mutex
	identities map[string]models.Identity
	profiles   map[string]models.Profile
	videos     map[string]models.Video
	shares     map[string]models.Share
	codes      map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		identities: make(map[string]models.Identity),
		profiles:   make(map[string]models.Profile),
		videos:     make(map[string]models.Video),
		shares:     make(map[string]models.Share),
		codes:      make(map[string]string),
	}
}

// Identities returns the identity view of the store.
func (m *MemoryStore) Identities() *MemoryIdentities { return &MemoryIdentities{m} }

// Profiles returns the profile view of the store.
func (m *MemoryStore) Profiles() *MemoryProfiles { return &MemoryProfiles{m} }

// Videos returns the video view of the store.
func (m *MemoryStore) Videos() *MemoryVideos { return &MemoryVideos{m} }

// Shares returns the share view of the store.
func (m *MemoryStore) Shares() *MemoryShares { return &MemoryShares{m} }

// ShareCount returns the number of stored shares.
func (m *MemoryStore) ShareCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.shares)
}

// ShareByCode returns the share holding code, if any.
func (m *MemoryStore) ShareByCode(code string) (models.Share, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.codes[code]
	if !ok {
		return models.Share{}, false
	}
	return m.shares[id], true
}

// MemoryIdentities implements identity persistence over a MemoryStore.
type MemoryIdentities struct{ m *MemoryStore }

// Create stores an identity; emails are unique.
func (i *MemoryIdentities) Create(_ context.Context, identity models.Identity) error {
	i.m.mu.Lock()
	defer i.m.mu.Unlock()
	if _, ok := i.m.identities[identity.Email]; ok {
		return ErrConflict
	}
	i.m.identities[identity.Email] = identity
	return nil
}

// FindByEmail loads an identity by email.
func (i *MemoryIdentities) FindByEmail(_ context.Context, email string) (models.Identity, error) {
	i.m.mu.Lock()
	defer i.m.mu.Unlock()
	identity, ok := i.m.identities[email]
	if !ok {
		return models.Identity{}, ErrNotFound
	}
	return identity, nil
}

// MemoryProfiles implements profile persistence over a MemoryStore.
type MemoryProfiles struct{ m *MemoryStore }

// Create inserts the profile unless one already exists for its id.
func (p *MemoryProfiles) Create(_ context.Context, profile models.Profile) (bool, error) {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	if _, ok := p.m.profiles[profile.ID]; ok {
		return false, nil
	}
	p.m.profiles[profile.ID] = profile
	return true, nil
}

// IsAdmin reads the admin flag for userID.
func (p *MemoryProfiles) IsAdmin(_ context.Context, userID string) (bool, error) {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	profile, ok := p.m.profiles[userID]
	if !ok {
		return false, ErrNotFound
	}
	return profile.IsAdmin, nil
}

// Stats computes the admin rollup under the store lock.
func (p *MemoryProfiles) Stats(_ context.Context) (models.AdminStats, error) {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()

	stats := models.AdminStats{
		TotalUsers:  int64(len(p.m.profiles)),
		TotalVideos: int64(len(p.m.videos)),
		TotalShares: int64(len(p.m.shares)),
		Users:       []models.AdminUserStats{},
	}

	perUser := make(map[string]*models.AdminUserStats, len(p.m.profiles))
	for _, profile := range p.m.profiles {
		stats.Users = append(stats.Users, models.AdminUserStats{
			ID:          profile.ID,
			Email:       profile.Email,
			DisplayName: profile.DisplayName,
			IsAdmin:     profile.IsAdmin,
			CreatedAt:   profile.CreatedAt,
		})
	}
	sort.Slice(stats.Users, func(i, j int) bool {
		return stats.Users[i].CreatedAt.After(stats.Users[j].CreatedAt)
	})
	for i := range stats.Users {
		perUser[stats.Users[i].ID] = &stats.Users[i]
	}

	for _, video := range p.m.videos {
		if u, ok := perUser[video.UserID]; ok {
			u.VideoCount++
		}
	}
	for _, share := range p.m.shares {
		stats.TotalViews += share.ViewCount
		if video, ok := p.m.videos[share.VideoID]; ok {
			if u, ok := perUser[video.UserID]; ok {
				u.TotalViews += share.ViewCount
			}
		}
	}

	return stats, nil
}

// MemoryVideos implements video persistence over a MemoryStore.
type MemoryVideos struct{ m *MemoryStore }

// Create stores a video, enforcing the owner foreign key and unique id/path.
func (v *MemoryVideos) Create(_ context.Context, video models.Video) error {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	if video.Title == "" {
		return ErrConstraint
	}
	if _, ok := v.m.profiles[video.UserID]; !ok {
		return ErrNotFound
	}
	if _, ok := v.m.videos[video.ID]; ok {
		return ErrConflict
	}
	for _, existing := range v.m.videos {
		if existing.StoragePath == video.StoragePath {
			return ErrConflict
		}
	}
	v.m.videos[video.ID] = video
	return nil
}

// Get loads a video by id.
func (v *MemoryVideos) Get(_ context.Context, videoID string) (models.Video, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	video, ok := v.m.videos[videoID]
	if !ok {
		return models.Video{}, ErrNotFound
	}
	return video, nil
}

// OwnedBy reports whether videoID exists and belongs to userID.
func (v *MemoryVideos) OwnedBy(_ context.Context, videoID, userID string) (bool, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	video, ok := v.m.videos[videoID]
	return ok && video.UserID == userID, nil
}

// ListByOwner returns the owner's videos created at or after since, newest first.
func (v *MemoryVideos) ListByOwner(_ context.Context, userID string, since time.Time) ([]models.VideoWithShares, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()

	result := []models.VideoWithShares{}
	for _, video := range v.m.videos {
		if video.UserID != userID || video.CreatedAt.Before(since) {
			continue
		}
		entry := models.VideoWithShares{Video: video, Shares: []models.Share{}}
		for _, share := range v.m.shares {
			if share.VideoID == video.ID {
				entry.Shares = append(entry.Shares, share)
			}
		}
		sort.Slice(entry.Shares, func(i, j int) bool {
			return entry.Shares[i].CreatedAt.Before(entry.Shares[j].CreatedAt)
		})
		result = append(result, entry)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// ListCreatedBefore returns videos created strictly before cutoff, oldest first.
func (v *MemoryVideos) ListCreatedBefore(_ context.Context, cutoff time.Time) ([]models.Video, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()

	var expired []models.Video
	for _, video := range v.m.videos {
		if video.CreatedAt.Before(cutoff) {
			expired = append(expired, video)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].CreatedAt.Before(expired[j].CreatedAt)
	})
	return expired, nil
}

// Delete removes the video and cascades to its shares.
func (v *MemoryVideos) Delete(_ context.Context, videoID string) error {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	if _, ok := v.m.videos[videoID]; !ok {
		return ErrNotFound
	}
	delete(v.m.videos, videoID)
	for id, share := range v.m.shares {
		if share.VideoID == videoID {
			delete(v.m.codes, share.ShareCode)
			delete(v.m.shares, id)
		}
	}
	return nil
}

// MemoryShares implements share persistence over a MemoryStore.
type MemoryShares struct{ m *MemoryStore }

// Insert stores a share; a duplicate code yields ErrConflict.
func (s *MemoryShares) Insert(_ context.Context, share models.Share) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.codes[share.ShareCode]; ok {
		return ErrConflict
	}
	if _, ok := s.m.shares[share.ID]; ok {
		return ErrConstraint
	}
	if _, ok := s.m.videos[share.VideoID]; !ok {
		return ErrNotFound
	}
	s.m.shares[share.ID] = share
	s.m.codes[share.ShareCode] = share.ID
	return nil
}

// OwnedBy reports whether the parent video of shareID belongs to userID.
func (s *MemoryShares) OwnedBy(_ context.Context, shareID, userID string) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	share, ok := s.m.shares[shareID]
	if !ok {
		return false, nil
	}
	video, ok := s.m.videos[share.VideoID]
	return ok && video.UserID == userID, nil
}

// SetActive updates the active flag of a share.
func (s *MemoryShares) SetActive(_ context.Context, shareID string, active bool) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	share, ok := s.m.shares[shareID]
	if !ok {
		return ErrNotFound
	}
	share.IsActive = active
	share.UpdatedAt = time.Now().UTC()
	s.m.shares[shareID] = share
	return nil
}

// IncrementViewCount adds one view to the active share holding code.
func (s *MemoryShares) IncrementViewCount(_ context.Context, code string) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	id, ok := s.m.codes[code]
	if !ok {
		return false, nil
	}
	share := s.m.shares[id]
	if !share.IsActive {
		return false, nil
	}
	share.ViewCount++
	s.m.shares[id] = share
	return true, nil
}

// PublicVideo resolves an active code to the public projection of its video.
func (s *MemoryShares) PublicVideo(_ context.Context, code string) (models.PublicVideo, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	id, ok := s.m.codes[code]
	if !ok {
		return models.PublicVideo{}, ErrNotFound
	}
	share := s.m.shares[id]
	if !share.IsActive {
		return models.PublicVideo{}, ErrNotFound
	}
	video, ok := s.m.videos[share.VideoID]
	if !ok {
		return models.PublicVideo{}, ErrNotFound
	}
	return models.PublicVideo{
		Title:         video.Title,
		Description:   video.Description,
		StoragePath:   video.StoragePath,
		ThumbnailPath: video.ThumbnailPath,
		ViewCount:     share.ViewCount,
	}, nil
}
