package handlers

import (
	"context"

	"github.com/clipvault/backend/internal/auth"
	"github.com/clipvault/backend/internal/models"
	"github.com/clipvault/backend/internal/videos"
)

// IdentityStore captures the identity provider operations used by signup and login.
type IdentityStore interface {
	Create(ctx context.Context, identity models.Identity) error
	FindByEmail(ctx context.Context, email string) (models.Identity, error)
}

// ProfileMaterializer reacts to newly created identities.
type ProfileMaterializer interface {
	HandleIdentityCreated(ctx context.Context, identityID, email, displayName string) (bool, error)
}

// SessionManager issues and refreshes authentication tokens for users.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Revoke(ctx context.Context, refreshToken string)
}

// Library covers the owner-facing video operations.
type Library interface {
	ListVideos(ctx context.Context, principal auth.Principal, sinceDays int) ([]models.VideoWithShares, error)
	Upload(ctx context.Context, principal auth.Principal, in videos.Upload) (videos.UploadResult, error)
	DeleteVideo(ctx context.Context, principal auth.Principal, videoID string) error
}

// Sharing covers share issuance and toggling.
type Sharing interface {
	CreateShare(ctx context.Context, principal auth.Principal, videoID string) (models.Share, error)
	ToggleShare(ctx context.Context, principal auth.Principal, shareID string, active bool) error
}

// PublicPlayer is the anonymous read path.
type PublicPlayer interface {
	PublicVideo(ctx context.Context, code string) (models.PublicVideo, error)
	RecordView(ctx context.Context, code string)
}

// AdminReporter produces the admin rollup.
type AdminReporter interface {
	AdminStats(ctx context.Context, principal auth.Principal) (models.AdminStats, error)
}

// Linker resolves object keys into playback URLs.
type Linker interface {
	URL(ctx context.Context, key string) (string, error)
}

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
