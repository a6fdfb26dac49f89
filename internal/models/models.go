package models

import "time"

// Identity is an account held by the identity provider. Its id becomes the
// principal id carried by access tokens and the id of the matching Profile.
type Identity struct {
	ID        string
	Email     string
	Password  string
	CreatedAt time.Time
}

// Profile is the application-side record for an authenticated principal.
type Profile struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	IsAdmin     bool      `json:"is_admin"`
	CreatedAt   time.Time `json:"created_at"`
}

// Video is an uploaded clip owned by exactly one profile.
type Video struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Title           string    `json:"title"`
	Description     *string   `json:"description"`
	StoragePath     string    `json:"storage_path"`
	ThumbnailPath   *string   `json:"thumbnail_path"`
	FileSize        int64     `json:"file_size"`
	MimeType        string    `json:"mime_type"`
	DurationSeconds *int      `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Share is a revocable bearer link to a single video.
type Share struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"video_id"`
	ShareCode string    `json:"share_code"`
	IsActive  bool      `json:"is_active"`
	ViewCount int64     `json:"view_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// VideoWithShares groups an owner's video with every share issued for it.
type VideoWithShares struct {
	Video
	Shares []Share `json:"shares"`
}

// PublicVideo is the only projection of a video reachable without
// authentication. Fields must stay limited to what anonymous viewers may see.
type PublicVideo struct {
	Title         string  `json:"title"`
	Description   *string `json:"description"`
	StoragePath   string  `json:"storage_path"`
	ThumbnailPath *string `json:"thumbnail_path"`
	ViewCount     int64   `json:"view_count"`
}

// AdminUserStats is the per-profile rollup returned to administrators.
type AdminUserStats struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	IsAdmin     bool      `json:"is_admin"`
	CreatedAt   time.Time `json:"created_at"`
	VideoCount  int64     `json:"video_count"`
	TotalViews  int64     `json:"total_views"`
}

// AdminStats is a point-in-time rollup over profiles, videos and shares.
type AdminStats struct {
	TotalUsers  int64            `json:"total_users"`
	TotalVideos int64            `json:"total_videos"`
	TotalShares int64            `json:"total_shares"`
	TotalViews  int64            `json:"total_views"`
	Users       []AdminUserStats `json:"users"`
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
