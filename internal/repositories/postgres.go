package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/clipvault/backend/internal/db"
	"github.com/clipvault/backend/internal/models"
)

// PostgresIdentityRepository persists identities for the built-in identity provider.
type PostgresIdentityRepository struct {
	pool db.Pool
}

// NewPostgresIdentityRepository constructs an identity repository backed by PostgreSQL.
func NewPostgresIdentityRepository(pool db.Pool) *PostgresIdentityRepository {
	return &PostgresIdentityRepository{pool: pool}
}

// Create persists a new identity record.
func (r *PostgresIdentityRepository) Create(ctx context.Context, identity models.Identity) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO identities (id, email, password_hash, created_at)
        VALUES ($1, $2, $3, $4)
    `, identity.ID, identity.Email, identity.Password, identity.CreatedAt)
	if err != nil {
		if mapped := classify(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert identity: %w", err)
	}

	return nil
}

// FindByEmail fetches an identity by its email address.
func (r *PostgresIdentityRepository) FindByEmail(ctx context.Context, email string) (models.Identity, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Identity{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, email, password_hash, created_at
        FROM identities
        WHERE email = $1
    `, email)

	var identity models.Identity
	if err := row.Scan(&identity.ID, &identity.Email, &identity.Password, &identity.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Identity{}, ErrNotFound
		}
		return models.Identity{}, fmt.Errorf("select identity by email: %w", err)
	}

	identity.CreatedAt = identity.CreatedAt.UTC()
	return identity, nil
}

// PostgresProfileRepository provides PostgreSQL-backed persistence for profiles.
type PostgresProfileRepository struct {
	pool db.Pool
}

// NewPostgresProfileRepository constructs a profile repository backed by PostgreSQL.
func NewPostgresProfileRepository(pool db.Pool) *PostgresProfileRepository {
	return &PostgresProfileRepository{pool: pool}
}

// Create inserts the profile unless one already exists for the same id and
// reports whether a row was written.
func (r *PostgresProfileRepository) Create(ctx context.Context, profile models.Profile) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        INSERT INTO profiles (id, email, display_name, is_admin, created_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (id) DO NOTHING
    `, profile.ID, profile.Email, profile.DisplayName, profile.IsAdmin, profile.CreatedAt)
	if err != nil {
		if mapped := classify(err); mapped != nil {
			return false, mapped
		}
		return false, fmt.Errorf("insert profile: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// IsAdmin reads the admin flag for the given profile.
func (r *PostgresProfileRepository) IsAdmin(ctx context.Context, userID string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var isAdmin bool
	if err := conn.QueryRow(ctx, `SELECT is_admin FROM profiles WHERE id = $1`, userID).Scan(&isAdmin); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("select profile admin flag: %w", err)
	}

	return isAdmin, nil
}

// Stats computes the admin rollup inside a single read-only transaction so
// the totals and per-user rows describe the same snapshot.
func (r *PostgresProfileRepository) Stats(ctx context.Context) (models.AdminStats, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.AdminStats{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return models.AdminStats{}, fmt.Errorf("begin stats transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var stats models.AdminStats
	if err := tx.QueryRow(ctx, `
        SELECT
            (SELECT COUNT(*) FROM profiles),
            (SELECT COUNT(*) FROM videos),
            (SELECT COUNT(*) FROM shares),
            (SELECT COALESCE(SUM(view_count), 0)::BIGINT FROM shares)
    `).Scan(&stats.TotalUsers, &stats.TotalVideos, &stats.TotalShares, &stats.TotalViews); err != nil {
		return models.AdminStats{}, fmt.Errorf("select totals: %w", err)
	}

	rows, err := tx.Query(ctx, `
        SELECT
            p.id,
            p.email,
            p.display_name,
            p.is_admin,
            p.created_at,
            (SELECT COUNT(*) FROM videos v WHERE v.user_id = p.id),
            (SELECT COALESCE(SUM(s.view_count), 0)::BIGINT
               FROM shares s
               JOIN videos v ON v.id = s.video_id
              WHERE v.user_id = p.id)
        FROM profiles p
        ORDER BY p.created_at DESC
    `)
	if err != nil {
		return models.AdminStats{}, fmt.Errorf("query user stats: %w", err)
	}
	defer rows.Close()

	stats.Users = []models.AdminUserStats{}
	for rows.Next() {
		var u models.AdminUserStats
		if err := rows.Scan(&u.ID, &u.Email, &u.DisplayName, &u.IsAdmin, &u.CreatedAt, &u.VideoCount, &u.TotalViews); err != nil {
			return models.AdminStats{}, fmt.Errorf("scan user stats: %w", err)
		}
		u.CreatedAt = u.CreatedAt.UTC()
		stats.Users = append(stats.Users, u)
	}
	if err := rows.Err(); err != nil {
		return models.AdminStats{}, fmt.Errorf("iterate user stats: %w", err)
	}

	return stats, nil
}

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

const videoColumns = `id, user_id, title, description, storage_path, thumbnail_path, file_size, mime_type, duration_seconds, created_at, updated_at`

// Create stores a new video record.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (`+videoColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `, video.ID, video.UserID, video.Title, video.Description, video.StoragePath, video.ThumbnailPath,
		video.FileSize, video.MimeType, video.DurationSeconds, video.CreatedAt, video.UpdatedAt)
	if err != nil {
		if mapped := classify(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert video: %w", err)
	}

	return nil
}

// Get loads a single video by id.
func (r *PostgresVideoRepository) Get(ctx context.Context, videoID string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	video, err := scanVideo(conn.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = $1`, videoID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("select video: %w", err)
	}

	return video, nil
}

// OwnedBy reports whether a video with the id exists and belongs to userID.
func (r *PostgresVideoRepository) OwnedBy(ctx context.Context, videoID, userID string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var owned bool
	if err := conn.QueryRow(ctx, `
        SELECT EXISTS (SELECT 1 FROM videos WHERE id = $1 AND user_id = $2)
    `, videoID, userID).Scan(&owned); err != nil {
		return false, fmt.Errorf("check video ownership: %w", err)
	}

	return owned, nil
}

// ListByOwner returns the owner's videos, newest first, each with its shares.
// A zero since returns every video.
func (r *PostgresVideoRepository) ListByOwner(ctx context.Context, userID string, since time.Time) ([]models.VideoWithShares, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+videoColumns+`
        FROM videos
        WHERE user_id = $1 AND created_at >= $2
        ORDER BY created_at DESC
    `, userID, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query owner videos: %w", err)
	}

	var (
		result []models.VideoWithShares
		index  = make(map[string]int)
		ids    []string
	)
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan video: %w", err)
		}
		index[video.ID] = len(result)
		ids = append(ids, video.ID)
		result = append(result, models.VideoWithShares{Video: video, Shares: []models.Share{}})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate owner videos: %w", err)
	}

	if len(ids) == 0 {
		return []models.VideoWithShares{}, nil
	}

	shareRows, err := conn.Query(ctx, `
        SELECT `+shareColumns+`
        FROM shares
        WHERE video_id = ANY($1::UUID[])
        ORDER BY created_at ASC
    `, ids)
	if err != nil {
		return nil, fmt.Errorf("query owner shares: %w", err)
	}
	defer shareRows.Close()

	for shareRows.Next() {
		share, err := scanShare(shareRows)
		if err != nil {
			return nil, fmt.Errorf("scan share: %w", err)
		}
		if i, ok := index[share.VideoID]; ok {
			result[i].Shares = append(result[i].Shares, share)
		}
	}
	if err := shareRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate owner shares: %w", err)
	}

	return result, nil
}

// ListCreatedBefore returns every video created strictly before cutoff.
func (r *PostgresVideoRepository) ListCreatedBefore(ctx context.Context, cutoff time.Time) ([]models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+videoColumns+`
        FROM videos
        WHERE created_at < $1
        ORDER BY created_at ASC
    `, cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("query expired videos: %w", err)
	}
	defer rows.Close()

	var expired []models.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expired video: %w", err)
		}
		expired = append(expired, video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired videos: %w", err)
	}

	return expired, nil
}

// Delete removes a video row; shares go with it through the foreign key cascade.
func (r *PostgresVideoRepository) Delete(ctx context.Context, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM videos WHERE id = $1`, videoID)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// PostgresShareRepository provides PostgreSQL-backed persistence for share links.
type PostgresShareRepository struct {
	pool db.Pool
}

// NewPostgresShareRepository constructs a share repository backed by PostgreSQL.
func NewPostgresShareRepository(pool db.Pool) *PostgresShareRepository {
	return &PostgresShareRepository{pool: pool}
}

const shareColumns = `id, video_id, share_code, is_active, view_count, created_at, updated_at`

// Insert stores a new share. A duplicate share code yields ErrConflict so
// callers can draw a new code; any other integrity failure yields ErrConstraint.
func (r *PostgresShareRepository) Insert(ctx context.Context, share models.Share) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO shares (`+shareColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, share.ID, share.VideoID, share.ShareCode, share.IsActive, share.ViewCount, share.CreatedAt, share.UpdatedAt)
	if err != nil {
		if isShareCodeConflict(err) {
			return ErrConflict
		}
		switch mapped := classify(err); {
		case errors.Is(mapped, ErrConflict):
			return ErrConstraint
		case mapped != nil:
			return mapped
		}
		return fmt.Errorf("insert share: %w", err)
	}

	return nil
}

// OwnedBy reports whether the share's parent video belongs to userID.
func (r *PostgresShareRepository) OwnedBy(ctx context.Context, shareID, userID string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var owned bool
	if err := conn.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1
            FROM shares s
            JOIN videos v ON v.id = s.video_id
            WHERE s.id = $1 AND v.user_id = $2
        )
    `, shareID, userID).Scan(&owned); err != nil {
		return false, fmt.Errorf("check share ownership: %w", err)
	}

	return owned, nil
}

// SetActive updates the active flag without touching the view counter.
func (r *PostgresShareRepository) SetActive(ctx context.Context, shareID string, active bool) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE shares
        SET is_active = $2, updated_at = NOW()
        WHERE id = $1
    `, shareID, active)
	if err != nil {
		return fmt.Errorf("update share active flag: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// IncrementViewCount adds one view to the active share with the code in a
// single statement and reports whether a row matched.
func (r *PostgresShareRepository) IncrementViewCount(ctx context.Context, code string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE shares
        SET view_count = view_count + 1
        WHERE share_code = $1 AND is_active = TRUE
    `, code)
	if err != nil {
		return false, fmt.Errorf("increment view count: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// PublicVideo resolves an active share code to the public projection of its video.
func (r *PostgresShareRepository) PublicVideo(ctx context.Context, code string) (models.PublicVideo, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.PublicVideo{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var public models.PublicVideo
	err = conn.QueryRow(ctx, `
        SELECT v.title, v.description, v.storage_path, v.thumbnail_path, s.view_count
        FROM shares s
        JOIN videos v ON v.id = s.video_id
        WHERE s.share_code = $1 AND s.is_active = TRUE
    `, code).Scan(&public.Title, &public.Description, &public.StoragePath, &public.ThumbnailPath, &public.ViewCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.PublicVideo{}, ErrNotFound
		}
		return models.PublicVideo{}, fmt.Errorf("select public video: %w", err)
	}

	return public, nil
}

func scanVideo(row pgx.Row) (models.Video, error) {
	var v models.Video
	if err := row.Scan(&v.ID, &v.UserID, &v.Title, &v.Description, &v.StoragePath, &v.ThumbnailPath,
		&v.FileSize, &v.MimeType, &v.DurationSeconds, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return models.Video{}, err
	}
	v.CreatedAt = v.CreatedAt.UTC()
	v.UpdatedAt = v.UpdatedAt.UTC()
	return v, nil
}

func scanShare(row pgx.Row) (models.Share, error) {
	var s models.Share
	if err := row.Scan(&s.ID, &s.VideoID, &s.ShareCode, &s.IsActive, &s.ViewCount, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return models.Share{}, err
	}
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}
