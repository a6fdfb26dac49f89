package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/clipvault/backend/internal/auth"
	"github.com/clipvault/backend/internal/config"
	"github.com/clipvault/backend/internal/db"
	"github.com/clipvault/backend/internal/handlers"
	"github.com/clipvault/backend/internal/middleware"
	"github.com/clipvault/backend/internal/repositories"
	"github.com/clipvault/backend/internal/storage"
	"github.com/clipvault/backend/internal/videos"
)

const (
	authRateLimit   = 10
	authRateBurst   = 5
	limiterIdleTTL  = 10 * time.Minute
	rateLimitWindow = time.Minute
)

var (
	_ videos.VideoStore   = (*repositories.PostgresVideoRepository)(nil)
	_ videos.ShareStore   = (*repositories.PostgresShareRepository)(nil)
	_ videos.ProfileStore = (*repositories.PostgresProfileRepository)(nil)
	_ auth.SessionStore   = (*repositories.PostgresSessionStore)(nil)
	_ handlers.Library    = (*videos.Service)(nil)
	_ handlers.Sharing    = (*videos.Service)(nil)
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers and returns the core service so callers can schedule sweeps.
func buildDependencies(pool db.Pool, cfg config.Config, blobs storage.Store, logger *slog.Logger) (handlers.Dependencies, *videos.Service, error) {
	signer, err := auth.NewTokenSigner(cfg.JWTSecret)
	if err != nil {
		return handlers.Dependencies{}, nil, fmt.Errorf("configure CLIPVAULT_JWT_SECRET: %w", err)
	}
	sessions := auth.NewManager(cfg.AccessTokenTTL, cfg.RefreshTokenTTL, signer, repositories.NewPostgresSessionStore(pool))

	svc := videos.NewService(
		repositories.NewPostgresVideoRepository(pool),
		repositories.NewPostgresShareRepository(pool),
		repositories.NewPostgresProfileRepository(pool),
		blobs,
		videos.Options{
			Retention:      cfg.Retention,
			MaxUploadBytes: cfg.MaxUploadBytes,
			IsAdminEmail:   cfg.IsAdminEmail,
		},
	)

	deps := handlers.Dependencies{
		Logger:         logger,
		Identities:     repositories.NewPostgresIdentityRepository(pool),
		Profiles:       svc,
		Sessions:       sessions,
		Authenticator:  sessions,
		Library:        svc,
		Sharing:        svc,
		Player:         svc,
		Admin:          svc,
		Links:          storage.NewCachingLinker(blobs, blobs.PresignTTL()),
		Database:       pool,
		PublicLimiter:  middleware.NewIPRateLimiter(cfg.PublicRateLimit, rateLimitWindow, cfg.PublicRateBurst, limiterIdleTTL),
		AuthLimiter:    middleware.NewIPRateLimiter(authRateLimit, rateLimitWindow, authRateBurst, limiterIdleTTL),
		CORSOrigins:    cfg.CORSOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}
	return deps, svc, nil
}
