package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clipvault/backend/internal/auth"
	"github.com/clipvault/backend/internal/models"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func TestPostgresIdentityRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresIdentityRepository(testPool)
	identity := models.Identity{
		ID:        uuid.NewString(),
		Email:     "alice@example.com",
		Password:  "secret-hash",
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if err := repo.Create(ctx, identity); err != nil {
		t.Fatalf("create identity: %v", err)
	}

	dup := identity
	dup.ID = uuid.NewString()
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate email, got %v", err)
	}

	fetched, err := repo.FindByEmail(ctx, identity.Email)
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if fetched.ID != identity.ID || fetched.Password != identity.Password {
		t.Fatalf("unexpected identity fetched: %+v", fetched)
	}

	if _, err := repo.FindByEmail(ctx, "missing@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresProfileRepository_CreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	profile := createTestProfile(t, "bob@example.com", true)
	repo := NewPostgresProfileRepository(testPool)

	created, err := repo.Create(ctx, profile)
	if err != nil {
		t.Fatalf("recreate profile: %v", err)
	}
	if created {
		t.Fatal("expected second create to be a no-op")
	}

	isAdmin, err := repo.IsAdmin(ctx, profile.ID)
	if err != nil || !isAdmin {
		t.Fatalf("expected admin profile, got %v %v", isAdmin, err)
	}

	if _, err := repo.IsAdmin(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing profile, got %v", err)
	}
}

func TestPostgresVideoRepository_OwnershipAndListing(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	owner := createTestProfile(t, "owner@example.com", false)
	other := createTestProfile(t, "other@example.com", false)
	repo := NewPostgresVideoRepository(testPool)

	now := time.Now().UTC().Truncate(time.Millisecond)
	recent := createTestVideo(t, owner.ID, now.Add(-time.Hour))
	old := createTestVideo(t, owner.ID, now.Add(-40*24*time.Hour))

	owned, err := repo.OwnedBy(ctx, recent.ID, owner.ID)
	if err != nil || !owned {
		t.Fatalf("expected owner to own video, got %v %v", owned, err)
	}
	owned, err = repo.OwnedBy(ctx, recent.ID, other.ID)
	if err != nil || owned {
		t.Fatalf("expected other user not to own video, got %v %v", owned, err)
	}

	all, err := repo.ListByOwner(ctx, owner.ID, time.Time{})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 || all[0].ID != recent.ID || all[1].ID != old.ID {
		t.Fatalf("expected newest first, got %+v", all)
	}

	window, err := repo.ListByOwner(ctx, owner.ID, now.Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("list window: %v", err)
	}
	if len(window) != 1 || window[0].ID != recent.ID {
		t.Fatalf("expected only the recent video, got %+v", window)
	}

	expired, err := repo.ListCreatedBefore(ctx, now.Add(-30*24*time.Hour))
	if err != nil {
		t.Fatalf("list expired: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != old.ID {
		t.Fatalf("expected only the old video to be expired, got %+v", expired)
	}

	dup := recent
	dup.ID = uuid.NewString()
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for reused storage path, got %v", err)
	}

	orphan := old
	orphan.ID = uuid.NewString()
	orphan.UserID = uuid.NewString()
	orphan.StoragePath = orphan.UserID + "/" + orphan.ID + "/original.mp4"
	if err := repo.Create(ctx, orphan); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown owner, got %v", err)
	}

	blank := old
	blank.ID = uuid.NewString()
	blank.Title = "   "
	blank.StoragePath = owner.ID + "/" + blank.ID + "/original.mp4"
	if err := repo.Create(ctx, blank); !errors.Is(err, ErrConstraint) {
		t.Fatalf("expected ErrConstraint for blank title, got %v", err)
	}
}

func TestPostgresShareRepository_CodeConflictAndCascade(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	owner := createTestProfile(t, "carol@example.com", false)
	video := createTestVideo(t, owner.ID, time.Now().UTC())
	shares := NewPostgresShareRepository(testPool)
	videos := NewPostgresVideoRepository(testPool)

	share := createTestShare(t, video.ID, "AbCd2345")

	collision := newShare(video.ID, share.ShareCode)
	if err := shares.Insert(ctx, collision); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate share code, got %v", err)
	}

	dangling := newShare(uuid.NewString(), "ZyXw9876")
	if err := shares.Insert(ctx, dangling); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing video, got %v", err)
	}

	owned, err := shares.OwnedBy(ctx, share.ID, owner.ID)
	if err != nil || !owned {
		t.Fatalf("expected owner to own share, got %v %v", owned, err)
	}

	if err := videos.Delete(ctx, video.ID); err != nil {
		t.Fatalf("delete video: %v", err)
	}
	if err := videos.Delete(ctx, video.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}
	if err := shares.SetActive(ctx, share.ID, false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected share to be removed with its video, got %v", err)
	}
}

func TestPostgresShareRepository_ViewCounting(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	owner := createTestProfile(t, "dave@example.com", false)
	video := createTestVideo(t, owner.ID, time.Now().UTC())
	share := createTestShare(t, video.ID, "Vw3xYz7k")
	repo := NewPostgresShareRepository(testPool)

	const viewers = 10
	var wg sync.WaitGroup
	wg.Add(viewers)
	for i := 0; i < viewers; i++ {
		go func() {
			defer wg.Done()
			if _, err := repo.IncrementViewCount(ctx, share.ShareCode); err != nil {
				t.Errorf("increment: %v", err)
			}
		}()
	}
	wg.Wait()

	public, err := repo.PublicVideo(ctx, share.ShareCode)
	if err != nil {
		t.Fatalf("public video: %v", err)
	}
	if public.ViewCount != viewers {
		t.Fatalf("expected %d views, got %d", viewers, public.ViewCount)
	}
	if public.Title != video.Title || public.StoragePath != video.StoragePath {
		t.Fatalf("unexpected public projection: %+v", public)
	}

	if err := repo.SetActive(ctx, share.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	matched, err := repo.IncrementViewCount(ctx, share.ShareCode)
	if err != nil || matched {
		t.Fatalf("expected inactive share to be skipped, got %v %v", matched, err)
	}
	if _, err := repo.PublicVideo(ctx, share.ShareCode); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected inactive share to be hidden, got %v", err)
	}

	if err := repo.SetActive(ctx, share.ID, true); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	public, err = repo.PublicVideo(ctx, share.ShareCode)
	if err != nil || public.ViewCount != viewers {
		t.Fatalf("expected view count to survive toggling, got %+v %v", public, err)
	}
}

func TestPostgresProfileRepository_Stats(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	admin := createTestProfile(t, "admin@example.com", true)
	user := createTestProfile(t, "erin@example.com", false)
	v1 := createTestVideo(t, user.ID, time.Now().UTC())
	v2 := createTestVideo(t, user.ID, time.Now().UTC())
	s1 := createTestShare(t, v1.ID, "Stat2345")
	s2 := createTestShare(t, v2.ID, "Stat6789")

	shares := NewPostgresShareRepository(testPool)
	for _, code := range []string{s1.ShareCode, s1.ShareCode, s2.ShareCode} {
		if _, err := shares.IncrementViewCount(ctx, code); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}

	stats, err := NewPostgresProfileRepository(testPool).Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalUsers != 2 || stats.TotalVideos != 2 || stats.TotalShares != 2 || stats.TotalViews != 3 {
		t.Fatalf("unexpected totals: %+v", stats)
	}

	perUser := make(map[string]models.AdminUserStats)
	for _, u := range stats.Users {
		perUser[u.ID] = u
	}
	if got := perUser[user.ID]; got.VideoCount != 2 || got.TotalViews != 3 {
		t.Fatalf("unexpected user rollup: %+v", got)
	}
	if got := perUser[admin.ID]; got.VideoCount != 0 || got.TotalViews != 0 || !got.IsAdmin {
		t.Fatalf("unexpected admin rollup: %+v", got)
	}
}

func TestPostgresSessionStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	profile := createTestProfile(t, "frank@example.com", false)
	store := NewPostgresSessionStore(testPool)

	now := time.Now().UTC().Truncate(time.Millisecond)
	live := auth.Session{RefreshToken: "live-token", UserID: profile.ID, ExpiresAt: now.Add(time.Hour)}
	stale := auth.Session{RefreshToken: "stale-token", UserID: profile.ID, ExpiresAt: now.Add(-time.Hour)}
	for _, s := range []auth.Session{live, stale} {
		if err := store.Save(ctx, s); err != nil {
			t.Fatalf("save session: %v", err)
		}
	}

	found, err := store.Find(ctx, live.RefreshToken)
	if err != nil {
		t.Fatalf("find session: %v", err)
	}
	if found.UserID != profile.ID || !timesClose(found.ExpiresAt, live.ExpiresAt, time.Millisecond) {
		t.Fatalf("unexpected session: %+v", found)
	}

	removed, err := store.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 expired session removed, got %d", removed)
	}
	if _, err := store.Find(ctx, stale.RefreshToken); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected stale session to be gone, got %v", err)
	}

	if err := store.Delete(ctx, live.RefreshToken); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if err := store.Delete(ctx, live.RefreshToken); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound deleting twice, got %v", err)
	}
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".sql" {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(migrationsDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if _, err := pool.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func resetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	conn, err := testPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "TRUNCATE TABLE shares, videos, sessions, profiles, identities CASCADE"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func createTestProfile(t *testing.T, email string, admin bool) models.Profile {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	identity := models.Identity{ID: uuid.NewString(), Email: email, Password: "password-hash", CreatedAt: now}
	if err := NewPostgresIdentityRepository(testPool).Create(ctx, identity); err != nil {
		t.Fatalf("create test identity: %v", err)
	}

	profile := models.Profile{ID: identity.ID, Email: email, DisplayName: email, IsAdmin: admin, CreatedAt: now}
	if _, err := NewPostgresProfileRepository(testPool).Create(ctx, profile); err != nil {
		t.Fatalf("create test profile: %v", err)
	}
	return profile
}

func createTestVideo(t *testing.T, ownerID string, createdAt time.Time) models.Video {
	t.Helper()
	id := uuid.NewString()
	video := models.Video{
		ID:          id,
		UserID:      ownerID,
		Title:       "clip " + id[:8],
		StoragePath: ownerID + "/" + id + "/original.mp4",
		FileSize:    1024,
		MimeType:    "video/mp4",
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	if err := NewPostgresVideoRepository(testPool).Create(context.Background(), video); err != nil {
		t.Fatalf("create test video: %v", err)
	}
	return video
}

func newShare(videoID, code string) models.Share {
	now := time.Now().UTC()
	return models.Share{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		ShareCode: code,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func createTestShare(t *testing.T, videoID, code string) models.Share {
	t.Helper()
	share := newShare(videoID, code)
	if err := NewPostgresShareRepository(testPool).Insert(context.Background(), share); err != nil {
		t.Fatalf("create test share: %v", err)
	}
	return share
}

func timesClose(a, b time.Time, delta time.Duration) bool {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= delta
}
