package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clipvault/backend/internal/config"
	"github.com/clipvault/backend/internal/storage"
)

type fakePool struct{}

func (fakePool) Acquire(context.Context) (*pgxpool.Conn, error) {
	return nil, errors.New("not implemented")
}

func (fakePool) Ping(context.Context) error { return nil }

func (fakePool) Close() {}

func testConfig() config.Config {
	return config.Config{
		JWTSecret:       "deps-test-secret-0123456789",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		Retention:       24 * time.Hour,
		MaxUploadBytes:  1 << 20,
		PublicRateLimit: 60,
		PublicRateBurst: 10,
		AdminEmails:     []string{"ops@example.com"},
	}
}

func TestBuildDependencies(t *testing.T) {
	deps, svc, err := buildDependencies(fakePool{}, testConfig(), storage.NewMemoryStorage(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc == nil {
		t.Fatal("expected core service")
	}

	checks := map[string]any{
		"identities":     deps.Identities,
		"profiles":       deps.Profiles,
		"sessions":       deps.Sessions,
		"authenticator":  deps.Authenticator,
		"library":        deps.Library,
		"sharing":        deps.Sharing,
		"player":         deps.Player,
		"admin":          deps.Admin,
		"links":          deps.Links,
		"database":       deps.Database,
		"public limiter": deps.PublicLimiter,
		"auth limiter":   deps.AuthLimiter,
	}
	for name, v := range checks {
		if v == nil || (reflect.ValueOf(v).Kind() == reflect.Ptr && reflect.ValueOf(v).IsNil()) {
			t.Fatalf("expected %s to be configured", name)
		}
	}
	if deps.MaxUploadBytes != 1<<20 {
		t.Fatalf("expected upload limit to be forwarded, got %d", deps.MaxUploadBytes)
	}
}

func TestBuildDependenciesRejectsWeakSecret(t *testing.T) {
	cfg := testConfig()
	cfg.JWTSecret = "short"
	if _, _, err := buildDependencies(fakePool{}, cfg, storage.NewMemoryStorage(), nil); err == nil {
		t.Fatal("expected error for short JWT secret")
	}
}

func TestRunRejectsUnknownCommands(t *testing.T) {
	if err := Run(context.Background(), nil); err == nil {
		t.Fatal("expected error without a command")
	}
	if err := Run(context.Background(), []string{"launch"}); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestListMigrationsSortsSQLFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0002_shares.sql", "0001_init.sql", "README.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "0003_dir.sql"), 0o700); err != nil {
		t.Fatal(err)
	}

	got, err := listMigrations(dir)
	if err != nil {
		t.Fatalf("listMigrations: %v", err)
	}
	want := []string{"0001_init.sql", "0002_shares.sql"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	pending := pendingMigrations(got, map[string]struct{}{"0001_init.sql": {}})
	if !reflect.DeepEqual(pending, []string{"0002_shares.sql"}) {
		t.Fatalf("unexpected pending set %v", pending)
	}
}

func TestSeedFileName(t *testing.T) {
	if got := seedFileName("dev"); got != "dev_seed.sql" {
		t.Fatalf("got %q", got)
	}
	if got := seedFileName("custom.sql"); got != "custom.sql" {
		t.Fatalf("got %q", got)
	}
}

func TestShouldRetryMigration(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"serialization", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"syntax", &pgconn.PgError{Code: "42601"}, false},
		{"deadline", context.DeadlineExceeded, true},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := shouldRetryMigration(tc.err); got != tc.want {
				t.Fatalf("shouldRetryMigration(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestMigrationBackoffIsCapped(t *testing.T) {
	if migrationBackoff(1) != migrationBaseBackoff {
		t.Fatalf("first retry should use the base backoff")
	}
	if migrationBackoff(2) != 2*migrationBaseBackoff {
		t.Fatalf("second retry should double")
	}
	if migrationBackoff(40) != migrationMaxBackoff {
		t.Fatalf("large attempts should be capped")
	}
}
