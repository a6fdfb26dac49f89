package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.AppPort != 8080 {
		t.Fatalf("expected default port 8080 got %d", cfg.AppPort)
	}
	if cfg.Retention != 30*24*time.Hour {
		t.Fatalf("expected 30 day retention got %v", cfg.Retention)
	}
	if cfg.MaxUploadBytes != 50*1024*1024 {
		t.Fatalf("expected 50MiB upload cap got %d", cfg.MaxUploadBytes)
	}
	if cfg.SweepInterval != 0 {
		t.Fatalf("expected scheduler disabled by default got %v", cfg.SweepInterval)
	}
	if cfg.ObjectStore.Driver != "s3" || cfg.ObjectStore.Bucket != "videos" {
		t.Fatalf("unexpected object store defaults: %+v", cfg.ObjectStore)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CLIPVAULT_PORT", "9090")
	t.Setenv("CLIPVAULT_RETENTION", "48h")
	t.Setenv("CLIPVAULT_ADMIN_EMAILS", " Admin@Example.com ,ops@example.com")
	t.Setenv("CLIPVAULT_OBJECT_STORE_DRIVER", "MinIO")
	t.Setenv("CLIPVAULT_OBJECT_STORE_ENDPOINT", "localhost:9000")
	t.Setenv("CLIPVAULT_OBJECT_STORE_USE_SSL", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.AppPort != 9090 {
		t.Fatalf("expected port override got %d", cfg.AppPort)
	}
	if cfg.Retention != 48*time.Hour {
		t.Fatalf("expected retention override got %v", cfg.Retention)
	}
	if cfg.ObjectStore.Driver != "minio" || cfg.ObjectStore.UseSSL {
		t.Fatalf("unexpected object store config: %+v", cfg.ObjectStore)
	}
	if !cfg.IsAdminEmail("admin@example.com") || !cfg.IsAdminEmail("OPS@example.com") {
		t.Fatalf("expected admin emails to match case-insensitively: %v", cfg.AdminEmails)
	}
	if cfg.IsAdminEmail("someone@example.com") {
		t.Fatal("unexpected admin match")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CLIPVAULT_PORT", "not-a-number")

	if _, err := Load(); err == nil {
		t.Fatal("expected malformed port to fail")
	}
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	base, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port out of range", func(c *Config) { c.AppPort = 70000 }},
		{"empty database url", func(c *Config) { c.DatabaseURL = " " }},
		{"zero retention", func(c *Config) { c.Retention = 0 }},
		{"negative sweep interval", func(c *Config) { c.SweepInterval = -time.Second }},
		{"zero upload cap", func(c *Config) { c.MaxUploadBytes = 0 }},
		{"zero rate limit", func(c *Config) { c.PublicRateLimit = 0 }},
		{"unknown driver", func(c *Config) { c.ObjectStore.Driver = "gcs" }},
		{"minio without endpoint", func(c *Config) { c.ObjectStore.Driver = "minio"; c.ObjectStore.Endpoint = "" }},
		{"empty bucket", func(c *Config) { c.ObjectStore.Bucket = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			cfg.AdminEmails = append([]string(nil), base.AdminEmails...)
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
