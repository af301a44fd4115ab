package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  host: \"\"\n")

	cfg := Load(path)

	if cfg.Server.Port != 8001 {
		t.Fatalf("expected default port 8001, got %d", cfg.Server.Port)
	}
	if cfg.Downloads.Dir != "downloads" {
		t.Fatalf("expected default downloads dir, got %q", cfg.Downloads.Dir)
	}
	if len(cfg.Limits.Formats) != 2 || cfg.Limits.Formats[0] != "mp4" {
		t.Fatalf("expected default formats, got %v", cfg.Limits.Formats)
	}
	if cfg.Limits.MaxDurationSeconds != 3600 {
		t.Fatalf("expected default max duration, got %d", cfg.Limits.MaxDurationSeconds)
	}
	if cfg.Limits.MaxFileSizeBytes != 5<<30 {
		t.Fatalf("expected default max file size, got %d", cfg.Limits.MaxFileSizeBytes)
	}
	if cfg.Worker.PoolSize != 2 || cfg.Worker.MaxRetries != 3 {
		t.Fatalf("expected default worker settings, got %+v", cfg.Worker)
	}
	if cfg.Retention.WindowHours != 24 {
		t.Fatalf("expected default retention window, got %d", cfg.Retention.WindowHours)
	}
	if cfg.Events.SubscriberBuffer != 64 {
		t.Fatalf("expected default subscriber buffer, got %d", cfg.Events.SubscriberBuffer)
	}
}

func TestLoadReadsValues(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 9000
downloads:
  dir: /tmp/artifacts
limits:
  allowedHosts:
    - youtube.com
    - youtu.be
  maxPlaylistItems: 50
worker:
  poolSize: 4
  maxRetries: 5
retention:
  enabled: true
  windowHours: 48
redis:
  url: redis://localhost:6379/0
`)

	cfg := Load(path)

	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Fatalf("server config not read: %+v", cfg.Server)
	}
	if cfg.Downloads.Dir != "/tmp/artifacts" {
		t.Fatalf("downloads dir not read: %q", cfg.Downloads.Dir)
	}
	if len(cfg.Limits.AllowedHosts) != 2 {
		t.Fatalf("allowed hosts not read: %v", cfg.Limits.AllowedHosts)
	}
	if cfg.Limits.MaxPlaylistItems != 50 {
		t.Fatalf("playlist cap not read: %d", cfg.Limits.MaxPlaylistItems)
	}
	if cfg.Worker.PoolSize != 4 || cfg.Worker.MaxRetries != 5 {
		t.Fatalf("worker config not read: %+v", cfg.Worker)
	}
	if !cfg.Retention.Enabled || cfg.Retention.WindowHours != 48 {
		t.Fatalf("retention config not read: %+v", cfg.Retention)
	}
	if cfg.Redis.URL != "redis://localhost:6379/0" {
		t.Fatalf("redis url not read: %q", cfg.Redis.URL)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")

	t.Setenv("SNATCH_PORT", "9100")
	t.Setenv("SNATCH_DOWNLOAD_DIR", "/srv/media")
	t.Setenv("SNATCH_POOL_SIZE", "8")
	t.Setenv("SNATCH_RETENTION_HOURS", "6")
	t.Setenv("SNATCH_REDIS_URL", "redis://cache:6379/1")

	cfg := Load(path)

	if cfg.Server.Port != 9100 {
		t.Fatalf("env port override lost: %d", cfg.Server.Port)
	}
	if cfg.Downloads.Dir != "/srv/media" {
		t.Fatalf("env dir override lost: %q", cfg.Downloads.Dir)
	}
	if cfg.Worker.PoolSize != 8 {
		t.Fatalf("env pool size override lost: %d", cfg.Worker.PoolSize)
	}
	if cfg.Retention.WindowHours != 6 {
		t.Fatalf("env retention override lost: %d", cfg.Retention.WindowHours)
	}
	if cfg.Redis.URL != "redis://cache:6379/1" {
		t.Fatalf("env redis override lost: %q", cfg.Redis.URL)
	}
}

func TestEnvIgnoresUnparsableNumbers(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")

	t.Setenv("SNATCH_PORT", "not-a-number")

	cfg := Load(path)
	if cfg.Server.Port != 9000 {
		t.Fatalf("bad env value should be ignored, got port %d", cfg.Server.Port)
	}
}
