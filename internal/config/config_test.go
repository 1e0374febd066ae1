package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("S3_BUCKET", "faces")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.App.Mode != "all" {
		t.Errorf("App.Mode = %q, want all", cfg.App.Mode)
	}
	if cfg.App.Port != 8080 {
		t.Errorf("App.Port = %d, want 8080", cfg.App.Port)
	}
	if cfg.App.MaxUploadBytes != 32<<20 {
		t.Errorf("App.MaxUploadBytes = %d, want %d", cfg.App.MaxUploadBytes, 32<<20)
	}
	if cfg.Storage.Bucket != "faces" {
		t.Errorf("Storage.Bucket = %q, want faces", cfg.Storage.Bucket)
	}
	if cfg.Storage.Region != "us-east-1" {
		t.Errorf("Storage.Region = %q, want us-east-1", cfg.Storage.Region)
	}
	if cfg.SMTP.Port != 587 {
		t.Errorf("SMTP.Port = %d, want 587", cfg.SMTP.Port)
	}
	if cfg.Pipeline.VisibilityAttempts != 10 {
		t.Errorf("Pipeline.VisibilityAttempts = %d, want 10", cfg.Pipeline.VisibilityAttempts)
	}
	if cfg.Worker.Concurrency != 2 {
		t.Errorf("Worker.Concurrency = %d, want 2", cfg.Worker.Concurrency)
	}
	if !cfg.Scheduler.Enabled {
		t.Error("Scheduler.Enabled = false, want true")
	}
	if cfg.Scheduler.SweepEverySec != 600 {
		t.Errorf("Scheduler.SweepEverySec = %d, want 600", cfg.Scheduler.SweepEverySec)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("S3_BUCKET", "faces")
	t.Setenv("RUN_MODE", "worker")
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/facesink")
	t.Setenv("REDIS_URL", "redis://cache:6379/0")
	t.Setenv("S3_PREFIX", "ingest")
	t.Setenv("S3_USE_PATH_STYLE", "true")
	t.Setenv("VISIBILITY_ATTEMPTS", "3")
	t.Setenv("WORKER_CONCURRENCY", "8")
	t.Setenv("SCHEDULER_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.App.Mode != "worker" {
		t.Errorf("App.Mode = %q, want worker", cfg.App.Mode)
	}
	if cfg.App.Port != 9090 {
		t.Errorf("App.Port = %d, want 9090", cfg.App.Port)
	}
	if cfg.Database.URL != "postgres://u:p@db:5432/facesink" {
		t.Errorf("Database.URL = %q", cfg.Database.URL)
	}
	if cfg.Redis.URL != "redis://cache:6379/0" {
		t.Errorf("Redis.URL = %q", cfg.Redis.URL)
	}
	if cfg.Storage.Prefix != "ingest" {
		t.Errorf("Storage.Prefix = %q, want ingest", cfg.Storage.Prefix)
	}
	if !cfg.Storage.UsePathStyle {
		t.Error("Storage.UsePathStyle = false, want true")
	}
	if cfg.Pipeline.VisibilityAttempts != 3 {
		t.Errorf("Pipeline.VisibilityAttempts = %d, want 3", cfg.Pipeline.VisibilityAttempts)
	}
	if cfg.Worker.Concurrency != 8 {
		t.Errorf("Worker.Concurrency = %d, want 8", cfg.Worker.Concurrency)
	}
	if cfg.Scheduler.Enabled {
		t.Error("Scheduler.Enabled = true, want false")
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "facesink.yaml")
	yaml := `
app:
  mode: api
  port: 8181
storage:
  bucket: faces-staging
  prefix: staging
smtp:
  host: smtp.example.com
  from: facesink@example.com
pipeline:
  visibility_attempts: 5
  visibility_interval_sec: 2
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("FACESINK_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.App.Mode != "api" {
		t.Errorf("App.Mode = %q, want api", cfg.App.Mode)
	}
	if cfg.App.Port != 8181 {
		t.Errorf("App.Port = %d, want 8181", cfg.App.Port)
	}
	if cfg.Storage.Bucket != "faces-staging" {
		t.Errorf("Storage.Bucket = %q, want faces-staging", cfg.Storage.Bucket)
	}
	if cfg.SMTP.Host != "smtp.example.com" {
		t.Errorf("SMTP.Host = %q", cfg.SMTP.Host)
	}
	if cfg.Pipeline.VisibilityAttempts != 5 {
		t.Errorf("Pipeline.VisibilityAttempts = %d, want 5", cfg.Pipeline.VisibilityAttempts)
	}
	// Values the file does not set keep their defaults.
	if cfg.Worker.Concurrency != 2 {
		t.Errorf("Worker.Concurrency = %d, want 2", cfg.Worker.Concurrency)
	}
}

func TestLoad_EnvWinsOverYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "facesink.yaml")
	yaml := `
app:
  port: 8181
storage:
  bucket: faces-staging
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("FACESINK_CONFIG", path)
	t.Setenv("PORT", "7070")
	t.Setenv("S3_BUCKET", "faces-prod")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.App.Port != 7070 {
		t.Errorf("App.Port = %d, want 7070", cfg.App.Port)
	}
	if cfg.Storage.Bucket != "faces-prod" {
		t.Errorf("Storage.Bucket = %q, want faces-prod", cfg.Storage.Bucket)
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv("S3_BUCKET", "faces")
	t.Setenv("FACESINK_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	if _, err := Load(); err == nil {
		t.Error("Load() with missing config file should fail")
	}
}

func TestLoad_InvalidMode(t *testing.T) {
	t.Setenv("S3_BUCKET", "faces")
	t.Setenv("RUN_MODE", "batch")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() with invalid mode should fail")
	}
	if !strings.Contains(err.Error(), "invalid mode") {
		t.Errorf("error = %v, want mention of invalid mode", err)
	}
}

func TestLoad_MissingBucket(t *testing.T) {
	_, err := Load()
	if err == nil {
		t.Fatal("Load() without a bucket should fail")
	}
	if !strings.Contains(err.Error(), "bucket") {
		t.Errorf("error = %v, want mention of bucket", err)
	}
}

func TestLoad_InvalidVisibilityAttempts(t *testing.T) {
	t.Setenv("S3_BUCKET", "faces")
	t.Setenv("VISIBILITY_ATTEMPTS", "0")

	if _, err := Load(); err == nil {
		t.Error("Load() with zero visibility attempts should fail")
	}
}

func TestLoad_APIKeyHashAppended(t *testing.T) {
	t.Setenv("S3_BUCKET", "faces")
	t.Setenv("API_KEY_HASH", "$2a$10$abcdefghijklmnopqrstuv")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Auth.APIKeyHashes) != 1 {
		t.Fatalf("len(APIKeyHashes) = %d, want 1", len(cfg.Auth.APIKeyHashes))
	}
	if cfg.Auth.APIKeyHashes[0] != "$2a$10$abcdefghijklmnopqrstuv" {
		t.Errorf("APIKeyHashes[0] = %q", cfg.Auth.APIKeyHashes[0])
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := &Config{
		Pipeline:  PipelineConfig{VisibilityIntervalS: 2, LockTTLSec: 90},
		Scheduler: SchedulerConfig{SweepEverySec: 300},
	}

	if got := cfg.VisibilityInterval(); got != 2*time.Second {
		t.Errorf("VisibilityInterval() = %v, want 2s", got)
	}
	if got := cfg.LockTTL(); got != 90*time.Second {
		t.Errorf("LockTTL() = %v, want 90s", got)
	}
	if got := cfg.SweepInterval(); got != 5*time.Minute {
		t.Errorf("SweepInterval() = %v, want 5m", got)
	}
}
