package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Worker.Concurrency != 4 {
		t.Fatalf("expected default concurrency 4, got %d", cfg.Worker.Concurrency)
	}
	if cfg.Worker.MaxAttempts != 5 {
		t.Fatalf("expected default max attempts 5, got %d", cfg.Worker.MaxAttempts)
	}
	if cfg.Groups.Capacity != 4 {
		t.Fatalf("expected default group capacity 4, got %d", cfg.Groups.Capacity)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := []byte("worker:\n  concurrency: 2\n  retry_delay_seconds: 5\ngroups:\n  capacity: 6\n")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("WORKER_CONCURRENCY", "8")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Worker.Concurrency != 8 {
		t.Fatalf("env should override file: got %d", cfg.Worker.Concurrency)
	}
	if cfg.Worker.RetryDelay() != 5*time.Second {
		t.Fatalf("file retry_delay_seconds not applied: got %s", cfg.Worker.RetryDelay())
	}
	if cfg.Groups.Capacity != 6 {
		t.Fatalf("file capacity not applied: got %d", cfg.Groups.Capacity)
	}
}

func TestPostgresDSN(t *testing.T) {
	p := Postgres{Host: "db", Port: "5433", User: "u", Password: "p", Name: "n"}
	want := "postgres://u:p@db:5433/n?sslmode=disable"
	if got := p.DSN(); got != want {
		t.Fatalf("DSN: got %q want %q", got, want)
	}
}
