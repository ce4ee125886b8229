package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"POTLUCK_PORT", "POTLUCK_DB_PATH", "POTLUCK_LOG_LEVEL", "POTLUCK_REFRESH_INTERVAL", "POTLUCK_RESOLVE_CONCURRENCY", "POTLUCK_ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.DBPath != "potluck.db" {
		t.Errorf("DBPath = %q, want potluck.db", cfg.DBPath)
	}
	if cfg.RefreshInterval != 3*time.Second {
		t.Errorf("RefreshInterval = %v, want 3s", cfg.RefreshInterval)
	}
	if cfg.ResolveConcurrency != 4 {
		t.Errorf("ResolveConcurrency = %d, want 4", cfg.ResolveConcurrency)
	}
	if len(cfg.AllowedOrigins) != 0 {
		t.Errorf("AllowedOrigins = %v, want none", cfg.AllowedOrigins)
	}
}

func TestLoadFromEnvFile(t *testing.T) {
	for _, k := range []string{"POTLUCK_PORT", "POTLUCK_DB_PATH", "POTLUCK_LOG_LEVEL", "POTLUCK_REFRESH_INTERVAL", "POTLUCK_RESOLVE_CONCURRENCY", "POTLUCK_ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	path := filepath.Join(t.TempDir(), ".env")
	content := "POTLUCK_PORT=9191\nPOTLUCK_REFRESH_INTERVAL=10s\nPOTLUCK_RESOLVE_CONCURRENCY=2\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9191" {
		t.Errorf("Port = %q, want 9191", cfg.Port)
	}
	if cfg.RefreshInterval != 10*time.Second {
		t.Errorf("RefreshInterval = %v, want 10s", cfg.RefreshInterval)
	}
	if cfg.ResolveConcurrency != 2 {
		t.Errorf("ResolveConcurrency = %d, want 2", cfg.ResolveConcurrency)
	}
}

func TestLoadInvalidInterval(t *testing.T) {
	t.Setenv("POTLUCK_REFRESH_INTERVAL", "soon")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for invalid interval")
	}
}

func TestLoadAllowedOrigins(t *testing.T) {
	t.Setenv("POTLUCK_ALLOWED_ORIGINS", " kuchnia.local:8080, ,*.lan ")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []string{"kuchnia.local:8080", "*.lan"}
	if !slices.Equal(cfg.AllowedOrigins, want) {
		t.Errorf("AllowedOrigins = %v, want %v", cfg.AllowedOrigins, want)
	}
}
