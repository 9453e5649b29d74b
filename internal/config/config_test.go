package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"SERVER_PORT", "PLAYLIST_BASE_URL", "FETCHER_USER_AGENT",
		"FETCHER_TIMEOUT", "DEFAULT_REGION", "DATA_DIR", "RULES_PATH",
		"REDIS_URL", "DATABASE_URL",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("default port = %q", cfg.ServerPort)
	}
	if cfg.PlaylistBaseURL != defaultPlaylistBaseURL {
		t.Errorf("default base url = %q", cfg.PlaylistBaseURL)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("default timeout = %v", cfg.Timeout)
	}
	if cfg.DefaultRegion != "IN" {
		t.Errorf("default region = %q", cfg.DefaultRegion)
	}
	if cfg.DataDir != "data" {
		t.Errorf("default data dir = %q", cfg.DataDir)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("PLAYLIST_BASE_URL", "http://localhost:7000/iptv")
	t.Setenv("FETCHER_TIMEOUT", "10s")
	t.Setenv("DEFAULT_REGION", "US")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerPort != "9090" {
		t.Errorf("port = %q", cfg.ServerPort)
	}
	if cfg.PlaylistBaseURL != "http://localhost:7000/iptv" {
		t.Errorf("base url = %q", cfg.PlaylistBaseURL)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("timeout = %v", cfg.Timeout)
	}
	if cfg.DefaultRegion != "US" {
		t.Errorf("region = %q", cfg.DefaultRegion)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("redis url = %q", cfg.RedisURL)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
server_port: "9000"
playlist_base_url: http://mirror.example.com/iptv
timeout: 15s
default_region: GB
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.ServerPort != "9000" {
		t.Errorf("port = %q", cfg.ServerPort)
	}
	if cfg.PlaylistBaseURL != "http://mirror.example.com/iptv" {
		t.Errorf("base url = %q", cfg.PlaylistBaseURL)
	}
	if cfg.Timeout != 15*time.Second {
		t.Errorf("timeout = %v", cfg.Timeout)
	}
	if cfg.DefaultRegion != "GB" {
		t.Errorf("region = %q", cfg.DefaultRegion)
	}
	// Unset fields still get defaults.
	if cfg.DataDir != "data" {
		t.Errorf("data dir = %q", cfg.DataDir)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing config file must error")
	}
}
