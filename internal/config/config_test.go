package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("default port: expected 8080, got %d", cfg.Server.Port)
	}
	if cfg.Auth.AttachFailureDelay != 2*time.Second {
		t.Errorf("default attach delay: expected 2s, got %v", cfg.Auth.AttachFailureDelay)
	}
	if cfg.Notifier.MaxFilterResults != 1000 {
		t.Errorf("default filter cap: expected 1000, got %d", cfg.Notifier.MaxFilterResults)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("default log level: expected info, got %q", cfg.Log.Level)
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  port: 9999
  host: 127.0.0.1
  auth_token: sekrit
auth:
  attach_failure_delay: 500ms
notifier:
  max_filter_results: 50
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("port: expected 9999, got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("host: expected 127.0.0.1, got %q", cfg.Server.Host)
	}
	if cfg.Server.AuthToken != "sekrit" {
		t.Errorf("auth token not loaded")
	}
	if cfg.Auth.AttachFailureDelay != 500*time.Millisecond {
		t.Errorf("attach delay: expected 500ms, got %v", cfg.Auth.AttachFailureDelay)
	}
	if cfg.Notifier.MaxFilterResults != 50 {
		t.Errorf("filter cap: expected 50, got %d", cfg.Notifier.MaxFilterResults)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
