package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chat-client.yaml")
	raw := "backend:\n  baseUrl: https://shop.example.com/\n  pollInterval: 7s\nsend:\n  ratePerSecond: 2\n"
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Backend.BaseURL != "https://shop.example.com" {
		t.Fatalf("expected trimmed base url, got %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.PollInterval != 7*time.Second {
		t.Fatalf("expected 7s poll interval, got %v", cfg.Backend.PollInterval)
	}
	if cfg.Send.RatePerSecond != 2 || cfg.Send.Burst != 3 {
		t.Fatalf("expected merged send config with default burst, got %#v", cfg.Send)
	}
	if cfg.Backend.RequestTimeout != 10*time.Second {
		t.Fatalf("expected default request timeout, got %v", cfg.Backend.RequestTimeout)
	}
}

func TestLoadRejectsMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected an error for a missing explicit config path")
	}
}

func TestLoadRequiresBaseURL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chat-client.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error without a backend base url")
	}
}

func TestEnvOverridesWin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chat-client.yaml")
	if err := os.WriteFile(path, []byte("backend:\n  baseUrl: https://file.example.com\n"), 0o600); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
	t.Setenv("SHOPCHAT_BACKEND_URL", "https://env.example.com")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Backend.BaseURL != "https://env.example.com" {
		t.Fatalf("expected env override, got %q", cfg.Backend.BaseURL)
	}
}

func TestWebsocketURLDerivation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend.BaseURL = "https://shop.example.com"
	if got := cfg.WebsocketURL(); got != "wss://shop.example.com" {
		t.Fatalf("expected derived wss url, got %q", got)
	}
	cfg.Backend.WSURL = "wss://push.example.com"
	if got := cfg.WebsocketURL(); got != "wss://push.example.com" {
		t.Fatalf("expected explicit ws url, got %q", got)
	}
}

func TestPollIntervalFloor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend.BaseURL = "http://localhost:8080"
	cfg.Backend.PollInterval = 100 * time.Millisecond
	normalize(&cfg)
	if cfg.Backend.PollInterval != 5*time.Second {
		t.Fatalf("sub-second intervals must fall back to the default, got %v", cfg.Backend.PollInterval)
	}
}
