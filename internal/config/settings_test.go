package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setupHome(t *testing.T) string {
	t.Helper()
	home := filepath.Join(t.TempDir(), "home")
	t.Setenv("HOME", home)
	t.Setenv(EnvBaseURL, "")
	t.Setenv(EnvToken, "")
	t.Setenv(EnvLogLevel, "")
	return home
}

func writeDataFile(t *testing.T, home, name, content string) {
	t.Helper()
	dataDir := filepath.Join(home, ".finchat")
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	setupHome(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL() != "http://127.0.0.1:3000" {
		t.Fatalf("unexpected base url: %q", cfg.BaseURL())
	}
	if cfg.IdleTimeout() != 60*time.Second {
		t.Fatalf("unexpected idle timeout: %s", cfg.IdleTimeout())
	}
	if cfg.ReloadTimeout() != 15*time.Second {
		t.Fatalf("unexpected reload timeout: %s", cfg.ReloadTimeout())
	}
	if !cfg.MarkdownEnabled() {
		t.Fatalf("expected markdown enabled by default")
	}
	if cfg.Token() != "" {
		t.Fatalf("expected no token by default")
	}
}

func TestLoadFromTOML(t *testing.T) {
	home := setupHome(t)
	writeDataFile(t, home, "config.toml", strings.Join([]string{
		"[server]",
		`base_url = "localhost:4000/"`,
		"[chat]",
		"idle_timeout_seconds = -1",
		"[ui]",
		"markdown = false",
		"sidebar_width = 200",
		"",
	}, "\n"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL() != "http://localhost:4000" {
		t.Fatalf("unexpected base url: %q", cfg.BaseURL())
	}
	if cfg.IdleTimeout() != 0 {
		t.Fatalf("expected watchdog disabled, got %s", cfg.IdleTimeout())
	}
	if cfg.MarkdownEnabled() {
		t.Fatalf("expected markdown disabled")
	}
	if cfg.SidebarWidth() != maxSidebarWidth {
		t.Fatalf("expected sidebar width clamped, got %d", cfg.SidebarWidth())
	}
}

func TestLoadAppliesDotenvThenProcessEnv(t *testing.T) {
	home := setupHome(t)
	writeDataFile(t, home, ".env", "FINCHAT_TOKEN=from-file\nFINCHAT_BASE_URL=http://file:1\n")
	t.Setenv(EnvBaseURL, "http://env:2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Token() != "from-file" {
		t.Fatalf("expected token from dotenv, got %q", cfg.Token())
	}
	if cfg.BaseURL() != "http://env:2" {
		t.Fatalf("expected process env to win, got %q", cfg.BaseURL())
	}
}

func TestLogFileResolvesRelativeToDataDir(t *testing.T) {
	home := setupHome(t)
	cfg := DefaultConfig()
	cfg.Logging.File = "logs/ui.log"
	path, err := cfg.LogFile()
	if err != nil {
		t.Fatalf("LogFile: %v", err)
	}
	if want := filepath.Join(home, ".finchat", "logs", "ui.log"); path != want {
		t.Fatalf("unexpected log path: got=%q want=%q", path, want)
	}
}
