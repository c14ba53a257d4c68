package config

import (
	"testing"
	"time"

	"github.com/ashureev/wpassist/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "GEMINI_API_KEY", "API_KEY", "ALLOWED_ORIGINS", "DISPLAY_MODE", "SESSION_IDLE_TTL", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
	t.Setenv("PORT", "8080")
	t.Setenv("ALLOWED_ORIGINS", "*")
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("SESSION_IDLE_TTL", "30m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected port 8080, got %q", cfg.Port)
	}
	if cfg.DisplayMode != domain.ModeWidget {
		t.Errorf("expected widget mode, got %q", cfg.DisplayMode)
	}
	if cfg.SessionIdleTTL != 30*time.Minute {
		t.Errorf("expected 30m idle ttl, got %v", cfg.SessionIdleTTL)
	}
	if cfg.Gemini.APIKey != "" {
		t.Errorf("expected empty api key, got %q", cfg.Gemini.APIKey)
	}
}

func TestLoadAPIKeyFallback(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "legacy-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Gemini.APIKey != "legacy-key" {
		t.Errorf("expected API_KEY fallback, got %q", cfg.Gemini.APIKey)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://blog.example.com, https://www.example.com ,")
	t.Setenv("DISPLAY_MODE", "inline")
	t.Setenv("SSE_KEEPALIVE", "3s")
	t.Setenv("GEMINI_API_KEY", "key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://www.example.com" {
		t.Errorf("unexpected origins: %v", cfg.AllowedOrigins)
	}
	if cfg.DisplayMode != domain.ModeInline {
		t.Errorf("expected inline mode, got %q", cfg.DisplayMode)
	}
	if cfg.SSE.KeepaliveInterval != 3*time.Second {
		t.Errorf("expected 3s keepalive, got %v", cfg.SSE.KeepaliveInterval)
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose")
	if _, err := Load(); err == nil {
		t.Fatal("expected invalid LOG_LEVEL to fail")
	}

	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("ALLOWED_ORIGINS", " , ")
	if _, err := Load(); err == nil {
		t.Fatal("expected empty ALLOWED_ORIGINS to fail")
	}
}

func TestIsDevelopment(t *testing.T) {
	cases := map[string]bool{
		"":                          true,
		"http://localhost:5173":     true,
		"https://assist.example.io": false,
	}
	for url, want := range cases {
		c := &Config{FrontendURL: url}
		if got := c.IsDevelopment(); got != want {
			t.Errorf("IsDevelopment(%q) = %v, want %v", url, got, want)
		}
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("METRICS_ENABLED", "false")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MetricsEnabled {
		t.Error("expected metrics to be disabled")
	}

	t.Setenv("METRICS_ENABLED", "not-a-bool")
	if !getEnvBool("METRICS_ENABLED", true) {
		t.Error("expected fallback for unparsable value")
	}
}
