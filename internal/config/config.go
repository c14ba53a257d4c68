// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/wpassist/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	Port           string
	FrontendURL    string
	AllowedOrigins []string
	DefaultSiteURL string
	DisplayMode    domain.DisplayMode
	SessionIdleTTL time.Duration
	MetricsEnabled bool
	Gemini         GeminiConfig
	SSE            SSEConfig
	Log            LogConfig
}

// GeminiConfig holds language model settings.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// SSEConfig controls the change-notification stream.
type SSEConfig struct {
	KeepaliveInterval  time.Duration
	RetryDelay         time.Duration
	MaxRequestBodySize int64
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level string
	File  string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	apiKey := getEnv("GEMINI_API_KEY", "")
	if apiKey == "" {
		apiKey = getEnv("API_KEY", "")
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		FrontendURL:    getEnv("FRONTEND_URL", ""),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
		DefaultSiteURL: getEnv("DEFAULT_SITE_URL", ""),
		DisplayMode:    domain.ParseDisplayMode(getEnv("DISPLAY_MODE", string(domain.ModeWidget))),
		SessionIdleTTL: getEnvDuration("SESSION_IDLE_TTL", 30*time.Minute),
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		Gemini: GeminiConfig{
			APIKey:  apiKey,
			Model:   getEnv("GEMINI_MODEL", "gemini-3-flash-preview"),
			BaseURL: getEnv("GEMINI_BASE_URL", ""),
		},
		SSE: SSEConfig{
			KeepaliveInterval:  getEnvDuration("SSE_KEEPALIVE", 10*time.Second),
			RetryDelay:         getEnvDuration("SSE_RETRY_DELAY", 5*time.Second),
			MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY", 64<<10)),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
// The Gemini key is checked where the model client is built.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if len(c.AllowedOrigins) == 0 {
		return fmt.Errorf("ALLOWED_ORIGINS cannot be empty")
	}
	if c.SessionIdleTTL <= 0 {
		return fmt.Errorf("SESSION_IDLE_TTL must be > 0")
	}
	if c.SSE.KeepaliveInterval <= 0 {
		return fmt.Errorf("SSE_KEEPALIVE must be > 0")
	}
	if c.SSE.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY must be > 0")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return b
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
