package infra

import (
	"testing"
	"time"
)

func clearEditorEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "PORT", "LOG_LEVEL", "GEMINI_API_KEY", "API_KEY", "GEMINI_MODEL",
		"GEMINI_BASE_URL", "GEMINI_TIMEOUT_SECONDS", "SECRETS_DIR", "HTTP_READ_TIMEOUT_SECONDS",
		"HTTP_WRITE_TIMEOUT_SECONDS", "HTTP_IDLE_TIMEOUT_SECONDS", "SHUTDOWN_TIMEOUT_SECONDS",
		"SESSION_TTL_MINUTES", "MAX_SESSIONS", "RATE_LIMIT_PER_MINUTE", "UPLOAD_RATE_LIMIT_PER_MINUTE",
		"CORS_ALLOWED_ORIGINS", "DEFAULT_LOCALE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEditorEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.GeminiModel != "gemini-2.5-flash-image" {
		t.Fatalf("GeminiModel = %q", cfg.GeminiModel)
	}
	if cfg.GeminiAPIKey != "" {
		t.Fatalf("GeminiAPIKey = %q, want empty", cfg.GeminiAPIKey)
	}
	if cfg.GeminiTimeout != 0 {
		t.Fatalf("GeminiTimeout = %s, want none", cfg.GeminiTimeout)
	}
	if cfg.SessionTTL != time.Hour {
		t.Fatalf("SessionTTL = %s, want 1h", cfg.SessionTTL)
	}
	if cfg.RateLimitPerMin != 30 {
		t.Fatalf("RateLimitPerMin = %d, want 30", cfg.RateLimitPerMin)
	}
	if cfg.UploadLimitPerMin != 60 {
		t.Fatalf("UploadLimitPerMin = %d, want 60", cfg.UploadLimitPerMin)
	}
	if cfg.MaxSessions != 1000 {
		t.Fatalf("MaxSessions = %d, want 1000", cfg.MaxSessions)
	}
	if len(cfg.CORSAllowedOrigins) != 0 {
		t.Fatalf("CORSAllowedOrigins = %#v, want none", cfg.CORSAllowedOrigins)
	}
	if !cfg.IsDevelopment() {
		t.Fatalf("IsDevelopment() = false for default env")
	}
}

func TestLoadConfigAPIKeyAlias(t *testing.T) {
	clearEditorEnv(t)
	t.Setenv("API_KEY", " from-alias ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.GeminiAPIKey != "from-alias" {
		t.Fatalf("GeminiAPIKey = %q, want %q", cfg.GeminiAPIKey, "from-alias")
	}

	t.Setenv("GEMINI_API_KEY", "primary")
	cfg, _ = LoadConfig()
	if cfg.GeminiAPIKey != "primary" {
		t.Fatalf("GeminiAPIKey = %q, want GEMINI_API_KEY to win", cfg.GeminiAPIKey)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	clearEditorEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("PORT", "1919")
	t.Setenv("SESSION_TTL_MINUTES", "5")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "not-a-number")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com ")
	t.Setenv("GEMINI_TIMEOUT_SECONDS", "90")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.IsDevelopment() {
		t.Fatalf("IsDevelopment() = true for production")
	}
	if cfg.Port != "1919" {
		t.Fatalf("Port = %q", cfg.Port)
	}
	if cfg.SessionTTL != 5*time.Minute {
		t.Fatalf("SessionTTL = %s", cfg.SessionTTL)
	}
	if cfg.RateLimitPerMin != 30 {
		t.Fatalf("RateLimitPerMin = %d, want fallback 30", cfg.RateLimitPerMin)
	}
	if cfg.GeminiTimeout != 90*time.Second {
		t.Fatalf("GeminiTimeout = %s", cfg.GeminiTimeout)
	}
	want := []string{"https://a.example.com", "https://b.example.com"}
	if len(cfg.CORSAllowedOrigins) != len(want) {
		t.Fatalf("CORSAllowedOrigins = %#v, want %#v", cfg.CORSAllowedOrigins, want)
	}
	for i := range want {
		if cfg.CORSAllowedOrigins[i] != want[i] {
			t.Fatalf("CORSAllowedOrigins[%d] = %q, want %q", i, cfg.CORSAllowedOrigins[i], want[i])
		}
	}
}

func TestLoadConfigNonPositiveTTLFallsBack(t *testing.T) {
	clearEditorEnv(t)
	t.Setenv("SESSION_TTL_MINUTES", "0")
	cfg, _ := LoadConfig()
	if cfg.SessionTTL != time.Hour {
		t.Fatalf("SessionTTL = %s, want 1h", cfg.SessionTTL)
	}
}
