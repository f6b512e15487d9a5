package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"UPLOAD_DIR", "FONT_PATH", "GEMINI_MODEL", "VISION_PROVIDER", "OLLAMA_MODEL", "VISION_PARALLELISM", "VISION_BREAKER_ENABLED", "NATS_URL", "NATS_SUBJECT", "API_RATE_LIMIT_RPS", "API_MAX_IN_FLIGHT", "MAX_UPLOAD_MB"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.UploadDir != "./uploads" {
		t.Fatalf("expected default upload dir ./uploads, got %q", cfg.UploadDir)
	}
	if cfg.FontPath != "./fonts/ipaexg.ttf" {
		t.Fatalf("expected default font path, got %q", cfg.FontPath)
	}
	if cfg.GeminiModel != "gemini-1.5-flash" {
		t.Fatalf("expected default model gemini-1.5-flash, got %q", cfg.GeminiModel)
	}
	if cfg.VisionProvider != "gemini" || cfg.OllamaModel != "llava" {
		t.Fatalf("unexpected vision provider defaults %q %q", cfg.VisionProvider, cfg.OllamaModel)
	}
	if cfg.VisionParallelism != 1 {
		t.Fatalf("expected sequential analysis by default, got %d", cfg.VisionParallelism)
	}
	if cfg.VisionBreakerEnabled {
		t.Fatalf("expected breaker disabled by default")
	}
	if cfg.NATSURL != "" || cfg.NATSSubject != "diagnosis.reports" {
		t.Fatalf("unexpected nats defaults %q %q", cfg.NATSURL, cfg.NATSSubject)
	}
	if cfg.APIRateLimitRPS != 0 || cfg.APIMaxInFlight != 0 {
		t.Fatalf("expected traffic control disabled by default")
	}
	if cfg.MaxUploadMB != 32 {
		t.Fatalf("expected 32MB upload limit, got %d", cfg.MaxUploadMB)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("VISION_PARALLELISM", "3")
	t.Setenv("VISION_BREAKER_ENABLED", "true")
	t.Setenv("VISION_BREAKER_FAILURE_RATIO", "0.75")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")
	t.Setenv("API_MAX_IN_FLIGHT", "not-a-number")

	cfg := Load()
	if cfg.VisionParallelism != 3 {
		t.Fatalf("expected parallelism 3, got %d", cfg.VisionParallelism)
	}
	if !cfg.VisionBreakerEnabled || cfg.VisionBreakerFailureRatio != 0.75 {
		t.Fatalf("unexpected breaker settings %+v", cfg)
	}
	if cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("expected rate limit 2.5, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.APIMaxInFlight != 0 {
		t.Fatalf("invalid ints fall back to defaults, got %d", cfg.APIMaxInFlight)
	}
}

func TestLoadDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "GEMINI_MODEL=gemini-from-file\nUPLOAD_DIR=/tmp/from-file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("UPLOAD_DIR", "/srv/uploads")
	t.Setenv("GEMINI_MODEL", "")
	os.Unsetenv("GEMINI_MODEL")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	cfg := Load()
	if cfg.GeminiModel != "gemini-from-file" {
		t.Fatalf("expected model from .env, got %q", cfg.GeminiModel)
	}
	if cfg.UploadDir != "/srv/uploads" {
		t.Fatalf("environment must win over .env, got %q", cfg.UploadDir)
	}
}

func TestLoadDotEnvIgnoresMissingFile(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("missing .env should be ignored, got %v", err)
	}
}
