package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OLLAMA_MODELS", "")
	t.Setenv("CACHE_BACKEND", "")
	t.Setenv("RETRY_MAX_ATTEMPTS", "")
	t.Setenv("BREAKER_FAILURE_THRESHOLD", "")
	t.Setenv("CACHE_TTL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Models) != 1 || cfg.Models[0].Name != "llava" {
		t.Fatalf("expected default model llava, got %+v", cfg.Models)
	}
	if cfg.Models[0].URL != "http://localhost:11434" {
		t.Fatalf("expected model to inherit OLLAMA_URL, got %q", cfg.Models[0].URL)
	}
	if cfg.CacheBackend != "memory" {
		t.Fatalf("expected default cache backend memory, got %q", cfg.CacheBackend)
	}
	if cfg.RetryMaxAttempts != 3 {
		t.Fatalf("expected default retry attempts 3, got %d", cfg.RetryMaxAttempts)
	}
	if cfg.BreakerFailureThreshold != 5 {
		t.Fatalf("expected default failure threshold 5, got %d", cfg.BreakerFailureThreshold)
	}
	if cfg.CacheTTL != time.Hour {
		t.Fatalf("expected default cache ttl 1h, got %v", cfg.CacheTTL)
	}
	if cfg.PostgresDSN != "" {
		t.Fatalf("expected persistence off by default, got %q", cfg.PostgresDSN)
	}
}

func TestLoadParsesModelList(t *testing.T) {
	t.Setenv("OLLAMA_URL", "http://gpu-1:11434")
	t.Setenv("OLLAMA_MODELS", "llava, bakllava=http://gpu-2:11434")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Models) != 2 {
		t.Fatalf("expected 2 models, got %+v", cfg.Models)
	}
	if cfg.Models[0].Name != "llava" || cfg.Models[0].URL != "http://gpu-1:11434" {
		t.Fatalf("unexpected first model: %+v", cfg.Models[0])
	}
	if cfg.Models[1].Name != "bakllava" || cfg.Models[1].URL != "http://gpu-2:11434" {
		t.Fatalf("unexpected second model: %+v", cfg.Models[1])
	}
}

func TestLoadRejectsUnknownCacheBackend(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "memcached")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown cache backend")
	}
}

func TestLoadParsesDurationOverrides(t *testing.T) {
	t.Setenv("MODEL_TIMEOUT", "90s")
	t.Setenv("RETRY_BASE_DELAY", "250ms")
	t.Setenv("BREAKER_RECOVERY_TIMEOUT", "30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ModelTimeout != 90*time.Second {
		t.Fatalf("expected model timeout 90s, got %v", cfg.ModelTimeout)
	}
	if cfg.RetryBaseDelay != 250*time.Millisecond {
		t.Fatalf("expected retry base delay 250ms, got %v", cfg.RetryBaseDelay)
	}
	if cfg.BreakerRecoveryTimeout != 30*time.Second {
		t.Fatalf("expected bare seconds accepted, got %v", cfg.BreakerRecoveryTimeout)
	}
}
