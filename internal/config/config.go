package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ModelEndpoint names one Ollama vision model and where to reach it.
type ModelEndpoint struct {
	Name string
	URL  string
}

type Config struct {
	ServiceName string
	LogLevel    string

	// Models is parsed from OLLAMA_MODELS, a comma-separated list of
	// name=url pairs. A bare name inherits OLLAMA_URL.
	Models         []ModelEndpoint
	OllamaURL      string
	ModelTimeout   time.Duration
	ModelRPS       float64
	MinConfidence  float64
	ScoringEnabled bool

	RetryMaxAttempts        int
	RetryBaseDelay          time.Duration
	RetryMaxDelay           time.Duration
	BreakerEnabled          bool
	BreakerFailureThreshold uint32
	BreakerRecoveryTimeout  time.Duration

	// CacheBackend is "memory" or "redis".
	CacheBackend string
	CacheTTL     time.Duration
	RedisAddr    string
	RedisDB      int

	// PostgresDSN empty means results are not persisted.
	PostgresDSN string

	NATSURL     string
	NATSSubject string

	StoragePath string

	WorkerCount       int
	WorkerMetricsPort string

	// ClassifierRulesPath points at an optional YAML rule file; empty
	// keeps the built-in indicator set.
	ClassifierRulesPath string
}

func Load() (Config, error) {
	cfg := Config{
		ServiceName: mustEnv("SERVICE_NAME", "ocr-flavors"),
		LogLevel:    mustEnv("LOG_LEVEL", "info"),

		OllamaURL:      mustEnv("OLLAMA_URL", "http://localhost:11434"),
		ModelTimeout:   mustEnvDuration("MODEL_TIMEOUT", 60*time.Second),
		ModelRPS:       mustEnvFloat("MODEL_RPS", 1.0),
		MinConfidence:  mustEnvFloat("MIN_CONFIDENCE", 0.3),
		ScoringEnabled: mustEnvBool("SCORING_ENABLED", true),

		RetryMaxAttempts:        mustEnvInt("RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:          mustEnvDuration("RETRY_BASE_DELAY", time.Second),
		RetryMaxDelay:           mustEnvDuration("RETRY_MAX_DELAY", 60*time.Second),
		BreakerEnabled:          mustEnvBool("BREAKER_ENABLED", true),
		BreakerFailureThreshold: uint32(mustEnvInt("BREAKER_FAILURE_THRESHOLD", 5)),
		BreakerRecoveryTimeout:  mustEnvDuration("BREAKER_RECOVERY_TIMEOUT", 60*time.Second),

		CacheBackend: mustEnv("CACHE_BACKEND", "memory"),
		CacheTTL:     mustEnvDuration("CACHE_TTL", time.Hour),
		RedisAddr:    mustEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:      mustEnvInt("REDIS_DB", 0),

		PostgresDSN: mustEnv("POSTGRES_DSN", ""),

		NATSURL:     mustEnv("NATS_URL", "nats://localhost:4222"),
		NATSSubject: mustEnv("NATS_SUBJECT", "documents.ingest"),

		StoragePath: mustEnv("STORAGE_PATH", "./data/inbox"),

		WorkerCount:       mustEnvInt("WORKER_COUNT", 4),
		WorkerMetricsPort: mustEnv("WORKER_METRICS_PORT", "9090"),

		ClassifierRulesPath: mustEnv("CLASSIFIER_RULES_PATH", ""),
	}

	models, err := parseModels(mustEnv("OLLAMA_MODELS", "llava"), cfg.OllamaURL)
	if err != nil {
		return Config{}, err
	}
	cfg.Models = models

	switch cfg.CacheBackend {
	case "memory", "redis":
	default:
		return Config{}, fmt.Errorf("config: unknown CACHE_BACKEND %q", cfg.CacheBackend)
	}
	return cfg, nil
}

// parseModels accepts "llava,bakllava=http://gpu-2:11434" style lists.
func parseModels(raw, defaultURL string) ([]ModelEndpoint, error) {
	var out []ModelEndpoint
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, url, found := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("config: empty model name in OLLAMA_MODELS entry %q", part)
		}
		if !found || strings.TrimSpace(url) == "" {
			url = defaultURL
		}
		out = append(out, ModelEndpoint{Name: name, URL: strings.TrimSpace(url)})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("config: OLLAMA_MODELS must name at least one model")
	}
	return out, nil
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Plain integers are read as seconds for compatibility with
		// older deployments that exported bare numbers.
		if n, convErr := strconv.Atoi(v); convErr == nil {
			return time.Duration(n) * time.Second
		}
		return fallback
	}
	return d
}
