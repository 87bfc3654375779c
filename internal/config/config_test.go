package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"API_PORT", "MAX_UPLOAD_BYTES", "CONVERTER_API_URL", "NEXT_PUBLIC_API_URL",
		"RATE_LIMIT_CONVERT_PER_MINUTE", "RATE_LIMIT_CONVERT_BURST", "CACHE_TTL_SECONDS",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.APIPort != "5000" {
		t.Fatalf("expected default port 5000, got %q", cfg.APIPort)
	}
	if cfg.MaxUploadBytes != 16<<20 {
		t.Fatalf("expected 16 MiB upload limit, got %d", cfg.MaxUploadBytes)
	}
	if cfg.ConverterAPIURL != "http://localhost:5000" {
		t.Fatalf("expected default api url, got %q", cfg.ConverterAPIURL)
	}
	if cfg.RateLimitConvertPerMinute != 10 || cfg.RateLimitConvertBurst != 3 {
		t.Fatalf("unexpected convert rate limit %d/%d", cfg.RateLimitConvertPerMinute, cfg.RateLimitConvertBurst)
	}
	if cfg.CacheTTL() != time.Hour {
		t.Fatalf("expected 1h cache ttl, got %s", cfg.CacheTTL())
	}
}

func TestLoadAPIURLFallback(t *testing.T) {
	t.Setenv("CONVERTER_API_URL", "")
	t.Setenv("NEXT_PUBLIC_API_URL", "http://converter:5000")

	if got := Load().ConverterAPIURL; got != "http://converter:5000" {
		t.Fatalf("expected fallback url, got %q", got)
	}

	t.Setenv("CONVERTER_API_URL", "http://primary:5000")
	if got := Load().ConverterAPIURL; got != "http://primary:5000" {
		t.Fatalf("expected primary url, got %q", got)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("MAX_UPLOAD_BYTES", "lots")
	t.Setenv("CLIENT_TIMEOUT_SECONDS", "soon")
	t.Setenv("BREAKER_FAILURE_RATIO", "half")

	cfg := Load()
	if cfg.MaxUploadBytes != 16<<20 {
		t.Fatalf("expected default upload limit, got %d", cfg.MaxUploadBytes)
	}
	if cfg.ClientTimeout() != 120*time.Second {
		t.Fatalf("expected default timeout, got %s", cfg.ClientTimeout())
	}
	if cfg.BreakerFailureRatio != 0.5 {
		t.Fatalf("expected default ratio, got %v", cfg.BreakerFailureRatio)
	}
}

func TestResilienceOverrides(t *testing.T) {
	t.Setenv("RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("RETRY_INITIAL_BACKOFF_MS", "20")
	t.Setenv("BREAKER_ENABLED", "false")

	rc := Load().Resilience()
	if rc.RetryMaxAttempts != 5 {
		t.Fatalf("expected 5 attempts, got %d", rc.RetryMaxAttempts)
	}
	if rc.RetryInitialBackoff != 20*time.Millisecond {
		t.Fatalf("expected 20ms backoff, got %s", rc.RetryInitialBackoff)
	}
	if rc.BreakerEnabled {
		t.Fatalf("expected breaker disabled")
	}
}

func TestLoadLeavesHistoryAndEventsDisabledByDefault(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("NATS_URL", "")
	t.Setenv("NATS_SUBJECT", "")

	cfg := Load()
	if cfg.PostgresDSN != "" || cfg.NATSURL != "" {
		t.Fatalf("expected history and events disabled, got %q %q", cfg.PostgresDSN, cfg.NATSURL)
	}
	if cfg.NATSSubject != "documents.converted" {
		t.Fatalf("unexpected default subject %q", cfg.NATSSubject)
	}
}
