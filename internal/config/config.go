package config

import (
	"os"
	"strconv"
	"time"

	"github.com/kirillkom/document-converter/internal/infrastructure/resilience"
)

type Config struct {
	APIPort    string
	LogLevel   string
	AppVersion string

	MaxUploadBytes int64

	RateLimitConvertPerMinute int
	RateLimitConvertBurst     int
	RateLimitDefaultPerMinute int
	RateLimitDefaultBurst     int

	BackpressureMaxInFlight int
	BackpressureWaitMillis  int

	CacheEnabled    bool
	CacheMaxEntries int
	CacheTTLSeconds int

	// Empty values disable conversion history and conversion events.
	PostgresDSN string
	NATSURL     string
	NATSSubject string

	ConverterAPIURL      string
	ConverterConvertPath string
	ConverterLegacyForm  bool
	ClientTimeoutSeconds int
	DownloadDir          string

	RetryMaxAttempts      int
	RetryInitialBackoffMS int
	RetryMaxBackoffMS     int
	RetryAfterCapSeconds  int

	BreakerEnabled            bool
	BreakerMinRequests        int
	BreakerFailureRatio       float64
	BreakerOpenTimeoutSeconds int
}

func Load() Config {
	return Config{
		APIPort:    mustEnv("API_PORT", "5000"),
		LogLevel:   mustEnv("LOG_LEVEL", "info"),
		AppVersion: mustEnv("APP_VERSION", "1.0.0"),

		MaxUploadBytes: mustEnvInt64("MAX_UPLOAD_BYTES", 16<<20),

		RateLimitConvertPerMinute: mustEnvInt("RATE_LIMIT_CONVERT_PER_MINUTE", 10),
		RateLimitConvertBurst:     mustEnvInt("RATE_LIMIT_CONVERT_BURST", 3),
		RateLimitDefaultPerMinute: mustEnvInt("RATE_LIMIT_DEFAULT_PER_MINUTE", 60),
		RateLimitDefaultBurst:     mustEnvInt("RATE_LIMIT_DEFAULT_BURST", 10),

		BackpressureMaxInFlight: mustEnvInt("BACKPRESSURE_MAX_IN_FLIGHT", 16),
		BackpressureWaitMillis:  mustEnvInt("BACKPRESSURE_WAIT_MS", 250),

		CacheEnabled:    mustEnvBool("CACHE_ENABLED", true),
		CacheMaxEntries: mustEnvInt("CACHE_MAX_ENTRIES", 100),
		CacheTTLSeconds: mustEnvInt("CACHE_TTL_SECONDS", 3600),

		PostgresDSN: os.Getenv("POSTGRES_DSN"),
		NATSURL:     os.Getenv("NATS_URL"),
		NATSSubject: mustEnv("NATS_SUBJECT", "documents.converted"),

		ConverterAPIURL:      mustEnv("CONVERTER_API_URL", mustEnv("NEXT_PUBLIC_API_URL", "http://localhost:5000")),
		ConverterConvertPath: mustEnv("CONVERTER_CONVERT_PATH", "/api/v1/convert"),
		ConverterLegacyForm:  mustEnvBool("CONVERTER_LEGACY_FORM", false),
		ClientTimeoutSeconds: mustEnvInt("CLIENT_TIMEOUT_SECONDS", 120),
		DownloadDir:          mustEnv("DOWNLOAD_DIR", "."),

		RetryMaxAttempts:      mustEnvInt("RETRY_MAX_ATTEMPTS", 3),
		RetryInitialBackoffMS: mustEnvInt("RETRY_INITIAL_BACKOFF_MS", 100),
		RetryMaxBackoffMS:     mustEnvInt("RETRY_MAX_BACKOFF_MS", 400),
		RetryAfterCapSeconds:  mustEnvInt("RETRY_AFTER_CAP_SECONDS", 5),

		BreakerEnabled:            mustEnvBool("BREAKER_ENABLED", true),
		BreakerMinRequests:        mustEnvInt("BREAKER_MIN_REQUESTS", 5),
		BreakerFailureRatio:       mustEnvFloat("BREAKER_FAILURE_RATIO", 0.5),
		BreakerOpenTimeoutSeconds: mustEnvInt("BREAKER_OPEN_TIMEOUT_SECONDS", 30),
	}
}

// Resilience builds the executor policy for calls to the conversion endpoint.
func (c Config) Resilience() resilience.Config {
	cfg := resilience.DefaultConfig()
	cfg.RetryMaxAttempts = c.RetryMaxAttempts
	cfg.RetryInitialBackoff = time.Duration(c.RetryInitialBackoffMS) * time.Millisecond
	cfg.RetryMaxBackoff = time.Duration(c.RetryMaxBackoffMS) * time.Millisecond
	cfg.RetryAfterCap = time.Duration(c.RetryAfterCapSeconds) * time.Second
	cfg.BreakerEnabled = c.BreakerEnabled
	if c.BreakerMinRequests > 0 {
		cfg.BreakerMinRequests = uint32(c.BreakerMinRequests)
	}
	cfg.BreakerFailureRatio = c.BreakerFailureRatio
	cfg.BreakerOpenTimeout = time.Duration(c.BreakerOpenTimeoutSeconds) * time.Second
	return cfg
}

func (c Config) ClientTimeout() time.Duration {
	return time.Duration(c.ClientTimeoutSeconds) * time.Second
}

func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
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

func mustEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
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
