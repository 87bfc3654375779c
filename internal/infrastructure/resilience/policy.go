package resilience

import "time"

// Defaults sized for the converter API and the event bus: both answer in
// milliseconds when healthy, so a few short retries cover a restart and the
// breaker trips before a queue of CLI invocations piles up behind it.
const (
	defaultAttempts       = 3
	defaultInitialBackoff = 100 * time.Millisecond
	defaultMaxBackoff     = 400 * time.Millisecond
	defaultMultiplier     = 2.0
	defaultRetryAfterCap  = 5 * time.Second

	defaultBreakerMinRequests = 5
	defaultBreakerRatio       = 0.5
	defaultBreakerOpenFor     = 30 * time.Second
	defaultHalfOpenCalls      = 2
)

// Config tunes retries and the circuit breaker guarding remote calls.
// Zero fields fall back to DefaultConfig. Callers that must not repeat a
// request classify its errors as non-retryable instead of lowering
// RetryMaxAttempts, so one executor serves every operation.
type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64
	// RetryAfterCap bounds a server Retry-After hint; longer hints end the retries.
	RetryAfterCap time.Duration

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:    defaultAttempts,
		RetryInitialBackoff: defaultInitialBackoff,
		RetryMaxBackoff:     defaultMaxBackoff,
		RetryMultiplier:     defaultMultiplier,
		RetryAfterCap:       defaultRetryAfterCap,

		BreakerEnabled:          true,
		BreakerMinRequests:      defaultBreakerMinRequests,
		BreakerFailureRatio:     defaultBreakerRatio,
		BreakerOpenTimeout:      defaultBreakerOpenFor,
		BreakerHalfOpenMaxCalls: defaultHalfOpenCalls,
	}
}

func (c Config) normalize() Config {
	c.RetryMaxAttempts = positiveInt(c.RetryMaxAttempts, defaultAttempts)
	c.RetryInitialBackoff = positiveDuration(c.RetryInitialBackoff, defaultInitialBackoff)
	c.RetryMaxBackoff = max(positiveDuration(c.RetryMaxBackoff, defaultMaxBackoff), c.RetryInitialBackoff)
	if c.RetryMultiplier < 1 {
		c.RetryMultiplier = defaultMultiplier
	}
	c.RetryAfterCap = positiveDuration(c.RetryAfterCap, defaultRetryAfterCap)

	if c.BreakerMinRequests == 0 {
		c.BreakerMinRequests = defaultBreakerMinRequests
	}
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		c.BreakerFailureRatio = defaultBreakerRatio
	}
	c.BreakerOpenTimeout = positiveDuration(c.BreakerOpenTimeout, defaultBreakerOpenFor)
	if c.BreakerHalfOpenMaxCalls == 0 {
		c.BreakerHalfOpenMaxCalls = defaultHalfOpenCalls
	}
	return c
}

func positiveInt(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func positiveDuration(v, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return v
}
