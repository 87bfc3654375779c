package httpadapter

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

// RateLimitPolicy is a token bucket refilled at PerMinute tokens per minute.
type RateLimitPolicy struct {
	PerMinute int
	Burst     int
}

func (p RateLimitPolicy) enabled() bool {
	return p.PerMinute > 0
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientRateLimiter keeps one token bucket per client and policy class.
// Buckets idle for longer than limiterIdleTTL are dropped.
type clientRateLimiter struct {
	policies map[string]RateLimitPolicy
	now      func() time.Time

	mu        sync.Mutex
	clients   map[string]*limiterEntry
	lastSweep time.Time
}

func newClientRateLimiter(policies map[string]RateLimitPolicy) *clientRateLimiter {
	return &clientRateLimiter{
		policies: policies,
		now:      time.Now,
		clients:  make(map[string]*limiterEntry),
	}
}

type rateDecision struct {
	allowed    bool
	limit      int
	remaining  int
	reset      time.Time
	retryAfter time.Duration
}

func (l *clientRateLimiter) allow(class, client string) (rateDecision, bool) {
	policy, ok := l.policies[class]
	if !ok || !policy.enabled() {
		return rateDecision{allowed: true}, false
	}
	burst := policy.Burst
	if burst <= 0 {
		burst = 1
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	key := class + "|" + client
	entry, ok := l.clients[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(float64(policy.PerMinute)/60.0), burst)}
		l.clients[key] = entry
	}
	entry.lastSeen = now

	decision := rateDecision{limit: policy.PerMinute}
	reservation := entry.limiter.ReserveN(now, 1)
	if delay := reservation.DelayFrom(now); !reservation.OK() || delay > 0 {
		reservation.CancelAt(now)
		decision.retryAfter = delay
		if decision.retryAfter <= 0 {
			decision.retryAfter = time.Minute
		}
	} else {
		decision.allowed = true
	}

	tokens := entry.limiter.TokensAt(now)
	decision.remaining = int(math.Max(0, math.Floor(tokens)))
	missing := float64(burst) - tokens
	decision.reset = now.Add(time.Duration(missing / float64(entry.limiter.Limit()) * float64(time.Second)))
	return decision, true
}

func (l *clientRateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < limiterIdleTTL {
		return
	}
	l.lastSweep = now
	for key, entry := range l.clients {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(l.clients, key)
		}
	}
}

func (l *clientRateLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// rateLimitMiddleware applies the policy class chosen by classify. Rejected
// requests get 429 with Retry-After; every limited response carries the
// X-RateLimit-* headers.
func rateLimitMiddleware(next http.Handler, limiter *clientRateLimiter, classify func(*http.Request) string, onLimited func(*http.Request)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision, limited := limiter.allow(classify(r), clientIP(r))
		if !limited {
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(decision.limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(decision.remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(decision.reset.Unix(), 10))

		if !decision.allowed {
			retryAfter := int(math.Ceil(decision.retryAfter.Seconds()))
			h.Set("Retry-After", strconv.Itoa(retryAfter))
			if onLimited != nil {
				onLimited(r)
			}
			writeErrorEnvelope(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Rate limit exceeded", map[string]any{
				"limit":       decision.limit,
				"retry_after": retryAfter,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
