package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// clock is swapped out in tests.
var clock = time.Now

// RateLimiter decides whether the caller identified by key may proceed.
type RateLimiter interface {
	Allow(key string) bool
}

type bucket struct {
	tokens *rate.Limiter
	seen   time.Time
}

// keyedLimiter keeps one token bucket per client key. Buckets idle for
// longer than idle are dropped on the next call.
type keyedLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	every   rate.Limit
	burst   int
	idle    time.Duration
}

// NewIPRateLimiter lets each key make requests calls per window. burst
// defaults to requests, idle defaults to five minutes.
func NewIPRateLimiter(requests int, window time.Duration, burst int, idle time.Duration) RateLimiter {
	requests = max(requests, 1)
	if window <= 0 {
		window = time.Second
	}
	if burst <= 0 {
		burst = requests
	}
	if idle <= 0 {
		idle = 5 * time.Minute
	}
	return &keyedLimiter{
		buckets: make(map[string]*bucket),
		every:   rate.Every(window / time.Duration(requests)),
		burst:   burst,
		idle:    idle,
	}
}

func (l *keyedLimiter) Allow(key string) bool {
	if key == "" {
		key = "unknown"
	}
	now := clock()

	l.mu.Lock()
	defer l.mu.Unlock()

	for k, b := range l.buckets {
		if k != key && now.Sub(b.seen) > l.idle {
			delete(l.buckets, k)
		}
	}
	b, ok := l.buckets[key]
	if !ok || now.Sub(b.seen) > l.idle {
		b = &bucket{tokens: rate.NewLimiter(l.every, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	return b.tokens.AllowN(now, 1)
}

// RateLimit answers 429 once the client IP exceeds limiter. A nil limiter disables limiting.
func RateLimit(limiter RateLimiter, retryAfter time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if limiter == nil || limiter.Allow(c.IP()) {
			return c.Next()
		}
		if retryAfter > 0 {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(retryAfter.Seconds()+0.5)))
		}
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error": "Too many requests, try again later",
		})
	}
}
