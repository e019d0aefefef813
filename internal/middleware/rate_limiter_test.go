package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock pins the package clock to *now until the test ends.
func fakeClock(t *testing.T, now *time.Time) {
	t.Helper()
	clock = func() time.Time { return *now }
	t.Cleanup(func() { clock = time.Now })
}

func TestIPRateLimiterAllowsBurstThenBlocks(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	fakeClock(t, &now)
	limiter := NewIPRateLimiter(3, time.Minute, 0, time.Hour)

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow("1.2.3.4"), "request %d", i)
	}
	assert.False(t, limiter.Allow("1.2.3.4"))
	assert.True(t, limiter.Allow("5.6.7.8"))

	now = now.Add(20 * time.Second)
	assert.True(t, limiter.Allow("1.2.3.4"))
	assert.False(t, limiter.Allow("1.2.3.4"))
}

func TestIPRateLimiterForgetsIdleVisitors(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	fakeClock(t, &now)
	limiter := NewIPRateLimiter(1, time.Hour, 1, time.Minute).(*keyedLimiter)

	assert.True(t, limiter.Allow("a"))
	assert.False(t, limiter.Allow("a"))
	now = now.Add(2 * time.Minute)
	assert.True(t, limiter.Allow("b"))

	limiter.mu.Lock()
	_, stillTracked := limiter.buckets["a"]
	limiter.mu.Unlock()
	assert.False(t, stillTracked)

	// an idle key comes back with a fresh bucket
	assert.True(t, limiter.Allow("a"))
}

func TestRateLimitMiddleware(t *testing.T) {
	app := fiber.New()
	app.Post("/login", RateLimit(NewIPRateLimiter(2, time.Hour, 0, time.Hour), time.Minute), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest("POST", "/login", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
	resp, err := app.Test(httptest.NewRequest("POST", "/login", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))
}

func TestRateLimitDisabled(t *testing.T) {
	app := fiber.New()
	app.Get("/", RateLimit(nil, 0), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}
