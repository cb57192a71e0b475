package api

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RateLimitConfig holds rate limiter configuration.
type RateLimitConfig struct {
	RPS   int // requests per second
	Burst int // burst size
}

type tokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

func (b *tokenBucket) allow(now time.Time) bool {
	b.tokens += now.Sub(b.lastRefill).Seconds() * b.refillRate
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

type rateLimiter struct {
	mu      sync.Mutex
	clients map[string]*tokenBucket
	cfg     RateLimitConfig
}

// prune drops buckets idle for over ten minutes. Called under mu when the
// client map has grown large.
func (rl *rateLimiter) prune(now time.Time) {
	for k, b := range rl.clients {
		if now.Sub(b.lastRefill) > 10*time.Minute {
			delete(rl.clients, k)
		}
	}
}

func (rl *rateLimiter) allow(clientIP string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if len(rl.clients) > 10000 {
		rl.prune(now)
	}

	bucket, ok := rl.clients[clientIP]
	if !ok {
		bucket = &tokenBucket{
			tokens:     float64(rl.cfg.Burst),
			maxTokens:  float64(rl.cfg.Burst),
			refillRate: float64(rl.cfg.RPS),
			lastRefill: now,
		}
		rl.clients[clientIP] = bucket
	}
	return bucket.allow(now)
}

// NewRateLimitMiddleware returns a per-client token-bucket rate limiter.
// Probe endpoints are exempt.
func NewRateLimitMiddleware(cfg RateLimitConfig) fiber.Handler {
	rl := &rateLimiter{
		clients: make(map[string]*tokenBucket),
		cfg:     cfg,
	}

	return func(c *fiber.Ctx) error {
		path := c.Path()
		if path == "/healthz" || path == "/readyz" || path == "/metrics" {
			return c.Next()
		}

		if !rl.allow(c.IP()) {
			return problemResponse(c, fiber.StatusTooManyRequests,
				"rate_limit_exceeded", "Too Many Requests",
				"Rate limit exceeded. Please try again later.")
		}

		return c.Next()
	}
}
