package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/livrocaixa/backend/internal/domain/tenancy"
)

// RateLimiter is a fixed-window in-memory limiter. Buckets are keyed by
// tenant where a binding exists, so one tenant bursting cannot starve the
// others behind the same proxy IP.
type RateLimiter struct {
	mu          sync.Mutex
	buckets     map[string]*bucket
	limit       int
	window      time.Duration
	cleanupTick time.Duration
}

type bucket struct {
	tokens    int
	lastReset time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per window
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		buckets:     make(map[string]*bucket),
		limit:       limit,
		window:      window,
		cleanupTick: window * 2,
	}
	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.cleanupTick)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for key, b := range rl.buckets {
			if now.Sub(b.lastReset) > rl.window*2 {
				delete(rl.buckets, key)
			}
		}
		rl.mu.Unlock()
	}
}

// Allow reports whether a request under the given key may proceed
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, exists := rl.buckets[key]
	if !exists {
		rl.buckets[key] = &bucket{tokens: rl.limit - 1, lastReset: now}
		return true
	}

	if now.Sub(b.lastReset) >= rl.window {
		b.tokens = rl.limit - 1
		b.lastReset = now
		return true
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

// Remaining returns how many requests the key has left in its window
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.buckets[key]
	if !exists || time.Since(b.lastReset) >= rl.window {
		return rl.limit
	}
	return b.tokens
}

// limitKey picks the bucket for a request: the bound tenant when one exists,
// the declared tenant header before authentication has bound it, and the
// client IP for anonymous traffic.
func limitKey(c *gin.Context) string {
	if tenantID, ok := tenancy.TenantFromContext(c.Request.Context()); ok {
		return "tenant:" + tenantID.String()
	}
	if declared := c.GetHeader("X-Tenant-ID"); declared != "" {
		return "tenant:" + declared
	}
	return "ip:" + c.ClientIP()
}

// RateLimit enforces the limiter per tenant (or client IP) and reports the
// window state in X-RateLimit headers
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := limitKey(c)

		if !limiter.Allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "RATE_LIMIT_EXCEEDED",
					"message": "Too many requests. Please try again later.",
				},
			})
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(key)))
		c.Next()
	}
}
